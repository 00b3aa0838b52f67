package app

import (
	errorsmod "cosmossdk.io/errors"

	"lottochain/internal/state"
)

// The phase cycle is fixed:
//
//	settling -> liquidity -> ticketing -> drawing -> distributing -> settling
//
// lottery/init drops the clock at settling so tranches can be created before
// the first liquidity window opens. The round number bumps exactly once per
// cycle, on entry to liquidity.
func nextPhase(p state.Phase) state.Phase {
	switch p {
	case state.PhaseSettling:
		return state.PhaseLiquidity
	case state.PhaseLiquidity:
		return state.PhaseTicketing
	case state.PhaseTicketing:
		return state.PhaseDrawing
	case state.PhaseDrawing:
		return state.PhaseDistributing
	case state.PhaseDistributing:
		return state.PhaseSettling
	default:
		return state.PhaseUninitialized
	}
}

// phaseDuration returns the timed-phase duration in seconds, or 0 for phases
// that complete immediately.
func phaseDuration(lot *state.LotteryState, p state.Phase) uint64 {
	switch p {
	case state.PhaseLiquidity:
		return lot.LiquiditySecs
	case state.PhaseTicketing:
		return lot.TicketingSecs
	case state.PhaseSettling:
		return lot.SettlingSecs
	default:
		// drawing/distributing are advanced programmatically by draw/distribute.
		return 0
	}
}

func phaseCompleted(lot *state.LotteryState, nowUnix int64) (bool, error) {
	dur := phaseDuration(lot, lot.Phase)
	if dur == 0 {
		return true, nil
	}
	deadline, err := addInt64AndU64Checked(lot.PhaseStartedAt, dur, "phase deadline")
	if err != nil {
		return false, err
	}
	return nowUnix >= deadline, nil
}

// requirePhase gates a handler on the exact phase it is valid in.
func requirePhase(lot *state.LotteryState, want state.Phase) error {
	if !lot.Initialized() {
		return ErrUninitialized
	}
	if lot.Phase != want {
		return errorsmod.Wrapf(ErrNotInRequiredPhase, "phase is %q, need %q", lot.Phase, want)
	}
	return nil
}

// enterNextPhase moves the clock one step and applies entry effects.
func enterNextPhase(lot *state.LotteryState, nowUnix int64) state.Phase {
	lot.Phase = nextPhase(lot.Phase)
	lot.PhaseStartedAt = nowUnix
	if lot.Phase == state.PhaseLiquidity {
		lot.RoundNumber++
	}
	return lot.Phase
}

// advancePhase is the externally callable (restricted) advance: it refuses to
// move drawing or distributing, which are owned by draw and distribute so the
// winner/fee bookkeeping happens exactly once per round.
func advancePhase(lot *state.LotteryState, nowUnix int64) (state.Phase, error) {
	if !lot.Initialized() {
		return state.PhaseUninitialized, ErrUninitialized
	}
	switch lot.Phase {
	case state.PhaseDrawing, state.PhaseDistributing:
		return lot.Phase, errorsmod.Wrapf(ErrNotInRequiredPhase,
			"phase %q advances via its settlement operation", lot.Phase)
	}
	done, err := phaseCompleted(lot, nowUnix)
	if err != nil {
		return lot.Phase, err
	}
	if !done {
		return lot.Phase, errorsmod.Wrapf(ErrPhaseNotCompleted,
			"phase %q started at %d, duration %ds, now %d",
			lot.Phase, lot.PhaseStartedAt, phaseDuration(lot, lot.Phase), nowUnix)
	}
	return enterNextPhase(lot, nowUnix), nil
}
