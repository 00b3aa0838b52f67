package app

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	log "github.com/sirupsen/logrus"

	"lottochain/internal/codec"
	"lottochain/internal/state"
)

// lotteryDistribute runs the settlement waterfall for the drawn round:
//
//  1. player win: every tranche pays out its prize-at-risk into the winner's
//     claimable payout; the round's ticket principal accrues to the treasury.
//  2. LP win: the round's ticket principal is distributed across tranches,
//     weighted by risk ratio.
//
// In both branches the accumulated LP fee reserve is distributed by the same
// weighting. Floor-division residue stays in its reserve (LP fees) or goes to
// the treasury (principal), so no coin is ever dropped. Finally the next
// round record is opened and the clock takes distributing -> settling.
func lotteryDistribute(st *state.State, nowUnix int64) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if err := requirePhase(lot, state.PhaseDistributing); err != nil {
		return nil, err
	}
	r := currentRound(lot)
	if !r.Drawn() {
		return nil, errorsmod.Wrapf(ErrRoundNotDrawn, "round %d", r.Number)
	}

	bpsOrder := sortedTrancheBps(lot)
	var weightSum uint64
	for _, bps := range bpsOrder {
		weightSum += uint64(bps)
	}
	if weightSum == 0 {
		return nil, errorsmod.Wrap(ErrNoTranchesRegistered, "cannot distribute")
	}

	var prizePaid uint64
	if r.Winner != "" {
		for _, bps := range bpsOrder {
			w, err := withdrawPrize(lot.Tranches[bps])
			if err != nil {
				return nil, err
			}
			prizePaid, err = addU64Checked(prizePaid, w, "prize payout")
			if err != nil {
				return nil, err
			}
		}
		newPayout, err := addU64Checked(lot.Payouts[r.Winner], prizePaid, "winner payout")
		if err != nil {
			return nil, err
		}
		lot.Payouts[r.Winner] = newPayout

		newTreasury, err := addU64Checked(lot.Reserves.TreasuryPrincipal, r.Principal, "treasury principal")
		if err != nil {
			return nil, err
		}
		lot.Reserves.TreasuryPrincipal = newTreasury
	} else {
		// LP side won: the unclaimed ticket principal flows back into the
		// tranches, residue to the treasury.
		distributed, err := distributeWeighted(lot, bpsOrder, weightSum, r.Principal)
		if err != nil {
			return nil, err
		}
		newTreasury, err := addU64Checked(lot.Reserves.TreasuryPrincipal, r.Principal-distributed, "treasury principal")
		if err != nil {
			return nil, err
		}
		lot.Reserves.TreasuryPrincipal = newTreasury
	}

	lpFeePool := lot.Reserves.LPFee
	lpDistributed, err := distributeWeighted(lot, bpsOrder, weightSum, lpFeePool)
	if err != nil {
		return nil, err
	}
	// Residue stays in the reserve and rides into the next round's split.
	lot.Reserves.LPFee = lpFeePool - lpDistributed

	next := lot.RoundNumber + 1
	if _, ok := lot.Rounds[next]; !ok {
		lot.Rounds[next] = state.NewRound(next)
	}
	phase := enterNextPhase(lot, nowUnix)

	log.WithFields(log.Fields{
		"round":     r.Number,
		"winner":    r.Winner,
		"prizePaid": prizePaid,
		"lpFees":    lpDistributed,
	}).Info("round settled")

	return okEvent("RoundSettled", map[string]string{
		"round":      fmt.Sprintf("%d", r.Number),
		"winner":     r.Winner,
		"prizePaid":  fmt.Sprintf("%d", prizePaid),
		"principal":  fmt.Sprintf("%d", r.Principal),
		"lpFeesPaid": fmt.Sprintf("%d", lpDistributed),
		"phase":      string(phase),
		"nextRound":  fmt.Sprintf("%d", next),
	}), nil
}

// distributeWeighted deposits floor(pool*bps/weightSum) into every tranche as
// fee income and returns the total actually deposited (<= pool).
func distributeWeighted(lot *state.LotteryState, bpsOrder []uint32, weightSum, pool uint64) (uint64, error) {
	if pool == 0 {
		return 0, nil
	}
	var distributed uint64
	for _, bps := range bpsOrder {
		share, err := mulDiv(pool, uint64(bps), weightSum)
		if err != nil {
			return 0, err
		}
		if err := depositFee(lot.Tranches[bps], share); err != nil {
			return 0, err
		}
		distributed += share
	}
	return distributed, nil
}

// ---- Claims ----

func lotteryClaimPrize(st *state.State, msg codec.LotteryClaimPrizeTx) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if !lot.Initialized() {
		return nil, ErrUninitialized
	}
	if msg.Winner == "" {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "missing winner")
	}
	amount := lot.Payouts[msg.Winner]
	if amount == 0 {
		return nil, errorsmod.Wrapf(ErrNothingToClaim, "no payout for %q", msg.Winner)
	}
	if err := st.Credit(msg.Winner, amount); err != nil {
		return nil, errorsmod.Wrap(ErrOverflow, err.Error())
	}
	delete(lot.Payouts, msg.Winner)
	return okEvent("PrizeClaimed", map[string]string{
		"winner": msg.Winner,
		"amount": fmt.Sprintf("%d", amount),
	}), nil
}

func lotteryClaimProtocolFee(st *state.State, msg codec.LotteryClaimProtocolFeeTx) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if !lot.Initialized() {
		return nil, ErrUninitialized
	}
	amount, err := claimFromReserve(&lot.Reserves.ProtocolFee, msg.Amount)
	if err != nil {
		return nil, err
	}
	if err := st.Credit(msg.To, amount); err != nil {
		return nil, errorsmod.Wrap(ErrOverflow, err.Error())
	}
	return okEvent("ProtocolFeeClaimed", map[string]string{
		"to":     msg.To,
		"amount": fmt.Sprintf("%d", amount),
	}), nil
}

func lotteryClaimTreasury(st *state.State, msg codec.LotteryClaimTreasuryTx) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if !lot.Initialized() {
		return nil, ErrUninitialized
	}
	amount, err := claimFromReserve(&lot.Reserves.TreasuryPrincipal, msg.Amount)
	if err != nil {
		return nil, err
	}
	if err := st.Credit(msg.To, amount); err != nil {
		return nil, errorsmod.Wrap(ErrOverflow, err.Error())
	}
	return okEvent("TreasuryClaimed", map[string]string{
		"to":     msg.To,
		"amount": fmt.Sprintf("%d", amount),
	}), nil
}

// claimFromReserve debits want from the reserve (0 = everything).
func claimFromReserve(reserve *uint64, want uint64) (uint64, error) {
	if want == 0 {
		want = *reserve
	}
	if want == 0 {
		return 0, errorsmod.Wrap(ErrNothingToClaim, "reserve is empty")
	}
	if want > *reserve {
		return 0, errorsmod.Wrapf(ErrInsufficientReserves, "have=%d want=%d", *reserve, want)
	}
	*reserve -= want
	return want, nil
}
