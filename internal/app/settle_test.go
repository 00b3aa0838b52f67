package app

import (
	"errors"
	"testing"

	"lottochain/internal/codec"
	"lottochain/internal/state"
)

// drawnRoundState builds a distributing-phase instance whose round 1 has been
// drawn with the given winner, with two tranches (2000 and 6000 bps) holding
// the given reserves.
func drawnRoundState(winner string, lowReserves, highReserves uint64) *state.State {
	st := testLotteryState(state.PhaseDistributing, 2000)
	lot := st.Lottery
	lot.Tranches[2000].Reserves = lowReserves
	lot.Tranches[6000] = &state.Tranche{
		RiskRatioBps: 6000,
		Reserves:     highReserves,
		Shares:       map[string]uint64{},
	}
	lot.Rounds[1] = &state.Round{
		Number:    1,
		Tickets:   map[string]uint64{},
		Principal: 190,
		Winner:    winner,
		DrawnAt:   20,
	}
	lot.Reserves.LPFee = 80
	return st
}

func TestDistribute_PlayerWin_Waterfall(t *testing.T) {
	st := drawnRoundState("bob", 1000, 500)
	lot := st.Lottery

	if _, err := lotteryDistribute(st, 30); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	// Prize: 20% of 1000 + 60% of 500 = 200 + 300 = 500, claimable by bob.
	if lot.Payouts["bob"] != 500 {
		t.Fatalf("expected payout 500, got %d", lot.Payouts["bob"])
	}
	// Principal goes to the treasury on a player win.
	if lot.Reserves.TreasuryPrincipal != 190 {
		t.Fatalf("expected treasury 190, got %d", lot.Reserves.TreasuryPrincipal)
	}
	// LP fees 80 split by weight 2000:6000 -> 20 + 60, no residue.
	if lot.Tranches[2000].Reserves != 1000-200+20 {
		t.Fatalf("expected low tranche 820, got %d", lot.Tranches[2000].Reserves)
	}
	if lot.Tranches[6000].Reserves != 500-300+60 {
		t.Fatalf("expected high tranche 260, got %d", lot.Tranches[6000].Reserves)
	}
	if lot.Reserves.LPFee != 0 {
		t.Fatalf("expected lp fee reserve drained, got %d", lot.Reserves.LPFee)
	}

	// Clock moved on and the next round is open.
	if lot.Phase != state.PhaseSettling {
		t.Fatalf("expected settling, got %q", lot.Phase)
	}
	if _, ok := lot.Rounds[2]; !ok {
		t.Fatalf("expected round 2 pre-opened")
	}
}

func TestDistribute_LPWin_PrincipalFlowsToTranches(t *testing.T) {
	st := drawnRoundState("", 1000, 500)
	lot := st.Lottery

	if _, err := lotteryDistribute(st, 30); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	// Principal 190 by weight 2000:6000 -> floor 47 + floor 142 = 189,
	// residue 1 to the treasury. LP fees 80 -> 20 + 60 on top.
	if lot.Tranches[2000].Reserves != 1000+47+20 {
		t.Fatalf("expected low tranche 1067, got %d", lot.Tranches[2000].Reserves)
	}
	if lot.Tranches[6000].Reserves != 500+142+60 {
		t.Fatalf("expected high tranche 702, got %d", lot.Tranches[6000].Reserves)
	}
	if lot.Reserves.TreasuryPrincipal != 1 {
		t.Fatalf("expected treasury residue 1, got %d", lot.Reserves.TreasuryPrincipal)
	}
	if len(lot.Payouts) != 0 {
		t.Fatalf("expected no payouts, got %v", lot.Payouts)
	}
}

func TestDistribute_RequiresDrawnRound(t *testing.T) {
	st := testLotteryState(state.PhaseDistributing, 5000)
	if _, err := lotteryDistribute(st, 0); !errors.Is(err, ErrRoundNotDrawn) {
		t.Fatalf("expected ErrRoundNotDrawn, got %v", err)
	}
}

func TestDistribute_NoTranches(t *testing.T) {
	st := testLotteryState(state.PhaseDistributing, 5000)
	delete(st.Lottery.Tranches, 5000)
	st.Lottery.Rounds[1] = &state.Round{
		Number: 1, Tickets: map[string]uint64{}, Winner: "bob", DrawnAt: 20,
	}
	if _, err := lotteryDistribute(st, 0); !errors.Is(err, ErrNoTranchesRegistered) {
		t.Fatalf("expected ErrNoTranchesRegistered, got %v", err)
	}
}

func TestClaimPrize(t *testing.T) {
	st := testLotteryState(state.PhaseSettling, 5000)
	st.Lottery.Payouts["bob"] = 500

	if _, err := lotteryClaimPrize(st, codec.LotteryClaimPrizeTx{Winner: "bob"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if st.Balance("bob") != 500 {
		t.Fatalf("expected balance 500, got %d", st.Balance("bob"))
	}
	if _, ok := st.Lottery.Payouts["bob"]; ok {
		t.Fatalf("expected payout entry cleared")
	}

	// Second claim has nothing left.
	if _, err := lotteryClaimPrize(st, codec.LotteryClaimPrizeTx{Winner: "bob"}); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim, got %v", err)
	}
}

func TestClaimProtocolFeeAndTreasury(t *testing.T) {
	st := testLotteryState(state.PhaseSettling, 5000)
	st.Lottery.Reserves.ProtocolFee = 100
	st.Lottery.Reserves.TreasuryPrincipal = 40

	// Partial claim.
	if _, err := lotteryClaimProtocolFee(st, codec.LotteryClaimProtocolFeeTx{To: "ops", Amount: 30}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if st.Balance("ops") != 30 || st.Lottery.Reserves.ProtocolFee != 70 {
		t.Fatalf("partial claim off: balance=%d reserve=%d", st.Balance("ops"), st.Lottery.Reserves.ProtocolFee)
	}

	// Over-claim refused.
	if _, err := lotteryClaimProtocolFee(st, codec.LotteryClaimProtocolFeeTx{To: "ops", Amount: 71}); !errors.Is(err, ErrInsufficientReserves) {
		t.Fatalf("expected ErrInsufficientReserves, got %v", err)
	}

	// Zero amount sweeps the rest.
	if _, err := lotteryClaimProtocolFee(st, codec.LotteryClaimProtocolFeeTx{To: "ops"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if st.Balance("ops") != 100 || st.Lottery.Reserves.ProtocolFee != 0 {
		t.Fatalf("sweep off: balance=%d reserve=%d", st.Balance("ops"), st.Lottery.Reserves.ProtocolFee)
	}

	// Treasury works the same way.
	if _, err := lotteryClaimTreasury(st, codec.LotteryClaimTreasuryTx{To: "ops"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if st.Balance("ops") != 140 {
		t.Fatalf("expected balance 140, got %d", st.Balance("ops"))
	}
	if _, err := lotteryClaimTreasury(st, codec.LotteryClaimTreasuryTx{To: "ops"}); !errors.Is(err, ErrNothingToClaim) {
		t.Fatalf("expected ErrNothingToClaim on empty treasury, got %v", err)
	}
}
