package app

import (
	"fmt"
	"sort"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"

	"lottochain/internal/codec"
	"lottochain/internal/state"
)

func lotteryCreateTranche(st *state.State, msg codec.LotteryCreateTrancheTx) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if err := requirePhase(lot, state.PhaseSettling); err != nil {
		return nil, err
	}
	bps := msg.RiskRatioBps
	if bps == 0 || uint64(bps) > state.BpsDenominator {
		return nil, errorsmod.Wrapf(ErrPoolRiskRatioTooHigh, "riskRatioBps=%d, want (0, %d]", bps, state.BpsDenominator)
	}
	if _, ok := lot.Tranches[bps]; ok {
		return nil, errorsmod.Wrapf(ErrPoolAlreadyCreated, "riskRatioBps=%d", bps)
	}
	lot.Tranches[bps] = &state.Tranche{
		RiskRatioBps: bps,
		Shares:       map[string]uint64{},
	}
	return okEvent("TrancheCreated", map[string]string{
		"riskRatioBps": fmt.Sprintf("%d", bps),
	}), nil
}

func lotterySetDepositEnabled(st *state.State, msg codec.LotterySetDepositEnabledTx) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if !lot.Initialized() {
		return nil, ErrUninitialized
	}
	tr, ok := lot.Tranches[msg.RiskRatioBps]
	if !ok {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "unknown tranche riskRatioBps=%d", msg.RiskRatioBps)
	}
	tr.DepositEnabled = msg.Enabled
	return okEvent("DepositEnabledSet", map[string]string{
		"riskRatioBps": fmt.Sprintf("%d", msg.RiskRatioBps),
		"enabled":      fmt.Sprintf("%t", msg.Enabled),
	}), nil
}

func lotteryDeposit(st *state.State, msg codec.LotteryDepositTx) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if err := requirePhase(lot, state.PhaseLiquidity); err != nil {
		return nil, err
	}
	if msg.Depositor == "" {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "missing depositor")
	}
	tr, ok := lot.Tranches[msg.RiskRatioBps]
	if !ok {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "unknown tranche riskRatioBps=%d", msg.RiskRatioBps)
	}
	if !tr.DepositEnabled {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "deposits disabled for riskRatioBps=%d", msg.RiskRatioBps)
	}

	shares, err := sharesToMint(tr, msg.Amount)
	if err != nil {
		return nil, err
	}
	if shares == 0 {
		return nil, errorsmod.Wrapf(ErrTooSmallToMint, "amount=%d reserves=%d totalShares=%d", msg.Amount, tr.Reserves, tr.TotalShares)
	}

	if err := st.Debit(msg.Depositor, msg.Amount); err != nil {
		return nil, errorsmod.Wrap(ErrInsufficientFunds, err.Error())
	}
	newReserves, err := addU64Checked(tr.Reserves, msg.Amount, "tranche reserves")
	if err != nil {
		return nil, err
	}
	newTotal, err := addU64Checked(tr.TotalShares, shares, "tranche shares")
	if err != nil {
		return nil, err
	}
	tr.Reserves = newReserves
	tr.TotalShares = newTotal
	tr.Shares[msg.Depositor] += shares

	return okEvent("LiquidityDeposited", map[string]string{
		"riskRatioBps": fmt.Sprintf("%d", msg.RiskRatioBps),
		"depositor":    msg.Depositor,
		"amount":       fmt.Sprintf("%d", msg.Amount),
		"shares":       fmt.Sprintf("%d", shares),
	}), nil
}

// sharesToMint bootstraps 1 share per unit whenever the share supply is
// empty. TotalShares (not Reserves) is the bootstrap condition: a vault whose
// holders all redeemed can still carry fee dust, and the first depositor back
// in absorbs it instead of the vault refusing every deposit.
func sharesToMint(tr *state.Tranche, amount uint64) (uint64, error) {
	if tr.TotalShares == 0 {
		return amount, nil
	}
	return mulDiv(amount, tr.TotalShares, tr.Reserves)
}

func lotteryRedeem(st *state.State, msg codec.LotteryRedeemTx) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if err := requirePhase(lot, state.PhaseLiquidity); err != nil {
		return nil, err
	}
	if msg.Holder == "" {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "missing holder")
	}
	tr, ok := lot.Tranches[msg.RiskRatioBps]
	if !ok {
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "unknown tranche riskRatioBps=%d", msg.RiskRatioBps)
	}
	if msg.Shares == 0 {
		return nil, errorsmod.Wrap(ErrInsufficientShares, "shares must be > 0")
	}
	held := tr.Shares[msg.Holder]
	if msg.Shares > held {
		return nil, errorsmod.Wrapf(ErrTooLargeToRedeem, "have=%d redeem=%d", held, msg.Shares)
	}

	value, err := mulDiv(msg.Shares, tr.Reserves, tr.TotalShares)
	if err != nil {
		return nil, err
	}
	if value == 0 {
		return nil, errorsmod.Wrapf(ErrZeroRedeemValue, "shares=%d reserves=%d totalShares=%d", msg.Shares, tr.Reserves, tr.TotalShares)
	}

	tr.Reserves -= value
	tr.TotalShares -= msg.Shares
	if held == msg.Shares {
		delete(tr.Shares, msg.Holder)
	} else {
		tr.Shares[msg.Holder] = held - msg.Shares
	}
	if err := st.Credit(msg.Holder, value); err != nil {
		return nil, errorsmod.Wrap(ErrOverflow, err.Error())
	}

	return okEvent("SharesRedeemed", map[string]string{
		"riskRatioBps": fmt.Sprintf("%d", msg.RiskRatioBps),
		"holder":       msg.Holder,
		"shares":       fmt.Sprintf("%d", msg.Shares),
		"value":        fmt.Sprintf("%d", value),
	}), nil
}

// depositFee raises the tranche's share price: reserves grow, shares do not.
func depositFee(tr *state.Tranche, amount uint64) error {
	if amount == 0 {
		return nil
	}
	newReserves, err := addU64Checked(tr.Reserves, amount, "tranche reserves")
	if err != nil {
		return err
	}
	newFees, err := addU64Checked(tr.CumulativeFees, amount, "tranche cumulative fees")
	if err != nil {
		return err
	}
	tr.Reserves = newReserves
	tr.CumulativeFees = newFees
	return nil
}

// prizeAtRisk is the tranche's entire loss exposure for the round, always
// recomputed from current reserves.
func prizeAtRisk(tr *state.Tranche) (uint64, error) {
	return bpsOf(tr.Reserves, tr.RiskRatioBps)
}

// withdrawPrize debits the tranche's prize-at-risk and returns it. Shares are
// untouched: losing the draw dilutes every holder proportionally.
func withdrawPrize(tr *state.Tranche) (uint64, error) {
	w, err := prizeAtRisk(tr)
	if err != nil {
		return 0, err
	}
	if w == 0 {
		return 0, nil
	}
	tr.Reserves -= w
	return w, nil
}

// sortedTrancheBps returns the registered risk ratios in ascending order so
// every iteration over the tranche registry is deterministic.
func sortedTrancheBps(lot *state.LotteryState) []uint32 {
	out := make([]uint32, 0, len(lot.Tranches))
	for bps := range lot.Tranches {
		out = append(out, bps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
