package app

import (
	"fmt"
	"sort"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"

	"lottochain/internal/codec"
	"lottochain/internal/state"
)

// currentRound returns the live round record, creating it lazily. distribute
// pre-opens the next round, so this only allocates in the very first cycle.
func currentRound(lot *state.LotteryState) *state.Round {
	r, ok := lot.Rounds[lot.RoundNumber]
	if !ok {
		r = state.NewRound(lot.RoundNumber)
		lot.Rounds[lot.RoundNumber] = r
	}
	return r
}

// ticketFeeSplit carves a ticket cost into lp fee, protocol fee, and
// principal. principal = cost - lpFee - protocolFee, so the three always add
// back up to the cost.
func ticketFeeSplit(cost uint64, lpBps, protocolBps uint32) (lpFee, protocolFee, principal uint64, err error) {
	lpFee, err = bpsOf(cost, lpBps)
	if err != nil {
		return 0, 0, 0, err
	}
	protocolFee, err = bpsOf(cost, protocolBps)
	if err != nil {
		return 0, 0, 0, err
	}
	return lpFee, protocolFee, cost - lpFee - protocolFee, nil
}

func lotteryBuyTicket(st *state.State, msg codec.LotteryBuyTicketTx) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if err := requirePhase(lot, state.PhaseTicketing); err != nil {
		return nil, err
	}
	if msg.Buyer == "" {
		return nil, errorsmod.Wrap(ErrInvalidRequest, "missing buyer")
	}

	price := lot.TicketPrice
	count := msg.Amount / price
	if count == 0 {
		return nil, errorsmod.Wrapf(ErrPurchaseAmountTooLow, "amount=%d ticketPrice=%d", msg.Amount, price)
	}
	// count <= amount/price, so cost fits uint64 and the remainder above the
	// floored cost never leaves the buyer.
	cost := count * price

	lpFee, protocolFee, principal, err := ticketFeeSplit(cost, lot.LPFeeBps, lot.ProtocolFeeBps)
	if err != nil {
		return nil, err
	}

	if err := st.Debit(msg.Buyer, cost); err != nil {
		return nil, errorsmod.Wrap(ErrInsufficientFunds, err.Error())
	}

	r := currentRound(lot)
	start := r.TotalTickets
	total, err := addU64Checked(start, count, "round tickets")
	if err != nil {
		return nil, err
	}
	newPrincipal, err := addU64Checked(r.Principal, principal, "round principal")
	if err != nil {
		return nil, err
	}
	newLPFee, err := addU64Checked(lot.Reserves.LPFee, lpFee, "lp fee reserve")
	if err != nil {
		return nil, err
	}
	newProtocolFee, err := addU64Checked(lot.Reserves.ProtocolFee, protocolFee, "protocol fee reserve")
	if err != nil {
		return nil, err
	}

	// One immutable range per purchase event; a repeat buyer holds several.
	r.Purchases = append(r.Purchases, state.Purchase{
		Buyer:      msg.Buyer,
		StartIndex: start,
		Count:      count,
	})
	r.Tickets[msg.Buyer] += count
	r.TotalTickets = total
	r.Principal = newPrincipal
	lot.Reserves.LPFee = newLPFee
	lot.Reserves.ProtocolFee = newProtocolFee

	return okEvent("TicketsPurchased", map[string]string{
		"round":      fmt.Sprintf("%d", r.Number),
		"buyer":      msg.Buyer,
		"tickets":    fmt.Sprintf("%d", count),
		"startIndex": fmt.Sprintf("%d", start),
		"cost":       fmt.Sprintf("%d", cost),
		"lpFee":      fmt.Sprintf("%d", lpFee),
		"protoFee":   fmt.Sprintf("%d", protocolFee),
	}), nil
}

// findWinner resolves a ticket index to the purchase range containing it.
// Ranges are appended in index order, so a binary search over start indices
// suffices. An index at or beyond TotalTickets lands in the implicit LP-side
// range: no player winner.
func findWinner(r *state.Round, ticketIndex uint64) (string, bool) {
	if ticketIndex >= r.TotalTickets || len(r.Purchases) == 0 {
		return "", false
	}
	i := sort.Search(len(r.Purchases), func(i int) bool {
		return r.Purchases[i].StartIndex > ticketIndex
	}) - 1
	p := r.Purchases[i]
	if ticketIndex < p.StartIndex || ticketIndex >= p.StartIndex+p.Count {
		return "", false
	}
	return p.Buyer, true
}

// lpTicketsWithFees inflates the LP side's ticket weight by the combined fee
// rate, so its odds already price in the fee income it will receive.
func lpTicketsWithFees(lpTickets uint64, combinedFeeBps uint32) (uint64, error) {
	if uint64(combinedFeeBps) >= state.BpsDenominator {
		return 0, errorsmod.Wrapf(ErrInvalidFees, "combined fee %d bps", combinedFeeBps)
	}
	return mulDiv(lpTickets, state.BpsDenominator, state.BpsDenominator-uint64(combinedFeeBps))
}

func lotteryDraw(st *state.State, msg codec.LotteryDrawTx, nowUnix int64) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if err := requirePhase(lot, state.PhaseDrawing); err != nil {
		return nil, err
	}
	r := currentRound(lot)
	if r.Drawn() {
		return nil, errorsmod.Wrapf(ErrNotInRequiredPhase, "round %d already drawn", r.Number)
	}
	if err := verifyDrawRandomness(st, msg.Randomness); err != nil {
		return nil, err
	}

	var prizeTotal uint64
	for _, bps := range sortedTrancheBps(lot) {
		w, err := prizeAtRisk(lot.Tranches[bps])
		if err != nil {
			return nil, err
		}
		prizeTotal, err = addU64Checked(prizeTotal, w, "prize at risk total")
		if err != nil {
			return nil, err
		}
	}

	lpTickets := prizeTotal / lot.TicketPrice
	lpWeighted, err := lpTicketsWithFees(lpTickets, lot.CombinedFeeBps())
	if err != nil {
		return nil, err
	}
	drawPool, err := addU64Checked(lpWeighted, r.TotalTickets, "draw pool")
	if err != nil {
		return nil, err
	}

	// An empty pool (no tickets, no prize at risk) resolves as an LP-side
	// win so the cycle always closes.
	var index uint64
	if drawPool > 0 {
		index = drawTicketIndex(msg.Randomness, drawPool)
	}
	winner, hasWinner := findWinner(r, index)

	r.Winner = winner
	r.PrizeAmount = prizeTotal
	r.DrawnAt = nowUnix

	phase := enterNextPhase(lot, nowUnix)

	winnerAttr := winner
	if !hasWinner {
		winnerAttr = "lp"
	}
	return okEvent("WinnerDrawn", map[string]string{
		"round":       fmt.Sprintf("%d", r.Number),
		"ticketIndex": fmt.Sprintf("%d", index),
		"drawPool":    fmt.Sprintf("%d", drawPool),
		"winner":      winnerAttr,
		"prize":       fmt.Sprintf("%d", prizeTotal),
		"phase":       string(phase),
	}), nil
}
