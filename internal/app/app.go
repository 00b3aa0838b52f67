package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	log "github.com/sirupsen/logrus"

	"lottochain/internal/codec"
	"lottochain/internal/state"
	"lottochain/internal/yield"
)

const (
	AppVersion uint64 = 1
)

type LottoApp struct {
	*abci.BaseApplication

	store state.Store
	yield yield.Router

	mu       sync.Mutex
	st       *state.State
	lastHash []byte
}

func New(store state.Store, yr yield.Router) (*LottoApp, error) {
	st, err := store.Load()
	if err != nil {
		return nil, err
	}
	if yr == nil {
		yr = yield.NewNoop()
	}
	// Re-sync the adapter with the persisted reserves so withdrawals after a
	// restart do not underflow.
	if total := totalTrancheReserves(st); total > 0 {
		if err := yr.Deposit(total); err != nil {
			return nil, err
		}
	}
	a := &LottoApp{
		BaseApplication: abci.NewBaseApplication(),
		store:           store,
		yield:           yr,
		st:              st,
		lastHash:        st.AppHash(),
	}
	return a, nil
}

func (a *LottoApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "lotto (v0)",
		Version:          "v0",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *LottoApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	_, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return &abci.CheckTxResponse{Code: 1, Log: err.Error()}, nil
	}
	// v0: only structural validation; phase/auth checks run at delivery.
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *LottoApp) InitChain(_ context.Context, _ *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	// v0: no special genesis handling; lottery/init configures the instance.
	return &abci.InitChainResponse{}, nil
}

func (a *LottoApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	nowUnix := req.Time.Unix()

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, nowUnix)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *LottoApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Persist after each block for devnet durability.
	if err := a.store.Save(a.st); err != nil {
		// CometBFT expects Commit to not crash; return error so node halts loudly.
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func (a *LottoApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	lot := a.st.Lottery

	// Paths:
	// - /phase, /reserves, /tranches, /yield
	// - /tranche/<riskRatioBps>
	// - /round/<number>
	// - /account/<addr>
	// - /payout/<addr>
	path := strings.TrimSpace(req.Path)
	switch {
	case path == "/phase":
		b, _ := json.Marshal(map[string]any{
			"phase":          lot.Phase,
			"phaseStartedAt": lot.PhaseStartedAt,
			"roundNumber":    lot.RoundNumber,
		})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case path == "/reserves":
		b, _ := json.Marshal(lot.Reserves)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case path == "/tranches":
		b, _ := json.Marshal(sortedTrancheBps(lot))
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case path == "/yield":
		v, err := a.yield.Value()
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: err.Error(), Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(map[string]any{"parked": v})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/tranche/"):
		raw := strings.TrimPrefix(path, "/tranche/")
		bps, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: "invalid risk ratio", Height: a.st.Height}, nil
		}
		tr, ok := lot.Tranches[uint32(bps)]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "tranche not found", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(tr)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/round/"):
		raw := strings.TrimPrefix(path, "/round/")
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return &abci.QueryResponse{Code: 1, Log: "invalid round number", Height: a.st.Height}, nil
		}
		r, ok := lot.Rounds[n]
		if !ok {
			return &abci.QueryResponse{Code: 1, Log: "round not found", Height: a.st.Height}, nil
		}
		b, _ := json.Marshal(r)
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		b, _ := json.Marshal(map[string]any{"addr": addr, "balance": a.st.Balance(addr)})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	case strings.HasPrefix(path, "/payout/"):
		addr := strings.TrimPrefix(path, "/payout/")
		b, _ := json.Marshal(map[string]any{"addr": addr, "payout": lot.Payouts[addr]})
		return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
	default:
		return &abci.QueryResponse{Code: 1, Log: "unknown query path", Height: a.st.Height}, nil
	}
}

// deliverTx stages each tx against a deep copy of state and swaps the copy in
// only on success, so a failing tx can never leave partial effects behind.
// The net tranche-reserve delta of a successful tx is routed through the
// yield adapter before the swap.
func (a *LottoApp) deliverTx(txBytes []byte, nowUnix int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return errResult(errorsmod.Wrap(ErrInvalidRequest, err.Error()))
	}

	staged, err := a.st.Clone()
	if err != nil {
		return errResult(errorsmod.Wrap(ErrInvalidRequest, err.Error()))
	}

	res, err := a.routeTx(staged, env, nowUnix)
	if err != nil {
		return errResult(err)
	}

	if err := a.routeYieldDelta(totalTrancheReserves(a.st), totalTrancheReserves(staged)); err != nil {
		return errResult(errorsmod.Wrapf(ErrInvalidRequest, "yield router: %v", err))
	}
	a.st = staged
	return res
}

func (a *LottoApp) routeYieldDelta(before, after uint64) error {
	switch {
	case after > before:
		return a.yield.Deposit(after - before)
	case before > after:
		return a.yield.Withdraw(before - after)
	default:
		return nil
	}
}

func totalTrancheReserves(st *state.State) uint64 {
	var total uint64
	for _, tr := range st.Lottery.Tranches {
		total += tr.Reserves
	}
	return total
}

func (a *LottoApp) routeTx(st *state.State, env codec.TxEnvelope, nowUnix int64) (*abci.ExecTxResult, error) {
	switch env.Type {
	case "bank/mint":
		var msg codec.BankMintTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad bank/mint value")
		}
		// Devnet faucet, intentionally unsigned.
		if msg.To == "" || msg.Amount == 0 {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "missing to/amount")
		}
		if err := st.Credit(msg.To, msg.Amount); err != nil {
			return nil, errorsmod.Wrap(ErrOverflow, err.Error())
		}
		return okEvent("BankMinted", map[string]string{
			"to":     msg.To,
			"amount": fmt.Sprintf("%d", msg.Amount),
		}), nil

	case "bank/send":
		var msg codec.BankSendTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad bank/send value")
		}
		if msg.From == "" || msg.To == "" || msg.Amount == 0 {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "missing from/to/amount")
		}
		if err := requireAccountAuth(st, env, msg.From); err != nil {
			return nil, err
		}
		if err := st.Debit(msg.From, msg.Amount); err != nil {
			return nil, errorsmod.Wrap(ErrInsufficientFunds, err.Error())
		}
		if err := st.Credit(msg.To, msg.Amount); err != nil {
			return nil, errorsmod.Wrap(ErrOverflow, err.Error())
		}
		return okEvent("BankSent", map[string]string{
			"from":   msg.From,
			"to":     msg.To,
			"amount": fmt.Sprintf("%d", msg.Amount),
		}), nil

	case "auth/register_account":
		var msg codec.AuthRegisterAccountTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad auth/register_account value")
		}
		if err := requireRegisterAccountAuth(st, env, msg); err != nil {
			return nil, err
		}
		if err := bumpNonce(st, env.Signer, env.Nonce); err != nil {
			return nil, err
		}
		st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
		return okEvent("AccountRegistered", map[string]string{
			"account": msg.Account,
		}), nil

	case "lottery/init":
		var msg codec.LotteryInitTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/init value")
		}
		return lotteryInit(st, env, msg)

	case "lottery/advance":
		var msg codec.LotteryAdvanceTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/advance value")
		}
		if err := requireAuthorityAuth(st, env); err != nil {
			return nil, err
		}
		phase, err := advancePhase(st.Lottery, nowUnix)
		if err != nil {
			return nil, err
		}
		return okEvent("PhaseAdvanced", map[string]string{
			"phase":       string(phase),
			"roundNumber": fmt.Sprintf("%d", st.Lottery.RoundNumber),
		}), nil

	case "lottery/set_fees":
		var msg codec.LotterySetFeesTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/set_fees value")
		}
		if err := requireAuthorityAuth(st, env); err != nil {
			return nil, err
		}
		if uint64(msg.LPFeeBps)+uint64(msg.ProtocolFeeBps) >= state.BpsDenominator {
			return nil, errorsmod.Wrapf(ErrFeeTooHigh, "lp=%d protocol=%d bps", msg.LPFeeBps, msg.ProtocolFeeBps)
		}
		st.Lottery.LPFeeBps = msg.LPFeeBps
		st.Lottery.ProtocolFeeBps = msg.ProtocolFeeBps
		return okEvent("FeesUpdated", map[string]string{
			"lpFeeBps":       fmt.Sprintf("%d", msg.LPFeeBps),
			"protocolFeeBps": fmt.Sprintf("%d", msg.ProtocolFeeBps),
		}), nil

	case "lottery/create_tranche":
		var msg codec.LotteryCreateTrancheTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/create_tranche value")
		}
		if err := requireAuthorityAuth(st, env); err != nil {
			return nil, err
		}
		return lotteryCreateTranche(st, msg)

	case "lottery/set_deposit_enabled":
		var msg codec.LotterySetDepositEnabledTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/set_deposit_enabled value")
		}
		if err := requireAuthorityAuth(st, env); err != nil {
			return nil, err
		}
		return lotterySetDepositEnabled(st, msg)

	case "lottery/deposit":
		var msg codec.LotteryDepositTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/deposit value")
		}
		if err := requireAccountAuth(st, env, msg.Depositor); err != nil {
			return nil, err
		}
		return lotteryDeposit(st, msg)

	case "lottery/redeem":
		var msg codec.LotteryRedeemTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/redeem value")
		}
		if err := requireAccountAuth(st, env, msg.Holder); err != nil {
			return nil, err
		}
		return lotteryRedeem(st, msg)

	case "lottery/buy_ticket":
		var msg codec.LotteryBuyTicketTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/buy_ticket value")
		}
		if err := requireAccountAuth(st, env, msg.Buyer); err != nil {
			return nil, err
		}
		return lotteryBuyTicket(st, msg)

	case "lottery/draw":
		var msg codec.LotteryDrawTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/draw value")
		}
		if err := requireAuthorityAuth(st, env); err != nil {
			return nil, err
		}
		return lotteryDraw(st, msg, nowUnix)

	case "lottery/distribute":
		var msg codec.LotteryDistributeTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/distribute value")
		}
		if err := requireAuthorityAuth(st, env); err != nil {
			return nil, err
		}
		return lotteryDistribute(st, nowUnix)

	case "lottery/claim_prize":
		var msg codec.LotteryClaimPrizeTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/claim_prize value")
		}
		// Permissionless trigger: any registered account may pay out the winner.
		if err := requireAccountAuth(st, env, env.Signer); err != nil {
			return nil, err
		}
		return lotteryClaimPrize(st, msg)

	case "lottery/claim_protocol_fee":
		var msg codec.LotteryClaimProtocolFeeTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/claim_protocol_fee value")
		}
		if err := requireAuthorityAuth(st, env); err != nil {
			return nil, err
		}
		return lotteryClaimProtocolFee(st, msg)

	case "lottery/claim_treasury":
		var msg codec.LotteryClaimTreasuryTx
		if err := json.Unmarshal(env.Value, &msg); err != nil {
			return nil, errorsmod.Wrap(ErrInvalidRequest, "bad lottery/claim_treasury value")
		}
		if err := requireAuthorityAuth(st, env); err != nil {
			return nil, err
		}
		return lotteryClaimTreasury(st, msg)

	default:
		return nil, errorsmod.Wrapf(ErrInvalidRequest, "unknown tx type: %s", env.Type)
	}
}

// lotteryInit runs exactly once; the signer becomes the authority for every
// privileged operation. The clock starts at settling with phaseStartedAt=0,
// the cycle's re-entrant starting point, so tranches can be created before
// the first liquidity window.
func lotteryInit(st *state.State, env codec.TxEnvelope, msg codec.LotteryInitTx) (*abci.ExecTxResult, error) {
	lot := st.Lottery
	if lot.Initialized() {
		return nil, ErrAlreadyInitialized
	}
	if err := requireAccountAuth(st, env, env.Signer); err != nil {
		return nil, err
	}
	if msg.LiquiditySecs == 0 || msg.TicketingSecs == 0 {
		return nil, errorsmod.Wrapf(ErrDurationTooShort, "liquidity=%ds ticketing=%ds", msg.LiquiditySecs, msg.TicketingSecs)
	}
	if msg.TicketPrice == 0 {
		return nil, errorsmod.Wrap(ErrInvalidTicketPrice, "ticket price must be > 0")
	}
	if uint64(msg.LPFeeBps)+uint64(msg.ProtocolFeeBps) >= state.BpsDenominator {
		return nil, errorsmod.Wrapf(ErrFeeTooHigh, "lp=%d protocol=%d bps", msg.LPFeeBps, msg.ProtocolFeeBps)
	}

	lot.Authority = env.Signer
	lot.Phase = state.PhaseSettling
	lot.PhaseStartedAt = 0
	lot.RoundNumber = 0
	lot.LiquiditySecs = msg.LiquiditySecs
	lot.TicketingSecs = msg.TicketingSecs
	lot.SettlingSecs = msg.SettlingSecs
	lot.TicketPrice = msg.TicketPrice
	lot.LPFeeBps = msg.LPFeeBps
	lot.ProtocolFeeBps = msg.ProtocolFeeBps

	log.WithFields(log.Fields{
		"authority":   lot.Authority,
		"ticketPrice": lot.TicketPrice,
	}).Info("lottery initialized")

	return okEvent("LotteryInitialized", map[string]string{
		"authority":      lot.Authority,
		"liquiditySecs":  fmt.Sprintf("%d", msg.LiquiditySecs),
		"ticketingSecs":  fmt.Sprintf("%d", msg.TicketingSecs),
		"settlingSecs":   fmt.Sprintf("%d", msg.SettlingSecs),
		"ticketPrice":    fmt.Sprintf("%d", msg.TicketPrice),
		"lpFeeBps":       fmt.Sprintf("%d", msg.LPFeeBps),
		"protocolFeeBps": fmt.Sprintf("%d", msg.ProtocolFeeBps),
	}), nil
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{ev},
	}
}
