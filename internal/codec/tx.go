package codec

import (
	"encoding/json"
	"fmt"
)

// TxEnvelope is the v0 transaction container.
//
// CometBFT transactions are opaque bytes. For v0 localnet we use JSON-encoded
// txs to move fast; this is NOT the final protocol encoding.
type TxEnvelope struct {
	// Basic routing.
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// v0 tx auth (required for privileged lottery ops, optional elsewhere):
	// - Nonce: included in the signed message for replay protection (must increase per signer).
	// - Signer: logical signer id (account address).
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Auth (v0) ----

// v0: account pubkey registration for tx authentication.
type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Lottery ----

// LotteryInitTx configures the phase clock and round economics exactly once.
// The envelope signer becomes the lottery authority.
type LotteryInitTx struct {
	LiquiditySecs  uint64 `json:"liquiditySecs"`
	TicketingSecs  uint64 `json:"ticketingSecs"`
	SettlingSecs   uint64 `json:"settlingSecs,omitempty"` // 0 = settling advances immediately
	TicketPrice    uint64 `json:"ticketPrice"`
	LPFeeBps       uint32 `json:"lpFeeBps"`
	ProtocolFeeBps uint32 `json:"protocolFeeBps"`
}

type LotteryAdvanceTx struct {
	// No payload: the block timestamp decides whether the active phase is done.
}

type LotterySetFeesTx struct {
	LPFeeBps       uint32 `json:"lpFeeBps"`
	ProtocolFeeBps uint32 `json:"protocolFeeBps"`
}

type LotteryCreateTrancheTx struct {
	RiskRatioBps uint32 `json:"riskRatioBps"`
}

type LotterySetDepositEnabledTx struct {
	RiskRatioBps uint32 `json:"riskRatioBps"`
	Enabled      bool   `json:"enabled"`
}

type LotteryDepositTx struct {
	Depositor    string `json:"depositor"`
	RiskRatioBps uint32 `json:"riskRatioBps"`
	Amount       uint64 `json:"amount"`
}

type LotteryRedeemTx struct {
	Holder       string `json:"holder"`
	RiskRatioBps uint32 `json:"riskRatioBps"`
	Shares       uint64 `json:"shares"`
}

type LotteryBuyTicketTx struct {
	Buyer  string `json:"buyer"`
	Amount uint64 `json:"amount"`
}

// LotteryDrawTx carries the verifiable random value for the current round: an
// Ed25519 signature by the authority over the round's draw sign bytes,
// verified on-chain before it seeds winner selection.
type LotteryDrawTx struct {
	Randomness []byte `json:"randomness"` // base64 (64 bytes)
}

type LotteryDistributeTx struct {
	// No payload: settles the current round.
}

// LotteryClaimPrizeTx pays out a recorded winner's pending prize. The trigger
// is open to any registered signer; funds only ever move to the recorded
// winner, regardless of who submits the tx.
type LotteryClaimPrizeTx struct {
	Winner string `json:"winner"`
}

type LotteryClaimProtocolFeeTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount,omitempty"` // 0 = claim everything
}

type LotteryClaimTreasuryTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount,omitempty"` // 0 = claim everything
}
