package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
)

type State struct {
	Height int64 `json:"height"`

	Accounts    map[string]uint64 `json:"accounts"`
	AccountKeys map[string][]byte `json:"accountKeys,omitempty"` // addr -> ed25519 pubkey (32 bytes)
	NonceMax    map[string]uint64 `json:"nonceMax,omitempty"`    // signer -> last accepted tx.nonce (u64), for replay protection

	Lottery *LotteryState `json:"lottery"`
}

func NewState() *State {
	return &State{
		Height:      0,
		Accounts:    map[string]uint64{},
		AccountKeys: map[string][]byte{},
		NonceMax:    map[string]uint64{},
		Lottery:     NewLotteryState(),
	}
}

// normalize fills nil maps after decode so handlers never nil-check them.
func (s *State) normalize() {
	if s.Accounts == nil {
		s.Accounts = map[string]uint64{}
	}
	if s.AccountKeys == nil {
		s.AccountKeys = map[string][]byte{}
	}
	if s.NonceMax == nil {
		s.NonceMax = map[string]uint64{}
	}
	if s.Lottery == nil {
		s.Lottery = NewLotteryState()
	}
	if s.Lottery.Tranches == nil {
		s.Lottery.Tranches = map[uint32]*Tranche{}
	}
	if s.Lottery.Rounds == nil {
		s.Lottery.Rounds = map[uint64]*Round{}
	}
	if s.Lottery.Payouts == nil {
		s.Lottery.Payouts = map[string]uint64{}
	}
	for _, tr := range s.Lottery.Tranches {
		if tr.Shares == nil {
			tr.Shares = map[string]uint64{}
		}
	}
	for _, r := range s.Lottery.Rounds {
		if r.Tickets == nil {
			r.Tickets = map[string]uint64{}
		}
	}
}

func Decode(b []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	st.normalize()
	return &st, nil
}

func (s *State) Encode() ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return b, nil
}

// Clone returns a deep copy of state suitable for staged tx execution.
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	var out State
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode state clone: %w", err)
	}
	out.normalize()
	return &out, nil
}

func (s *State) AppHash() []byte {
	// Deterministic JSON hash: marshal with stable key ordering by serializing
	// a normalized view.
	//
	// Note: encoding/json does NOT guarantee map key order, so we manually
	// normalize maps into slices.
	type accountKV struct {
		Addr    string `json:"addr"`
		Balance uint64 `json:"balance"`
	}
	type accountKeyKV struct {
		Addr   string `json:"addr"`
		PubKey []byte `json:"pubKey"`
	}
	type nonceKV struct {
		Signer string `json:"signer"`
		Nonce  uint64 `json:"nonce"`
	}
	type shareKV struct {
		Addr   string `json:"addr"`
		Shares uint64 `json:"shares"`
	}
	type trancheKV struct {
		RiskRatioBps   uint32    `json:"riskRatioBps"`
		Reserves       uint64    `json:"reserves"`
		TotalShares    uint64    `json:"totalShares"`
		Shares         []shareKV `json:"shares"`
		CumulativeFees uint64    `json:"cumulativeFees"`
		DepositEnabled bool      `json:"depositEnabled"`
	}
	type ticketKV struct {
		Buyer string `json:"buyer"`
		Count uint64 `json:"count"`
	}
	type roundKV struct {
		Number       uint64     `json:"number"`
		Purchases    []Purchase `json:"purchases,omitempty"`
		Tickets      []ticketKV `json:"tickets,omitempty"`
		TotalTickets uint64     `json:"totalTickets"`
		Principal    uint64     `json:"principal"`
		Winner       string     `json:"winner,omitempty"`
		PrizeAmount  uint64     `json:"prizeAmount,omitempty"`
		DrawnAt      int64      `json:"drawnAt,omitempty"`
	}
	type payoutKV struct {
		Addr   string `json:"addr"`
		Amount uint64 `json:"amount"`
	}

	accounts := make([]accountKV, 0, len(s.Accounts))
	for k, v := range s.Accounts {
		accounts = append(accounts, accountKV{Addr: k, Balance: v})
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Addr < accounts[j].Addr })

	accountKeys := make([]accountKeyKV, 0, len(s.AccountKeys))
	for k, v := range s.AccountKeys {
		accountKeys = append(accountKeys, accountKeyKV{Addr: k, PubKey: v})
	}
	sort.Slice(accountKeys, func(i, j int) bool { return accountKeys[i].Addr < accountKeys[j].Addr })

	nonces := make([]nonceKV, 0, len(s.NonceMax))
	for k, v := range s.NonceMax {
		nonces = append(nonces, nonceKV{Signer: k, Nonce: v})
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i].Signer < nonces[j].Signer })

	var tranches []trancheKV
	var rounds []roundKV
	var payouts []payoutKV
	lot := s.Lottery
	if lot != nil {
		tranches = make([]trancheKV, 0, len(lot.Tranches))
		for bps, tr := range lot.Tranches {
			shares := make([]shareKV, 0, len(tr.Shares))
			for addr, n := range tr.Shares {
				shares = append(shares, shareKV{Addr: addr, Shares: n})
			}
			sort.Slice(shares, func(i, j int) bool { return shares[i].Addr < shares[j].Addr })
			tranches = append(tranches, trancheKV{
				RiskRatioBps:   bps,
				Reserves:       tr.Reserves,
				TotalShares:    tr.TotalShares,
				Shares:         shares,
				CumulativeFees: tr.CumulativeFees,
				DepositEnabled: tr.DepositEnabled,
			})
		}
		sort.Slice(tranches, func(i, j int) bool { return tranches[i].RiskRatioBps < tranches[j].RiskRatioBps })

		rounds = make([]roundKV, 0, len(lot.Rounds))
		for _, r := range lot.Rounds {
			tickets := make([]ticketKV, 0, len(r.Tickets))
			for buyer, n := range r.Tickets {
				tickets = append(tickets, ticketKV{Buyer: buyer, Count: n})
			}
			sort.Slice(tickets, func(i, j int) bool { return tickets[i].Buyer < tickets[j].Buyer })
			rounds = append(rounds, roundKV{
				Number:       r.Number,
				Purchases:    r.Purchases,
				Tickets:      tickets,
				TotalTickets: r.TotalTickets,
				Principal:    r.Principal,
				Winner:       r.Winner,
				PrizeAmount:  r.PrizeAmount,
				DrawnAt:      r.DrawnAt,
			})
		}
		sort.Slice(rounds, func(i, j int) bool { return rounds[i].Number < rounds[j].Number })

		payouts = make([]payoutKV, 0, len(lot.Payouts))
		for addr, amt := range lot.Payouts {
			payouts = append(payouts, payoutKV{Addr: addr, Amount: amt})
		}
		sort.Slice(payouts, func(i, j int) bool { return payouts[i].Addr < payouts[j].Addr })
	}

	normalized := struct {
		Height      int64          `json:"height"`
		Accounts    []accountKV    `json:"accounts"`
		AccountKeys []accountKeyKV `json:"accountKeys,omitempty"`
		NonceMax    []nonceKV      `json:"nonceMax,omitempty"`

		Authority      string `json:"authority,omitempty"`
		Phase          Phase  `json:"phase"`
		PhaseStartedAt int64  `json:"phaseStartedAt"`
		RoundNumber    uint64 `json:"roundNumber"`
		LiquiditySecs  uint64 `json:"liquiditySecs"`
		TicketingSecs  uint64 `json:"ticketingSecs"`
		SettlingSecs   uint64 `json:"settlingSecs"`
		TicketPrice    uint64 `json:"ticketPrice"`
		LPFeeBps       uint32 `json:"lpFeeBps"`
		ProtocolFeeBps uint32 `json:"protocolFeeBps"`

		Tranches []trancheKV `json:"tranches"`
		Rounds   []roundKV   `json:"rounds"`
		Reserves FeeReserves `json:"reserves"`
		Payouts  []payoutKV  `json:"payouts,omitempty"`
	}{
		Height:      s.Height,
		Accounts:    accounts,
		AccountKeys: accountKeys,
		NonceMax:    nonces,
		Tranches:    tranches,
		Rounds:      rounds,
		Payouts:     payouts,
	}
	if lot != nil {
		normalized.Authority = lot.Authority
		normalized.Phase = lot.Phase
		normalized.PhaseStartedAt = lot.PhaseStartedAt
		normalized.RoundNumber = lot.RoundNumber
		normalized.LiquiditySecs = lot.LiquiditySecs
		normalized.TicketingSecs = lot.TicketingSecs
		normalized.SettlingSecs = lot.SettlingSecs
		normalized.TicketPrice = lot.TicketPrice
		normalized.LPFeeBps = lot.LPFeeBps
		normalized.ProtocolFeeBps = lot.ProtocolFeeBps
		normalized.Reserves = lot.Reserves
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}

// ---- Bank ----

func (s *State) Balance(addr string) uint64 {
	return s.Accounts[addr]
}

func (s *State) Credit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal > ^uint64(0)-amount {
		return fmt.Errorf("balance overflow: have=%d add=%d", bal, amount)
	}
	s.Accounts[addr] = bal + amount
	return nil
}

func (s *State) Debit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal < amount {
		return fmt.Errorf("insufficient funds: have=%d need=%d", bal, amount)
	}
	s.Accounts[addr] = bal - amount
	return nil
}
