package state

// ---- Lottery ----

type Phase string

const (
	// PhaseUninitialized is the zero value before lottery/init runs.
	PhaseUninitialized Phase = ""

	PhaseLiquidity    Phase = "liquidity"
	PhaseTicketing    Phase = "ticketing"
	PhaseDrawing      Phase = "drawing"
	PhaseDistributing Phase = "distributing"
	PhaseSettling     Phase = "settling"
)

const BpsDenominator uint64 = 10000

// LotteryState is the single lottery instance carried by the chain.
//
// The phase clock is the sole authority on which operations are valid: every
// handler checks Phase (and, for timed phases, PhaseStartedAt + duration)
// before touching tranches or rounds.
type LotteryState struct {
	// Account that ran lottery/init. Privileged ops must be signed by it.
	Authority string `json:"authority"`

	Phase          Phase  `json:"phase"`
	PhaseStartedAt int64  `json:"phaseStartedAt"` // unix seconds; 0 right after init
	RoundNumber    uint64 `json:"roundNumber"`

	LiquiditySecs uint64 `json:"liquiditySecs"`
	TicketingSecs uint64 `json:"ticketingSecs"`
	// SettlingSecs of 0 makes the settling phase advanceable immediately.
	SettlingSecs uint64 `json:"settlingSecs,omitempty"`

	TicketPrice    uint64 `json:"ticketPrice"`
	LPFeeBps       uint32 `json:"lpFeeBps"`
	ProtocolFeeBps uint32 `json:"protocolFeeBps"`

	Tranches map[uint32]*Tranche `json:"tranches"` // keyed by risk ratio bps
	Rounds   map[uint64]*Round   `json:"rounds"`   // keyed by round number, kept for audit

	Reserves FeeReserves `json:"reserves"`

	// Claimable prize balance per winner address.
	Payouts map[string]uint64 `json:"payouts,omitempty"`
}

func (l *LotteryState) Initialized() bool {
	return l != nil && l.Phase != PhaseUninitialized
}

func (l *LotteryState) CombinedFeeBps() uint32 {
	return l.LPFeeBps + l.ProtocolFeeBps
}

// Tranche is a share-based liquidity vault exposing RiskRatioBps of its
// reserves as prize per round. Share price = Reserves/TotalShares; fee income
// raises it, prize loss lowers it, neither touches share counts.
type Tranche struct {
	RiskRatioBps uint32 `json:"riskRatioBps"`

	Reserves    uint64            `json:"reserves"`
	TotalShares uint64            `json:"totalShares"`
	Shares      map[string]uint64 `json:"shares"`

	CumulativeFees uint64 `json:"cumulativeFees"`
	DepositEnabled bool   `json:"depositEnabled"`
}

// PrizeAtRisk is recomputed from current reserves, never stored.
// Callers pass in the floor-division helper result; see app.prizeAtRisk.

// Purchase is one ticket purchase event. Ranges are contiguous, disjoint, and
// appended in index order, so winner lookup can binary-search StartIndex.
type Purchase struct {
	Buyer      string `json:"buyer"`
	StartIndex uint64 `json:"startIndex"`
	Count      uint64 `json:"count"`
}

type Round struct {
	Number uint64 `json:"number"`

	Purchases []Purchase        `json:"purchases,omitempty"`
	Tickets   map[string]uint64 `json:"tickets,omitempty"` // aggregate per buyer, for queries
	// TotalTickets is the count of player tickets sold; the LP side occupies
	// the implicit range at and beyond this index during the draw.
	TotalTickets uint64 `json:"totalTickets"`

	// Ticket principal collected this round (cost minus fees). Paid to the
	// treasury on a player win, distributed to tranches on an LP win.
	Principal uint64 `json:"principal"`

	Winner      string `json:"winner,omitempty"` // empty = LP side won (or not drawn yet)
	PrizeAmount uint64 `json:"prizeAmount,omitempty"`
	DrawnAt     int64  `json:"drawnAt,omitempty"` // unix seconds; 0 = not drawn
}

func (r *Round) Drawn() bool {
	return r != nil && r.DrawnAt != 0
}

// FeeReserves tracks the three running balances debited only by explicit
// claim or distribution operations.
type FeeReserves struct {
	TreasuryPrincipal uint64 `json:"treasuryPrincipal"`
	LPFee             uint64 `json:"lpFee"`
	ProtocolFee       uint64 `json:"protocolFee"`
}

func NewLotteryState() *LotteryState {
	return &LotteryState{
		Tranches: map[uint32]*Tranche{},
		Rounds:   map[uint64]*Round{},
		Payouts:  map[string]uint64{},
	}
}

func NewRound(number uint64) *Round {
	return &Round{
		Number:  number,
		Tickets: map[string]uint64{},
	}
}
