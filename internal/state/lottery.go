package state

type RoundStatus string

const (
	RoundOpen   RoundStatus = "open"
	RoundClosed RoundStatus = "closed"
)

type ClaimPolicy string

const (
	ClaimByOwner  ClaimPolicy = "owner"
	ClaimByAnyone ClaimPolicy = "anyone"
)

type Params struct {
	TicketPrice  uint64 `json:"ticketPrice"`
	PartialPrize uint64 `json:"partialPrize"`
	JackpotPrize uint64 `json:"jackpotPrize"`
	Digits       uint32 `json:"digits"`

	ClaimPolicy         ClaimPolicy `json:"claimPolicy"`
	RevealWinningDigits bool        `json:"revealWinningDigits,omitempty"`
}

type Lottery struct {
	Owner        string   `json:"owner"`
	Params       Params   `json:"params"`
	CurrentRound uint64   `json:"currentRound"`
	Rounds       []*Round `json:"rounds"` // Rounds[i].ID == i+1
}

type Round struct {
	ID     uint64      `json:"id"`
	Status RoundStatus `json:"status"`

	// Set once when the round closes.
	WinningDigits []string `json:"winningDigits,omitempty"`

	TotalTickets uint64    `json:"totalTickets"`
	PrizePool    uint64    `json:"prizePool"`
	Tickets      []*Ticket `json:"tickets"`

	OpenedAt int64 `json:"openedAt"`
	ClosedAt int64 `json:"closedAt,omitempty"`
}

type Ticket struct {
	Round       uint64   `json:"round"`
	Index       uint64   `json:"index"`
	Owner       string   `json:"owner"`
	Digits      []string `json:"digits"`
	Claimed     bool     `json:"claimed"`
	PurchasedAt int64    `json:"purchasedAt"`
}

// Round returns the round with the given id.
func (l *Lottery) Round(id uint64) (*Round, bool) {
	if l == nil || id == 0 || id > uint64(len(l.Rounds)) {
		return nil, false
	}
	return l.Rounds[id-1], true
}

func (l *Lottery) Current() *Round {
	r, _ := l.Round(l.CurrentRound)
	return r
}

type Token struct {
	Minter   string            `json:"minter"`
	Balances map[string]string `json:"balances"` // addr -> balance handle
	Mints    uint64            `json:"mints"`
}
