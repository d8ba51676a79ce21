package lotto

import (
	"cryptolotto/internal/state"
)

// RoundInfo is the public summary of a round. Winning digits are served
// separately by WinningDigits, as handles.
type RoundInfo struct {
	ID           uint64            `json:"id"`
	Status       state.RoundStatus `json:"status"`
	TotalTickets uint64            `json:"totalTickets"`
	PrizePool    uint64            `json:"prizePool"`
	Drawn        bool              `json:"drawn"`
	OpenedAt     int64             `json:"openedAt"`
	ClosedAt     int64             `json:"closedAt,omitempty"`
}

// TicketView is a ticket as returned to its owner: digit handles only.
type TicketView struct {
	Index       uint64   `json:"index"`
	Digits      []string `json:"digits"`
	Claimed     bool     `json:"claimed"`
	PurchasedAt int64    `json:"purchasedAt"`
}

func (k *Keeper) round(id uint64) (*state.Round, error) {
	r, ok := k.st.Round(id)
	if !ok {
		return nil, ErrRoundNotFound.Wrapf("round %d", id)
	}
	return r, nil
}

// Params returns the lottery parameters fixed at genesis.
func (k *Keeper) Params() state.Params { return k.st.Params }

// Owner returns the account allowed to draw rounds and withdraw funds.
func (k *Keeper) Owner() string { return k.st.Owner }

// CurrentRound returns the id of the latest round.
func (k *Keeper) CurrentRound() uint64 { return k.st.CurrentRound }

// IsOpen reports whether the current round still accepts tickets.
func (k *Keeper) IsOpen() bool {
	r := k.st.Current()
	return r != nil && r.Status == state.RoundOpen
}

// RoundInfo returns the summary of round id, or ErrRoundNotFound.
func (k *Keeper) RoundInfo(id uint64) (RoundInfo, error) {
	r, err := k.round(id)
	if err != nil {
		return RoundInfo{}, err
	}
	return RoundInfo{
		ID:           r.ID,
		Status:       r.Status,
		TotalTickets: r.TotalTickets,
		PrizePool:    r.PrizePool,
		Drawn:        len(r.WinningDigits) > 0,
		OpenedAt:     r.OpenedAt,
		ClosedAt:     r.ClosedAt,
	}, nil
}

// UserTickets lists addr's tickets in round id in purchase order.
func (k *Keeper) UserTickets(id uint64, addr string) ([]TicketView, error) {
	r, err := k.round(id)
	if err != nil {
		return nil, err
	}
	out := []TicketView{}
	for _, t := range r.Tickets {
		if t.Owner != addr {
			continue
		}
		out = append(out, TicketView{
			Index:       t.Index,
			Digits:      append([]string(nil), t.Digits...),
			Claimed:     t.Claimed,
			PurchasedAt: t.PurchasedAt,
		})
	}
	return out, nil
}

func (k *Keeper) WinningDigits(id uint64) ([]string, error) {
	r, err := k.round(id)
	if err != nil {
		return nil, err
	}
	if r.Status != state.RoundClosed {
		return nil, ErrRoundNotDrawn.Wrapf("round %d", id)
	}
	return append([]string(nil), r.WinningDigits...), nil
}

// PlayerBetCount is the number of tickets addr holds in round id.
func (k *Keeper) PlayerBetCount(id uint64, addr string) (uint64, error) {
	r, err := k.round(id)
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, t := range r.Tickets {
		if t.Owner == addr {
			n++
		}
	}
	return n, nil
}

// RoundPlayers lists distinct buyers of round id in first-purchase order.
func (k *Keeper) RoundPlayers(id uint64) ([]string, error) {
	r, err := k.round(id)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, t := range r.Tickets {
		if !seen[t.Owner] {
			seen[t.Owner] = true
			out = append(out, t.Owner)
		}
	}
	return out, nil
}

func (k *Keeper) ContractBalance() uint64 {
	return k.bank.Balance(ContractAddress)
}
