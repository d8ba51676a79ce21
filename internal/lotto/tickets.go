package lotto

import (
	"strconv"

	"cryptolotto/internal/fhe"
	"cryptolotto/internal/randomness"
	"cryptolotto/internal/state"
)

// BuyTicketRequest buys one ticket in the open round. Round is optional; when
// set it must name the open round.
type BuyTicketRequest struct {
	Buyer string
	Value uint64
	Round uint64
	Input fhe.Input
}

// BuyTicket records an encrypted ticket and moves the payment into the
// lottery's balance. It returns the ticket's index within the round.
func (k *Keeper) BuyTicket(req BuyTicketRequest) (*state.Ticket, error) {
	if err := k.requireExec(); err != nil {
		return nil, err
	}
	if req.Buyer == "" {
		return nil, ErrInvalidRequest.Wrap("missing buyer")
	}
	r := k.st.Current()
	if r == nil || r.Status != state.RoundOpen {
		return nil, ErrBettingClosed.Wrap("no open round")
	}
	if req.Round != 0 && req.Round != r.ID {
		return nil, ErrBettingClosed.Wrapf("round %d is not open (current=%d)", req.Round, r.ID)
	}
	price := k.st.Params.TicketPrice
	if req.Value != price {
		return nil, ErrIncorrectPayment.Wrapf("sent %d, price is %d", req.Value, price)
	}
	if n := len(req.Input.Ciphertexts); n != int(k.st.Params.Digits) {
		return nil, ErrInvalidInput.Wrapf("expected %d digits, got %d", k.st.Params.Digits, n)
	}
	digits, err := k.exec.VerifyInput(req.Input, req.Buyer, randomness.DigitBound)
	if err != nil {
		return nil, err
	}
	if r.PrizePool > ^uint64(0)-price {
		return nil, ErrInvalidRequest.Wrap("prize pool overflow")
	}

	if err := k.bank.Debit(req.Buyer, req.Value); err != nil {
		return nil, ErrInsufficientFunds.Wrap(err.Error())
	}
	if err := k.bank.Credit(ContractAddress, req.Value); err != nil {
		return nil, ErrInvalidRequest.Wrap(err.Error())
	}

	stored := make([]string, len(digits))
	for i, h := range digits {
		if err := k.exec.Allow(h, ContractAddress); err != nil {
			return nil, err
		}
		if err := k.exec.Allow(h, req.Buyer); err != nil {
			return nil, err
		}
		stored[i] = string(h)
	}

	t := &state.Ticket{
		Round:       r.ID,
		Index:       uint64(len(r.Tickets)),
		Owner:       req.Buyer,
		Digits:      stored,
		PurchasedAt: k.block.Height,
	}
	r.Tickets = append(r.Tickets, t)
	r.TotalTickets++
	r.PrizePool += price

	k.emit(EventTypeTicketPurchased, map[string]string{
		AttributeKeyOwner: t.Owner,
		AttributeKeyRound: strconv.FormatUint(t.Round, 10),
		AttributeKeyIndex: strconv.FormatUint(t.Index, 10),
	})
	return t, nil
}
