package lotto

import (
	"strconv"

	"cryptolotto/internal/fhe"
	"cryptolotto/internal/state"
)

// ClaimRequest names a ticket by round and index. Under the owner claim
// policy Caller must hold the ticket.
type ClaimRequest struct {
	Caller string
	Round  uint64
	Index  uint64
}

// Claim scores a ticket of a closed round and mints the encrypted prize to the
// ticket owner. A mint happens for every claim, winning or not, so observers
// cannot tell outcomes apart. A ticket can be claimed once.
func (k *Keeper) Claim(req ClaimRequest) (*state.Ticket, Score, error) {
	if err := k.requireExec(); err != nil {
		return nil, Score{}, err
	}
	if k.minter == nil {
		return nil, Score{}, ErrInvalidRequest.Wrap("keeper has no minter")
	}
	r, ok := k.st.Round(req.Round)
	if !ok {
		return nil, Score{}, ErrRoundNotFound.Wrapf("round %d", req.Round)
	}
	if r.Status != state.RoundClosed {
		return nil, Score{}, ErrRoundStillActive.Wrapf("round %d", r.ID)
	}
	if req.Index >= uint64(len(r.Tickets)) {
		return nil, Score{}, ErrInvalidBetIndex.Wrapf("index %d, round %d has %d tickets", req.Index, r.ID, len(r.Tickets))
	}
	t := r.Tickets[req.Index]
	if k.st.Params.ClaimPolicy != state.ClaimByAnyone && req.Caller != t.Owner {
		return nil, Score{}, ErrNotTicketOwner.Wrapf("caller=%s owner=%s", req.Caller, t.Owner)
	}
	if t.Claimed {
		return nil, Score{}, ErrAlreadyClaimed.Wrapf("round %d index %d", r.ID, t.Index)
	}

	sc, err := score(k.exec, k.st.Params, toHandles(t.Digits), toHandles(r.WinningDigits))
	if err != nil {
		return nil, Score{}, err
	}
	t.Claimed = true

	for _, grant := range []struct {
		h    fhe.Handle
		addr string
	}{
		{sc.Tier, ContractAddress},
		{sc.Tier, t.Owner},
		{sc.Amount, ContractAddress},
		{sc.Amount, t.Owner},
		{sc.Amount, k.minter.Address()},
	} {
		if err := k.exec.Allow(grant.h, grant.addr); err != nil {
			return nil, Score{}, err
		}
	}
	if _, err := k.minter.Mint(ContractAddress, t.Owner, sc.Amount); err != nil {
		return nil, Score{}, err
	}

	k.emit(EventTypeClaimSubmitted, map[string]string{
		AttributeKeyOwner:  t.Owner,
		AttributeKeyRound:  strconv.FormatUint(r.ID, 10),
		AttributeKeyIndex:  strconv.FormatUint(t.Index, 10),
		AttributeKeyTier:   string(sc.Tier),
		AttributeKeyAmount: string(sc.Amount),
	})
	k.logger.Debug("ticket claimed", "round", r.ID, "index", t.Index, "amount", sc.Amount)
	return t, sc, nil
}

func toHandles(ss []string) []fhe.Handle {
	out := make([]fhe.Handle, len(ss))
	for i, s := range ss {
		out[i] = fhe.Handle(s)
	}
	return out
}
