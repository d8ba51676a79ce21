package lotto

import (
	"cryptolotto/internal/fhe"
	"cryptolotto/internal/state"
)

// Score is the encrypted outcome of one ticket.
type Score struct {
	Tier   fhe.Handle
	Amount fhe.Handle
}

// score compares a ticket against the winning digits position by position.
// The operation sequence depends only on the digit count, never on values.
//
//	matches = sum_i Eq(ticket[i], winning[i])
//	tier    = Select(matches == n, 2, Select(matches == 2, 1, 0))
//	amount  = Select(matches == n, jackpot, Select(matches == 2, partial, 0))
func score(exec fhe.Executor, p state.Params, ticket, winning []fhe.Handle) (Score, error) {
	if len(ticket) != len(winning) || len(ticket) == 0 {
		return Score{}, ErrInvalidRequest.Wrapf("digit count mismatch: ticket=%d winning=%d", len(ticket), len(winning))
	}

	// Constants are encrypted in a fixed order so every replica derives the same handles.
	values := []uint64{
		0,
		PartialMatches,
		uint64(len(ticket)),
		TierNone,
		TierPartial,
		TierJackpot,
		p.PartialPrize,
		p.JackpotPrize,
	}
	enc := make([]fhe.Handle, len(values))
	for i, v := range values {
		h, err := exec.AsEncrypted(v)
		if err != nil {
			return Score{}, err
		}
		enc[i] = h
	}
	zero, partialMatches, allMatches := enc[0], enc[1], enc[2]
	tierNone, tierPartial, tierJackpot := enc[3], enc[4], enc[5]
	partialPrize, jackpotPrize := enc[6], enc[7]

	matches := zero
	for i := range ticket {
		eq, err := exec.Eq(ticket[i], winning[i])
		if err != nil {
			return Score{}, err
		}
		if matches, err = exec.Add(matches, eq); err != nil {
			return Score{}, err
		}
	}

	isPartial, err := exec.Eq(matches, partialMatches)
	if err != nil {
		return Score{}, err
	}
	isJackpot, err := exec.Eq(matches, allMatches)
	if err != nil {
		return Score{}, err
	}

	tierLow, err := exec.Select(isPartial, tierPartial, tierNone)
	if err != nil {
		return Score{}, err
	}
	tier, err := exec.Select(isJackpot, tierJackpot, tierLow)
	if err != nil {
		return Score{}, err
	}
	amountLow, err := exec.Select(isPartial, partialPrize, zero)
	if err != nil {
		return Score{}, err
	}
	amount, err := exec.Select(isJackpot, jackpotPrize, amountLow)
	if err != nil {
		return Score{}, err
	}
	return Score{Tier: tier, Amount: amount}, nil
}
