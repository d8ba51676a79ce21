package lotto

import (
	"strconv"

	"cryptolotto/internal/fhe"
	"cryptolotto/internal/randomness"
	"cryptolotto/internal/state"
)

// CloseAndDrawRequest closes the open round. Digits, when present, are the
// owner's encrypted winning digits; otherwise the randomness source draws
// them, optionally seeded by Beacon.
type CloseAndDrawRequest struct {
	Caller string
	Digits *fhe.Input
	Beacon []byte
}

// CloseAndDraw sets the winning digits of the open round, closes it and opens
// the next round. All of it happens or none of it.
func (k *Keeper) CloseAndDraw(req CloseAndDrawRequest) (closed *state.Round, next *state.Round, err error) {
	if err := k.requireExec(); err != nil {
		return nil, nil, err
	}
	if err := k.requireOwner(req.Caller); err != nil {
		return nil, nil, err
	}
	r := k.st.Current()
	if r == nil || r.Status != state.RoundOpen {
		return nil, nil, ErrRoundNotOpen.Wrapf("round %d", k.st.CurrentRound)
	}

	n := int(k.st.Params.Digits)
	var digits []fhe.Handle
	if req.Digits != nil {
		if len(req.Digits.Ciphertexts) != n {
			return nil, nil, ErrInvalidInput.Wrapf("expected %d digits, got %d", n, len(req.Digits.Ciphertexts))
		}
		digits, err = k.exec.VerifyInput(*req.Digits, req.Caller, randomness.DigitBound)
	} else {
		digits, err = k.source.Draw(k.exec, randomness.DrawContext{
			ChainID:   k.block.ChainID,
			Height:    k.block.Height,
			BlockHash: k.block.Hash,
			Round:     r.ID,
			Beacon:    req.Beacon,
		}, n)
	}
	if err != nil {
		return nil, nil, err
	}

	winning := make([]string, len(digits))
	for i, h := range digits {
		if err := k.exec.Allow(h, ContractAddress); err != nil {
			return nil, nil, err
		}
		if err := k.exec.Allow(h, k.st.Owner); err != nil {
			return nil, nil, err
		}
		if k.st.Params.RevealWinningDigits {
			if err := k.exec.AllowPublic(h); err != nil {
				return nil, nil, err
			}
		}
		winning[i] = string(h)
	}

	r.WinningDigits = winning
	r.Status = state.RoundClosed
	r.ClosedAt = k.block.Height

	nr := &state.Round{ID: r.ID + 1, Status: state.RoundOpen, OpenedAt: k.block.Height}
	k.st.Rounds = append(k.st.Rounds, nr)
	k.st.CurrentRound = nr.ID

	k.emit(EventTypeRoundEnded, map[string]string{AttributeKeyRound: strconv.FormatUint(r.ID, 10)})
	k.emit(EventTypeRoundStarted, map[string]string{AttributeKeyRound: strconv.FormatUint(nr.ID, 10)})
	k.logger.Info("round drawn", "round", r.ID, "tickets", r.TotalTickets, "next", nr.ID)
	return r, nr, nil
}
