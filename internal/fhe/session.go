package fhe

import (
	errorsmod "cosmossdk.io/errors"

	"cryptolotto/internal/ocpcrypto"
)

const nonceDomain = "lotto/v1/fhe/nonce"

// Session holds the transient ciphertexts produced while executing one
// transaction. Transient values vanish with the session unless granted.
type Session struct {
	cop     *Coprocessor
	store   Store
	seed    []byte
	counter uint64
	scratch map[Handle]ocpcrypto.Ciphertext
}

// For binds the session to a contract identity. Operand access is checked
// against that identity.
func (s *Session) For(contract string) Executor {
	return &contractExecutor{s: s, contract: contract}
}

// Transient reports how many ciphertexts were produced and not yet persisted.
func (s *Session) Transient() int {
	n := 0
	for h := range s.scratch {
		if _, ok := s.store.Ciphertext(h); !ok {
			n++
		}
	}
	return n
}

func (s *Session) nextNonce() ocpcrypto.Scalar {
	for {
		s.counter++
		r, err := ocpcrypto.HashToScalar(nonceDomain, s.seed, ocpcrypto.U64LE(s.counter))
		if err == nil && !r.IsZero() {
			return r
		}
	}
}

func (s *Session) put(ct ocpcrypto.Ciphertext) Handle {
	h := HandleOf(ct)
	s.scratch[h] = ct
	return h
}

func (s *Session) encrypt(v uint64) (Handle, error) {
	ct, err := ocpcrypto.EncryptValue(s.cop.key.Public, v, s.nextNonce())
	if err != nil {
		return "", err
	}
	return s.put(ct), nil
}

func (s *Session) persist(h Handle) {
	if _, ok := s.store.Ciphertext(h); ok {
		return
	}
	if ct, ok := s.scratch[h]; ok {
		s.store.PutCiphertext(h, ct.Bytes())
	}
}

func (s *Session) load(h Handle, contract string) (ocpcrypto.Ciphertext, error) {
	if ct, ok := s.scratch[h]; ok {
		return ct, nil
	}
	if _, ok := s.store.Ciphertext(h); !ok {
		return ocpcrypto.Ciphertext{}, errorsmod.Wrapf(ErrUnknownHandle, "%s", h)
	}
	if !s.store.Allowed(h, contract) && !s.store.IsPublic(h) {
		return ocpcrypto.Ciphertext{}, errorsmod.Wrapf(ErrAccessDenied, "%s is not allowed for %s", h, contract)
	}
	return s.cop.Ciphertext(s.store, h)
}
