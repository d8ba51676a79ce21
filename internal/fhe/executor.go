package fhe

import (
	errorsmod "cosmossdk.io/errors"

	"cryptolotto/internal/ocpcrypto"
)

// Executor is the set of encrypted-value operations available to a contract.
// None of them reveals a cleartext to the caller.
type Executor interface {
	Contract() string

	Add(a, b Handle) (Handle, error)
	// Eq returns an encrypted 1 when a and b hold the same value, else 0.
	Eq(a, b Handle) (Handle, error)
	// Select returns a fresh copy of a when cond holds 1, of b when it holds 0.
	Select(cond, a, b Handle) (Handle, error)
	AsEncrypted(v uint64) (Handle, error)
	// Rand returns an encryption of a value uniform in [0, bound) derived from seed
	// and the network secret.
	Rand(seed [32]byte, bound uint64) (Handle, error)
	// VerifyInput checks a client-supplied bundle whose values are each < bound.
	VerifyInput(in Input, sender string, bound uint64) ([]Handle, error)

	Allow(h Handle, addr string) error
	AllowPublic(h Handle) error
	IsAllowed(h Handle, addr string) bool
}

type contractExecutor struct {
	s        *Session
	contract string
}

var _ Executor = (*contractExecutor)(nil)

func (e *contractExecutor) Contract() string { return e.contract }

func (e *contractExecutor) Add(a, b Handle) (Handle, error) {
	ca, err := e.s.load(a, e.contract)
	if err != nil {
		return "", err
	}
	cb, err := e.s.load(b, e.contract)
	if err != nil {
		return "", err
	}
	return e.s.put(ocpcrypto.CiphertextAdd(ca, cb)), nil
}

func (e *contractExecutor) Eq(a, b Handle) (Handle, error) {
	ca, err := e.s.load(a, e.contract)
	if err != nil {
		return "", err
	}
	cb, err := e.s.load(b, e.contract)
	if err != nil {
		return "", err
	}
	var bit uint64
	if e.s.cop.decryptPoint(ocpcrypto.CiphertextSub(ca, cb)).IsIdentity() {
		bit = 1
	}
	return e.s.encrypt(bit)
}

func (e *contractExecutor) Select(cond, a, b Handle) (Handle, error) {
	cc, err := e.s.load(cond, e.contract)
	if err != nil {
		return "", err
	}
	ca, err := e.s.load(a, e.contract)
	if err != nil {
		return "", err
	}
	cb, err := e.s.load(b, e.contract)
	if err != nil {
		return "", err
	}
	m := e.s.cop.decryptPoint(cc)
	var chosen ocpcrypto.Ciphertext
	switch {
	case ocpcrypto.PointEq(m, ocpcrypto.PointBase()):
		chosen = ca
	case m.IsIdentity():
		chosen = cb
	default:
		return "", errorsmod.Wrapf(ErrNotBoolean, "%s", cond)
	}
	out, err := ocpcrypto.Rerandomize(e.s.cop.key.Public, chosen, e.s.nextNonce())
	if err != nil {
		return "", err
	}
	return e.s.put(out), nil
}

func (e *contractExecutor) AsEncrypted(v uint64) (Handle, error) {
	return e.s.encrypt(v)
}

func (e *contractExecutor) Rand(seed [32]byte, bound uint64) (Handle, error) {
	var keyed [32]byte
	copy(keyed[:], e.s.cop.keyed(randSeedDomain, seed[:]))
	v, err := ocpcrypto.NewHashRNG(keyed).Uint64n(bound)
	if err != nil {
		return "", errorsmod.Wrap(ErrInvalidInput, err.Error())
	}
	return e.s.encrypt(v)
}

func (e *contractExecutor) VerifyInput(in Input, sender string, bound uint64) ([]Handle, error) {
	cts, err := verifyInput(e.s.cop.key.Public, e.contract, sender, in, bound)
	if err != nil {
		return nil, err
	}
	out := make([]Handle, len(cts))
	for i, ct := range cts {
		out[i] = e.s.put(ct)
	}
	e.s.cop.logger.Debug("verified encrypted input", "contract", e.contract, "sender", sender, "values", len(out))
	return out, nil
}

func (e *contractExecutor) Allow(h Handle, addr string) error {
	if addr == "" {
		return errorsmod.Wrap(ErrAccessDenied, "empty grantee")
	}
	if _, err := e.s.load(h, e.contract); err != nil {
		return err
	}
	e.s.persist(h)
	e.s.store.Grant(h, addr)
	return nil
}

func (e *contractExecutor) AllowPublic(h Handle) error {
	if _, err := e.s.load(h, e.contract); err != nil {
		return err
	}
	e.s.persist(h)
	e.s.store.MarkPublic(h)
	return nil
}

func (e *contractExecutor) IsAllowed(h Handle, addr string) bool {
	return e.s.store.Allowed(h, addr)
}
