package fhe

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zeebo/blake3"

	"cryptolotto/internal/ocpcrypto"
)

const DefaultCacheSize = 4096

const (
	entropyKeyContext = "lotto/v1/fhe/entropy-key"
	sessionSeedDomain = "lotto/v1/fhe/session"
	randSeedDomain    = "lotto/v1/fhe/rand"
)

// Coprocessor evaluates operations on ciphertexts under the network key.
// It is the only component holding the secret; callers see handles.
//
// A single key holder stands in for a threshold committee on devnets.
type Coprocessor struct {
	key    NetworkKey
	cache  *lru.Cache[Handle, ocpcrypto.Ciphertext]
	logger log.Logger

	// entropyKey is derived from the secret. Session nonces and Rand
	// samples are keyed with it so public seeds alone cannot reproduce them.
	entropyKey [32]byte
}

type Option func(*Coprocessor) error

func WithLogger(l log.Logger) Option {
	return func(c *Coprocessor) error {
		c.logger = l.With("module", ModuleName)
		return nil
	}
}

func WithCacheSize(n int) Option {
	return func(c *Coprocessor) error {
		if n <= 0 {
			return fmt.Errorf("cache size must be > 0")
		}
		cache, err := lru.New[Handle, ocpcrypto.Ciphertext](n)
		if err != nil {
			return err
		}
		c.cache = cache
		return nil
	}
}

func NewCoprocessor(key NetworkKey, opts ...Option) (*Coprocessor, error) {
	if key.Secret.IsZero() {
		return nil, fmt.Errorf("coprocessor: network key is zero")
	}
	c := &Coprocessor{key: key, logger: log.NewNopLogger()}
	blake3.DeriveKey(entropyKeyContext, key.Secret.Bytes(), c.entropyKey[:])
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.cache == nil {
		if err := WithCacheSize(DefaultCacheSize)(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Coprocessor) PublicKey() ocpcrypto.Point { return c.key.Public }

// Ciphertext loads a persisted ciphertext. No access check is made.
func (c *Coprocessor) Ciphertext(store Store, h Handle) (ocpcrypto.Ciphertext, error) {
	if ct, ok := c.cache.Get(h); ok {
		return ct, nil
	}
	raw, ok := store.Ciphertext(h)
	if !ok {
		return ocpcrypto.Ciphertext{}, errorsmod.Wrapf(ErrUnknownHandle, "%s", h)
	}
	ct, err := ocpcrypto.CiphertextFromBytes(raw)
	if err != nil {
		return ocpcrypto.Ciphertext{}, errorsmod.Wrapf(ErrMalformedCiphertext, "%s: %v", h, err)
	}
	c.cache.Add(h, ct)
	return ct, nil
}

// decryptPoint returns m*G for ct. Callers must not leak it.
func (c *Coprocessor) decryptPoint(ct ocpcrypto.Ciphertext) ocpcrypto.Point {
	return ocpcrypto.ElGamalDecrypt(c.key.Secret, ct)
}

// Session starts a per-transaction evaluation context. seed must be unique
// per transaction and identical on every replica.
func (c *Coprocessor) Session(store Store, seed []byte) *Session {
	return &Session{
		cop:     c,
		store:   store,
		seed:    c.keyed(sessionSeedDomain, seed),
		scratch: map[Handle]ocpcrypto.Ciphertext{},
	}
}

// keyed returns blake3 keyed with the entropy key over a domain-separated
// message. Replicas sharing the network key agree on the output.
func (c *Coprocessor) keyed(domain string, msg []byte) []byte {
	h, err := blake3.NewKeyed(c.entropyKey[:])
	if err != nil {
		panic(err)
	}
	_, _ = h.Write([]byte(domain))
	_, _ = h.Write(ocpcrypto.U64LE(uint64(len(msg))))
	_, _ = h.Write(msg)
	return h.Sum(nil)
}
