package fhe

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"cryptolotto/internal/ocpcrypto"
)

type memStore struct {
	cts    map[Handle][]byte
	acl    map[Handle]map[string]bool
	public map[Handle]bool
}

func newMemStore() *memStore {
	return &memStore{cts: map[Handle][]byte{}, acl: map[Handle]map[string]bool{}, public: map[Handle]bool{}}
}

func (m *memStore) Ciphertext(h Handle) ([]byte, bool) { b, ok := m.cts[h]; return b, ok }
func (m *memStore) PutCiphertext(h Handle, ct []byte)  { m.cts[h] = ct }
func (m *memStore) Allowed(h Handle, addr string) bool { return m.acl[h][addr] }
func (m *memStore) IsPublic(h Handle) bool             { return m.public[h] }
func (m *memStore) MarkPublic(h Handle)                { m.public[h] = true }
func (m *memStore) Grant(h Handle, addr string) {
	if m.acl[h] == nil {
		m.acl[h] = map[string]bool{}
	}
	m.acl[h][addr] = true
}

func testCoprocessor(t *testing.T) (*Coprocessor, NetworkKey) {
	t.Helper()
	key := NetworkKeyFromSecret(ocpcrypto.ScalarFromUint64(0xC0FFEE))
	c, err := NewCoprocessor(key, WithCacheSize(16))
	require.NoError(t, err)
	return c, key
}

// reveal decrypts a handle regardless of access, for assertions only.
func reveal(t *testing.T, s *Session, key NetworkKey, h Handle) uint64 {
	t.Helper()
	ct, ok := s.scratch[h]
	if !ok {
		var err error
		ct, err = s.cop.Ciphertext(s.store, h)
		require.NoError(t, err)
	}
	v, err := ocpcrypto.DiscreteLog(ocpcrypto.ElGamalDecrypt(key.Secret, ct), 1<<24)
	require.NoError(t, err)
	return v
}

func TestExecutor_AddEqSelect(t *testing.T) {
	cop, key := testCoprocessor(t)
	s := cop.Session(newMemStore(), []byte("tx-1"))
	ex := s.For("lotto")

	three, err := ex.AsEncrypted(3)
	require.NoError(t, err)
	four, err := ex.AsEncrypted(4)
	require.NoError(t, err)
	otherThree, err := ex.AsEncrypted(3)
	require.NoError(t, err)
	require.NotEqual(t, three, otherThree, "fresh nonces must give distinct handles")

	sum, err := ex.Add(three, four)
	require.NoError(t, err)
	require.Equal(t, uint64(7), reveal(t, s, key, sum))

	eq, err := ex.Eq(three, otherThree)
	require.NoError(t, err)
	require.Equal(t, uint64(1), reveal(t, s, key, eq))
	neq, err := ex.Eq(three, four)
	require.NoError(t, err)
	require.Equal(t, uint64(0), reveal(t, s, key, neq))

	picked, err := ex.Select(eq, four, three)
	require.NoError(t, err)
	require.Equal(t, uint64(4), reveal(t, s, key, picked))
	require.NotEqual(t, four, picked, "select must rerandomize")
	picked, err = ex.Select(neq, four, three)
	require.NoError(t, err)
	require.Equal(t, uint64(3), reveal(t, s, key, picked))

	_, err = ex.Select(sum, four, three)
	require.ErrorIs(t, err, ErrNotBoolean)
}

func TestSession_DeterministicAcrossReplicas(t *testing.T) {
	cop, _ := testCoprocessor(t)
	run := func() []Handle {
		s := cop.Session(newMemStore(), []byte("same-seed"))
		ex := s.For("lotto")
		a, _ := ex.AsEncrypted(1)
		b, _ := ex.Rand([32]byte{9}, 10)
		c, _ := ex.Eq(a, b)
		return []Handle{a, b, c}
	}
	require.Equal(t, run(), run())
}

func TestSession_NoncesNotDerivableFromPublicSeed(t *testing.T) {
	cop, key := testCoprocessor(t)
	seed := []byte("chain|height|txindex|blockhash|txbytes")
	s := cop.Session(newMemStore(), seed)
	ex := s.For("lotto")

	amount, err := ex.AsEncrypted(100)
	require.NoError(t, err)
	drawn, err := ex.Rand([32]byte{7}, 10)
	require.NoError(t, err)
	digit := reveal(t, s, key, drawn)

	want := ocpcrypto.EncodeValue(100)
	ct := s.scratch[amount]
	// An observer knows the seed and the counter but not the secret.
	for counter := uint64(1); counter <= 4; counter++ {
		r, err := ocpcrypto.HashToScalar(nonceDomain, seed, ocpcrypto.U64LE(counter))
		require.NoError(t, err)
		require.False(t, ocpcrypto.PointEq(ocpcrypto.MulBase(r), ct.C1), "nonce %d reproduced", counter)
		opened := ocpcrypto.PointSub(ct.C2, ocpcrypto.MulPoint(key.Public, r))
		require.False(t, ocpcrypto.PointEq(opened, want), "amount opened with nonce %d", counter)
	}

	// Sampling the seed without the secret does not predict the draw on
	// every seed; across many seeds the public guess must miss somewhere.
	misses := 0
	for i := 0; i < 32; i++ {
		seed := [32]byte{byte(i), 3}
		h, err := ex.Rand(seed, 10)
		require.NoError(t, err)
		guess, err := ocpcrypto.NewHashRNG(seed).Uint64n(10)
		require.NoError(t, err)
		if guess != reveal(t, s, key, h) {
			misses++
		}
	}
	require.Positive(t, misses)
	require.Less(t, digit, uint64(10))

	// A different network key yields different ciphertexts for the same seed.
	other, err := NewCoprocessor(NetworkKeyFromSecret(ocpcrypto.ScalarFromUint64(0xBEEF)))
	require.NoError(t, err)
	h2, err := other.Session(newMemStore(), seed).For("lotto").AsEncrypted(100)
	require.NoError(t, err)
	require.NotEqual(t, amount, h2)
}

func TestAccess_TransientOnlyPersistedWhenAllowed(t *testing.T) {
	cop, _ := testCoprocessor(t)
	store := newMemStore()
	s := cop.Session(store, []byte("tx"))
	ex := s.For("lotto")

	kept, _ := ex.AsEncrypted(5)
	dropped, _ := ex.AsEncrypted(6)
	require.Equal(t, 2, s.Transient())

	require.NoError(t, ex.Allow(kept, "alice"))
	_, ok := store.Ciphertext(kept)
	require.True(t, ok)
	_, ok = store.Ciphertext(dropped)
	require.False(t, ok)
	require.True(t, ex.IsAllowed(kept, "alice"))
	require.False(t, ex.IsAllowed(kept, "lotto"))

	// A later transaction: the contract itself was never granted the handle.
	next := cop.Session(store, []byte("tx2")).For("lotto")
	_, err := next.Add(kept, kept)
	require.ErrorIs(t, err, ErrAccessDenied)
	_, err = next.Add(dropped, kept)
	require.ErrorIs(t, err, ErrUnknownHandle)

	// Another contract cannot re-share a handle it cannot read.
	other := cop.Session(store, []byte("tx3")).For("ctoken")
	require.ErrorIs(t, other.Allow(kept, "mallory"), ErrAccessDenied)

	// Public handles are readable by any contract.
	alice := cop.Session(store, []byte("tx4")).For("alice")
	require.NoError(t, alice.AllowPublic(kept))
	_, err = next.Add(kept, kept)
	require.NoError(t, err)
}

func TestRand_Uniformish(t *testing.T) {
	cop, key := testCoprocessor(t)
	s := cop.Session(newMemStore(), []byte("tx"))
	ex := s.For("lotto")
	seen := map[uint64]bool{}
	for i := 0; i < 200; i++ {
		h, err := ex.Rand([32]byte{byte(i), 1}, 10)
		require.NoError(t, err)
		v := reveal(t, s, key, h)
		require.Less(t, v, uint64(10))
		seen[v] = true
	}
	require.Len(t, seen, 10)
}

func TestVerifyInput(t *testing.T) {
	cop, key := testCoprocessor(t)
	in, err := EncryptInput(key.Public, "lotto", "alice", []uint64{1, 2, 3, 4}, 10, rand.Reader)
	require.NoError(t, err)

	s := cop.Session(newMemStore(), []byte("tx"))
	ex := s.For("lotto")
	hs, err := ex.VerifyInput(in, "alice", 10)
	require.NoError(t, err)
	require.Len(t, hs, 4)
	for i, h := range hs {
		require.Equal(t, uint64(i+1), reveal(t, s, key, h))
	}

	t.Run("wrong sender", func(t *testing.T) {
		_, err := ex.VerifyInput(in, "bob", 10)
		require.ErrorIs(t, err, ErrInvalidProof)
	})
	t.Run("wrong contract", func(t *testing.T) {
		_, err := s.For("other").VerifyInput(in, "alice", 10)
		require.ErrorIs(t, err, ErrInvalidProof)
	})
	t.Run("reordered bundle", func(t *testing.T) {
		swapped := Input{
			Ciphertexts: []string{in.Ciphertexts[1], in.Ciphertexts[0], in.Ciphertexts[2], in.Ciphertexts[3]},
			Proofs:      []string{in.Proofs[1], in.Proofs[0], in.Proofs[2], in.Proofs[3]},
		}
		_, err := ex.VerifyInput(swapped, "alice", 10)
		require.ErrorIs(t, err, ErrInvalidProof)
	})
	t.Run("malformed ciphertext", func(t *testing.T) {
		bad := Input{Ciphertexts: append([]string{"0x1234"}, in.Ciphertexts[1:]...), Proofs: in.Proofs}
		_, err := ex.VerifyInput(bad, "alice", 10)
		require.ErrorIs(t, err, ErrMalformedCiphertext)
	})
	t.Run("proof count mismatch", func(t *testing.T) {
		_, err := ex.VerifyInput(Input{Ciphertexts: in.Ciphertexts, Proofs: in.Proofs[:3]}, "alice", 10)
		require.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestEncryptInput_RejectsOutOfRange(t *testing.T) {
	_, key := testCoprocessor(t)
	_, err := EncryptInput(key.Public, "lotto", "alice", []uint64{1, 10}, 10, rand.Reader)
	require.Error(t, err)
}

func TestHandle_ParseAndContentAddressed(t *testing.T) {
	_, key := testCoprocessor(t)
	ct, err := ocpcrypto.EncryptValue(key.Public, 1, ocpcrypto.ScalarFromUint64(3))
	require.NoError(t, err)
	h := HandleOf(ct)
	require.Equal(t, h, HandleOf(ct))
	parsed, err := ParseHandle(string(h))
	require.NoError(t, err)
	require.Equal(t, h, parsed)
	_, err = ParseHandle("0x12")
	require.ErrorIs(t, err, ErrUnknownHandle)
}

func TestNetworkKey_SaveLoad(t *testing.T) {
	key, err := GenerateNetworkKey(rand.Reader)
	require.NoError(t, err)
	path := t.TempDir() + "/config/network_key.json"
	require.NoError(t, key.Save(path))
	back, err := LoadNetworkKey(path)
	require.NoError(t, err)
	require.True(t, ocpcrypto.PointEq(key.Public, back.Public))
}
