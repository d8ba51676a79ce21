package state

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"

	"cryptolotto/internal/fhe"
)

type State struct {
	Height  int64  `json:"height"`
	ChainID string `json:"chainId,omitempty"`

	Accounts    map[string]uint64 `json:"accounts"`
	AccountKeys map[string][]byte `json:"accountKeys,omitempty"` // addr -> ed25519 pubkey (32 bytes)
	NonceMax    map[string]uint64 `json:"nonceMax,omitempty"`    // signer -> last accepted tx.nonce

	Lottery *Lottery `json:"lottery,omitempty"`
	Token   *Token   `json:"token,omitempty"`

	// Persisted ciphertexts (handle -> hex c1||c2) and their access grants.
	Ciphertexts map[string]string   `json:"ciphertexts"`
	ACL         map[string][]string `json:"acl"`
	Public      map[string]bool     `json:"public,omitempty"`
}

func NewState() *State {
	st := &State{}
	st.normalize()
	return st
}

func (s *State) normalize() {
	if s.Accounts == nil {
		s.Accounts = map[string]uint64{}
	}
	if s.AccountKeys == nil {
		s.AccountKeys = map[string][]byte{}
	}
	if s.NonceMax == nil {
		s.NonceMax = map[string]uint64{}
	}
	if s.Ciphertexts == nil {
		s.Ciphertexts = map[string]string{}
	}
	if s.ACL == nil {
		s.ACL = map[string][]string{}
	}
	if s.Public == nil {
		s.Public = map[string]bool{}
	}
	if s.Token != nil && s.Token.Balances == nil {
		s.Token.Balances = map[string]string{}
	}
}

func decode(b []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	st.normalize()
	return &st, nil
}

// Clone returns a deep copy of state suitable for staged tx execution.
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	return decode(b)
}

var hashEncMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	hashEncMode = em
}

// AppHash is sha256 over the core deterministic CBOR encoding, which sorts
// map keys, so replicas agree regardless of map iteration order.
func (s *State) AppHash() []byte {
	b, err := hashEncMode.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("apphash: %v", err))
	}
	sum := sha256.Sum256(b)
	return sum[:]
}

// ---- Bank ----

func (s *State) Balance(addr string) uint64 {
	return s.Accounts[addr]
}

func (s *State) Credit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal > ^uint64(0)-amount {
		return fmt.Errorf("balance overflow: have=%d add=%d", bal, amount)
	}
	s.Accounts[addr] = bal + amount
	return nil
}

func (s *State) Debit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal < amount {
		return fmt.Errorf("insufficient funds: have=%d need=%d", bal, amount)
	}
	s.Accounts[addr] = bal - amount
	return nil
}

// ---- Ciphertext store ----

var _ fhe.Store = (*State)(nil)

func (s *State) Ciphertext(h fhe.Handle) ([]byte, bool) {
	raw, ok := s.Ciphertexts[string(h)]
	if !ok {
		return nil, false
	}
	b, err := hexDecode(raw)
	if err != nil {
		return nil, false
	}
	return b, true
}

func (s *State) PutCiphertext(h fhe.Handle, ct []byte) {
	s.Ciphertexts[string(h)] = hexEncode(ct)
}

func (s *State) Allowed(h fhe.Handle, addr string) bool {
	grants := s.ACL[string(h)]
	i := sort.SearchStrings(grants, addr)
	return i < len(grants) && grants[i] == addr
}

func (s *State) Grant(h fhe.Handle, addr string) {
	grants := s.ACL[string(h)]
	i := sort.SearchStrings(grants, addr)
	if i < len(grants) && grants[i] == addr {
		return
	}
	grants = append(grants, "")
	copy(grants[i+1:], grants[i:])
	grants[i] = addr
	s.ACL[string(h)] = grants
}

func (s *State) IsPublic(h fhe.Handle) bool {
	return s.Public[string(h)]
}

func (s *State) MarkPublic(h fhe.Handle) {
	s.Public[string(h)] = true
}

func (s *State) AccountKey(addr string) ([]byte, bool) {
	k, ok := s.AccountKeys[addr]
	return k, ok
}
