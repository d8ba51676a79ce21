package ocpcrypto

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/bits"
)

// HashRNG is a deterministic byte stream derived from sha256(seed || counter).
// It is consensus-safe and does not depend on platform RNGs.
type HashRNG struct {
	seed    [32]byte
	counter uint64
	buf     [32]byte
	bufPos  int
}

func NewHashRNG(seed [32]byte) *HashRNG {
	return &HashRNG{seed: seed, bufPos: 32}
}

// Read fills p and never fails.
func (r *HashRNG) Read(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		if r.bufPos >= len(r.buf) {
			r.refill()
		}
		c := copy(p, r.buf[r.bufPos:])
		r.bufPos += c
		p = p[c:]
	}
	return n, nil
}

func (r *HashRNG) refill() {
	var in [32 + 8]byte
	copy(in[:32], r.seed[:])
	binary.LittleEndian.PutUint64(in[32:], r.counter)
	r.counter++
	r.buf = sha256.Sum256(in[:])
	r.bufPos = 0
}

// Uint64n draws uniformly from [0, max) by rejection sampling.
func (r *HashRNG) Uint64n(max uint64) (uint64, error) {
	if max == 0 {
		return 0, fmt.Errorf("max must be > 0")
	}
	if max == 1 {
		return 0, nil
	}
	mask := ^uint64(0) >> bits.LeadingZeros64(max-1)
	var buf [8]byte
	for tries := 0; tries < 1_000_000; tries++ {
		_, _ = r.Read(buf[:])
		v := binary.LittleEndian.Uint64(buf[:]) & mask
		if v < max {
			return v, nil
		}
	}
	return 0, fmt.Errorf("failed to draw Uint64n after many tries (max=%d)", max)
}
