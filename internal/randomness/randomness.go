package randomness

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"cryptolotto/internal/fhe"
)

const (
	// Keep these domains stable; they become part of consensus-critical derivations.
	drawRandDomain  = "lotto/v1/draw/rand"
	drawDigitDomain = "lotto/v1/draw/digit"

	// DigitBound is the exclusive upper bound of a drawn digit.
	DigitBound = 10
)

// DrawContext carries the public inputs available when a round is drawn.
type DrawContext struct {
	ChainID   string
	Height    int64
	BlockHash []byte
	Round     uint64
	// Beacon is an optional externally supplied 32-byte randomness value.
	Beacon []byte
}

// Source produces n encrypted winning digits. Implementations never see the
// cleartext digits; the coprocessor samples them.
type Source interface {
	Draw(exec fhe.Executor, dc DrawContext, n int) ([]fhe.Handle, error)
}

// BlockSource derives the draw seed from (chain-id, height, block hash, round).
// A supplied beacon is an error rather than being dropped.
//
// Block-derived entropy is proposer-influenceable. Use only on devnets.
type BlockSource struct{}

func (BlockSource) Draw(exec fhe.Executor, dc DrawContext, n int) ([]fhe.Handle, error) {
	if len(dc.Beacon) != 0 {
		return nil, fmt.Errorf("block randomness source does not accept a beacon")
	}
	return drawDigits(exec, DevnetSeedFrom(dc.ChainID, dc.Height, dc.BlockHash, dc.Round), n)
}

// BeaconSource uses the supplied beacon when present and falls back to the
// block-derived seed otherwise.
type BeaconSource struct{}

func (BeaconSource) Draw(exec fhe.Executor, dc DrawContext, n int) ([]fhe.Handle, error) {
	seed, err := SeedOrDevnetFrom(dc.ChainID, dc.Height, dc.BlockHash, dc.Round, dc.Beacon)
	if err != nil {
		return nil, err
	}
	return drawDigits(exec, seed, n)
}

// FromName maps a configured source name to a Source.
func FromName(name string) (Source, error) {
	switch name {
	case "", "beacon":
		return BeaconSource{}, nil
	case "block":
		return BlockSource{}, nil
	default:
		return nil, fmt.Errorf("unknown randomness source %q", name)
	}
}

func drawDigits(exec fhe.Executor, seed [32]byte, n int) ([]fhe.Handle, error) {
	if n <= 0 {
		return nil, fmt.Errorf("digit count must be > 0")
	}
	out := make([]fhe.Handle, n)
	for i := 0; i < n; i++ {
		h, err := exec.Rand(DigitSeed(seed, i), DigitBound)
		if err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

// SeedOrDevnetFrom returns the beacon if present (must be 32 bytes), otherwise
// derives devnet randomness via DevnetSeedFrom.
func SeedOrDevnetFrom(chainID string, height int64, blockHash []byte, round uint64, beacon []byte) ([32]byte, error) {
	if len(beacon) == 0 {
		return DevnetSeedFrom(chainID, height, blockHash, round), nil
	}
	if len(beacon) != 32 {
		return [32]byte{}, fmt.Errorf("beacon must be 32 bytes (or omitted)")
	}
	var out [32]byte
	copy(out[:], beacon)
	return out, nil
}

func DevnetSeedFrom(chainID string, height int64, blockHash []byte, round uint64) [32]byte {
	var h8, r8 [8]byte
	binary.LittleEndian.PutUint64(h8[:], uint64(height))
	binary.LittleEndian.PutUint64(r8[:], round)
	return hashDomain(drawRandDomain, []byte(chainID), h8[:], r8[:], blockHash)
}

func DigitSeed(seed [32]byte, i int) [32]byte {
	var i8 [8]byte
	binary.LittleEndian.PutUint64(i8[:], uint64(i))
	return hashDomain(drawDigitDomain, seed[:], i8[:])
}

func hashDomain(domain string, parts ...[]byte) [32]byte {
	h := sha256.New()
	_, _ = h.Write([]byte(domain))

	// Length-prefix each part to avoid ambiguous concatenations.
	var lenBuf [4]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(p)))
		_, _ = h.Write(lenBuf[:])
		_, _ = h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
