package ocpcrypto

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

func u32le(x uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, x)
	return b
}

func u64le(x uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, x)
	return b
}

// U64LE is the little-endian encoding used in transcripts and nonce derivation.
func U64LE(x uint64) []byte {
	return u64le(x)
}

func concatBytes(chunks ...[]byte) []byte {
	var n int
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func hexToBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("hex: empty string")
	}
	ss := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(ss)%2 != 0 {
		return nil, fmt.Errorf("hex: odd length")
	}
	b, err := hex.DecodeString(ss)
	if err != nil {
		return nil, fmt.Errorf("hex: %w", err)
	}
	return b, nil
}

func bytesToHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// HexToBytes decodes an optionally 0x-prefixed hex string.
func HexToBytes(s string) ([]byte, error) { return hexToBytes(s) }

// BytesToHex encodes b as lowercase 0x-prefixed hex.
func BytesToHex(b []byte) string { return bytesToHex(b) }
