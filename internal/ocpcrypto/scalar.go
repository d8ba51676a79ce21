package ocpcrypto

import (
	"fmt"
	"io"

	"github.com/gtank/ristretto255"
)

const ScalarBytes = 32

// Scalar is a ristretto255 scalar (canonical 32-byte little-endian encoding).
type Scalar struct {
	v ristretto255.Scalar
}

func ScalarZero() Scalar {
	return Scalar{}
}

func ScalarFromUint64(x uint64) Scalar {
	var b [ScalarBytes]byte
	copy(b[:], u64le(x))
	var s Scalar
	// x < 2^64 < l, so the encoding is always canonical.
	if _, err := s.v.SetCanonicalBytes(b[:]); err != nil {
		panic(fmt.Sprintf("scalar: %v", err))
	}
	return s
}

func ScalarFromBytesCanonical(b []byte) (Scalar, error) {
	if len(b) != ScalarBytes {
		return Scalar{}, fmt.Errorf("scalar: expected %d bytes", ScalarBytes)
	}
	var s Scalar
	if _, err := s.v.SetCanonicalBytes(b); err != nil {
		return Scalar{}, fmt.Errorf("scalar: non-canonical: %w", err)
	}
	return s, nil
}

func ScalarFromUniformBytes(b []byte) (Scalar, error) {
	if len(b) != 64 {
		return Scalar{}, fmt.Errorf("scalar: expected 64 uniform bytes")
	}
	var s Scalar
	s.v.FromUniformBytes(b)
	return s, nil
}

// RandomScalar draws a non-zero scalar from r.
func RandomScalar(r io.Reader) (Scalar, error) {
	var buf [64]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Scalar{}, fmt.Errorf("scalar: read randomness: %w", err)
		}
		s, err := ScalarFromUniformBytes(buf[:])
		if err != nil {
			return Scalar{}, err
		}
		if !s.IsZero() {
			return s, nil
		}
	}
}

func ScalarFromHex(s string) (Scalar, error) {
	b, err := hexToBytes(s)
	if err != nil {
		return Scalar{}, err
	}
	return ScalarFromBytesCanonical(b)
}

func (s Scalar) Bytes() []byte {
	return s.v.Bytes()
}

func (s Scalar) Hex() string {
	return bytesToHex(s.Bytes())
}

func (s Scalar) IsZero() bool {
	var z ristretto255.Scalar
	return s.v.Equal(&z) == 1
}

func ScalarEq(a, b Scalar) bool {
	return a.v.Equal(&b.v) == 1
}

func ScalarAdd(a, b Scalar) Scalar {
	var out Scalar
	out.v.Add(&a.v, &b.v)
	return out
}

func ScalarSub(a, b Scalar) Scalar {
	var out Scalar
	out.v.Subtract(&a.v, &b.v)
	return out
}

func ScalarMul(a, b Scalar) Scalar {
	var out Scalar
	out.v.Multiply(&a.v, &b.v)
	return out
}

func ScalarNeg(a Scalar) Scalar {
	var out Scalar
	out.v.Negate(&a.v)
	return out
}
