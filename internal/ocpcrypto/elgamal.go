package ocpcrypto

import "fmt"

const CiphertextBytes = 2 * PointBytes

// Ciphertext is an ElGamal ciphertext in additive notation:
//
//	PK = Y = x*G
//	Enc(Y, M; r) = (r*G, M + r*Y)
//
// Values are encoded in the exponent (M = m*G), which makes the scheme
// additively homomorphic.
type Ciphertext struct {
	C1 Point
	C2 Point
}

func ElGamalEncrypt(pk Point, m Point, r Scalar) (Ciphertext, error) {
	if r.IsZero() {
		// Zero randomness leaks the plaintext.
		return Ciphertext{}, fmt.Errorf("elgamal: r must be non-zero")
	}
	return Ciphertext{C1: MulBase(r), C2: PointAdd(m, MulPoint(pk, r))}, nil
}

// EncryptValue encrypts m*G under pk.
func EncryptValue(pk Point, m uint64, r Scalar) (Ciphertext, error) {
	return ElGamalEncrypt(pk, EncodeValue(m), r)
}

// ElGamalDecrypt returns c2 - x*c1, the encoded message point.
func ElGamalDecrypt(sk Scalar, ct Ciphertext) Point {
	return PointSub(ct.C2, MulPoint(ct.C1, sk))
}

func CiphertextAdd(a, b Ciphertext) Ciphertext {
	return Ciphertext{C1: PointAdd(a.C1, b.C1), C2: PointAdd(a.C2, b.C2)}
}

func CiphertextSub(a, b Ciphertext) Ciphertext {
	return Ciphertext{C1: PointSub(a.C1, b.C1), C2: PointSub(a.C2, b.C2)}
}

// Rerandomize adds a fresh encryption of zero, producing an unlinkable
// ciphertext of the same value.
func Rerandomize(pk Point, ct Ciphertext, r Scalar) (Ciphertext, error) {
	zero, err := ElGamalEncrypt(pk, PointZero(), r)
	if err != nil {
		return Ciphertext{}, err
	}
	return CiphertextAdd(ct, zero), nil
}

// Bytes encodes the ciphertext as c1 || c2.
func (ct Ciphertext) Bytes() []byte {
	return concatBytes(ct.C1.Bytes(), ct.C2.Bytes())
}

func CiphertextFromBytes(b []byte) (Ciphertext, error) {
	if len(b) != CiphertextBytes {
		return Ciphertext{}, fmt.Errorf("ciphertext: expected %d bytes, got %d", CiphertextBytes, len(b))
	}
	c1, err := PointFromBytesCanonical(b[:PointBytes])
	if err != nil {
		return Ciphertext{}, fmt.Errorf("ciphertext c1: %w", err)
	}
	c2, err := PointFromBytesCanonical(b[PointBytes:])
	if err != nil {
		return Ciphertext{}, fmt.Errorf("ciphertext c2: %w", err)
	}
	return Ciphertext{C1: c1, C2: c2}, nil
}

func CiphertextFromHex(s string) (Ciphertext, error) {
	b, err := hexToBytes(s)
	if err != nil {
		return Ciphertext{}, err
	}
	return CiphertextFromBytes(b)
}
