package ocpcrypto

import (
	"fmt"
	"io"
)

// RangeProof is a disjunctive Chaum-Pedersen proof that a ciphertext (C1, C2)
// under Y encrypts one of 0..n-1. Branch j proves knowledge of r with
//
//	C1 = r*G  and  C2 - j*G = r*Y
//
// All but the true branch are simulated; the branch challenges sum to the
// transcript challenge.
type RangeProof struct {
	E  []Scalar
	T1 []Point
	T2 []Point
	Z  []Scalar
}

const (
	rangeProofDomain = "lotto/v1/input/range-or"
	// RangeBranchBytes is the encoded size of one branch: e || t1 || t2 || z.
	RangeBranchBytes = 4 * 32
)

func simulateEqDlogCommitments(pk Point, x Point, y Point, e Scalar, z Scalar) (Point, Point) {
	// t1 = z*G - e*X, t2 = z*pk - e*Y
	t1 := PointSub(MulBase(z), MulPoint(x, e))
	t2 := PointSub(MulPoint(pk, z), MulPoint(y, e))
	return t1, t2
}

func rangeChallenge(pk Point, ct Ciphertext, ctx []byte, t1 []Point, t2 []Point) (Scalar, error) {
	tr := NewTranscript(rangeProofDomain)
	_ = tr.AppendMessage("pk", pk.Bytes())
	_ = tr.AppendMessage("ctx", ctx)
	_ = tr.AppendMessage("c1", ct.C1.Bytes())
	_ = tr.AppendMessage("c2", ct.C2.Bytes())
	_ = tr.AppendMessage("n", u32le(uint32(len(t1))))
	for j := range t1 {
		_ = tr.AppendMessage("t1", t1[j].Bytes())
		_ = tr.AppendMessage("t2", t2[j].Bytes())
	}
	return tr.ChallengeScalar("e")
}

// ProveRange proves that ct = Enc(pk, m; r) with m < n. ctx is bound into the
// challenge so a proof cannot be replayed under a different context.
func ProveRange(pk Point, ct Ciphertext, m uint64, r Scalar, n int, ctx []byte, rnd io.Reader) (RangeProof, error) {
	if n < 2 {
		return RangeProof{}, fmt.Errorf("range proof: n must be >= 2")
	}
	if m >= uint64(n) {
		return RangeProof{}, fmt.Errorf("range proof: value %d out of range [0,%d)", m, n)
	}
	if ctx == nil {
		ctx = []byte{}
	}
	p := RangeProof{
		E:  make([]Scalar, n),
		T1: make([]Point, n),
		T2: make([]Point, n),
		Z:  make([]Scalar, n),
	}
	k := int(m)
	for j := 0; j < n; j++ {
		if j == k {
			continue
		}
		e, err := RandomScalar(rnd)
		if err != nil {
			return RangeProof{}, err
		}
		z, err := RandomScalar(rnd)
		if err != nil {
			return RangeProof{}, err
		}
		p.E[j], p.Z[j] = e, z
		p.T1[j], p.T2[j] = simulateEqDlogCommitments(pk, ct.C1, PointSub(ct.C2, EncodeValue(uint64(j))), e, z)
	}
	w, err := RandomScalar(rnd)
	if err != nil {
		return RangeProof{}, err
	}
	p.T1[k] = MulBase(w)
	p.T2[k] = MulPoint(pk, w)

	e, err := rangeChallenge(pk, ct, ctx, p.T1, p.T2)
	if err != nil {
		return RangeProof{}, err
	}
	ek := e
	for j := 0; j < n; j++ {
		if j != k {
			ek = ScalarSub(ek, p.E[j])
		}
	}
	p.E[k] = ek
	p.Z[k] = ScalarAdd(w, ScalarMul(ek, r))
	return p, nil
}

func VerifyRange(pk Point, ct Ciphertext, n int, ctx []byte, p RangeProof) (bool, error) {
	if n < 2 {
		return false, fmt.Errorf("range proof: n must be >= 2")
	}
	if len(p.E) != n || len(p.T1) != n || len(p.T2) != n || len(p.Z) != n {
		return false, nil
	}
	if ctx == nil {
		ctx = []byte{}
	}
	e, err := rangeChallenge(pk, ct, ctx, p.T1, p.T2)
	if err != nil {
		return false, err
	}
	sum := ScalarZero()
	for j := 0; j < n; j++ {
		sum = ScalarAdd(sum, p.E[j])
		// z*G == t1 + e*C1
		if !PointEq(MulBase(p.Z[j]), PointAdd(p.T1[j], MulPoint(ct.C1, p.E[j]))) {
			return false, nil
		}
		// z*Y == t2 + e*(C2 - j*G)
		shifted := PointSub(ct.C2, EncodeValue(uint64(j)))
		if !PointEq(MulPoint(pk, p.Z[j]), PointAdd(p.T2[j], MulPoint(shifted, p.E[j]))) {
			return false, nil
		}
	}
	return ScalarEq(sum, e), nil
}

func EncodeRangeProof(p RangeProof) []byte {
	out := make([]byte, 0, len(p.E)*RangeBranchBytes)
	for j := range p.E {
		out = append(out, p.E[j].Bytes()...)
		out = append(out, p.T1[j].Bytes()...)
		out = append(out, p.T2[j].Bytes()...)
		out = append(out, p.Z[j].Bytes()...)
	}
	return out
}

func DecodeRangeProof(b []byte, n int) (RangeProof, error) {
	if n < 2 || len(b) != n*RangeBranchBytes {
		return RangeProof{}, fmt.Errorf("range proof: expected %d bytes, got %d", n*RangeBranchBytes, len(b))
	}
	p := RangeProof{
		E:  make([]Scalar, n),
		T1: make([]Point, n),
		T2: make([]Point, n),
		Z:  make([]Scalar, n),
	}
	for j := 0; j < n; j++ {
		off := j * RangeBranchBytes
		var err error
		if p.E[j], err = ScalarFromBytesCanonical(b[off : off+32]); err != nil {
			return RangeProof{}, err
		}
		if p.T1[j], err = PointFromBytesCanonical(b[off+32 : off+64]); err != nil {
			return RangeProof{}, err
		}
		if p.T2[j], err = PointFromBytesCanonical(b[off+64 : off+96]); err != nil {
			return RangeProof{}, err
		}
		if p.Z[j], err = ScalarFromBytesCanonical(b[off+96 : off+128]); err != nil {
			return RangeProof{}, err
		}
	}
	return p, nil
}
