package ocpcrypto

import "fmt"

// ChaumPedersenProof shows log_G(Y) == log_C1(D) without revealing x.
// Used to prove a decryption share D = x*C1 is correct.
type ChaumPedersenProof struct {
	A Point  // w*G
	B Point  // w*C1
	S Scalar // w + e*x
}

const chaumPedersenDomain = "lotto/v1/chaum-pedersen-eqdl"

func chaumPedersenChallenge(y, c1, d, a, b Point) (Scalar, error) {
	tr := NewTranscript(chaumPedersenDomain)
	_ = tr.AppendMessage("y", y.Bytes())
	_ = tr.AppendMessage("c1", c1.Bytes())
	_ = tr.AppendMessage("d", d.Bytes())
	_ = tr.AppendMessage("a", a.Bytes())
	_ = tr.AppendMessage("b", b.Bytes())
	return tr.ChallengeScalar("e")
}

func ChaumPedersenProve(y Point, c1 Point, d Point, x Scalar, w Scalar) (ChaumPedersenProof, error) {
	if w.IsZero() {
		return ChaumPedersenProof{}, fmt.Errorf("chaum-pedersen: w must be non-zero")
	}
	a := MulBase(w)
	b := MulPoint(c1, w)
	e, err := chaumPedersenChallenge(y, c1, d, a, b)
	if err != nil {
		return ChaumPedersenProof{}, err
	}
	return ChaumPedersenProof{A: a, B: b, S: ScalarAdd(w, ScalarMul(e, x))}, nil
}

func ChaumPedersenVerify(y Point, c1 Point, d Point, proof ChaumPedersenProof) (bool, error) {
	e, err := chaumPedersenChallenge(y, c1, d, proof.A, proof.B)
	if err != nil {
		return false, err
	}
	// s*G == a + e*y
	if !PointEq(MulBase(proof.S), PointAdd(proof.A, MulPoint(y, e))) {
		return false, nil
	}
	// s*c1 == b + e*d
	if !PointEq(MulPoint(c1, proof.S), PointAdd(proof.B, MulPoint(d, e))) {
		return false, nil
	}
	return true, nil
}

// Encoding: A(32) || B(32) || s(32 le)
func EncodeChaumPedersenProof(p ChaumPedersenProof) []byte {
	return concatBytes(p.A.Bytes(), p.B.Bytes(), p.S.Bytes())
}

func DecodeChaumPedersenProof(b []byte) (ChaumPedersenProof, error) {
	if len(b) != 96 {
		return ChaumPedersenProof{}, fmt.Errorf("chaum-pedersen: expected 96 bytes")
	}
	a, err := PointFromBytesCanonical(b[0:32])
	if err != nil {
		return ChaumPedersenProof{}, err
	}
	bl, err := PointFromBytesCanonical(b[32:64])
	if err != nil {
		return ChaumPedersenProof{}, err
	}
	s, err := ScalarFromBytesCanonical(b[64:96])
	if err != nil {
		return ChaumPedersenProof{}, err
	}
	return ChaumPedersenProof{A: a, B: bl, S: s}, nil
}
