package ocpcrypto

import "fmt"

// ReencryptionProof is a Schnorr-style proof of knowledge of (x, r) such that:
//
//	Y = x*G
//	U = r*G
//	V - C2 = r*P - x*C1
//
// i.e. (U, V) is the ciphertext (C1, C2) under Y, decrypted with x and
// re-encrypted under the recipient key P.
type ReencryptionProof struct {
	A1 Point  // wx*G
	A2 Point  // wr*G
	A3 Point  // wr*P - wx*C1
	SX Scalar // wx + e*x
	SR Scalar // wr + e*r
}

const (
	reencryptDomain     = "lotto/v1/gateway/reencrypt"
	ReencryptProofBytes = 160
)

// Reencrypt decrypts ct with sk and encrypts the result under recipient using r.
func Reencrypt(sk Scalar, ct Ciphertext, recipient Point, r Scalar) (Ciphertext, error) {
	return ElGamalEncrypt(recipient, ElGamalDecrypt(sk, ct), r)
}

func reencryptChallenge(y Point, ct Ciphertext, p Point, out Ciphertext, a1, a2, a3 Point) (Scalar, error) {
	tr := NewTranscript(reencryptDomain)
	_ = tr.AppendMessage("Y", y.Bytes())
	_ = tr.AppendMessage("C1", ct.C1.Bytes())
	_ = tr.AppendMessage("C2", ct.C2.Bytes())
	_ = tr.AppendMessage("P", p.Bytes())
	_ = tr.AppendMessage("U", out.C1.Bytes())
	_ = tr.AppendMessage("V", out.C2.Bytes())
	_ = tr.AppendMessage("A1", a1.Bytes())
	_ = tr.AppendMessage("A2", a2.Bytes())
	_ = tr.AppendMessage("A3", a3.Bytes())
	return tr.ChallengeScalar("e")
}

func ReencryptProve(y Point, ct Ciphertext, p Point, out Ciphertext, x Scalar, r Scalar, wx Scalar, wr Scalar) (ReencryptionProof, error) {
	if wx.IsZero() || wr.IsZero() {
		return ReencryptionProof{}, fmt.Errorf("reencrypt: nonces must be non-zero")
	}
	a1 := MulBase(wx)
	a2 := MulBase(wr)
	a3 := PointSub(MulPoint(p, wr), MulPoint(ct.C1, wx))
	e, err := reencryptChallenge(y, ct, p, out, a1, a2, a3)
	if err != nil {
		return ReencryptionProof{}, err
	}
	return ReencryptionProof{
		A1: a1,
		A2: a2,
		A3: a3,
		SX: ScalarAdd(wx, ScalarMul(e, x)),
		SR: ScalarAdd(wr, ScalarMul(e, r)),
	}, nil
}

func ReencryptVerify(y Point, ct Ciphertext, p Point, out Ciphertext, proof ReencryptionProof) (bool, error) {
	e, err := reencryptChallenge(y, ct, p, out, proof.A1, proof.A2, proof.A3)
	if err != nil {
		return false, err
	}
	// sx*G == A1 + e*Y
	if !PointEq(MulBase(proof.SX), PointAdd(proof.A1, MulPoint(y, e))) {
		return false, nil
	}
	// sr*G == A2 + e*U
	if !PointEq(MulBase(proof.SR), PointAdd(proof.A2, MulPoint(out.C1, e))) {
		return false, nil
	}
	// sr*P - sx*C1 == A3 + e*(V - C2)
	lhs := PointSub(MulPoint(p, proof.SR), MulPoint(ct.C1, proof.SX))
	rhs := PointAdd(proof.A3, MulPoint(PointSub(out.C2, ct.C2), e))
	if !PointEq(lhs, rhs) {
		return false, nil
	}
	return true, nil
}

// Encoding: A1(32)||A2(32)||A3(32)||sx(32)||sr(32).
func EncodeReencryptionProof(p ReencryptionProof) []byte {
	return concatBytes(p.A1.Bytes(), p.A2.Bytes(), p.A3.Bytes(), p.SX.Bytes(), p.SR.Bytes())
}

func DecodeReencryptionProof(b []byte) (ReencryptionProof, error) {
	if len(b) != ReencryptProofBytes {
		return ReencryptionProof{}, fmt.Errorf("reencrypt: expected %d bytes", ReencryptProofBytes)
	}
	var pts [3]Point
	for i := range pts {
		p, err := PointFromBytesCanonical(b[i*32 : (i+1)*32])
		if err != nil {
			return ReencryptionProof{}, err
		}
		pts[i] = p
	}
	sx, err := ScalarFromBytesCanonical(b[96:128])
	if err != nil {
		return ReencryptionProof{}, err
	}
	sr, err := ScalarFromBytesCanonical(b[128:160])
	if err != nil {
		return ReencryptionProof{}, err
	}
	return ReencryptionProof{A1: pts[0], A2: pts[1], A3: pts[2], SX: sx, SR: sr}, nil
}
