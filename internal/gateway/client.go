package gateway

import (
	"cryptolotto/internal/fhe"
	"cryptolotto/internal/ocpcrypto"
)

// OpenUserDecrypt verifies a user-decrypt response against the network key
// and recovers the cleartext with the user's secret.
func OpenUserDecrypt(networkKey ocpcrypto.Point, userSecret ocpcrypto.Scalar, resp UserDecryptResponse, maxValue uint64) (uint64, error) {
	ct, err := ocpcrypto.CiphertextFromHex(resp.Ciphertext)
	if err != nil {
		return 0, ErrInvalidRequest.Wrapf("ciphertext: %v", err)
	}
	if h, err := fhe.ParseHandle(resp.Handle); err != nil || fhe.HandleOf(ct) != h {
		return 0, ErrInvalidRequest.Wrap("ciphertext does not match handle")
	}
	out, err := ocpcrypto.CiphertextFromHex(resp.Reencrypted)
	if err != nil {
		return 0, ErrInvalidRequest.Wrapf("reencrypted: %v", err)
	}
	raw, err := ocpcrypto.HexToBytes(resp.Proof)
	if err != nil {
		return 0, ErrInvalidRequest.Wrapf("proof: %v", err)
	}
	proof, err := ocpcrypto.DecodeReencryptionProof(raw)
	if err != nil {
		return 0, ErrInvalidRequest.Wrapf("proof: %v", err)
	}
	ok, err := ocpcrypto.ReencryptVerify(networkKey, ct, ocpcrypto.MulBase(userSecret), out, proof)
	if err != nil || !ok {
		return 0, ErrDecryptFailed.Wrap("re-encryption proof does not verify")
	}
	if maxValue == 0 {
		maxValue = DefaultMaxValue
	}
	v, err := ocpcrypto.DiscreteLog(ocpcrypto.ElGamalDecrypt(userSecret, out), maxValue)
	if err != nil {
		return 0, ErrDecryptFailed.Wrap(err.Error())
	}
	return v, nil
}

// VerifyPublicDecrypt checks the share proof and that the value matches.
func VerifyPublicDecrypt(networkKey ocpcrypto.Point, resp PublicDecryptResponse) error {
	ct, err := ocpcrypto.CiphertextFromHex(resp.Ciphertext)
	if err != nil {
		return ErrInvalidRequest.Wrapf("ciphertext: %v", err)
	}
	if h, err := fhe.ParseHandle(resp.Handle); err != nil || fhe.HandleOf(ct) != h {
		return ErrInvalidRequest.Wrap("ciphertext does not match handle")
	}
	share, err := ocpcrypto.PointFromHex(resp.Share)
	if err != nil {
		return ErrInvalidRequest.Wrapf("share: %v", err)
	}
	raw, err := ocpcrypto.HexToBytes(resp.Proof)
	if err != nil {
		return ErrInvalidRequest.Wrapf("proof: %v", err)
	}
	proof, err := ocpcrypto.DecodeChaumPedersenProof(raw)
	if err != nil {
		return ErrInvalidRequest.Wrapf("proof: %v", err)
	}
	ok, err := ocpcrypto.ChaumPedersenVerify(networkKey, ct.C1, share, proof)
	if err != nil || !ok {
		return ErrDecryptFailed.Wrap("share proof does not verify")
	}
	if !ocpcrypto.PointEq(ocpcrypto.PointSub(ct.C2, share), ocpcrypto.EncodeValue(resp.Value)) {
		return ErrDecryptFailed.Wrap("value does not match share")
	}
	return nil
}
