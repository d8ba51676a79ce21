// Package gateway serves decryption off the transaction path: re-encryption
// of a handle to a user key the user proves to own, and public decryption of
// handles marked public. Every response carries a proof of correctness.
package gateway

import (
	"crypto/ed25519"
	"crypto/rand"
	"io"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"

	"cryptolotto/internal/fhe"
	"cryptolotto/internal/ocpcrypto"
)

const ModuleName = "gateway"

var (
	ErrInvalidRequest = errorsmod.Register(ModuleName, 2, "invalid decryption request")
	ErrUnauthorized   = errorsmod.Register(ModuleName, 3, "unauthorized")
	ErrNotPublic      = errorsmod.Register(ModuleName, 4, "handle is not publicly decryptable")
	ErrDecryptFailed  = errorsmod.Register(ModuleName, 5, "decryption failed")
)

const (
	userDecryptDomain = "lotto/v1/gateway/user-decrypt"

	DefaultMaxValue uint64 = 1 << 32
)

// Reader is the chain state the gateway consults.
type Reader interface {
	fhe.Store
	AccountKey(addr string) ([]byte, bool)
}

type Gateway struct {
	key      fhe.NetworkKey
	cop      *fhe.Coprocessor
	rand     io.Reader
	maxValue uint64
	logger   log.Logger
}

func New(key fhe.NetworkKey, cop *fhe.Coprocessor, maxValue uint64, logger log.Logger) *Gateway {
	if maxValue == 0 {
		maxValue = DefaultMaxValue
	}
	return &Gateway{key: key, cop: cop, rand: rand.Reader, maxValue: maxValue, logger: logger.With("module", ModuleName)}
}

// UserDecryptRequest asks for handle to be re-encrypted under PublicKey. The
// signature is by User's registered account key.
type UserDecryptRequest struct {
	Handle    string `json:"handle"`
	User      string `json:"user"`
	PublicKey string `json:"publicKey"` // hex ristretto255 point
	Signature []byte `json:"signature"`
}

type UserDecryptResponse struct {
	Handle      string `json:"handle"`
	Ciphertext  string `json:"ciphertext"`  // the stored ciphertext, hex c1||c2
	Reencrypted string `json:"reencrypted"` // hex u||v under PublicKey
	Proof       string `json:"proof"`
}

type PublicDecryptResponse struct {
	Handle     string `json:"handle"`
	Value      uint64 `json:"value"`
	Ciphertext string `json:"ciphertext"`
	Share      string `json:"share"` // x*c1
	Proof      string `json:"proof"`
}

func UserDecryptSignBytes(handle, user, publicKey string) []byte {
	out := make([]byte, 0, len(userDecryptDomain)+3+len(handle)+len(user)+len(publicKey))
	out = append(out, userDecryptDomain...)
	out = append(out, 0)
	out = append(out, handle...)
	out = append(out, 0)
	out = append(out, user...)
	out = append(out, 0)
	out = append(out, publicKey...)
	return out
}

// SignUserDecrypt fills in the signature of req with priv.
func SignUserDecrypt(priv ed25519.PrivateKey, req UserDecryptRequest) UserDecryptRequest {
	req.Signature = ed25519.Sign(priv, UserDecryptSignBytes(req.Handle, req.User, req.PublicKey))
	return req
}

func (g *Gateway) UserDecrypt(st Reader, req UserDecryptRequest) (UserDecryptResponse, error) {
	h, err := fhe.ParseHandle(req.Handle)
	if err != nil {
		return UserDecryptResponse{}, err
	}
	if req.User == "" {
		return UserDecryptResponse{}, ErrInvalidRequest.Wrap("missing user")
	}
	recipient, err := ocpcrypto.PointFromHex(req.PublicKey)
	if err != nil {
		return UserDecryptResponse{}, ErrInvalidRequest.Wrapf("publicKey: %v", err)
	}
	if recipient.IsIdentity() {
		return UserDecryptResponse{}, ErrInvalidRequest.Wrap("publicKey is the identity")
	}
	pub, ok := st.AccountKey(req.User)
	if !ok || len(pub) != ed25519.PublicKeySize {
		return UserDecryptResponse{}, ErrUnauthorized.Wrapf("account %q has no registered key", req.User)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), UserDecryptSignBytes(req.Handle, req.User, req.PublicKey), req.Signature) {
		return UserDecryptResponse{}, ErrUnauthorized.Wrap("invalid signature")
	}
	if !st.Allowed(h, req.User) {
		return UserDecryptResponse{}, errorsmod.Wrapf(fhe.ErrAccessDenied, "%s is not allowed for %s", h, req.User)
	}
	ct, err := g.cop.Ciphertext(st, h)
	if err != nil {
		return UserDecryptResponse{}, err
	}

	r, err := ocpcrypto.RandomScalar(g.rand)
	if err != nil {
		return UserDecryptResponse{}, ErrDecryptFailed.Wrap(err.Error())
	}
	out, err := ocpcrypto.Reencrypt(g.key.Secret, ct, recipient, r)
	if err != nil {
		return UserDecryptResponse{}, ErrDecryptFailed.Wrap(err.Error())
	}
	wx, err := ocpcrypto.RandomScalar(g.rand)
	if err != nil {
		return UserDecryptResponse{}, ErrDecryptFailed.Wrap(err.Error())
	}
	wr, err := ocpcrypto.RandomScalar(g.rand)
	if err != nil {
		return UserDecryptResponse{}, ErrDecryptFailed.Wrap(err.Error())
	}
	proof, err := ocpcrypto.ReencryptProve(g.key.Public, ct, recipient, out, g.key.Secret, r, wx, wr)
	if err != nil {
		return UserDecryptResponse{}, ErrDecryptFailed.Wrap(err.Error())
	}
	g.logger.Debug("user decrypt", "handle", h, "user", req.User)
	return UserDecryptResponse{
		Handle:      string(h),
		Ciphertext:  ocpcrypto.BytesToHex(ct.Bytes()),
		Reencrypted: ocpcrypto.BytesToHex(out.Bytes()),
		Proof:       ocpcrypto.BytesToHex(ocpcrypto.EncodeReencryptionProof(proof)),
	}, nil
}

func (g *Gateway) PublicDecrypt(st Reader, handle string) (PublicDecryptResponse, error) {
	h, err := fhe.ParseHandle(handle)
	if err != nil {
		return PublicDecryptResponse{}, err
	}
	if !st.IsPublic(h) {
		return PublicDecryptResponse{}, ErrNotPublic.Wrapf("%s", h)
	}
	ct, err := g.cop.Ciphertext(st, h)
	if err != nil {
		return PublicDecryptResponse{}, err
	}
	share := ocpcrypto.MulPoint(ct.C1, g.key.Secret)
	v, err := ocpcrypto.DiscreteLog(ocpcrypto.PointSub(ct.C2, share), g.maxValue)
	if err != nil {
		return PublicDecryptResponse{}, ErrDecryptFailed.Wrap(err.Error())
	}
	w, err := ocpcrypto.RandomScalar(g.rand)
	if err != nil {
		return PublicDecryptResponse{}, ErrDecryptFailed.Wrap(err.Error())
	}
	proof, err := ocpcrypto.ChaumPedersenProve(g.key.Public, ct.C1, share, g.key.Secret, w)
	if err != nil {
		return PublicDecryptResponse{}, ErrDecryptFailed.Wrap(err.Error())
	}
	return PublicDecryptResponse{
		Handle:     string(h),
		Value:      v,
		Ciphertext: ocpcrypto.BytesToHex(ct.Bytes()),
		Share:      share.Hex(),
		Proof:      ocpcrypto.BytesToHex(ocpcrypto.EncodeChaumPedersenProof(proof)),
	}, nil
}
