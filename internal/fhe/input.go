package fhe

import (
	"fmt"
	"io"
	"runtime"

	errorsmod "cosmossdk.io/errors"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"cryptolotto/internal/ocpcrypto"
)

// Input is a client-encrypted bundle of values with one range proof each.
// Proofs are bound to the contract, the sender, the position and the whole
// bundle, so they cannot be replayed elsewhere.
type Input struct {
	Ciphertexts []string `json:"ciphertexts"` // hex c1||c2
	Proofs      []string `json:"proofs"`      // hex range proof
}

// MaxInputValues bounds the size of a single bundle.
const MaxInputValues = 32

func inputContext(contract, sender string, index, count int, bundle [32]byte) []byte {
	out := make([]byte, 0, 16+len(contract)+len(sender)+32)
	out = append(out, ocpcrypto.U64LE(uint64(len(contract)))...)
	out = append(out, contract...)
	out = append(out, ocpcrypto.U64LE(uint64(len(sender)))...)
	out = append(out, sender...)
	out = append(out, ocpcrypto.U64LE(uint64(index))...)
	out = append(out, ocpcrypto.U64LE(uint64(count))...)
	out = append(out, bundle[:]...)
	return out
}

func bundleDigest(cts []ocpcrypto.Ciphertext) [32]byte {
	h := blake3.New()
	_, _ = h.Write([]byte("lotto/v1/input/bundle"))
	for _, ct := range cts {
		_, _ = h.Write(ct.Bytes())
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// EncryptInput builds an Input for values under the network key pk.
func EncryptInput(pk ocpcrypto.Point, contract, sender string, values []uint64, bound uint64, rnd io.Reader) (Input, error) {
	if len(values) == 0 || len(values) > MaxInputValues {
		return Input{}, fmt.Errorf("input: expected 1..%d values", MaxInputValues)
	}
	cts := make([]ocpcrypto.Ciphertext, len(values))
	rs := make([]ocpcrypto.Scalar, len(values))
	for i, v := range values {
		r, err := ocpcrypto.RandomScalar(rnd)
		if err != nil {
			return Input{}, err
		}
		ct, err := ocpcrypto.EncryptValue(pk, v, r)
		if err != nil {
			return Input{}, err
		}
		cts[i], rs[i] = ct, r
	}
	digest := bundleDigest(cts)
	in := Input{
		Ciphertexts: make([]string, len(values)),
		Proofs:      make([]string, len(values)),
	}
	for i, v := range values {
		ctx := inputContext(contract, sender, i, len(values), digest)
		proof, err := ocpcrypto.ProveRange(pk, cts[i], v, rs[i], int(bound), ctx, rnd)
		if err != nil {
			return Input{}, err
		}
		in.Ciphertexts[i] = ocpcrypto.BytesToHex(cts[i].Bytes())
		in.Proofs[i] = ocpcrypto.BytesToHex(ocpcrypto.EncodeRangeProof(proof))
	}
	return in, nil
}

func verifyInput(pk ocpcrypto.Point, contract, sender string, in Input, bound uint64) ([]ocpcrypto.Ciphertext, error) {
	n := len(in.Ciphertexts)
	if n == 0 || n > MaxInputValues {
		return nil, errorsmod.Wrapf(ErrInvalidInput, "expected 1..%d values, got %d", MaxInputValues, n)
	}
	if len(in.Proofs) != n {
		return nil, errorsmod.Wrapf(ErrInvalidInput, "got %d proofs for %d values", len(in.Proofs), n)
	}
	if bound < 2 || bound > 1<<16 {
		return nil, errorsmod.Wrapf(ErrInvalidInput, "unsupported bound %d", bound)
	}
	cts := make([]ocpcrypto.Ciphertext, n)
	for i, s := range in.Ciphertexts {
		ct, err := ocpcrypto.CiphertextFromHex(s)
		if err != nil {
			return nil, errorsmod.Wrapf(ErrMalformedCiphertext, "value %d: %v", i, err)
		}
		cts[i] = ct
	}
	digest := bundleDigest(cts)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range cts {
		g.Go(func() error {
			raw, err := ocpcrypto.HexToBytes(in.Proofs[i])
			if err != nil {
				return errorsmod.Wrapf(ErrInvalidProof, "value %d: %v", i, err)
			}
			proof, err := ocpcrypto.DecodeRangeProof(raw, int(bound))
			if err != nil {
				return errorsmod.Wrapf(ErrInvalidProof, "value %d: %v", i, err)
			}
			ok, err := ocpcrypto.VerifyRange(pk, cts[i], int(bound), inputContext(contract, sender, i, n, digest), proof)
			if err != nil {
				return errorsmod.Wrapf(ErrInvalidProof, "value %d: %v", i, err)
			}
			if !ok {
				return errorsmod.Wrapf(ErrInvalidProof, "value %d", i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return cts, nil
}
