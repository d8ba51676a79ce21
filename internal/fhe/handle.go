package fhe

import (
	"encoding/hex"
	"strings"

	errorsmod "cosmossdk.io/errors"
	"github.com/zeebo/blake3"

	"cryptolotto/internal/ocpcrypto"
)

const handleDomain = "lotto/v1/handle"

// Handle is an opaque reference to a ciphertext: 0x-prefixed hex of
// blake3(domain || c1 || c2). Handles are content addressed.
type Handle string

func HandleOf(ct ocpcrypto.Ciphertext) Handle {
	buf := make([]byte, 0, len(handleDomain)+ocpcrypto.CiphertextBytes)
	buf = append(buf, handleDomain...)
	buf = append(buf, ct.Bytes()...)
	sum := blake3.Sum256(buf)
	return Handle("0x" + hex.EncodeToString(sum[:]))
}

// ParseHandle validates the textual form of a handle.
func ParseHandle(s string) (Handle, error) {
	raw := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(raw) != 64 {
		return "", errorsmod.Wrapf(ErrUnknownHandle, "handle must be 32 bytes hex: %q", s)
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return "", errorsmod.Wrapf(ErrUnknownHandle, "handle is not hex: %q", s)
	}
	return Handle("0x" + raw), nil
}

func (h Handle) String() string { return string(h) }
