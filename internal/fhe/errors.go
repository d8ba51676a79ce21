package fhe

import errorsmod "cosmossdk.io/errors"

const ModuleName = "fhe"

// Coprocessor errors. Integrity faults (malformed ciphertexts, bad proofs)
// are distinguished from access failures.
var (
	ErrUnknownHandle       = errorsmod.Register(ModuleName, 2, "unknown ciphertext handle")
	ErrMalformedCiphertext = errorsmod.Register(ModuleName, 3, "malformed ciphertext")
	ErrInvalidProof        = errorsmod.Register(ModuleName, 4, "invalid input proof")
	ErrAccessDenied        = errorsmod.Register(ModuleName, 5, "access denied")
	ErrNotBoolean          = errorsmod.Register(ModuleName, 6, "condition is not an encrypted boolean")
	ErrInvalidInput        = errorsmod.Register(ModuleName, 7, "invalid encrypted input")
)
