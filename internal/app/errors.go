package app

import errorsmod "cosmossdk.io/errors"

const ModuleName = "app"

var (
	ErrInvalidTx      = errorsmod.Register(ModuleName, 2, "invalid tx")
	ErrUnauthorized   = errorsmod.Register(ModuleName, 3, "unauthorized")
	ErrInvalidNonce   = errorsmod.Register(ModuleName, 4, "invalid tx.nonce")
	ErrReplayedNonce  = errorsmod.Register(ModuleName, 5, "replayed tx.nonce")
	ErrUnknownTx      = errorsmod.Register(ModuleName, 6, "unknown tx type")
	ErrNotInitialized = errorsmod.Register(ModuleName, 7, "chain not initialized")
	ErrUnknownQuery   = errorsmod.Register(ModuleName, 8, "unknown query path")
)
