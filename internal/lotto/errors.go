package lotto

import errorsmod "cosmossdk.io/errors"

// lotto sentinel errors.
var (
	ErrInvalidRequest      = errorsmod.Register(ModuleName, 2, "invalid request")
	ErrIncorrectPayment    = errorsmod.Register(ModuleName, 3, "incorrect payment")
	ErrBettingClosed       = errorsmod.Register(ModuleName, 4, "betting is currently closed")
	ErrNotOwner            = errorsmod.Register(ModuleName, 5, "only owner")
	ErrRoundStillActive    = errorsmod.Register(ModuleName, 6, "round still active")
	ErrInvalidBetIndex     = errorsmod.Register(ModuleName, 7, "invalid bet index")
	ErrAlreadyClaimed      = errorsmod.Register(ModuleName, 8, "ticket already claimed")
	ErrInsufficientBalance = errorsmod.Register(ModuleName, 9, "insufficient balance")
	ErrRoundNotDrawn       = errorsmod.Register(ModuleName, 10, "round not drawn")
	ErrRoundNotFound       = errorsmod.Register(ModuleName, 11, "round not found")
	ErrInvalidInput        = errorsmod.Register(ModuleName, 12, "invalid encrypted input")
	ErrNotTicketOwner      = errorsmod.Register(ModuleName, 13, "caller does not own the ticket")
	ErrRoundNotOpen        = errorsmod.Register(ModuleName, 14, "round is not open")
	ErrInsufficientFunds   = errorsmod.Register(ModuleName, 15, "insufficient funds")
	ErrInvalidParams       = errorsmod.Register(ModuleName, 16, "invalid lottery parameters")
)
