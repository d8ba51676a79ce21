// Package token is a confidential fungible token whose balances are
// ciphertext handles. Only the configured minter may mint.
package token

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"

	"cryptolotto/internal/fhe"
	"cryptolotto/internal/state"
)

const (
	ModuleName = "token"

	// ContractAddress is the identity the token operates under.
	ContractAddress = "ctoken"

	EventTypeConfidentialMint = "ConfidentialMint"
)

var (
	ErrUnauthorizedMinter = errorsmod.Register(ModuleName, 2, "caller is not the minter")
	ErrInvalidRequest     = errorsmod.Register(ModuleName, 3, "invalid request")
)

// Emitter records typed events for the enclosing transaction.
type Emitter interface {
	Emit(typ string, attrs map[string]string)
}

type Keeper struct {
	st     *state.Token
	exec   fhe.Executor
	events Emitter
	logger log.Logger
}

// NewKeeper binds the token to its state and to an executor running as
// ContractAddress.
func NewKeeper(st *state.Token, exec fhe.Executor, events Emitter, logger log.Logger) *Keeper {
	return &Keeper{st: st, exec: exec, events: events, logger: logger.With("module", ModuleName)}
}

// Init creates token state with the given minter.
func Init(minter string) *state.Token {
	return &state.Token{Minter: minter, Balances: map[string]string{}}
}

// Mint adds amount to the balance of to. The operation sequence is the same
// for every amount, including zero, and always emits one event.
func (k *Keeper) Mint(caller, to string, amount fhe.Handle) (fhe.Handle, error) {
	if caller != k.st.Minter {
		return "", errorsmod.Wrapf(ErrUnauthorizedMinter, "caller=%s", caller)
	}
	if to == "" {
		return "", errorsmod.Wrap(ErrInvalidRequest, "missing recipient")
	}
	cur, ok := k.BalanceOf(to)
	if !ok {
		zero, err := k.exec.AsEncrypted(0)
		if err != nil {
			return "", err
		}
		cur = zero
	}
	next, err := k.exec.Add(cur, amount)
	if err != nil {
		return "", err
	}
	if err := k.exec.Allow(next, ContractAddress); err != nil {
		return "", err
	}
	if err := k.exec.Allow(next, to); err != nil {
		return "", err
	}
	k.st.Balances[to] = string(next)
	k.st.Mints++

	k.events.Emit(EventTypeConfidentialMint, map[string]string{
		"to":      to,
		"balance": string(next),
	})
	k.logger.Debug("confidential mint", "to", to, "balance", next)
	return next, nil
}

// BalanceOf returns the balance handle of addr, if any.
func (k *Keeper) BalanceOf(addr string) (fhe.Handle, bool) {
	h, ok := k.st.Balances[addr]
	return fhe.Handle(h), ok
}

// Address is the identity the token reads ciphertexts under.
func (k *Keeper) Address() string { return ContractAddress }
