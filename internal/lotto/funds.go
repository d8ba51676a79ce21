package lotto

import "strconv"

// WithdrawOwnerFunds moves amount from the lottery balance to the owner.
// A zero amount is allowed.
func (k *Keeper) WithdrawOwnerFunds(caller string, amount uint64) error {
	if err := k.requireOwner(caller); err != nil {
		return err
	}
	bal := k.bank.Balance(ContractAddress)
	if amount > bal {
		return ErrInsufficientBalance.Wrapf("requested %d, balance %d", amount, bal)
	}
	if err := k.bank.Debit(ContractAddress, amount); err != nil {
		return ErrInsufficientBalance.Wrap(err.Error())
	}
	if err := k.bank.Credit(k.st.Owner, amount); err != nil {
		return ErrInvalidRequest.Wrap(err.Error())
	}
	k.emit(EventTypeFundsWithdrawn, map[string]string{
		AttributeKeyTo:     k.st.Owner,
		AttributeKeyAmount: strconv.FormatUint(amount, 10),
	})
	return nil
}

// Deposit is a plain transfer into the lottery balance, e.g. to seed prizes.
func (k *Keeper) Deposit(from string, amount uint64) error {
	if from == "" || amount == 0 {
		return ErrInvalidRequest.Wrap("missing from/amount")
	}
	if err := k.bank.Debit(from, amount); err != nil {
		return ErrInsufficientFunds.Wrap(err.Error())
	}
	if err := k.bank.Credit(ContractAddress, amount); err != nil {
		return ErrInvalidRequest.Wrap(err.Error())
	}
	k.emit(EventTypeFundsReceived, map[string]string{
		AttributeKeyFrom:   from,
		AttributeKeyAmount: strconv.FormatUint(amount, 10),
	})
	return nil
}
