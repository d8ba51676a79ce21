package app

import (
	"crypto/ed25519"
	"strconv"

	"cryptolotto/internal/codec"
	"cryptolotto/internal/lotto"
	"cryptolotto/internal/state"
	"cryptolotto/internal/token"
)

// Contract identities hold balances and ACL grants but never a key.
var reservedAccounts = map[string]bool{
	lotto.ContractAddress: true,
	token.ContractAddress: true,
}

func requireUserAccount(account string) error {
	if account == "" {
		return ErrInvalidTx.Wrap("missing account")
	}
	if reservedAccounts[account] {
		return ErrUnauthorized.Wrapf("account %q is reserved for a contract", account)
	}
	return nil
}

func requireSignedEnvelope(env codec.TxEnvelope) error {
	if env.Nonce == "" {
		return ErrInvalidNonce.Wrap("missing tx.nonce")
	}
	if env.Signer == "" {
		return ErrUnauthorized.Wrap("missing tx.signer")
	}
	if len(env.Sig) == 0 {
		return ErrUnauthorized.Wrap("missing tx.sig")
	}
	if len(env.Sig) != ed25519.SignatureSize {
		return ErrUnauthorized.Wrapf("invalid tx.sig length: got %d want %d", len(env.Sig), ed25519.SignatureSize)
	}
	return nil
}

// consumeNonce accepts env.Nonce if it is above the signer's last accepted
// nonce and records it. The caller's staged state is discarded on failure, so
// a rejected tx never burns a nonce.
func consumeNonce(st *state.State, env codec.TxEnvelope) error {
	n, err := strconv.ParseUint(env.Nonce, 10, 64)
	if err != nil {
		return ErrInvalidNonce.Wrapf("%q", env.Nonce)
	}
	if last, ok := st.NonceMax[env.Signer]; ok && n <= last {
		return ErrReplayedNonce.Wrapf("signer=%s nonce=%d last=%d", env.Signer, n, last)
	}
	st.NonceMax[env.Signer] = n
	return nil
}

func verifyEnvelope(pub ed25519.PublicKey, env codec.TxEnvelope) error {
	msg := codec.SignBytes(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(pub, msg, env.Sig) {
		return ErrUnauthorized.Wrap("invalid signature")
	}
	return nil
}

func requireRegisterAccountAuth(st *state.State, env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) error {
	if err := requireUserAccount(msg.Account); err != nil {
		return err
	}
	if len(msg.PubKey) != ed25519.PublicKeySize {
		return ErrInvalidTx.Wrapf("pubKey must be %d bytes", ed25519.PublicKeySize)
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != msg.Account {
		return ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, msg.Account)
	}
	if err := verifyEnvelope(ed25519.PublicKey(msg.PubKey), env); err != nil {
		return err
	}
	return consumeNonce(st, env)
}

func requireAccountAuth(st *state.State, env codec.TxEnvelope, account string) error {
	if err := requireUserAccount(account); err != nil {
		return err
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != account {
		return ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, account)
	}
	pub, ok := st.AccountKey(account)
	if !ok || len(pub) != ed25519.PublicKeySize {
		return ErrUnauthorized.Wrapf("account %q missing pubKey (auth/register_account required)", account)
	}
	if err := verifyEnvelope(ed25519.PublicKey(pub), env); err != nil {
		return err
	}
	return consumeNonce(st, env)
}
