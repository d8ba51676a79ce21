package codec

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"

	"cryptolotto/internal/fhe"
)

// TxEnvelope is the transaction container. CometBFT transactions are opaque
// bytes; ours are JSON.
type TxEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Auth:
	// - Nonce: decimal u64, must increase per signer (replay protection).
	// - Signer: the account the transaction acts for.
	// - Sig: Ed25519 signature over SignBytes(type, nonce, signer, value).
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

const txAuthDomain = "lotto/tx/v1"

// SignBytes = DOMAIN || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value)
func SignBytes(typ string, value []byte, nonce string, signer string) []byte {
	sum := sha256.Sum256(value)
	out := make([]byte, 0, len(txAuthDomain)+4+len(typ)+len(nonce)+len(signer)+sha256.Size)
	out = append(out, txAuthDomain...)
	out = append(out, 0)
	out = append(out, typ...)
	out = append(out, 0)
	out = append(out, nonce...)
	out = append(out, 0)
	out = append(out, signer...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

// EncodeSignedTx marshals value and wraps it in a signed envelope.
func EncodeSignedTx(priv ed25519.PrivateKey, typ string, value any, nonce uint64, signer string) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode tx value: %w", err)
	}
	n := strconv.FormatUint(nonce, 10)
	env := TxEnvelope{
		Type:   typ,
		Value:  raw,
		Nonce:  n,
		Signer: signer,
		Sig:    ed25519.Sign(priv, SignBytes(typ, raw, n, signer)),
	}
	return json.Marshal(env)
}

// Transaction types.
const (
	TypeAuthRegisterAccount = "auth/register_account"
	TypeBankMint            = "bank/mint"
	TypeBankSend            = "bank/send"
	TypeLottoBuyTicket      = "lotto/buy_ticket"
	TypeLottoCloseAndDraw   = "lotto/close_and_draw"
	TypeLottoClaim          = "lotto/claim"
	TypeLottoWithdraw       = "lotto/withdraw"
	TypeLottoDeposit        = "lotto/deposit"
)

// ---- Auth ----

type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- Bank ----

// BankMintTx is a devnet faucet.
type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Lotto ----

type LottoBuyTicketTx struct {
	Buyer  string    `json:"buyer"`
	Value  uint64    `json:"value"`
	Round  uint64    `json:"round,omitempty"` // 0 = the open round
	Digits fhe.Input `json:"digits"`
}

type LottoCloseAndDrawTx struct {
	Caller string     `json:"caller"`
	Digits *fhe.Input `json:"digits,omitempty"` // owner-chosen encrypted digits
	Beacon []byte     `json:"beacon,omitempty"` // base64, 32 bytes
}

type LottoClaimTx struct {
	Caller string `json:"caller"`
	Round  uint64 `json:"round"`
	Index  uint64 `json:"index"`
}

type LottoWithdrawTx struct {
	Caller string `json:"caller"`
	Amount uint64 `json:"amount"`
}

type LottoDepositTx struct {
	From   string `json:"from"`
	Amount uint64 `json:"amount"`
}
