package app

import (
	"context"
	"testing"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"cryptolotto/internal/codec"
	"cryptolotto/internal/config"
	"cryptolotto/internal/fhe"
	"cryptolotto/internal/gateway"
	"cryptolotto/internal/lotto"
	"cryptolotto/internal/state"
)

func TestQuery_RoundsTicketsAndBalances(t *testing.T) {
	const height = int64(2)
	a := newTestApp(t)
	mustOk(t, a.deliverTx(buyTicketTx(t, a, "alice", 1, 1, 1, 1), height, 0))
	mustOk(t, a.deliverTx(buyTicketTx(t, a, "alice", 2, 2, 2, 2), height, 1))
	mustOk(t, a.deliverTx(buyTicketTx(t, a, "bob", 3, 3, 3, 3), height, 2))

	var info lotto.RoundInfo
	query(t, a, "/round/current", nil, &info)
	if info.ID != 1 || info.TotalTickets != 3 || info.PrizePool != 300 || info.Drawn {
		t.Fatalf("unexpected current round: %+v", info)
	}

	var players []string
	query(t, a, "/round/1/players", nil, &players)
	if len(players) != 2 || players[0] != "alice" || players[1] != "bob" {
		t.Fatalf("unexpected players: %v", players)
	}

	var bets struct {
		Count uint64 `json:"count"`
	}
	query(t, a, "/bets/1/alice", nil, &bets)
	if bets.Count != 2 {
		t.Fatalf("alice bet count=%d want 2", bets.Count)
	}

	var tickets []lotto.TicketView
	query(t, a, "/tickets/1/alice", nil, &tickets)
	if len(tickets) != 2 || len(tickets[0].Digits) != 4 || tickets[1].Index != 1 {
		t.Fatalf("unexpected tickets: %+v", tickets)
	}

	var contract struct {
		Balance uint64 `json:"balance"`
	}
	query(t, a, "/contract/balance", nil, &contract)
	if contract.Balance != 300 {
		t.Fatalf("contract balance=%d want 300", contract.Balance)
	}

	var acct struct {
		Balance    uint64 `json:"balance"`
		Registered bool   `json:"registered"`
	}
	query(t, a, "/account/alice", nil, &acct)
	if acct.Balance != 800 || !acct.Registered {
		t.Fatalf("unexpected account: %+v", acct)
	}

	if res := query(t, a, "/round/1/winning", nil, nil); res.Codespace != lotto.ModuleName || res.Code != lotto.ErrRoundNotDrawn.ABCICode() {
		t.Fatalf("expected RoundNotDrawn before the draw, got %s/%d", res.Codespace, res.Code)
	}
	if res := query(t, a, "/round/9", nil, nil); res.Code != lotto.ErrRoundNotFound.ABCICode() {
		t.Fatalf("expected RoundNotFound, got %d %q", res.Code, res.Log)
	}
	if res := query(t, a, "/round/x", nil, nil); res.Code == 0 {
		t.Fatalf("expected invalid round id to fail")
	}
	if res := query(t, a, "/tables", nil, nil); res.Codespace != ModuleName || res.Code != ErrUnknownQuery.ABCICode() {
		t.Fatalf("expected unknown query, got %s/%d", res.Codespace, res.Code)
	}
}

func TestUserDecrypt_RequiresGrant(t *testing.T) {
	const height = int64(2)
	a := newTestApp(t)
	mustOk(t, a.deliverTx(buyTicketTx(t, a, "alice", 7, 8, 9, 0), height, 0))

	var tickets []lotto.TicketView
	query(t, a, "/tickets/1/alice", nil, &tickets)
	if got := userDecrypt(t, a, "alice", tickets[0].Digits[0]); got != 7 {
		t.Fatalf("alice digit=%d want 7", got)
	}

	_, priv := testEd25519Key("bob")
	req := gateway.SignUserDecrypt(priv, gateway.UserDecryptRequest{
		Handle:    tickets[0].Digits[0],
		User:      "bob",
		PublicKey: a.cop.PublicKey().Hex(),
	})
	res := query(t, a, "/decrypt/user", mustMarshal(t, req), nil)
	if res.Codespace != fhe.ModuleName || res.Code != fhe.ErrAccessDenied.ABCICode() {
		t.Fatalf("expected access denied for bob, got %s/%d %q", res.Codespace, res.Code, res.Log)
	}
}

func TestPublicDecrypt_RevealedWinningDigits(t *testing.T) {
	cfg := testConfig()
	cfg.Lotto.RevealWinningDigits = true
	cfg.Lotto.Randomness = "block"
	a := newTestAppWith(t, cfg, nil, nil)
	ctx := context.Background()

	pub, _ := testEd25519Key("owner")
	fin, err := a.FinalizeBlock(ctx, &abci.FinalizeBlockRequest{
		Height: 2,
		Hash:   []byte("block-2-hash-for-draw-seed-00000"),
		Txs: [][]byte{
			txBytesSigned(t, codec.TypeAuthRegisterAccount, codec.AuthRegisterAccountTx{Account: "owner", PubKey: pub}, "owner"),
			txBytesSigned(t, codec.TypeLottoCloseAndDraw, codec.LottoCloseAndDrawTx{Caller: "owner"}, "owner"),
		},
	})
	if err != nil {
		t.Fatalf("FinalizeBlock: %v", err)
	}
	for _, res := range fin.TxResults {
		mustOk(t, res)
	}

	var winning []string
	if res := query(t, a, "/round/1/winning", nil, &winning); res.Code != 0 {
		t.Fatalf("winning: %q", res.Log)
	}
	if len(winning) != 4 {
		t.Fatalf("expected 4 winning digits, got %d", len(winning))
	}
	for _, h := range winning {
		var resp gateway.PublicDecryptResponse
		if res := query(t, a, "/decrypt/public/"+h, nil, &resp); res.Code != 0 {
			t.Fatalf("public decrypt %s: %q", h, res.Log)
		}
		if resp.Value >= 10 {
			t.Fatalf("drawn digit out of range: %d", resp.Value)
		}
		if err := gateway.VerifyPublicDecrypt(a.cop.PublicKey(), resp); err != nil {
			t.Fatalf("verify public decrypt: %v", err)
		}
	}
	if got := testutil.ToFloat64(a.metrics.RoundsClosed); got != 1 {
		t.Fatalf("rounds_closed=%v want 1", got)
	}
	if got := testutil.ToFloat64(a.metrics.CurrentRound); got != 2 {
		t.Fatalf("current_round=%v want 2", got)
	}
}

func TestPublicDecrypt_HiddenByDefault(t *testing.T) {
	const height = int64(2)
	a := newTestApp(t)
	mustOk(t, a.deliverTx(txBytesSigned(t, codec.TypeLottoCloseAndDraw, codec.LottoCloseAndDrawTx{Caller: "owner"}, "owner"), height, 0))

	var winning []string
	query(t, a, "/round/1/winning", nil, &winning)
	res := query(t, a, "/decrypt/public/"+winning[0], nil, nil)
	if res.Codespace != gateway.ModuleName || res.Code != gateway.ErrNotPublic.ABCICode() {
		t.Fatalf("expected NotPublic, got %s/%d", res.Codespace, res.Code)
	}
	// The owner still reads the digits privately.
	if got := userDecrypt(t, a, "owner", winning[0]); got >= 10 {
		t.Fatalf("owner decrypted digit out of range: %d", got)
	}
}

func TestCommit_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.Home = dir
	ctx := context.Background()

	db, err := state.Open(cfg.DBPath())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	a := newTestAppWith(t, cfg, db, map[string]any{"accounts": map[string]uint64{"alice": 10}})
	if _, err := a.FinalizeBlock(ctx, &abci.FinalizeBlockRequest{
		Height: 2,
		Txs:    [][]byte{txBytes(t, codec.TypeBankMint, map[string]any{"to": "alice", "amount": 5})},
	}); err != nil {
		t.Fatalf("FinalizeBlock: %v", err)
	}
	if _, err := a.Commit(ctx, &abci.CommitRequest{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	info, _ := a.Info(ctx, &abci.InfoRequest{})
	if err := db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	db2, err := state.Open(cfg.DBPath())
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db2.Close()
	b, err := New(Options{Config: cfg, Key: testNetworkKey(), DB: db2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	info2, _ := b.Info(ctx, &abci.InfoRequest{})
	if info2.LastBlockHeight != 2 || string(info2.LastBlockAppHash) != string(info.LastBlockAppHash) {
		t.Fatalf("restart mismatch: height=%d hash equal=%v", info2.LastBlockHeight, string(info2.LastBlockAppHash) == string(info.LastBlockAppHash))
	}
	if b.st.Balance("alice") != 15 {
		t.Fatalf("alice=%d want 15", b.st.Balance("alice"))
	}
}

func TestCheckTx_StructuralValidation(t *testing.T) {
	a, err := New(Options{Config: config.DefaultConfig(), Key: testNetworkKey()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	res, _ := a.CheckTx(ctx, &abci.CheckTxRequest{Tx: []byte("{")})
	if res.Code == 0 {
		t.Fatalf("expected malformed tx to fail CheckTx")
	}
	res, _ = a.CheckTx(ctx, &abci.CheckTxRequest{Tx: txBytes(t, codec.TypeLottoClaim, map[string]any{})})
	if res.Code == 0 {
		t.Fatalf("expected unsigned claim to fail CheckTx")
	}
	res, _ = a.CheckTx(ctx, &abci.CheckTxRequest{Tx: txBytes(t, codec.TypeBankMint, map[string]any{"to": "a", "amount": 1})})
	if res.Code != 0 {
		t.Fatalf("faucet mint should pass CheckTx: %q", res.Log)
	}
}

func TestQuery_CurrentRoundOpen(t *testing.T) {
	const height = int64(2)
	a := newTestApp(t)

	var open struct {
		Round uint64 `json:"round"`
		Open  bool   `json:"open"`
	}
	query(t, a, "/round/current/open", nil, &open)
	if open.Round != 1 || !open.Open {
		t.Fatalf("expected round 1 open, got %+v", open)
	}

	mustOk(t, a.deliverTx(txBytesSigned(t, codec.TypeLottoCloseAndDraw, codec.LottoCloseAndDrawTx{Caller: "owner"}, "owner"), height, 0))
	query(t, a, "/round/current/open", nil, &open)
	if open.Round != 2 || !open.Open {
		t.Fatalf("expected round 2 open after the draw, got %+v", open)
	}

	var closed lotto.RoundInfo
	query(t, a, "/round/1", nil, &closed)
	if !closed.Drawn || closed.Status == state.RoundOpen {
		t.Fatalf("expected round 1 drawn and closed, got %+v", closed)
	}
}
