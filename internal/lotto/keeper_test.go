package lotto

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"cryptolotto/internal/fhe"
	"cryptolotto/internal/ocpcrypto"
	"cryptolotto/internal/randomness"
	"cryptolotto/internal/state"
	"cryptolotto/internal/token"
)

type recordedEvent struct {
	typ   string
	attrs map[string]string
}

type recorder struct{ events []recordedEvent }

func (r *recorder) Emit(typ string, attrs map[string]string) {
	r.events = append(r.events, recordedEvent{typ: typ, attrs: attrs})
}

func (r *recorder) types() []string {
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.typ
	}
	return out
}

type mintCall struct {
	caller string
	to     string
	amount fhe.Handle
}

// fakeMinter records calls and checks the token could read the amount.
type fakeMinter struct {
	exec  fhe.Executor
	calls []mintCall
}

func (m *fakeMinter) Address() string { return token.ContractAddress }

func (m *fakeMinter) Mint(caller, to string, amount fhe.Handle) (fhe.Handle, error) {
	if !m.exec.IsAllowed(amount, token.ContractAddress) {
		return "", fmt.Errorf("amount not granted to token")
	}
	m.calls = append(m.calls, mintCall{caller: caller, to: to, amount: amount})
	return amount, nil
}

type fixture struct {
	key    fhe.NetworkKey
	cop    *fhe.Coprocessor
	st     *state.State
	rec    *recorder
	minter *fakeMinter
	source randomness.Source
	height int64
	txn    int
}

const owner = "owner"

func setup(t *testing.T, mutate ...func(*state.Params)) *fixture {
	t.Helper()
	key := fhe.NetworkKeyFromSecret(ocpcrypto.ScalarFromUint64(0x10770))
	cop, err := fhe.NewCoprocessor(key)
	require.NoError(t, err)

	p := DefaultParams()
	for _, m := range mutate {
		m(&p)
	}
	st := state.NewState()
	st.ChainID = "lotto-test"
	st.Lottery, err = InitGenesis(owner, p, 1)
	require.NoError(t, err)
	for _, a := range []string{"alice", "bob", "carol", owner} {
		require.NoError(t, st.Credit(a, 10_000))
	}
	return &fixture{key: key, cop: cop, st: st, rec: &recorder{}, minter: &fakeMinter{}, source: randomness.BeaconSource{}, height: 1}
}

// keeper starts a new "transaction" against the fixture state.
func (f *fixture) keeper() *Keeper {
	f.txn++
	f.height++
	exec := f.cop.Session(f.st, []byte(fmt.Sprintf("tx-%d", f.txn))).For(ContractAddress)
	f.minter.exec = exec
	return NewKeeper(f.st.Lottery, BlockInfo{ChainID: f.st.ChainID, Height: f.height, Hash: []byte{byte(f.height)}}, Deps{
		Bank:   f.st,
		Exec:   exec,
		Minter: f.minter,
		Source: f.source,
		Events: f.rec,
	})
}

func (f *fixture) input(t *testing.T, sender string, digits ...uint64) fhe.Input {
	t.Helper()
	in, err := fhe.EncryptInput(f.key.Public, ContractAddress, sender, digits, 10, rand.Reader)
	require.NoError(t, err)
	return in
}

func (f *fixture) buy(t *testing.T, buyer string, digits ...uint64) *state.Ticket {
	t.Helper()
	tk, err := f.keeper().BuyTicket(BuyTicketRequest{
		Buyer: buyer,
		Value: f.st.Lottery.Params.TicketPrice,
		Input: f.input(t, buyer, digits...),
	})
	require.NoError(t, err)
	return tk
}

func (f *fixture) drawWith(t *testing.T, digits ...uint64) {
	t.Helper()
	in := f.input(t, owner, digits...)
	_, _, err := f.keeper().CloseAndDraw(CloseAndDrawRequest{Caller: owner, Digits: &in})
	require.NoError(t, err)
}

func (f *fixture) decrypt(t *testing.T, h fhe.Handle) uint64 {
	t.Helper()
	ct, err := f.cop.Ciphertext(f.st, h)
	require.NoError(t, err)
	v, err := ocpcrypto.DiscreteLog(ocpcrypto.ElGamalDecrypt(f.key.Secret, ct), 1<<24)
	require.NoError(t, err)
	return v
}

func TestInitGenesis(t *testing.T) {
	l, err := InitGenesis(owner, DefaultParams(), 5)
	require.NoError(t, err)
	require.Equal(t, uint64(1), l.CurrentRound)
	require.Equal(t, state.RoundOpen, l.Current().Status)
	require.Equal(t, int64(5), l.Current().OpenedAt)

	_, err = InitGenesis("", DefaultParams(), 1)
	require.ErrorIs(t, err, ErrInvalidParams)

	bad := state.Params{Digits: 5, ClaimPolicy: "nobody", PartialPrize: 10, JackpotPrize: 1}
	err = ValidateParams(bad)
	require.ErrorIs(t, err, ErrInvalidParams)
	require.Contains(t, err.Error(), "ticketPrice")
	require.Contains(t, err.Error(), "digits")
	require.Contains(t, err.Error(), "claimPolicy")
	require.Contains(t, err.Error(), "jackpotPrize")
}

func TestBuyTicket_RecordsTicketAndPayment(t *testing.T) {
	f := setup(t)

	tk := f.buy(t, "alice", 1, 2, 3, 4)
	require.Equal(t, uint64(0), tk.Index)
	require.Equal(t, uint64(1), tk.Round)
	tk2 := f.buy(t, "bob", 5, 6, 7, 8)
	require.Equal(t, uint64(1), tk2.Index)
	tk3 := f.buy(t, "alice", 0, 0, 0, 0)
	require.Equal(t, uint64(2), tk3.Index)

	r := f.st.Lottery.Current()
	require.Equal(t, uint64(3), r.TotalTickets)
	require.Len(t, r.Tickets, 3)
	require.Equal(t, uint64(300), r.PrizePool)
	require.Equal(t, uint64(300), f.st.Balance(ContractAddress))
	require.Equal(t, uint64(10_000-200), f.st.Balance("alice"))

	for i, h := range tk.Digits {
		require.True(t, f.st.Allowed(fhe.Handle(h), ContractAddress))
		require.True(t, f.st.Allowed(fhe.Handle(h), "alice"))
		require.False(t, f.st.Allowed(fhe.Handle(h), "bob"))
		require.Equal(t, uint64(i+1), f.decrypt(t, fhe.Handle(h)))
	}

	require.Equal(t, []string{EventTypeTicketPurchased, EventTypeTicketPurchased, EventTypeTicketPurchased}, f.rec.types())
	last := f.rec.events[2].attrs
	require.Equal(t, "alice", last[AttributeKeyOwner])
	require.Equal(t, "1", last[AttributeKeyRound])
	require.Equal(t, "2", last[AttributeKeyIndex])
}

func TestBuyTicket_Rejections(t *testing.T) {
	f := setup(t)
	price := f.st.Lottery.Params.TicketPrice

	cases := []struct {
		name string
		req  BuyTicketRequest
		err  error
	}{
		{"underpay", BuyTicketRequest{Buyer: "alice", Value: price - 1, Input: f.input(t, "alice", 1, 2, 3, 4)}, ErrIncorrectPayment},
		{"overpay", BuyTicketRequest{Buyer: "alice", Value: price + 1, Input: f.input(t, "alice", 1, 2, 3, 4)}, ErrIncorrectPayment},
		{"future round", BuyTicketRequest{Buyer: "alice", Value: price, Round: 2, Input: f.input(t, "alice", 1, 2, 3, 4)}, ErrBettingClosed},
		{"wrong arity", BuyTicketRequest{Buyer: "alice", Value: price, Input: f.input(t, "alice", 1, 2, 3)}, ErrInvalidInput},
		{"input bound to another sender", BuyTicketRequest{Buyer: "bob", Value: price, Input: f.input(t, "alice", 1, 2, 3, 4)}, fhe.ErrInvalidProof},
		{"no funds", BuyTicketRequest{Buyer: "dave", Value: price, Input: f.input(t, "dave", 1, 2, 3, 4)}, ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.keeper().BuyTicket(tc.req)
			require.ErrorIs(t, err, tc.err)
		})
	}
	require.Empty(t, f.st.Lottery.Current().Tickets)
	require.Equal(t, uint64(0), f.st.Balance(ContractAddress))
	require.Empty(t, f.rec.events)

	// Explicitly naming the open round is fine.
	_, err := f.keeper().BuyTicket(BuyTicketRequest{Buyer: "alice", Value: price, Round: 1, Input: f.input(t, "alice", 1, 2, 3, 4)})
	require.NoError(t, err)
}

func TestCloseAndDraw_TransitionsRound(t *testing.T) {
	f := setup(t)
	f.buy(t, "alice", 1, 2, 3, 4)

	in := f.input(t, "alice", 1, 2, 3, 4)
	_, _, err := f.keeper().CloseAndDraw(CloseAndDrawRequest{Caller: "alice", Digits: &in})
	require.ErrorIs(t, err, ErrNotOwner)
	_, _, err = f.keeper().CloseAndDraw(CloseAndDrawRequest{Caller: "alice"})
	require.ErrorIs(t, err, ErrNotOwner)

	// A refused draw leaves the round untouched.
	require.Equal(t, uint64(1), f.st.Lottery.CurrentRound)
	require.Len(t, f.st.Lottery.Rounds, 1)
	open := f.st.Lottery.Current()
	require.Equal(t, state.RoundOpen, open.Status)
	require.Empty(t, open.WinningDigits)
	require.Zero(t, open.ClosedAt)
	require.Equal(t, []string{EventTypeTicketPurchased}, f.rec.types())

	f.rec.events = nil
	f.drawWith(t, 1, 2, 3, 4)

	closed, _ := f.st.Lottery.Round(1)
	require.Equal(t, state.RoundClosed, closed.Status)
	require.Len(t, closed.WinningDigits, 4)
	require.Equal(t, uint64(2), f.st.Lottery.CurrentRound)
	require.Equal(t, state.RoundOpen, f.st.Lottery.Current().Status)
	require.Equal(t, []string{EventTypeRoundEnded, EventTypeRoundStarted}, f.rec.types())
	require.Equal(t, "1", f.rec.events[0].attrs[AttributeKeyRound])
	require.Equal(t, "2", f.rec.events[1].attrs[AttributeKeyRound])

	// Tickets for the closed round are refused; the new round accepts them.
	_, err = f.keeper().BuyTicket(BuyTicketRequest{Buyer: "bob", Value: 100, Round: 1, Input: f.input(t, "bob", 1, 1, 1, 1)})
	require.ErrorIs(t, err, ErrBettingClosed)
	tk := f.buy(t, "bob", 1, 1, 1, 1)
	require.Equal(t, uint64(2), tk.Round)
	require.Equal(t, uint64(0), tk.Index)

	// Winning digits are private unless revealed.
	for _, h := range closed.WinningDigits {
		require.False(t, f.st.IsPublic(fhe.Handle(h)))
		require.True(t, f.st.Allowed(fhe.Handle(h), owner))
		require.False(t, f.st.Allowed(fhe.Handle(h), "alice"))
	}
}

func TestCloseAndDraw_RandomSourceAndReveal(t *testing.T) {
	f := setup(t, func(p *state.Params) {
		p.Digits = 6
		p.RevealWinningDigits = true
	})
	_, _, err := f.keeper().CloseAndDraw(CloseAndDrawRequest{Caller: owner})
	require.NoError(t, err)
	r, _ := f.st.Lottery.Round(1)
	require.Len(t, r.WinningDigits, 6)
	for _, h := range r.WinningDigits {
		require.True(t, f.st.IsPublic(fhe.Handle(h)))
		require.Less(t, f.decrypt(t, fhe.Handle(h)), uint64(10))
	}

	beacon := make([]byte, 32)
	beacon[0] = 0xAB
	_, _, err = f.keeper().CloseAndDraw(CloseAndDrawRequest{Caller: owner, Beacon: beacon[:5]})
	require.Error(t, err)
	require.Equal(t, uint64(2), f.st.Lottery.CurrentRound)
	require.Equal(t, state.RoundOpen, f.st.Lottery.Current().Status)

	_, _, err = f.keeper().CloseAndDraw(CloseAndDrawRequest{Caller: owner, Beacon: beacon})
	require.NoError(t, err)
	require.Equal(t, uint64(3), f.st.Lottery.CurrentRound)
	r2, _ := f.st.Lottery.Round(2)
	require.Len(t, r2.WinningDigits, 6)

	// The block source refuses a beacon outright.
	f.source = randomness.BlockSource{}
	_, _, err = f.keeper().CloseAndDraw(CloseAndDrawRequest{Caller: owner, Beacon: beacon})
	require.Error(t, err)
	require.Equal(t, uint64(3), f.st.Lottery.CurrentRound)
}

func TestClaim_ScoresEveryOutcome(t *testing.T) {
	f := setup(t)
	tickets := []struct {
		digits []uint64
		tier   uint64
		amount uint64
	}{
		{[]uint64{1, 2, 3, 4}, TierJackpot, 1_000_000},
		{[]uint64{1, 2, 0, 0}, TierPartial, 100},
		{[]uint64{0, 2, 3, 0}, TierPartial, 100},
		{[]uint64{1, 0, 0, 0}, TierNone, 0},
		{[]uint64{1, 2, 3, 0}, TierNone, 0},
		{[]uint64{4, 3, 2, 1}, TierNone, 0},
		{[]uint64{9, 9, 9, 9}, TierNone, 0},
	}
	for _, tc := range tickets {
		f.buy(t, "alice", tc.digits...)
	}
	f.drawWith(t, 1, 2, 3, 4)

	for i, tc := range tickets {
		tk, sc, err := f.keeper().Claim(ClaimRequest{Caller: "alice", Round: 1, Index: uint64(i)})
		require.NoError(t, err)
		require.True(t, tk.Claimed)
		require.Equal(t, tc.tier, f.decrypt(t, sc.Tier), "ticket %v tier", tc.digits)
		require.Equal(t, tc.amount, f.decrypt(t, sc.Amount), "ticket %v amount", tc.digits)
		require.True(t, f.st.Allowed(sc.Amount, "alice"))
		require.True(t, f.st.Allowed(sc.Tier, "alice"))
	}

	// Every claim mints, winners and losers alike.
	require.Len(t, f.minter.calls, len(tickets))
	for _, c := range f.minter.calls {
		require.Equal(t, ContractAddress, c.caller)
		require.Equal(t, "alice", c.to)
	}
	claims := 0
	for _, ev := range f.rec.events {
		if ev.typ == EventTypeClaimSubmitted {
			claims++
			require.NotEmpty(t, ev.attrs[AttributeKeyAmount])
			require.NotEmpty(t, ev.attrs[AttributeKeyTier])
		}
	}
	require.Equal(t, len(tickets), claims)
}

func TestClaim_SixDigitJackpot(t *testing.T) {
	f := setup(t, func(p *state.Params) { p.Digits = 6 })
	f.buy(t, "bob", 9, 8, 7, 6, 5, 4)
	f.buy(t, "bob", 9, 8, 0, 0, 0, 0)
	f.drawWith(t, 9, 8, 7, 6, 5, 4)

	_, sc, err := f.keeper().Claim(ClaimRequest{Caller: "bob", Round: 1, Index: 0})
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), f.decrypt(t, sc.Amount))
	_, sc, err = f.keeper().Claim(ClaimRequest{Caller: "bob", Round: 1, Index: 1})
	require.NoError(t, err)
	require.Equal(t, uint64(100), f.decrypt(t, sc.Amount))
}

func TestClaim_Rejections(t *testing.T) {
	f := setup(t)
	f.buy(t, "alice", 1, 2, 3, 4)

	_, _, err := f.keeper().Claim(ClaimRequest{Caller: "alice", Round: 1, Index: 0})
	require.ErrorIs(t, err, ErrRoundStillActive)

	f.drawWith(t, 1, 2, 3, 4)

	_, _, err = f.keeper().Claim(ClaimRequest{Caller: "alice", Round: 7, Index: 0})
	require.ErrorIs(t, err, ErrRoundNotFound)
	_, _, err = f.keeper().Claim(ClaimRequest{Caller: "alice", Round: 0, Index: 0})
	require.ErrorIs(t, err, ErrRoundNotFound)
	_, _, err = f.keeper().Claim(ClaimRequest{Caller: "alice", Round: 2, Index: 0})
	require.ErrorIs(t, err, ErrRoundStillActive)
	_, _, err = f.keeper().Claim(ClaimRequest{Caller: "alice", Round: 1, Index: 1})
	require.ErrorIs(t, err, ErrInvalidBetIndex)
	_, _, err = f.keeper().Claim(ClaimRequest{Caller: "bob", Round: 1, Index: 0})
	require.ErrorIs(t, err, ErrNotTicketOwner)
	require.Empty(t, f.minter.calls)

	_, _, err = f.keeper().Claim(ClaimRequest{Caller: "alice", Round: 1, Index: 0})
	require.NoError(t, err)
	_, _, err = f.keeper().Claim(ClaimRequest{Caller: "alice", Round: 1, Index: 0})
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	require.Len(t, f.minter.calls, 1)
}

func TestClaim_AnyonePolicyPaysTicketOwner(t *testing.T) {
	f := setup(t, func(p *state.Params) { p.ClaimPolicy = state.ClaimByAnyone })
	f.buy(t, "alice", 1, 2, 3, 4)
	f.drawWith(t, 1, 2, 3, 4)

	_, _, err := f.keeper().Claim(ClaimRequest{Caller: "carol", Round: 1, Index: 0})
	require.NoError(t, err)
	require.Len(t, f.minter.calls, 1)
	require.Equal(t, "alice", f.minter.calls[0].to)
}

func TestWithdrawOwnerFunds(t *testing.T) {
	f := setup(t)
	f.buy(t, "alice", 1, 2, 3, 4)
	f.buy(t, "bob", 1, 2, 3, 4)

	require.ErrorIs(t, f.keeper().WithdrawOwnerFunds("alice", 1), ErrNotOwner)
	require.ErrorIs(t, f.keeper().WithdrawOwnerFunds(owner, 201), ErrInsufficientBalance)
	require.NoError(t, f.keeper().WithdrawOwnerFunds(owner, 0))

	require.NoError(t, f.keeper().WithdrawOwnerFunds(owner, 150))
	require.Equal(t, uint64(50), f.st.Balance(ContractAddress))
	require.Equal(t, uint64(10_150), f.st.Balance(owner))
	require.Equal(t, uint64(50), f.keeper().ContractBalance())
}

func TestDeposit(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.keeper().Deposit("carol", 500))
	require.Equal(t, uint64(500), f.st.Balance(ContractAddress))
	require.ErrorIs(t, f.keeper().Deposit("carol", 0), ErrInvalidRequest)
	require.ErrorIs(t, f.keeper().Deposit("dave", 1), ErrInsufficientFunds)
}

func TestQueries(t *testing.T) {
	f := setup(t)
	f.buy(t, "bob", 1, 1, 1, 1)
	f.buy(t, "alice", 2, 2, 2, 2)
	f.buy(t, "bob", 3, 3, 3, 3)

	k := f.keeper()
	require.True(t, k.IsOpen())
	require.Equal(t, uint64(1), k.CurrentRound())

	players, err := k.RoundPlayers(1)
	require.NoError(t, err)
	require.Equal(t, []string{"bob", "alice"}, players)

	n, err := k.PlayerBetCount(1, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
	n, err = k.PlayerBetCount(1, "carol")
	require.NoError(t, err)
	require.Zero(t, n)

	tks, err := k.UserTickets(1, "bob")
	require.NoError(t, err)
	require.Len(t, tks, 2)
	require.Equal(t, uint64(0), tks[0].Index)
	require.Equal(t, uint64(2), tks[1].Index)
	require.Len(t, tks[1].Digits, 4)

	_, err = k.WinningDigits(1)
	require.ErrorIs(t, err, ErrRoundNotDrawn)
	_, err = k.WinningDigits(3)
	require.ErrorIs(t, err, ErrRoundNotFound)
	_, err = k.UserTickets(3, "bob")
	require.ErrorIs(t, err, ErrRoundNotFound)

	info, err := k.RoundInfo(1)
	require.NoError(t, err)
	require.Equal(t, uint64(3), info.TotalTickets)
	require.Equal(t, uint64(300), info.PrizePool)
	require.False(t, info.Drawn)

	f.drawWith(t, 0, 0, 0, 0)
	k = f.keeper()
	wd, err := k.WinningDigits(1)
	require.NoError(t, err)
	require.Len(t, wd, 4)
	info, err = k.RoundInfo(1)
	require.NoError(t, err)
	require.True(t, info.Drawn)
	require.Equal(t, state.RoundClosed, info.Status)
}
