package app

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	abci "github.com/cometbft/cometbft/abci/types"

	"cryptolotto/internal/codec"
	"cryptolotto/internal/config"
	"cryptolotto/internal/fhe"
	"cryptolotto/internal/gateway"
	"cryptolotto/internal/lotto"
	"cryptolotto/internal/metrics"
	"cryptolotto/internal/randomness"
	"cryptolotto/internal/state"
	"cryptolotto/internal/token"
)

const (
	AppVersion uint64 = 1

	txSeedDomain = "lotto/v1/txseed"
)

// Options configure a LottoApp.
type Options struct {
	Config config.Config
	Key    fhe.NetworkKey
	// DB persists committed state. Nil keeps state in memory only.
	DB      *state.DB
	Metrics *metrics.Metrics
	Logger  log.Logger
}

type LottoApp struct {
	*abci.BaseApplication

	db       *state.DB
	cop      *fhe.Coprocessor
	gw       *gateway.Gateway
	source   randomness.Source
	genesis  GenesisState
	metrics  *metrics.Metrics
	logger   log.Logger
	netKeyPK string

	mu        sync.Mutex
	st        *state.State
	lastHash  []byte
	blockHash []byte
}

func New(opts Options) (*LottoApp, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	source, err := randomness.FromName(opts.Config.Lotto.Randomness)
	if err != nil {
		return nil, err
	}
	copOpts := []fhe.Option{fhe.WithLogger(logger)}
	if opts.Config.FHE.CacheSize > 0 {
		copOpts = append(copOpts, fhe.WithCacheSize(opts.Config.FHE.CacheSize))
	}
	cop, err := fhe.NewCoprocessor(opts.Key, copOpts...)
	if err != nil {
		return nil, err
	}

	st := state.NewState()
	if opts.DB != nil {
		if st, err = opts.DB.Load(); err != nil {
			return nil, err
		}
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	a := &LottoApp{
		BaseApplication: abci.NewBaseApplication(),
		db:              opts.DB,
		cop:             cop,
		gw:              gateway.New(opts.Key, cop, opts.Config.FHE.MaxDecryptValue, logger),
		source:          source,
		genesis:         DefaultGenesis(opts.Config.Lotto),
		metrics:         m,
		logger:          logger.With("module", ModuleName),
		netKeyPK:        opts.Key.Public.Hex(),
		st:              st,
		lastHash:        st.AppHash(),
	}
	return a, nil
}

func (a *LottoApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "cryptolotto",
		Version:          "v1",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *LottoApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	env, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		codespace, code, logMsg := errorsmod.ABCIInfo(ErrInvalidTx.Wrap(err.Error()), false)
		return &abci.CheckTxResponse{Codespace: codespace, Code: code, Log: logMsg}, nil
	}
	// Faucet mints are the only unsigned tx; everything else needs a full envelope.
	if env.Type != codec.TypeBankMint {
		if err := requireSignedEnvelope(env); err != nil {
			codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
			return &abci.CheckTxResponse{Codespace: codespace, Code: code, Log: logMsg}, nil
		}
	}
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *LottoApp) InitChain(_ context.Context, req *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	g, err := ParseGenesis(req.AppStateBytes, a.genesis)
	if err != nil {
		return nil, err
	}
	st := state.NewState()
	if err := initGenesisState(st, req.ChainId, req.InitialHeight, g); err != nil {
		return nil, fmt.Errorf("init genesis: %w", err)
	}
	a.st = st
	a.lastHash = st.AppHash()
	a.metrics.CurrentRound.Set(float64(st.Lottery.CurrentRound))
	a.logger.Info("genesis initialized",
		"chain_id", req.ChainId,
		"owner", g.Owner,
		"digits", g.Params.Digits,
		"accounts", len(g.Accounts),
	)
	return &abci.InitChainResponse{AppHash: a.lastHash}, nil
}

func (a *LottoApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	a.blockHash = append([]byte(nil), req.Hash...)

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for i, txBytes := range req.Txs {
		txResults = append(txResults, a.deliverTx(txBytes, req.Height, i))
	}

	a.lastHash = a.st.AppHash()
	a.metrics.BlockHeight.Set(float64(req.Height))
	if a.st.Lottery != nil {
		a.metrics.CurrentRound.Set(float64(a.st.Lottery.CurrentRound))
	}

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *LottoApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return &abci.CommitResponse{}, nil
	}
	if err := a.db.Save(a.st); err != nil {
		// Returning the error halts the node instead of diverging silently.
		a.logger.Error("commit failed", "height", a.st.Height, "err", err)
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

// txSeed derives the per-tx coprocessor seed. Every replica computes the same
// value, so encrypted constants and draws get identical handles everywhere.
func txSeed(chainID string, height int64, txIndex int, blockHash, txBytes []byte) []byte {
	var buf [8]byte
	h := sha256.New()
	_, _ = h.Write([]byte(txSeedDomain))
	_, _ = h.Write([]byte(chainID))
	binary.LittleEndian.PutUint64(buf[:], uint64(height))
	_, _ = h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(txIndex))
	_, _ = h.Write(buf[:])
	_, _ = h.Write(blockHash)
	_, _ = h.Write(txBytes)
	return h.Sum(nil)
}

func errResult(err error) *abci.ExecTxResult {
	codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
	return &abci.ExecTxResult{Codespace: codespace, Code: code, Log: logMsg}
}

// deliverTx executes one transaction against a staged copy of state and swaps
// it in only on success.
func (a *LottoApp) deliverTx(txBytes []byte, height int64, txIndex int) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		a.metrics.FailedTxs.WithLabelValues("invalid").Inc()
		return errResult(ErrInvalidTx.Wrap(err.Error()))
	}
	if a.st.Lottery == nil || a.st.Token == nil {
		a.metrics.FailedTxs.WithLabelValues(env.Type).Inc()
		return errResult(ErrNotInitialized)
	}

	staged, err := a.st.Clone()
	if err != nil {
		return errResult(err)
	}
	staged.Height = height

	x := &txExec{
		app:   a,
		st:    staged,
		env:   env,
		block: lotto.BlockInfo{ChainID: staged.ChainID, Height: height, Hash: a.blockHash},
		sess:  a.cop.Session(staged, txSeed(staged.ChainID, height, txIndex, a.blockHash, txBytes)),
		log:   &eventLog{},
	}
	if err := x.run(); err != nil {
		a.metrics.FailedTxs.WithLabelValues(env.Type).Inc()
		a.logger.Debug("tx rejected", "type", env.Type, "signer", env.Signer, "err", err)
		return errResult(err)
	}
	a.st = staged
	return &abci.ExecTxResult{Code: 0, Events: x.log.events}
}

// txExec is the execution context of one transaction.
type txExec struct {
	app   *LottoApp
	st    *state.State
	env   codec.TxEnvelope
	block lotto.BlockInfo
	sess  *fhe.Session
	log   *eventLog
}

func (x *txExec) decode(v any) error {
	if err := json.Unmarshal(x.env.Value, v); err != nil {
		return ErrInvalidTx.Wrapf("bad %s value: %v", x.env.Type, err)
	}
	return nil
}

func (x *txExec) lottoKeeper() *lotto.Keeper {
	tok := token.NewKeeper(x.st.Token, x.sess.For(token.ContractAddress), x.log, x.app.logger)
	return lotto.NewKeeper(x.st.Lottery, x.block, lotto.Deps{
		Bank:   x.st,
		Exec:   x.sess.For(lotto.ContractAddress),
		Minter: tok,
		Source: x.app.source,
		Events: x.log,
		Logger: x.app.logger,
	})
}

func (x *txExec) run() error {
	st, m := x.st, x.app.metrics

	switch x.env.Type {
	case codec.TypeAuthRegisterAccount:
		var msg codec.AuthRegisterAccountTx
		if err := x.decode(&msg); err != nil {
			return err
		}
		if err := requireRegisterAccountAuth(st, x.env, msg); err != nil {
			return err
		}
		if prev, ok := st.AccountKey(msg.Account); ok && string(prev) != string(msg.PubKey) {
			return ErrUnauthorized.Wrapf("account %q already registered with a different key", msg.Account)
		}
		st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
		x.log.Emit("AccountRegistered", map[string]string{"account": msg.Account})
		return nil

	case codec.TypeBankMint:
		var msg codec.BankMintTx
		if err := x.decode(&msg); err != nil {
			return err
		}
		if msg.To == "" || msg.Amount == 0 {
			return ErrInvalidTx.Wrap("missing to/amount")
		}
		if err := st.Credit(msg.To, msg.Amount); err != nil {
			return ErrInvalidTx.Wrap(err.Error())
		}
		x.log.Emit("BankMinted", map[string]string{
			"to":     msg.To,
			"amount": fmt.Sprintf("%d", msg.Amount),
		})
		return nil

	case codec.TypeBankSend:
		var msg codec.BankSendTx
		if err := x.decode(&msg); err != nil {
			return err
		}
		if msg.From == "" || msg.To == "" || msg.Amount == 0 {
			return ErrInvalidTx.Wrap("missing from/to/amount")
		}
		if err := requireAccountAuth(st, x.env, msg.From); err != nil {
			return err
		}
		if err := st.Debit(msg.From, msg.Amount); err != nil {
			return ErrInvalidTx.Wrap(err.Error())
		}
		if err := st.Credit(msg.To, msg.Amount); err != nil {
			return ErrInvalidTx.Wrap(err.Error())
		}
		x.log.Emit("BankSent", map[string]string{
			"from":   msg.From,
			"to":     msg.To,
			"amount": fmt.Sprintf("%d", msg.Amount),
		})
		return nil

	case codec.TypeLottoBuyTicket:
		var msg codec.LottoBuyTicketTx
		if err := x.decode(&msg); err != nil {
			return err
		}
		if err := requireAccountAuth(st, x.env, msg.Buyer); err != nil {
			return err
		}
		if _, err := x.lottoKeeper().BuyTicket(lotto.BuyTicketRequest{
			Buyer: msg.Buyer,
			Value: msg.Value,
			Round: msg.Round,
			Input: msg.Digits,
		}); err != nil {
			return err
		}
		m.TicketsPurchased.Inc()
		return nil

	case codec.TypeLottoCloseAndDraw:
		var msg codec.LottoCloseAndDrawTx
		if err := x.decode(&msg); err != nil {
			return err
		}
		if err := requireAccountAuth(st, x.env, msg.Caller); err != nil {
			return err
		}
		if _, _, err := x.lottoKeeper().CloseAndDraw(lotto.CloseAndDrawRequest{
			Caller: msg.Caller,
			Digits: msg.Digits,
			Beacon: msg.Beacon,
		}); err != nil {
			return err
		}
		m.RoundsClosed.Inc()
		return nil

	case codec.TypeLottoClaim:
		var msg codec.LottoClaimTx
		if err := x.decode(&msg); err != nil {
			return err
		}
		if err := requireAccountAuth(st, x.env, msg.Caller); err != nil {
			return err
		}
		if _, _, err := x.lottoKeeper().Claim(lotto.ClaimRequest{
			Caller: msg.Caller,
			Round:  msg.Round,
			Index:  msg.Index,
		}); err != nil {
			return err
		}
		m.Claims.Inc()
		m.Mints.Inc()
		return nil

	case codec.TypeLottoWithdraw:
		var msg codec.LottoWithdrawTx
		if err := x.decode(&msg); err != nil {
			return err
		}
		if err := requireAccountAuth(st, x.env, msg.Caller); err != nil {
			return err
		}
		return x.lottoKeeper().WithdrawOwnerFunds(msg.Caller, msg.Amount)

	case codec.TypeLottoDeposit:
		var msg codec.LottoDepositTx
		if err := x.decode(&msg); err != nil {
			return err
		}
		if err := requireAccountAuth(st, x.env, msg.From); err != nil {
			return err
		}
		return x.lottoKeeper().Deposit(msg.From, msg.Amount)

	default:
		return ErrUnknownTx.Wrap(x.env.Type)
	}
}
