package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"

	"cryptolotto/internal/gateway"
	"cryptolotto/internal/lotto"
	"cryptolotto/internal/token"
)

func (a *LottoApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	v, err := a.query(strings.TrimSpace(req.Path), req.Data)
	if err != nil {
		codespace, code, logMsg := errorsmod.ABCIInfo(err, false)
		return &abci.QueryResponse{Codespace: codespace, Code: code, Log: logMsg, Height: a.st.Height}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
}

func parseID(raw, what string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidTx.Wrapf("invalid %s %q", what, raw)
	}
	return id, nil
}

// query paths:
//   - /params
//   - /round/current, /round/<id>, /round/<id>/players, /round/<id>/winning
//   - /tickets/<round>/<addr>, /bets/<round>/<addr>
//   - /contract/balance, /account/<addr>, /token/balance/<addr>
//   - /network_key, /decrypt/user (request JSON in data), /decrypt/public/<handle>
func (a *LottoApp) query(path string, data []byte) (any, error) {
	switch {
	case path == "/network_key":
		return map[string]string{"publicKey": a.netKeyPK}, nil
	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		_, registered := a.st.AccountKey(addr)
		return map[string]any{"addr": addr, "balance": a.st.Balance(addr), "registered": registered}, nil
	case path == "/decrypt/user":
		var req gateway.UserDecryptRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, errorsmod.Wrapf(gateway.ErrInvalidRequest, "request json: %v", err)
		}
		return a.gw.UserDecrypt(a.st, req)
	case strings.HasPrefix(path, "/decrypt/public/"):
		return a.gw.PublicDecrypt(a.st, strings.TrimPrefix(path, "/decrypt/public/"))
	}

	if a.st.Lottery == nil {
		return nil, ErrNotInitialized
	}
	k := lotto.NewKeeper(a.st.Lottery, lotto.BlockInfo{ChainID: a.st.ChainID, Height: a.st.Height}, lotto.Deps{Bank: a.st})

	switch {
	case path == "/params":
		return map[string]any{"owner": k.Owner(), "params": k.Params()}, nil
	case path == "/contract/balance":
		return map[string]any{"addr": lotto.ContractAddress, "balance": k.ContractBalance()}, nil
	case path == "/round/current":
		return k.RoundInfo(k.CurrentRound())
	case path == "/round/current/open":
		return map[string]any{"round": k.CurrentRound(), "open": k.IsOpen()}, nil
	case strings.HasPrefix(path, "/round/"):
		parts := strings.Split(strings.TrimPrefix(path, "/round/"), "/")
		id, err := parseID(parts[0], "round id")
		if err != nil {
			return nil, err
		}
		switch {
		case len(parts) == 1:
			return k.RoundInfo(id)
		case len(parts) == 2 && parts[1] == "players":
			return k.RoundPlayers(id)
		case len(parts) == 2 && parts[1] == "winning":
			return k.WinningDigits(id)
		}
	case strings.HasPrefix(path, "/tickets/"), strings.HasPrefix(path, "/bets/"):
		rest := strings.TrimPrefix(strings.TrimPrefix(path, "/tickets/"), "/bets/")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[1] == "" {
			return nil, ErrInvalidTx.Wrapf("expected <round>/<addr>, got %q", rest)
		}
		id, err := parseID(parts[0], "round id")
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(path, "/bets/") {
			n, err := k.PlayerBetCount(id, parts[1])
			if err != nil {
				return nil, err
			}
			return map[string]any{"round": id, "addr": parts[1], "count": n}, nil
		}
		return k.UserTickets(id, parts[1])
	case strings.HasPrefix(path, "/token/balance/"):
		addr := strings.TrimPrefix(path, "/token/balance/")
		tok := a.st.Token
		if tok == nil {
			tok = token.Init(lotto.ContractAddress)
		}
		h, ok := token.NewKeeper(tok, nil, nil, a.logger).BalanceOf(addr)
		return map[string]any{"addr": addr, "handle": string(h), "exists": ok}, nil
	}
	return nil, ErrUnknownQuery.Wrap(path)
}

