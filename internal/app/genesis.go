package app

import (
	"bytes"
	"encoding/json"
	"sort"

	"cryptolotto/internal/config"
	"cryptolotto/internal/lotto"
	"cryptolotto/internal/state"
	"cryptolotto/internal/token"
)

// GenesisState is the app_state of the genesis document.
type GenesisState struct {
	Owner    string            `json:"owner"`
	Params   state.Params      `json:"params"`
	Accounts map[string]uint64 `json:"accounts,omitempty"`
}

// DefaultGenesis is the genesis the node falls back to for omitted fields.
func DefaultGenesis(c config.LottoConfig) GenesisState {
	return GenesisState{Owner: c.Owner, Params: c.Params()}
}

// ParseGenesis overlays raw on defaults; fields missing from raw keep their
// default values.
func ParseGenesis(raw []byte, defaults GenesisState) (GenesisState, error) {
	g := defaults
	if len(bytes.TrimSpace(raw)) == 0 {
		return g, nil
	}
	if err := json.Unmarshal(raw, &g); err != nil {
		return GenesisState{}, ErrInvalidTx.Wrapf("genesis app_state: %v", err)
	}
	return g, nil
}

func initGenesisState(st *state.State, chainID string, height int64, g GenesisState) error {
	if reservedAccounts[g.Owner] {
		return ErrInvalidTx.Wrapf("owner %q is a contract account", g.Owner)
	}
	l, err := lotto.InitGenesis(g.Owner, g.Params, height)
	if err != nil {
		return err
	}
	st.ChainID = chainID
	st.Lottery = l
	st.Token = token.Init(lotto.ContractAddress)

	addrs := make([]string, 0, len(g.Accounts))
	for addr := range g.Accounts {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	for _, addr := range addrs {
		if err := st.Credit(addr, g.Accounts[addr]); err != nil {
			return ErrInvalidTx.Wrapf("genesis account %s: %v", addr, err)
		}
	}
	return nil
}
