package lotto

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/hashicorp/go-multierror"

	"cryptolotto/internal/fhe"
	"cryptolotto/internal/randomness"
	"cryptolotto/internal/state"
)

const (
	ModuleName = "lotto"

	// ContractAddress is the identity that holds the lottery's funds and
	// ciphertext grants.
	ContractAddress = "lotto"

	// Score tiers as encrypted by the scorer.
	TierNone    uint64 = 0
	TierPartial uint64 = 1
	TierJackpot uint64 = 2

	// PartialMatches is the exact number of positional matches paying the partial prize.
	PartialMatches uint64 = 2
)

// Bank moves the native currency.
type Bank interface {
	Balance(addr string) uint64
	Credit(addr string, amount uint64) error
	Debit(addr string, amount uint64) error
}

// Minter credits a confidential prize. It must be called exactly once per claim.
type Minter interface {
	// Address is the contract identity that must be able to read the amount.
	Address() string
	Mint(caller, to string, amount fhe.Handle) (fhe.Handle, error)
}

// Emitter records typed events for the enclosing transaction.
type Emitter interface {
	Emit(typ string, attrs map[string]string)
}

// BlockInfo is the public context of the block executing an operation.
type BlockInfo struct {
	ChainID string
	Height  int64
	Hash    []byte
}

// Deps are the collaborators of a Keeper. Query-only keepers need only Bank.
type Deps struct {
	Bank   Bank
	Exec   fhe.Executor
	Minter Minter
	Source randomness.Source
	Events Emitter
	Logger log.Logger
}

type Keeper struct {
	st     *state.Lottery
	block  BlockInfo
	bank   Bank
	exec   fhe.Executor
	minter Minter
	source randomness.Source
	events Emitter
	logger log.Logger
}

func NewKeeper(st *state.Lottery, block BlockInfo, d Deps) *Keeper {
	logger := d.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	source := d.Source
	if source == nil {
		source = randomness.BeaconSource{}
	}
	return &Keeper{
		st:     st,
		block:  block,
		bank:   d.Bank,
		exec:   d.Exec,
		minter: d.Minter,
		source: source,
		events: d.Events,
		logger: logger.With("module", "x/"+ModuleName),
	}
}

func (k *Keeper) Logger() log.Logger { return k.logger }

func (k *Keeper) emit(typ string, attrs map[string]string) {
	if k.events != nil {
		k.events.Emit(typ, attrs)
	}
}

func DefaultParams() state.Params {
	return state.Params{
		TicketPrice:  100,
		PartialPrize: 100,
		JackpotPrize: 1_000_000,
		Digits:       4,
		ClaimPolicy:  state.ClaimByOwner,
	}
}

// ValidateParams reports every problem with p at once.
func ValidateParams(p state.Params) error {
	var errs *multierror.Error
	if p.TicketPrice == 0 {
		errs = multierror.Append(errs, fmt.Errorf("ticketPrice must be > 0"))
	}
	if p.Digits != 4 && p.Digits != 6 {
		errs = multierror.Append(errs, fmt.Errorf("digits must be 4 or 6, got %d", p.Digits))
	}
	if p.JackpotPrize < p.PartialPrize {
		errs = multierror.Append(errs, fmt.Errorf("jackpotPrize (%d) must be >= partialPrize (%d)", p.JackpotPrize, p.PartialPrize))
	}
	switch p.ClaimPolicy {
	case state.ClaimByOwner, state.ClaimByAnyone:
	default:
		errs = multierror.Append(errs, fmt.Errorf("claimPolicy must be %q or %q, got %q", state.ClaimByOwner, state.ClaimByAnyone, p.ClaimPolicy))
	}
	if errs == nil {
		return nil
	}
	return errorsmod.Wrap(ErrInvalidParams, errs.Error())
}

// InitGenesis creates the lottery with round 1 open.
func InitGenesis(owner string, p state.Params, height int64) (*state.Lottery, error) {
	if owner == "" {
		return nil, ErrInvalidParams.Wrap("missing owner")
	}
	if err := ValidateParams(p); err != nil {
		return nil, err
	}
	return &state.Lottery{
		Owner:        owner,
		Params:       p,
		CurrentRound: 1,
		Rounds:       []*state.Round{{ID: 1, Status: state.RoundOpen, OpenedAt: height}},
	}, nil
}

func (k *Keeper) requireOwner(caller string) error {
	if caller != k.st.Owner {
		return ErrNotOwner.Wrapf("caller=%s", caller)
	}
	return nil
}

func (k *Keeper) requireExec() error {
	if k.exec == nil {
		return ErrInvalidRequest.Wrap("keeper has no executor")
	}
	return nil
}
