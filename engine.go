package arbvm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Engine drives arbitrage flows as single linear call stacks inside atomic
// units of work. The engine owns no balances: the only state it touches are
// the executing account's token balances and allowances, every unit fully
// owns that state for its duration, and the substrate serializes units, so
// the engine takes no locks and sets no timeouts.
type Engine struct {
	controller common.Address
	auditor    Auditor

	registry       common.Address
	registryExpiry uint64

	route FixedRoute
}

// New returns an Engine whose trade and admin entry points accept only units
// entered by controller.
func New(controller common.Address, opts ...Option) *Engine {
	e := &Engine{
		controller:     controller,
		auditor:        NopAuditor{},
		registryExpiry: MaxRegistryExpiration,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Controller returns the designated caller for trade and admin entry
// points.
func (e *Engine) Controller() common.Address {
	return e.controller
}

// requireController rejects units entered by any account other than the
// controller, before any state change.
func (e *Engine) requireController(u Unit) error {
	if u.Caller() != e.controller {
		return ErrPermissionDenied
	}
	return nil
}

// TransferControl hands the controller role to next. Admin surface; no
// trade invariant applies.
func (e *Engine) TransferControl(u Unit, next common.Address) error {
	if err := e.requireController(u); err != nil {
		return err
	}
	if next == (common.Address{}) {
		return errors.New("arbvm: new controller is the zero address")
	}
	e.controller = next
	return nil
}

// Sweep transfers the executing account's full balance of token to
// recipient and returns the amount moved. Admin surface; no trade invariant
// applies.
func (e *Engine) Sweep(u Unit, token, recipient common.Address) (*big.Int, error) {
	if err := e.requireController(u); err != nil {
		return nil, err
	}
	bal, err := e.balanceOf(u, token, u.Self())
	if err != nil {
		return nil, err
	}
	if bal.Sign() == 0 {
		return bal, nil
	}
	ret, err := u.Call(token, mustPack(ERC20ABI, "transfer", recipient, bal))
	if err != nil {
		return nil, subCallError(-1, token, err)
	}
	if err := checkReturnedBool(ERC20ABI, "transfer", ret); err != nil {
		return nil, err
	}
	return bal, nil
}
