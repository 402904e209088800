package arbvm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is the base-collateral balance captured at flow entry, compared
// once at exit.
type Snapshot struct {
	Token   common.Address
	Balance *big.Int
}

// TakeSnapshot records the executing account's balance of token. Flows call
// it before any externally observable mutation.
func (e *Engine) TakeSnapshot(u Unit, token common.Address) (Snapshot, error) {
	bal, err := e.balanceOf(u, token, u.Self())
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Token: token, Balance: bal}, nil
}

// AssertProfit compares the current balance against the entry snapshot and
// fails the unit unless final - initial >= minNet. The comparison is signed:
// negative thresholds are legal for controlled dry runs. It must run
// strictly after every other mutation of the unit, so it observes true
// post-trade balances. Independently invocable; maintenance paths simply
// skip it. Returns the observed net on success.
func (e *Engine) AssertProfit(u Unit, snap Snapshot, minNet *big.Int) (*big.Int, error) {
	final, err := e.balanceOf(u, snap.Token, u.Self())
	if err != nil {
		return nil, err
	}
	if minNet == nil {
		minNet = big.NewInt(0)
	}
	net := new(big.Int).Sub(final, snap.Balance)
	if net.Cmp(minNet) < 0 {
		return nil, &ProfitError{Initial: snap.Balance, Final: final, MinNet: minNet}
	}
	return net, nil
}
