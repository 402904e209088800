package arbvm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Unit is one atomic unit of work on the execution substrate. All engine
// operations run inside a Unit; every Call is synchronous and either returns
// or aborts the whole unit.
type Unit interface {
	// Self returns the executing account whose balances and allowances the
	// engine owns for the duration of the unit.
	Self() common.Address

	// Caller returns the account that entered the unit.
	Caller() common.Address

	// Call dispatches input to target and returns the raw return data.
	Call(target common.Address, input []byte) ([]byte, error)
}

// Host runs units of work against the substrate. The substrate owns
// serialization and atomicity: the engine takes no locks, sets no timeouts,
// and relies on Atomic to discard every effect of a failed unit.
type Host interface {
	// Atomic runs fn as one all-or-nothing unit of work. A non-nil error
	// leaves the substrate exactly as it was before the unit started.
	Atomic(ctx context.Context, fn func(Unit) error) error
}

// RevertData is implemented by substrate errors that expose the raw revert
// payload of a failed call. The engine preserves the payload unmodified on
// SubCallError.
type RevertData interface {
	RevertData() []byte
}
