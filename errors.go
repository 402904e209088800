// Package arbvm implements an atomic arbitrage execution engine for
// probability-weighted composite assets and their conditional legs.
package arbvm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for the engine failure classes. Every structured error in
// this package matches exactly one of these via errors.Is.
var (
	// ErrPermissionDenied indicates a unit was entered by an account other
	// than the designated controller.
	ErrPermissionDenied = errors.New("arbvm: permission denied")

	// ErrAllowanceSetup indicates an allowance grant was rejected by the
	// underlying token or registry.
	ErrAllowanceSetup = errors.New("arbvm: allowance setup failed")

	// ErrSubCallFailed indicates a dispatched call reverted.
	ErrSubCallFailed = errors.New("arbvm: sub-call failed")

	// ErrDeltaCheckFailed indicates a batch completed but the declared
	// balance movement did not hold.
	ErrDeltaCheckFailed = errors.New("arbvm: balance delta check failed")

	// ErrProfitBelowThreshold indicates a flow completed with net profit
	// under the configured minimum.
	ErrProfitBelowThreshold = errors.New("arbvm: profit below threshold")

	// ErrOffsetOutOfBounds indicates a batch or patch addresses bytes outside
	// its payload.
	ErrOffsetOutOfBounds = errors.New("arbvm: offset out of bounds")
)

// SubCallError reports a dispatched call that reverted. The callee's failure
// is preserved unmodified: Err is the substrate's error and Payload holds the
// raw revert data when the substrate exposes it.
type SubCallError struct {
	Index   int // slot within the batch, -1 for single dispatch
	Target  common.Address
	Payload []byte
	Err     error
}

func (e *SubCallError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("arbvm: call %d to %s reverted: %v", e.Index, e.Target.Hex(), e.Err)
	}
	return fmt.Sprintf("arbvm: call to %s reverted: %v", e.Target.Hex(), e.Err)
}

func (e *SubCallError) Unwrap() []error {
	return []error{ErrSubCallFailed, e.Err}
}

// DeltaError reports a completed batch whose observed balance movement
// violated the declared bounds.
type DeltaError struct {
	Token    common.Address
	Declared *big.Int
	Observed *big.Int
	Spend    bool // true for the exact-spend check on the input token
}

func (e *DeltaError) Error() string {
	if e.Spend {
		return fmt.Sprintf("arbvm: token %s spent %s, declared %s", e.Token.Hex(), e.Observed, e.Declared)
	}
	return fmt.Sprintf("arbvm: token %s received %s, floor %s", e.Token.Hex(), e.Observed, e.Declared)
}

func (e *DeltaError) Unwrap() error {
	return ErrDeltaCheckFailed
}

// ProfitError reports a flow that completed with net profit below the signed
// minimum threshold.
type ProfitError struct {
	Initial *big.Int
	Final   *big.Int
	MinNet  *big.Int
}

func (e *ProfitError) Error() string {
	net := new(big.Int).Sub(e.Final, e.Initial)
	return fmt.Sprintf("arbvm: net profit %s below threshold %s", net, e.MinNet)
}

func (e *ProfitError) Unwrap() error {
	return ErrProfitBelowThreshold
}

// OffsetError reports a patch or batch field that addresses a position
// outside its bound. Bound is exclusive for indexes and the payload length
// for byte offsets.
type OffsetError struct {
	Field  string
	Offset int
	Bound  int
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("arbvm: %s %d out of bounds (limit %d)", e.Field, e.Offset, e.Bound)
}

func (e *OffsetError) Unwrap() error {
	return ErrOffsetOutOfBounds
}

// AllowanceError reports a grant the token or registry refused.
type AllowanceError struct {
	Token   common.Address
	Spender common.Address
	Err     error
}

func (e *AllowanceError) Error() string {
	return fmt.Sprintf("arbvm: allowance %s -> %s: %v", e.Token.Hex(), e.Spender.Hex(), e.Err)
}

func (e *AllowanceError) Unwrap() []error {
	return []error{ErrAllowanceSetup, e.Err}
}
