package arbvm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// subCallError wraps a substrate failure, carrying over the raw revert
// payload when the substrate exposes one.
func subCallError(index int, target common.Address, err error) *SubCallError {
	sub := &SubCallError{Index: index, Target: target, Err: err}
	var rd RevertData
	if errors.As(err, &rd) {
		sub.Payload = rd.RevertData()
	}
	return sub
}

// balanceOf reads owner's balance of token inside the unit.
func (e *Engine) balanceOf(u Unit, token, owner common.Address) (*big.Int, error) {
	ret, err := u.Call(token, mustPack(ERC20ABI, "balanceOf", owner))
	if err != nil {
		return nil, subCallError(-1, token, err)
	}
	out, err := ERC20ABI.Unpack("balanceOf", ret)
	if err != nil {
		return nil, fmt.Errorf("arbvm: balanceOf return from %s: %w", token.Hex(), err)
	}
	bal, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("arbvm: balanceOf return from %s: unexpected type %T", token.Hex(), out[0])
	}
	return bal, nil
}

// checkReturnedBool rejects calls that returned an explicit false. Tokens
// that return nothing are accepted.
func checkReturnedBool(a abi.ABI, name string, ret []byte) error {
	if len(ret) == 0 {
		return nil
	}
	out, err := a.Unpack(name, ret)
	if err != nil || len(out) != 1 {
		return nil
	}
	if ok, isBool := out[0].(bool); isBool && !ok {
		return fmt.Errorf("arbvm: %s returned false", name)
	}
	return nil
}

// ExecuteBatch validates and dispatches a batch inside the unit. A nonzero
// override replaces the declared amount in, letting a caller use a value
// discovered mid-flow instead of one fixed at construction. The patched
// slot, if any, has its amount and min-out words rewritten before dispatch;
// every failure propagates the callee's raw revert payload. After the last
// call the input token must have decreased by exactly the amount used and
// the output token increased by at least the effective floor, which is
// returned as the observed output delta.
func (e *Engine) ExecuteBatch(u Unit, b *Batch, override *big.Int) (*big.Int, error) {
	if err := e.requireController(u); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	used := b.AmountIn
	if override != nil && override.Sign() > 0 {
		used = override
	}

	if err := e.ensureAllowance(u, b.TokenIn, b.Spender, used); err != nil {
		return nil, err
	}

	inBefore, err := e.balanceOf(u, b.TokenIn, u.Self())
	if err != nil {
		return nil, err
	}
	outBefore, err := e.balanceOf(u, b.TokenOut, u.Self())
	if err != nil {
		return nil, err
	}

	floor := b.MinOut
	for i := 0; i < b.Count; i++ {
		item := b.Items[i]
		payload := item.Payload
		if i == b.PatchIndex {
			patched, effective, err := PatchAmounts(payload, b.patchSpec(), used, b.MinOut)
			if err != nil {
				return nil, err
			}
			payload = patched
			floor = effective
		}
		if _, err := u.Call(item.Target, payload); err != nil {
			return nil, subCallError(i, item.Target, err)
		}
	}

	inAfter, err := e.balanceOf(u, b.TokenIn, u.Self())
	if err != nil {
		return nil, err
	}
	outAfter, err := e.balanceOf(u, b.TokenOut, u.Self())
	if err != nil {
		return nil, err
	}

	spent := new(big.Int).Sub(inBefore, inAfter)
	if spent.Cmp(used) != 0 {
		return nil, &DeltaError{Token: b.TokenIn, Declared: used, Observed: spent, Spend: true}
	}
	got := new(big.Int).Sub(outAfter, outBefore)
	if got.Cmp(floor) < 0 {
		return nil, &DeltaError{Token: b.TokenOut, Declared: floor, Observed: got}
	}

	e.auditor.BatchExecuted(BatchReport{
		TokenIn:        b.TokenIn,
		TokenOut:       b.TokenOut,
		Spender:        b.Spender,
		Calls:          b.Count,
		Patched:        b.PatchIndex != NoPatch,
		AmountDeclared: b.AmountIn,
		AmountUsed:     used,
		MinOutDeclared: b.MinOut,
		MinOutUsed:     floor,
		OutDelta:       got,
	})
	return got, nil
}

// ExecuteOne dispatches a single prebuilt call with no delta checking, for
// maintenance actions where no trade invariant applies. Admin surface.
func (e *Engine) ExecuteOne(u Unit, target common.Address, payload []byte) ([]byte, error) {
	if err := e.requireController(u); err != nil {
		return nil, err
	}
	ret, err := u.Call(target, payload)
	if err != nil {
		return nil, subCallError(-1, target, err)
	}
	return ret, nil
}

// call dispatches an engine-built payload, wrapping failures with the raw
// revert payload preserved.
func (e *Engine) call(u Unit, target common.Address, payload []byte) ([]byte, error) {
	ret, err := u.Call(target, payload)
	if err != nil {
		return nil, subCallError(-1, target, err)
	}
	return ret, nil
}
