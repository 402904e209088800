package arbvm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Side selects one conditional outcome.
type Side uint8

const (
	// Yes is the affirmative outcome leg.
	Yes Side = iota

	// No is the negative outcome leg.
	No
)

// String returns "yes" or "no".
func (s Side) String() string {
	if s == Yes {
		return "yes"
	}
	return "no"
}

// flowDirection distinguishes the mirrored flow shapes.
type flowDirection uint8

const (
	buyDirection flowDirection = iota
	sellDirection
	routedDirection
)

// TokenSet names the assets one market trades across: the base collateral a
// flow is denominated in, the composite asset priced against it, and the
// four conditional legs the two decompose into. Decomposition and
// recomposition are 1:1 per leg, but the legs trade on independent pools
// and may be consumed unevenly mid-flow.
type TokenSet struct {
	Collateral common.Address
	Composite  common.Address

	CompositeYes common.Address
	CompositeNo  common.Address

	CollateralYes common.Address
	CollateralNo  common.Address
}

func (t *TokenSet) validate() error {
	for _, tok := range []struct {
		name string
		addr common.Address
	}{
		{"collateral", t.Collateral},
		{"composite", t.Composite},
		{"composite yes leg", t.CompositeYes},
		{"composite no leg", t.CompositeNo},
		{"collateral yes leg", t.CollateralYes},
		{"collateral no leg", t.CollateralNo},
	} {
		if tok.addr == (common.Address{}) {
			return fmt.Errorf("arbvm: %s token unset", tok.name)
		}
	}
	return nil
}

// PoolRefs records the pools a flow trades against. Bookkeeping only: the
// engine never reads them, they are echoed on audit records.
type PoolRefs struct {
	YesPool   common.Address `json:"yes_pool"`
	NoPool    common.Address `json:"no_pool"`
	CrossPool common.Address `json:"cross_pool"`
}

// LegSwap describes one conditional-leg swap against that leg's own pool.
// CallData is prebuilt off-box with placeholder amount words; the engine
// rewrites them with the runtime amount before dispatch and runs the call
// as a one-item batch, so every leg gets full delta checking.
type LegSwap struct {
	Router   common.Address
	CallData []byte

	// Spender overrides the allowance target when the venue pulls funds
	// through an account other than Router. Zero means Router.
	Spender common.Address

	// Delegated grants through the permission registry instead of directly
	// to the router.
	Delegated bool

	// MinOut floors the leg output. Zero derives the floor from the runtime
	// amount and ToleranceBps.
	MinOut *big.Int

	AmountOffset int
	MinOutOffset int
	ToleranceBps int

	// PatchMethod, when set, is the call shape the patched payload must
	// still unpack against.
	PatchMethod *abi.Method
}

func (s *LegSwap) validate(side string) error {
	if s.Router == (common.Address{}) {
		return fmt.Errorf("arbvm: %s swap router unset", side)
	}
	if len(s.CallData) < selectorSize {
		return fmt.Errorf("arbvm: %s swap calldata shorter than a selector", side)
	}
	if s.MinOut == nil || s.MinOut.Sign() < 0 {
		return fmt.Errorf("arbvm: %s swap min out must be a non-negative integer", side)
	}
	return nil
}

// LiquidationPlan describes how the unmatched leg remainder is disposed of:
// a direct exact-input swap to collateral for a side with its own
// collateral pool, or an exact-output swap into the other side followed by
// one recompose of the excess together with the matched legs.
type LiquidationPlan struct {
	// Venue is the conditional venue the liquidation swaps run on.
	Venue common.Address

	// DirectYes and DirectNo report whether a collateral pool exists for
	// that side.
	DirectYes bool
	DirectNo  bool

	// SplitBps sizes the indirect path's exact-output target as a share of
	// the excess, chosen off-box from observed prices. The unswapped rest
	// stays as leg dust and the profit guard prices the outcome.
	SplitBps int

	// ToleranceBps floors the direct path's collateral receipt relative to
	// the excess spent.
	ToleranceBps int
}

func (p *LiquidationPlan) validate() error {
	if p.Venue == (common.Address{}) {
		return errors.New("arbvm: liquidation venue unset")
	}
	if p.SplitBps < 0 || p.SplitBps > BpsDenominator {
		return &OffsetError{Field: "liquidation splitBps", Offset: p.SplitBps, Bound: BpsDenominator}
	}
	if p.ToleranceBps < 0 || p.ToleranceBps > BpsDenominator {
		return &OffsetError{Field: "liquidation toleranceBps", Offset: p.ToleranceBps, Bound: BpsDenominator}
	}
	return nil
}

func (p *LiquidationPlan) direct(s Side) bool {
	if s == Yes {
		return p.DirectYes
	}
	return p.DirectNo
}

// FlowArgs carries one attempted trade. Values are built off-box per
// attempt, consumed exactly once, and have no persisted identity.
type FlowArgs struct {
	Tokens TokenSet

	// Splitter is the decompose/recompose router; Market keys its
	// positions.
	Splitter common.Address
	Market   common.Address

	Pools PoolRefs

	// AmountIn is the collateral the flow commits. Routed flows ignore it
	// and size from their route parameters instead.
	AmountIn *big.Int

	// Cross is the cross-asset batch: collateral into composite for buy
	// flows, composite into collateral for sell flows. Nil on routed flows.
	Cross *Batch

	YesSwap LegSwap
	NoSwap  LegSwap

	Liquidation LiquidationPlan

	// MinNetProfit is the signed net-profit threshold; negative values are
	// legal for controlled dry runs.
	MinNetProfit *big.Int
}

func (f *FlowArgs) validate(dir flowDirection) error {
	if err := f.Tokens.validate(); err != nil {
		return err
	}
	if f.Splitter == (common.Address{}) {
		return errors.New("arbvm: splitter unset")
	}
	if f.Market == (common.Address{}) {
		return errors.New("arbvm: market unset")
	}
	if err := f.YesSwap.validate("yes"); err != nil {
		return err
	}
	if err := f.NoSwap.validate("no"); err != nil {
		return err
	}
	if err := f.Liquidation.validate(); err != nil {
		return err
	}
	switch dir {
	case buyDirection, sellDirection:
		if f.AmountIn == nil || f.AmountIn.Sign() <= 0 {
			return errors.New("arbvm: flow amount in must be positive")
		}
		if f.Cross == nil {
			return errors.New("arbvm: flow cross batch unset")
		}
		in, out := f.Tokens.Collateral, f.Tokens.Composite
		if dir == sellDirection {
			in, out = out, in
		}
		if f.Cross.TokenIn != in || f.Cross.TokenOut != out {
			return errors.New("arbvm: cross batch tokens do not match the flow direction")
		}
	case routedDirection:
		if f.Cross != nil {
			return errors.New("arbvm: routed flows take route parameters, not a cross batch")
		}
	}
	return nil
}

// newFlowReport seeds the audit record for one flow.
func newFlowReport(name string, f *FlowArgs) *FlowReport {
	min := f.MinNetProfit
	if min == nil {
		min = big.NewInt(0)
	}
	return &FlowReport{
		Flow:         name,
		Market:       f.Market,
		Pools:        f.Pools,
		AmountIn:     f.AmountIn,
		MinNetProfit: min,
	}
}

// split decomposes amount of parent into its two legs 1:1.
func (e *Engine) split(u Unit, f *FlowArgs, parent common.Address, amount *big.Int) error {
	if err := e.ensureAllowance(u, parent, f.Splitter, amount); err != nil {
		return err
	}
	_, err := e.call(u, f.Splitter, encodeSplit(f.Market, parent, amount))
	return err
}

// merge recomposes amount matched leg pairs into parent. The merger
// requires equal leg amounts, so callers pass the smaller side.
func (e *Engine) merge(u Unit, f *FlowArgs, parent, yesLeg, noLeg common.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := e.ensureAllowance(u, yesLeg, f.Splitter, amount); err != nil {
		return err
	}
	if err := e.ensureAllowance(u, noLeg, f.Splitter, amount); err != nil {
		return err
	}
	_, err := e.call(u, f.Splitter, encodeMerge(f.Market, parent, amount))
	return err
}

// runLegSwap sells amount of tokenIn for tokenOut through the leg's own
// pool. The prebuilt calldata has its amount and min-out words rewritten,
// then runs as a one-item batch with full delta checking.
func (e *Engine) runLegSwap(u Unit, swap *LegSwap, tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, error) {
	spender := swap.Spender
	if spender == (common.Address{}) {
		spender = swap.Router
	}
	if swap.Delegated {
		if err := e.ensureDelegatedAllowance(u, tokenIn, swap.Router, amount); err != nil {
			return nil, err
		}
		spender = e.registry
	}
	b := NewBatch(tokenIn, tokenOut, spender, amount, swap.MinOut)
	b.MustAppend(swap.Router, swap.CallData)
	b.SetPatch(0, swap.AmountOffset, swap.MinOutOffset, swap.ToleranceBps)
	b.PatchMethod = swap.PatchMethod
	return e.ExecuteBatch(u, b, nil)
}

// recomposeWithRemainder recomposes matched legs into parent and disposes
// of the unmatched remainder per the liquidation plan, returning the total
// amount recomposed. A side with its own collateral pool merges the matched
// legs first and swaps the excess straight to collateral; a side without
// one swaps part of the excess into the other side and recomposes
// everything in a single pass, the two-step indirection forced by the
// missing pool.
func (e *Engine) recomposeWithRemainder(u Unit, f *FlowArgs, parent, yesLeg, noLeg common.Address, rep *FlowReport) (*big.Int, error) {
	yesBal, err := e.balanceOf(u, yesLeg, u.Self())
	if err != nil {
		return nil, err
	}
	noBal, err := e.balanceOf(u, noLeg, u.Self())
	if err != nil {
		return nil, err
	}

	matched := new(big.Int)
	excess := new(big.Int)
	excessSide := Yes
	excessLeg, otherLeg := yesLeg, noLeg
	if yesBal.Cmp(noBal) >= 0 {
		matched.Set(noBal)
		excess.Sub(yesBal, noBal)
	} else {
		matched.Set(yesBal)
		excess.Sub(noBal, yesBal)
		excessSide = No
		excessLeg, otherLeg = noLeg, yesLeg
	}

	if excess.Sign() == 0 {
		if err := e.merge(u, f, parent, yesLeg, noLeg, matched); err != nil {
			return nil, err
		}
		return matched, nil
	}

	rep.ExcessSide = excessSide.String()
	rep.Excess = excess

	if f.Liquidation.direct(excessSide) {
		if err := e.merge(u, f, parent, yesLeg, noLeg, matched); err != nil {
			return nil, err
		}
		floor := ToleranceFloor(excess, f.Liquidation.ToleranceBps)
		b := NewBatch(excessLeg, f.Tokens.Collateral, f.Liquidation.Venue, excess, floor)
		b.MustAppend(f.Liquidation.Venue, encodeExactInputSingle(excessLeg, f.Tokens.Collateral, u.Self(), excess, floor))
		out, err := e.ExecuteBatch(u, b, nil)
		if err != nil {
			return nil, err
		}
		rep.LiquidationOut = out
		return matched, nil
	}

	// No collateral pool lists the excess side. Rebalance a slice of the
	// excess into the other side, then recompose in one pass; whatever the
	// sizing leaves unmatched stays as leg dust for the profit guard to
	// price.
	target := new(big.Int).Mul(excess, big.NewInt(int64(f.Liquidation.SplitBps)))
	target.Quo(target, bpsDen)
	if target.Sign() > 0 {
		if err := e.ensureAllowance(u, excessLeg, f.Liquidation.Venue, excess); err != nil {
			return nil, err
		}
		data := encodeExactOutputSingle(excessLeg, otherLeg, u.Self(), target, excess)
		if _, err := e.call(u, f.Liquidation.Venue, data); err != nil {
			return nil, err
		}
		rep.LiquidationOut = target
	}

	yesBal, err = e.balanceOf(u, yesLeg, u.Self())
	if err != nil {
		return nil, err
	}
	noBal, err = e.balanceOf(u, noLeg, u.Self())
	if err != nil {
		return nil, err
	}
	if yesBal.Cmp(noBal) <= 0 {
		matched.Set(yesBal)
	} else {
		matched.Set(noBal)
	}
	if err := e.merge(u, f, parent, yesLeg, noLeg, matched); err != nil {
		return nil, err
	}
	return matched, nil
}
