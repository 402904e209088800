package arbvm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FixedRoute holds the fixed venue identifiers for the route-substituted
// flows, used when the composite substitute has no direct pool against
// collateral: a multi-branch pooled swap through the batch venue reaches
// the intermediary asset, and a single hop reaches the target. The two
// venues enforce deadline semantics differently, so each leg carries its
// own fixed deadline.
type FixedRoute struct {
	BatchVenue common.Address
	HopVenue   common.Address

	// Intermediary is the asset the two legs meet on.
	Intermediary common.Address

	// PoolA and PoolB are the two batch venue branches between collateral
	// and the intermediary; BranchBps is the share routed through PoolA.
	PoolA     common.Hash
	PoolB     common.Hash
	BranchBps int
}

func (r *FixedRoute) validate() error {
	if *r == (FixedRoute{}) {
		return errors.New("arbvm: no fixed route configured")
	}
	if r.BatchVenue == (common.Address{}) {
		return errors.New("arbvm: fixed route batch venue unset")
	}
	if r.HopVenue == (common.Address{}) {
		return errors.New("arbvm: fixed route hop venue unset")
	}
	if r.Intermediary == (common.Address{}) {
		return errors.New("arbvm: fixed route intermediary unset")
	}
	if r.PoolA == (common.Hash{}) || r.PoolB == (common.Hash{}) {
		return errors.New("arbvm: fixed route pool branch unset")
	}
	if r.BranchBps < 0 || r.BranchBps > BpsDenominator {
		return &OffsetError{Field: "branchBps", Offset: r.BranchBps, Bound: BpsDenominator}
	}
	return nil
}

// RouteParams sizes one routed cross leg. AmountIn is the declared spend of
// the first leg; sell flows replace it with the recompose output discovered
// mid-flow, the same way a batch's declared amount yields to an override.
type RouteParams struct {
	AmountIn           *big.Int
	MinIntermediaryOut *big.Int
	MinFinalOut        *big.Int
}

func (p *RouteParams) validate() error {
	if p.AmountIn == nil || p.AmountIn.Sign() <= 0 {
		return errors.New("arbvm: route amount in must be positive")
	}
	if p.MinIntermediaryOut == nil || p.MinIntermediaryOut.Sign() < 0 {
		return errors.New("arbvm: route intermediary minimum must be a non-negative integer")
	}
	if p.MinFinalOut == nil || p.MinFinalOut.Sign() < 0 {
		return errors.New("arbvm: route final minimum must be a non-negative integer")
	}
	return nil
}

// runBatchVenueLeg swaps amount of tokenIn into tokenOut across the two
// fixed pool branches, as a one-item delta-checked batch. The batch venue
// only honors the 2^256-1 deadline sentinel.
func (e *Engine) runBatchVenueLeg(u Unit, tokenIn, tokenOut common.Address, amount, minOut *big.Int) (*big.Int, error) {
	amountA := new(big.Int).Mul(amount, big.NewInt(int64(e.route.BranchBps)))
	amountA.Quo(amountA, bpsDen)
	amountB := new(big.Int).Sub(amount, amountA)

	var steps []batchStep
	if amountA.Sign() > 0 {
		steps = append(steps, batchStep{
			PoolId:        [32]byte(e.route.PoolA),
			AssetInIndex:  big.NewInt(0),
			AssetOutIndex: big.NewInt(1),
			Amount:        amountA,
			UserData:      []byte{},
		})
	}
	if amountB.Sign() > 0 {
		steps = append(steps, batchStep{
			PoolId:        [32]byte(e.route.PoolB),
			AssetInIndex:  big.NewInt(0),
			AssetOutIndex: big.NewInt(1),
			Amount:        amountB,
			UserData:      []byte{},
		})
	}

	assets := []common.Address{tokenIn, tokenOut}
	funds := batchFunds{Sender: u.Self(), Recipient: u.Self()}
	limits := []*big.Int{new(big.Int).Set(amount), new(big.Int).Neg(minOut)}
	data := mustPack(BatchVenueABI, "batchSwap", givenIn, steps, assets, funds, limits, MaxUint256)

	b := NewBatch(tokenIn, tokenOut, e.route.BatchVenue, amount, minOut)
	b.MustAppend(e.route.BatchVenue, data)
	return e.ExecuteBatch(u, b, nil)
}

// runHopVenueLeg swaps amount of tokenIn into tokenOut through the
// single-hop venue, which rejects near-term deadlines, with the route's
// fixed far timestamp.
func (e *Engine) runHopVenueLeg(u Unit, tokenIn, tokenOut common.Address, amount, minOut *big.Int) (*big.Int, error) {
	path := []common.Address{tokenIn, tokenOut}
	data := mustPack(HopVenueABI, "swapExactTokensForTokens", amount, minOut, path, u.Self(), hopDeadline)

	b := NewBatch(tokenIn, tokenOut, e.route.HopVenue, amount, minOut)
	b.MustAppend(e.route.HopVenue, data)
	return e.ExecuteBatch(u, b, nil)
}

// BuyRouted runs the acquire-then-decompose flow with the cross-asset batch
// replaced by the two fixed route legs: the batch venue reaches the
// intermediary, the hop venue reaches the composite substitute, and the
// rest of the flow proceeds as BuyComposite.
func (e *Engine) BuyRouted(u Unit, f *FlowArgs, route RouteParams) (*FlowReport, error) {
	if err := e.requireController(u); err != nil {
		return nil, err
	}
	if err := e.route.validate(); err != nil {
		return nil, err
	}
	if err := f.validate(routedDirection); err != nil {
		return nil, err
	}
	if err := route.validate(); err != nil {
		return nil, err
	}
	rep := newFlowReport("buy_routed", f)
	rep.AmountIn = route.AmountIn

	snap, err := e.TakeSnapshot(u, f.Tokens.Collateral)
	if err != nil {
		return nil, err
	}
	rep.Initial = snap.Balance

	interOut, err := e.runBatchVenueLeg(u, f.Tokens.Collateral, e.route.Intermediary, route.AmountIn, route.MinIntermediaryOut)
	if err != nil {
		return nil, err
	}
	rep.IntermediaryOut = interOut

	crossOut, err := e.runHopVenueLeg(u, e.route.Intermediary, f.Tokens.Composite, interOut, route.MinFinalOut)
	if err != nil {
		return nil, err
	}
	rep.CrossOut = crossOut

	if err := e.split(u, f, f.Tokens.Composite, crossOut); err != nil {
		return nil, err
	}
	rep.SplitAmount = crossOut

	yesOut, err := e.runLegSwap(u, &f.YesSwap, f.Tokens.CompositeYes, f.Tokens.CollateralYes, crossOut)
	if err != nil {
		return nil, err
	}
	noOut, err := e.runLegSwap(u, &f.NoSwap, f.Tokens.CompositeNo, f.Tokens.CollateralNo, crossOut)
	if err != nil {
		return nil, err
	}
	rep.YesOut, rep.NoOut = yesOut, noOut

	merged, err := e.recomposeWithRemainder(u, f, f.Tokens.Collateral, f.Tokens.CollateralYes, f.Tokens.CollateralNo, rep)
	if err != nil {
		return nil, err
	}
	rep.Merged = merged

	net, err := e.AssertProfit(u, snap, f.MinNetProfit)
	if err != nil {
		return nil, err
	}
	rep.NetProfit = net
	rep.Final = new(big.Int).Add(snap.Balance, net)

	e.auditor.FlowExecuted(*rep)
	return rep, nil
}

// SellRouted runs the mirror routed flow: decompose collateral, buy the
// composite substitute's legs, recompose, then leave through the hop venue
// into the intermediary and the batch venue back to collateral, both sized
// by the recompose output discovered mid-flow.
func (e *Engine) SellRouted(u Unit, f *FlowArgs, route RouteParams) (*FlowReport, error) {
	if err := e.requireController(u); err != nil {
		return nil, err
	}
	if err := e.route.validate(); err != nil {
		return nil, err
	}
	if err := f.validate(routedDirection); err != nil {
		return nil, err
	}
	if err := route.validate(); err != nil {
		return nil, err
	}
	rep := newFlowReport("sell_routed", f)
	rep.AmountIn = route.AmountIn

	snap, err := e.TakeSnapshot(u, f.Tokens.Collateral)
	if err != nil {
		return nil, err
	}
	rep.Initial = snap.Balance

	if err := e.split(u, f, f.Tokens.Collateral, route.AmountIn); err != nil {
		return nil, err
	}
	rep.SplitAmount = route.AmountIn

	yesOut, err := e.runLegSwap(u, &f.YesSwap, f.Tokens.CollateralYes, f.Tokens.CompositeYes, route.AmountIn)
	if err != nil {
		return nil, err
	}
	noOut, err := e.runLegSwap(u, &f.NoSwap, f.Tokens.CollateralNo, f.Tokens.CompositeNo, route.AmountIn)
	if err != nil {
		return nil, err
	}
	rep.YesOut, rep.NoOut = yesOut, noOut

	merged, err := e.recomposeWithRemainder(u, f, f.Tokens.Composite, f.Tokens.CompositeYes, f.Tokens.CompositeNo, rep)
	if err != nil {
		return nil, err
	}
	rep.Merged = merged

	interOut, err := e.runHopVenueLeg(u, f.Tokens.Composite, e.route.Intermediary, merged, route.MinIntermediaryOut)
	if err != nil {
		return nil, err
	}
	rep.IntermediaryOut = interOut

	finalOut, err := e.runBatchVenueLeg(u, e.route.Intermediary, f.Tokens.Collateral, interOut, route.MinFinalOut)
	if err != nil {
		return nil, err
	}
	rep.CrossOut = finalOut

	net, err := e.AssertProfit(u, snap, f.MinNetProfit)
	if err != nil {
		return nil, err
	}
	rep.NetProfit = net
	rep.Final = new(big.Int).Add(snap.Balance, net)

	e.auditor.FlowExecuted(*rep)
	return rep, nil
}
