package arbvm

import "math/big"

// BuyComposite runs the acquire-then-decompose flow: the cross-asset batch
// converts collateral into the composite asset, the splitter decomposes it,
// each composite leg is sold for its collateral leg against its own pool,
// matched pairs recompose straight into collateral, the remainder is
// liquidated, and the profit guard closes the unit. Any step failure aborts
// the whole unit with no partial effect.
func (e *Engine) BuyComposite(u Unit, f *FlowArgs) (*FlowReport, error) {
	if err := e.requireController(u); err != nil {
		return nil, err
	}
	if err := f.validate(buyDirection); err != nil {
		return nil, err
	}
	rep := newFlowReport("buy_composite", f)

	snap, err := e.TakeSnapshot(u, f.Tokens.Collateral)
	if err != nil {
		return nil, err
	}
	rep.Initial = snap.Balance

	crossOut, err := e.ExecuteBatch(u, f.Cross, f.AmountIn)
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
