package arbvm

import "math/big"

// SellComposite runs the mirror flow: the splitter decomposes collateral,
// each collateral leg buys its composite leg against its own pool, matched
// pairs recompose into the composite asset, the remainder is liquidated,
// and the cross-asset batch runs last, converting the composite back to
// collateral sized by the recompose output discovered mid-flow. The profit
// guard closes the unit; any step failure aborts the whole unit with no
// partial effect.
func (e *Engine) SellComposite(u Unit, f *FlowArgs) (*FlowReport, error) {
	if err := e.requireController(u); err != nil {
		return nil, err
	}
	if err := f.validate(sellDirection); err != nil {
		return nil, err
	}
	rep := newFlowReport("sell_composite", f)

	snap, err := e.TakeSnapshot(u, f.Tokens.Collateral)
	if err != nil {
		return nil, err
	}
	rep.Initial = snap.Balance

	if err := e.split(u, f, f.Tokens.Collateral, f.AmountIn); err != nil {
		return nil, err
	}
	rep.SplitAmount = f.AmountIn

	yesOut, err := e.runLegSwap(u, &f.YesSwap, f.Tokens.CollateralYes, f.Tokens.CompositeYes, f.AmountIn)
	if err != nil {
		return nil, err
	}
	noOut, err := e.runLegSwap(u, &f.NoSwap, f.Tokens.CollateralNo, f.Tokens.CompositeNo, f.AmountIn)
	if err != nil {
		return nil, err
	}
	rep.YesOut, rep.NoOut = yesOut, noOut

	merged, err := e.recomposeWithRemainder(u, f, f.Tokens.Composite, f.Tokens.CompositeYes, f.Tokens.CompositeNo, rep)
	if err != nil {
		return nil, err
	}
	rep.Merged = merged

	crossOut, err := e.ExecuteBatch(u, f.Cross, merged)
	if err != nil {
		return nil, err
	}
	rep.CrossOut = crossOut

	net, err := e.AssertProfit(u, snap, f.MinNetProfit)
	if err != nil {
		return nil, err
	}
	rep.NetProfit = net
	rep.Final = new(big.Int).Add(snap.Balance, net)

	e.auditor.FlowExecuted(*rep)
	return rep, nil
}
