// Package arbvm implements an atomic arbitrage execution engine for
// probability-weighted composite assets and their conditional legs.
//
// A market quotes a composite asset against base collateral while both
// decompose 1:1 into yes and no outcome legs that trade on independent
// pools. When the composite's quote drifts from the probability-weighted
// value of its legs, the engine closes the gap with a single linear
// sequence of swaps, decompositions, and recompositions, and a profit
// assertion decides at the end whether the whole attempt stands or rolls
// back.
//
// This library allows you to build flows that:
//   - Execute batched venue calls with exact-spend and minimum-receive
//     balance checks around every dispatch
//   - Rewrite amount words inside prebuilt calldata with amounts
//     discovered mid-flow
//   - Recompose matched legs and liquidate the unmatched remainder
//   - Abort on any net profit below a signed threshold
//
// # Execution Substrate
//
// The engine runs inside an atomic unit of work provided by a Host. All
// token and venue interactions go through the Unit interface; if any step
// fails, the substrate rolls the whole unit back. The substrate owns
// serialization and deadlines, so the engine takes no locks and sets no
// timeouts.
//
// # Basic Usage
//
// Construct an engine, describe the attempt, and run it inside one unit:
//
//	eng := arbvm.New(controller,
//	    arbvm.WithPermissionRegistry(registryAddr, 0),
//	)
//
//	args := &arbvm.FlowArgs{
//	    Tokens:       tokens,
//	    Splitter:     splitterAddr,
//	    Market:       marketAddr,
//	    AmountIn:     amountIn,
//	    Cross:        crossBatch,
//	    YesSwap:      yesSwap,
//	    NoSwap:       noSwap,
//	    Liquidation:  plan,
//	    MinNetProfit: minNet,
//	}
//
//	err := host.Atomic(ctx, func(u arbvm.Unit) error {
//	    _, err := eng.SellComposite(u, args)
//	    return err
//	})
//
// A failed attempt surfaces as an error from Atomic with every balance
// restored; the calling loop logs it and moves to the next opportunity.
//
// # Batches
//
// A Batch holds up to ten calls against one venue plus the declared spend
// and minimum receive. ExecuteBatch measures the executing account's
// balances around the dispatches and rejects any spend that is not exactly
// the declared amount and any receipt below the floor. At most one item is
// patched: its amount word is rewritten with the runtime amount and its
// min-out word with either the declared minimum or a tolerance floor
// derived from the amount.
//
// # Flows
//
// Two mirrored flows cross between collateral and the composite:
//
//   - BuyComposite acquires the composite first, decomposes it, sells the
//     composite legs for collateral legs, and recomposes collateral.
//
//   - SellComposite decomposes collateral first, buys the composite legs,
//     recomposes the composite, and crosses back to collateral last, sized
//     by the recompose output.
//
// BuyRouted and SellRouted substitute two fixed venue legs through an
// intermediary asset for the cross batch, for composite substitutes with
// no direct collateral pool.
//
// Leg swaps rarely return matched amounts. The recompose step merges the
// matched portion and disposes of the excess per the flow's
// LiquidationPlan: a direct swap to collateral when the excess side has
// its own collateral pool, otherwise an exact-output swap into the other
// side followed by a single combined recompose.
//
// # Allowances
//
// Venue grants are idempotent and unbounded: a covering allowance is left
// untouched, anything else is reset to zero and then raised to the
// maximum, so repeated trades dispatch no approval churn. Venues that pull
// funds through the permission registry get a second grant recorded in
// the registry with an expiration.
//
// # Profit Guard
//
// Every flow snapshots its collateral balance on entry and asserts at the
// very end that the net change clears MinNetProfit. The threshold is
// signed; a negative threshold admits bounded losses for controlled dry
// runs. The assertion runs strictly after every other step, so no later
// spend can invalidate it.
package arbvm
