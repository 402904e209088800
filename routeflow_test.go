package arbvm_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
	"github.com/branched-services/go-arbvm/simhost"
)

var (
	poolA = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000a1")
	poolB = common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000000b2")
)

// routedFixture extends the market with the two fixed-route venues and the
// intermediary asset they meet on.
type routedFixture struct {
	*marketFixture
	inter *simhost.Token
	vault *simhost.Vault
	hop   *simhost.HopRouter
	route arbvm.FixedRoute
}

func newRoutedFixture(branchBps int) *routedFixture {
	m := newMarketFixture()
	r := &routedFixture{marketFixture: m}
	r.inter = m.h.DeployToken("intermediary")
	r.vault = m.h.DeployVault()
	r.hop = m.h.DeployHopRouter()
	r.route = arbvm.FixedRoute{
		BatchVenue:   r.vault.Address(),
		HopVenue:     r.hop.Address(),
		Intermediary: r.inter.Address(),
		PoolA:        poolA,
		PoolB:        poolB,
		BranchBps:    branchBps,
	}
	r.e = arbvm.New(controllerAddr,
		arbvm.WithAuditor(m.rec),
		arbvm.WithFixedRoute(r.route),
	)
	return r
}

// bindPools points both route branches at the same pair, numA/denA through
// the first branch and numB/denB through the second.
func (r *routedFixture) bindPools(in, out *simhost.Token, numA, denA, numB, denB int64) {
	r.vault.SetPool(poolA, in.Address(), out.Address(), numA, denA)
	r.vault.SetPool(poolB, in.Address(), out.Address(), numB, denB)
}

func (r *routedFixture) routedArgs(t *testing.T, buy bool) *arbvm.FlowArgs {
	t.Helper()
	f := r.sellArgs(t, 1)
	f.AmountIn = nil
	f.Cross = nil
	if buy {
		f.YesSwap = r.legSwap(t, r.compYes, r.collYes)
		f.NoSwap = r.legSwap(t, r.compNo, r.collNo)
	}
	return f
}

func decodeVaultSwap(t *testing.T, input []byte) (steps []struct {
	PoolId        [32]byte
	AssetInIndex  *big.Int
	AssetOutIndex *big.Int
	Amount        *big.Int
	UserData      []byte
}, deadline *big.Int) {
	t.Helper()
	method := arbvm.BatchVenueABI.Methods["batchSwap"]
	vals, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	steps = *abi.ConvertType(vals[1], &steps).(*[]struct {
		PoolId        [32]byte
		AssetInIndex  *big.Int
		AssetOutIndex *big.Int
		Amount        *big.Int
		UserData      []byte
	})
	deadline = vals[5].(*big.Int)
	return steps, deadline
}

func TestBuyRouted(t *testing.T) {
	r := newRoutedFixture(6000)
	r.bindPools(r.collateral, r.inter, 1, 1, 1, 1)
	r.hop.SetPrice(r.inter.Address(), r.composite.Address(), 2, 1)

	f := r.routedArgs(t, true)
	params := arbvm.RouteParams{
		AmountIn:           big.NewInt(100),
		MinIntermediaryOut: big.NewInt(90),
		MinFinalOut:        big.NewInt(150),
	}

	var rep *arbvm.FlowReport
	err := r.run(func(u arbvm.Unit) error {
		var err error
		rep, err = r.e.BuyRouted(u, f, params)
		return err
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if rep.Flow != "buy_routed" || rep.AmountIn.Int64() != 100 {
		t.Errorf("Expected buy_routed spending 100, got %q spending %s", rep.Flow, rep.AmountIn)
	}
	if rep.IntermediaryOut.Int64() != 100 || rep.CrossOut.Int64() != 200 {
		t.Errorf("Expected 100 intermediary into 200 composite, got %s and %s", rep.IntermediaryOut, rep.CrossOut)
	}
	if rep.SplitAmount.Int64() != 200 || rep.Merged.Int64() != 150 {
		t.Errorf("Expected split 200 and merge 150, got %s and %s", rep.SplitAmount, rep.Merged)
	}
	if rep.NetProfit.Int64() != 50 {
		t.Errorf("Expected net 50, got %s", rep.NetProfit)
	}
	if bal := r.collateral.BalanceOf(accountAddr); bal.Int64() != 1050 {
		t.Errorf("Expected 1050 collateral, got %s", bal)
	}

	t.Run("branch split follows the configured share", func(t *testing.T) {
		inputs := r.h.CallInputs(r.vault.Address())
		if len(inputs) != 1 {
			t.Fatalf("Expected one vault call, got %d", len(inputs))
		}
		steps, _ := decodeVaultSwap(t, inputs[0])
		if len(steps) != 2 {
			t.Fatalf("Expected two branches, got %d", len(steps))
		}
		if common.Hash(steps[0].PoolId) != poolA || steps[0].Amount.Int64() != 60 {
			t.Errorf("Expected 60 through the first branch, got %s through %x", steps[0].Amount, steps[0].PoolId)
		}
		if common.Hash(steps[1].PoolId) != poolB || steps[1].Amount.Int64() != 40 {
			t.Errorf("Expected 40 through the second branch, got %s through %x", steps[1].Amount, steps[1].PoolId)
		}
	})

	t.Run("each venue gets its own deadline", func(t *testing.T) {
		_, deadline := decodeVaultSwap(t, r.h.CallInputs(r.vault.Address())[0])
		if deadline.Cmp(arbvm.MaxUint256) != 0 {
			t.Errorf("Expected the unbounded sentinel at the batch venue, got %s", deadline)
		}

		hopInputs := r.h.CallInputs(r.hop.Address())
		if len(hopInputs) != 1 {
			t.Fatalf("Expected one hop call, got %d", len(hopInputs))
		}
		method := arbvm.HopVenueABI.Methods["swapExactTokensForTokens"]
		vals, err := method.Inputs.Unpack(hopInputs[0][4:])
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if hopDeadline := vals[4].(*big.Int); hopDeadline.Int64() != 9_999_999_999 {
			t.Errorf("Expected the fixed far timestamp at the hop venue, got %s", hopDeadline)
		}
	})
}

func TestSellRouted(t *testing.T) {
	r := newRoutedFixture(6000)
	r.bindPools(r.inter, r.collateral, 11, 10, 11, 10)
	r.hop.SetPrice(r.composite.Address(), r.inter.Address(), 1, 1)

	f := r.routedArgs(t, false)
	params := arbvm.RouteParams{
		AmountIn:           big.NewInt(100),
		MinIntermediaryOut: big.NewInt(150),
		MinFinalOut:        big.NewInt(200),
	}

	var rep *arbvm.FlowReport
	err := r.run(func(u arbvm.Unit) error {
		var err error
		rep, err = r.e.SellRouted(u, f, params)
		return err
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if rep.Flow != "sell_routed" || rep.AmountIn.Int64() != 100 {
		t.Errorf("Expected sell_routed spending 100, got %q spending %s", rep.Flow, rep.AmountIn)
	}
	if rep.SplitAmount.Int64() != 100 || rep.Merged.Int64() != 200 {
		t.Errorf("Expected split 100 and merge 200, got %s and %s", rep.SplitAmount, rep.Merged)
	}
	if rep.IntermediaryOut.Int64() != 200 || rep.CrossOut.Int64() != 220 {
		t.Errorf("Expected 200 intermediary into 220 collateral, got %s and %s", rep.IntermediaryOut, rep.CrossOut)
	}
	if rep.NetProfit.Int64() != 120 {
		t.Errorf("Expected net 120, got %s", rep.NetProfit)
	}

	t.Run("exit legs sized by the recompose output", func(t *testing.T) {
		steps, _ := decodeVaultSwap(t, r.h.CallInputs(r.vault.Address())[0])
		total := new(big.Int).Add(steps[0].Amount, steps[1].Amount)
		if total.Int64() != 200 {
			t.Errorf("Expected the batch leg to spend the merged 200, got %s", total)
		}
	})
}

func TestRoutedValidation(t *testing.T) {
	t.Run("missing route configuration", func(t *testing.T) {
		m := newMarketFixture()
		f := m.sellArgs(t, 1)
		f.AmountIn = nil
		f.Cross = nil

		err := m.run(func(u arbvm.Unit) error {
			_, err := m.e.BuyRouted(u, f, arbvm.RouteParams{
				AmountIn:           big.NewInt(100),
				MinIntermediaryOut: big.NewInt(0),
				MinFinalOut:        big.NewInt(0),
			})
			return err
		})
		if err == nil || err.Error() != "arbvm: no fixed route configured" {
			t.Errorf("Expected the missing-route error, got %v", err)
		}
	})

	t.Run("cross batch rejected on routed flows", func(t *testing.T) {
		r := newRoutedFixture(5000)
		f := r.sellArgs(t, 100)

		err := r.run(func(u arbvm.Unit) error {
			_, err := r.e.SellRouted(u, f, arbvm.RouteParams{
				AmountIn:           big.NewInt(100),
				MinIntermediaryOut: big.NewInt(0),
				MinFinalOut:        big.NewInt(0),
			})
			return err
		})
		if err == nil || err.Error() != "arbvm: routed flows take route parameters, not a cross batch" {
			t.Errorf("Expected the cross-batch rejection, got %v", err)
		}
	})

	t.Run("route params validated", func(t *testing.T) {
		r := newRoutedFixture(5000)
		f := r.routedArgs(t, true)

		err := r.run(func(u arbvm.Unit) error {
			_, err := r.e.BuyRouted(u, f, arbvm.RouteParams{})
			return err
		})
		if err == nil || err.Error() != "arbvm: route amount in must be positive" {
			t.Errorf("Expected the route sizing error, got %v", err)
		}
	})
}

func TestVenueDeadlineDiscipline(t *testing.T) {
	t.Run("hop venue rejects the unbounded sentinel", func(t *testing.T) {
		r := newRoutedFixture(5000)
		r.hop.SetPrice(r.inter.Address(), r.composite.Address(), 1, 1)
		r.inter.Mint(accountAddr, big.NewInt(100))

		data, err := arbvm.HopVenueABI.Pack("swapExactTokensForTokens",
			big.NewInt(10), big.NewInt(0),
			[]common.Address{r.inter.Address(), r.composite.Address()},
			accountAddr, arbvm.MaxUint256,
		)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		err = r.run(func(u arbvm.Unit) error {
			_, err := r.e.ExecuteOne(u, r.hop.Address(), data)
			return err
		})
		if !errors.Is(err, arbvm.ErrSubCallFailed) {
			t.Errorf("Expected the hop venue to reject the sentinel, got %v", err)
		}
	})

	t.Run("batch venue rejects a finite deadline", func(t *testing.T) {
		r := newRoutedFixture(5000)
		r.bindPools(r.collateral, r.inter, 1, 1, 1, 1)

		data, err := arbvm.BatchVenueABI.Pack("batchSwap",
			uint8(0),
			[]struct {
				PoolId        [32]byte
				AssetInIndex  *big.Int
				AssetOutIndex *big.Int
				Amount        *big.Int
				UserData      []byte
			}{{PoolId: poolA, AssetInIndex: big.NewInt(0), AssetOutIndex: big.NewInt(1), Amount: big.NewInt(10), UserData: []byte{}}},
			[]common.Address{r.collateral.Address(), r.inter.Address()},
			struct {
				Sender              common.Address
				FromInternalBalance bool
				Recipient           common.Address
				ToInternalBalance   bool
			}{Sender: accountAddr, Recipient: accountAddr},
			[]*big.Int{big.NewInt(10), big.NewInt(0)},
			big.NewInt(9_999_999_999),
		)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		err = r.run(func(u arbvm.Unit) error {
			_, err := r.e.ExecuteOne(u, r.vault.Address(), data)
			return err
		})
		if !errors.Is(err, arbvm.ErrSubCallFailed) {
			t.Errorf("Expected the batch venue to reject a finite deadline, got %v", err)
		}
	})
}
