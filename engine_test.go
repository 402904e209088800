package arbvm_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
	"github.com/branched-services/go-arbvm/simhost"
)

func TestTransferControl(t *testing.T) {
	next := common.HexToAddress("0x00000000000000000000000000000000000000c2")

	t.Run("hands the role to the new controller", func(t *testing.T) {
		f := newPairFixture(1, 1)
		err := f.run(func(u arbvm.Unit) error {
			return f.e.TransferControl(u, next)
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if f.e.Controller() != next {
			t.Errorf("Expected controller %s, got %s", next.Hex(), f.e.Controller().Hex())
		}

		// The old controller is locked out from the next unit on.
		err = f.run(func(u arbvm.Unit) error {
			_, err := f.e.Sweep(u, f.collateral.Address(), strangerAddr)
			return err
		})
		if !errors.Is(err, arbvm.ErrPermissionDenied) {
			t.Errorf("Expected ErrPermissionDenied for the old controller, got %v", err)
		}
	})

	t.Run("zero address rejected", func(t *testing.T) {
		f := newPairFixture(1, 1)
		err := f.run(func(u arbvm.Unit) error {
			return f.e.TransferControl(u, common.Address{})
		})
		if err == nil || err.Error() != "arbvm: new controller is the zero address" {
			t.Errorf("Expected the zero-address rejection, got %v", err)
		}
		if f.e.Controller() != controllerAddr {
			t.Errorf("Expected controller unchanged, got %s", f.e.Controller().Hex())
		}
	})

	t.Run("controller gate enforced", func(t *testing.T) {
		f := newPairFixture(1, 1)
		f.h.SetCaller(strangerAddr)
		err := f.run(func(u arbvm.Unit) error {
			return f.e.TransferControl(u, next)
		})
		if !errors.Is(err, arbvm.ErrPermissionDenied) {
			t.Errorf("Expected ErrPermissionDenied, got %v", err)
		}
	})
}

func TestSweep(t *testing.T) {
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000b1")

	t.Run("moves the full balance", func(t *testing.T) {
		f := newPairFixture(1, 1)

		var moved *big.Int
		err := f.run(func(u arbvm.Unit) error {
			var err error
			moved, err = f.e.Sweep(u, f.collateral.Address(), recipient)
			return err
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if moved.Int64() != 1000 {
			t.Errorf("Expected 1000 moved, got %s", moved)
		}
		if bal := f.collateral.BalanceOf(accountAddr); bal.Sign() != 0 {
			t.Errorf("Expected the account emptied, got %s", bal)
		}
		if bal := f.collateral.BalanceOf(recipient); bal.Int64() != 1000 {
			t.Errorf("Expected the recipient credited 1000, got %s", bal)
		}
	})

	t.Run("empty balance dispatches no transfer", func(t *testing.T) {
		f := newPairFixture(1, 1)

		var moved *big.Int
		err := f.run(func(u arbvm.Unit) error {
			var err error
			moved, err = f.e.Sweep(u, f.composite.Address(), recipient)
			return err
		})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if moved.Sign() != 0 {
			t.Errorf("Expected zero moved, got %s", moved)
		}
		// One balanceOf read, no transfer.
		if n := f.h.Calls(f.composite.Address()); n != 1 {
			t.Errorf("Expected a single read, got %d calls", n)
		}
	})

	t.Run("explicit transfer refusal fails the unit", func(t *testing.T) {
		f := newPairFixture(1, 1)
		refusing := f.h.DeployToken("refusing", simhost.FailTransfers())
		refusing.Mint(accountAddr, big.NewInt(5))

		err := f.run(func(u arbvm.Unit) error {
			_, err := f.e.Sweep(u, refusing.Address(), recipient)
			return err
		})
		if err == nil {
			t.Fatal("Expected the refused transfer to fail the sweep")
		}
		if bal := refusing.BalanceOf(accountAddr); bal.Int64() != 5 {
			t.Errorf("Expected the balance restored, got %s", bal)
		}
	})

	t.Run("controller gate enforced", func(t *testing.T) {
		f := newPairFixture(1, 1)
		f.h.SetCaller(strangerAddr)
		err := f.run(func(u arbvm.Unit) error {
			_, err := f.e.Sweep(u, f.collateral.Address(), recipient)
			return err
		})
		if !errors.Is(err, arbvm.ErrPermissionDenied) {
			t.Errorf("Expected ErrPermissionDenied, got %v", err)
		}
		if bal := f.collateral.BalanceOf(accountAddr); bal.Int64() != 1000 {
			t.Errorf("Expected the balance untouched, got %s", bal)
		}
	})
}
