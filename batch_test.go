package arbvm

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testTokenIn  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testTokenOut = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testSpender  = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testTarget   = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

func validBatchForTest() *Batch {
	b := NewBatch(testTokenIn, testTokenOut, testSpender, big.NewInt(100), big.NewInt(90))
	b.MustAppend(testTarget, make([]byte, 4+3*WordSize))
	return b
}

func TestBatchAppend(t *testing.T) {
	t.Run("fills up to capacity", func(t *testing.T) {
		b := NewBatch(testTokenIn, testTokenOut, testSpender, big.NewInt(1), big.NewInt(0))
		for i := 0; i < BatchCapacity; i++ {
			if err := b.Append(testTarget, []byte{0x01, 0x02, 0x03, 0x04}); err != nil {
				t.Fatalf("Append %d failed: %v", i, err)
			}
		}
		if b.Count != BatchCapacity {
			t.Errorf("Expected count %d, got %d", BatchCapacity, b.Count)
		}
	})

	t.Run("rejects the eleventh item", func(t *testing.T) {
		b := NewBatch(testTokenIn, testTokenOut, testSpender, big.NewInt(1), big.NewInt(0))
		for i := 0; i < BatchCapacity; i++ {
			b.MustAppend(testTarget, nil)
		}
		err := b.Append(testTarget, nil)
		if !errors.Is(err, ErrOffsetOutOfBounds) {
			t.Errorf("Expected ErrOffsetOutOfBounds, got %v", err)
		}
	})

	t.Run("must append panics when full", func(t *testing.T) {
		b := NewBatch(testTokenIn, testTokenOut, testSpender, big.NewInt(1), big.NewInt(0))
		for i := 0; i < BatchCapacity; i++ {
			b.MustAppend(testTarget, nil)
		}
		defer func() {
			if recover() == nil {
				t.Error("Expected panic on overflow")
			}
		}()
		b.MustAppend(testTarget, nil)
	})
}

func TestBatchValidate(t *testing.T) {
	t.Run("valid unpatched batch", func(t *testing.T) {
		if err := validBatchForTest().Validate(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("valid patched batch", func(t *testing.T) {
		b := validBatchForTest()
		b.SetPatch(0, 4, 36, 50)
		if err := b.Validate(); err != nil {
			t.Errorf("Unexpected error: %v", err)
		}
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		b := NewBatch(testTokenIn, testTokenOut, testSpender, big.NewInt(1), big.NewInt(0))
		err := b.Validate()
		var oe *OffsetError
		if !errors.As(err, &oe) || oe.Field != "count" {
			t.Errorf("Expected count offset error, got %v", err)
		}
	})

	t.Run("patch index beyond the item count", func(t *testing.T) {
		b := NewBatch(testTokenIn, testTokenOut, testSpender, big.NewInt(1), big.NewInt(0))
		for i := 0; i < 3; i++ {
			b.MustAppend(testTarget, make([]byte, 4+WordSize))
		}
		b.SetPatch(5, 4, NoOffset, 0)
		err := b.Validate()
		if !errors.Is(err, ErrOffsetOutOfBounds) {
			t.Fatalf("Expected ErrOffsetOutOfBounds, got %v", err)
		}
		var oe *OffsetError
		if !errors.As(err, &oe) {
			t.Fatalf("Expected OffsetError, got %v", err)
		}
		if oe.Field != "patchIndex" || oe.Offset != 5 || oe.Bound != 3 {
			t.Errorf("Expected patchIndex 5 against bound 3, got %s %d against %d", oe.Field, oe.Offset, oe.Bound)
		}
	})

	t.Run("amount word outside the patched payload", func(t *testing.T) {
		b := validBatchForTest()
		b.SetPatch(0, 4+3*WordSize-10, NoOffset, 0)
		err := b.Validate()
		var oe *OffsetError
		if !errors.As(err, &oe) || oe.Field != "amountOffset" {
			t.Errorf("Expected amountOffset error, got %v", err)
		}
	})

	t.Run("min-out word outside the patched payload", func(t *testing.T) {
		b := validBatchForTest()
		b.SetPatch(0, 4, 4+3*WordSize, 0)
		err := b.Validate()
		var oe *OffsetError
		if !errors.As(err, &oe) || oe.Field != "minOutOffset" {
			t.Errorf("Expected minOutOffset error, got %v", err)
		}
	})

	t.Run("tolerance beyond the scale", func(t *testing.T) {
		b := validBatchForTest()
		b.ToleranceBps = BpsDenominator + 1
		if err := b.Validate(); !errors.Is(err, ErrOffsetOutOfBounds) {
			t.Errorf("Expected ErrOffsetOutOfBounds, got %v", err)
		}
	})

	t.Run("unset addresses rejected", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Batch)
		}{
			{"input token", func(b *Batch) { b.TokenIn = common.Address{} }},
			{"output token", func(b *Batch) { b.TokenOut = common.Address{} }},
			{"spender", func(b *Batch) { b.Spender = common.Address{} }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				b := validBatchForTest()
				tt.mutate(b)
				if err := b.Validate(); err == nil {
					t.Error("Expected error for unset address")
				}
			})
		}
	})

	t.Run("bad amounts rejected", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Batch)
		}{
			{"nil amount in", func(b *Batch) { b.AmountIn = nil }},
			{"negative amount in", func(b *Batch) { b.AmountIn = big.NewInt(-1) }},
			{"nil min out", func(b *Batch) { b.MinOut = nil }},
			{"negative min out", func(b *Batch) { b.MinOut = big.NewInt(-1) }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				b := validBatchForTest()
				tt.mutate(b)
				if err := b.Validate(); err == nil {
					t.Error("Expected error for bad amount")
				}
			})
		}
	})
}
