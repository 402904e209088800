package arbvm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// BatchCapacity is the fixed number of call slots in a Batch.
const BatchCapacity = 10

// BatchItem is one prebuilt call in a batch.
type BatchItem struct {
	Target  common.Address
	Payload []byte
}

// Batch is a fixed-capacity ordered list of calls that together move TokenIn
// into TokenOut. Slots beyond Count are ignored. At most one slot, named by
// PatchIndex, has its amount and min-out words rewritten at execution time;
// the executor asserts an exact spend of the amount used and a minimum
// receipt of the effective floor.
//
// The zero value is not usable; construct batches with NewBatch so the patch
// fields carry their absent sentinels.
type Batch struct {
	Items [BatchCapacity]BatchItem
	Count int

	TokenIn  common.Address
	TokenOut common.Address

	// Spender receives the TokenIn allowance grant before dispatch.
	Spender common.Address

	// AmountIn is the declared spend, replaced at execution time by a
	// nonzero override.
	AmountIn *big.Int

	// MinOut is the declared receipt floor. Zero with a set MinOutOffset
	// means the floor is derived from the amount used and ToleranceBps.
	MinOut *big.Int

	// PatchIndex names the slot to patch, or NoPatch.
	PatchIndex int

	// AmountOffset and MinOutOffset locate the words to rewrite inside the
	// patched slot's payload. MinOutOffset may be NoOffset.
	AmountOffset int
	MinOutOffset int

	ToleranceBps int

	// PatchMethod, when set, is the call shape the patched payload must
	// still unpack against.
	PatchMethod *abi.Method
}

// NewBatch returns an empty batch moving TokenIn into TokenOut with no
// patched slot.
func NewBatch(tokenIn, tokenOut, spender common.Address, amountIn, minOut *big.Int) *Batch {
	return &Batch{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		Spender:      spender,
		AmountIn:     amountIn,
		MinOut:       minOut,
		PatchIndex:   NoPatch,
		AmountOffset: NoOffset,
		MinOutOffset: NoOffset,
	}
}

// Append adds one call to the next free slot.
func (b *Batch) Append(target common.Address, payload []byte) error {
	if b.Count >= BatchCapacity {
		return &OffsetError{Field: "count", Offset: b.Count + 1, Bound: BatchCapacity}
	}
	b.Items[b.Count] = BatchItem{Target: target, Payload: payload}
	b.Count++
	return nil
}

// MustAppend is like Append but panics on error.
func (b *Batch) MustAppend(target common.Address, payload []byte) {
	if err := b.Append(target, payload); err != nil {
		panic(err)
	}
}

// SetPatch marks the slot whose payload receives the runtime amount and
// min-out words.
func (b *Batch) SetPatch(index, amountOffset, minOutOffset, toleranceBps int) {
	b.PatchIndex = index
	b.AmountOffset = amountOffset
	b.MinOutOffset = minOutOffset
	b.ToleranceBps = toleranceBps
}

// Validate rejects malformed batches before any dispatch: counts outside
// 1..BatchCapacity, a patch index at or beyond the count, patch words not
// fully inside the patched payload, tolerances beyond the basis-point scale,
// and unset tokens or amounts.
func (b *Batch) Validate() error {
	if b.Count < 1 || b.Count > BatchCapacity {
		return &OffsetError{Field: "count", Offset: b.Count, Bound: BatchCapacity}
	}
	if b.TokenIn == (common.Address{}) {
		return errors.New("arbvm: batch input token unset")
	}
	if b.TokenOut == (common.Address{}) {
		return errors.New("arbvm: batch output token unset")
	}
	if b.Spender == (common.Address{}) {
		return errors.New("arbvm: batch spender unset")
	}
	if b.AmountIn == nil || b.AmountIn.Sign() < 0 {
		return errors.New("arbvm: batch amount in must be a non-negative integer")
	}
	if b.MinOut == nil || b.MinOut.Sign() < 0 {
		return errors.New("arbvm: batch min out must be a non-negative integer")
	}
	if b.ToleranceBps < 0 || b.ToleranceBps > BpsDenominator {
		return &OffsetError{Field: "toleranceBps", Offset: b.ToleranceBps, Bound: BpsDenominator}
	}
	if b.PatchIndex == NoPatch {
		return nil
	}
	if b.PatchIndex < 0 || b.PatchIndex >= b.Count {
		return &OffsetError{Field: "patchIndex", Offset: b.PatchIndex, Bound: b.Count}
	}
	payload := b.Items[b.PatchIndex].Payload
	if err := checkWordOffset("amountOffset", b.AmountOffset, len(payload)); err != nil {
		return err
	}
	if b.MinOutOffset != NoOffset {
		if err := checkWordOffset("minOutOffset", b.MinOutOffset, len(payload)); err != nil {
			return err
		}
	}
	return nil
}

// patchSpec assembles the patch description for the batch's patched slot.
func (b *Batch) patchSpec() PatchSpec {
	return PatchSpec{
		AmountOffset: b.AmountOffset,
		MinOutOffset: b.MinOutOffset,
		ToleranceBps: b.ToleranceBps,
		Method:       b.PatchMethod,
	}
}
