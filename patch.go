package arbvm

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"
)

const (
	// WordSize is the width of one ABI-encoded word.
	WordSize = 32

	// selectorSize is the width of the method selector prefixing calldata.
	selectorSize = 4

	// NoOffset marks an absent word offset.
	NoOffset = -1

	// NoPatch marks a batch with no patched slot.
	NoPatch = -1

	// BpsDenominator is the basis-point scale for tolerance floors.
	BpsDenominator = 10_000
)

var bpsDen = big.NewInt(BpsDenominator)

// PatchSpec locates the amount and min-out words inside a prebuilt payload.
type PatchSpec struct {
	// AmountOffset is the byte offset of the amount word.
	AmountOffset int

	// MinOutOffset is the byte offset of the minimum-output word. NoOffset
	// leaves that word untouched.
	MinOutOffset int

	// ToleranceBps discounts the amount to derive a floor when the caller
	// supplies a zero minimum output. Must be in [0, BpsDenominator].
	ToleranceBps int

	// Method, when set, is the call shape the patched payload must still
	// unpack against.
	Method *abi.Method
}

// ToleranceFloor returns amount discounted by bps basis points, rounded
// down. bps must be in [0, BpsDenominator].
func ToleranceFloor(amount *big.Int, bps int) *big.Int {
	keep := big.NewInt(int64(BpsDenominator - bps))
	f := new(big.Int).Mul(amount, keep)
	return f.Quo(f, bpsDen)
}

// PatchAmounts rewrites the amount word, and optionally the min-out word, of
// a prebuilt call payload. The input payload is never mutated; the patched
// copy is returned together with the effective minimum output: minOut as
// given, or the tolerance floor derived from amount when minOut is zero and
// a min-out offset is set.
func PatchAmounts(payload []byte, spec PatchSpec, amount, minOut *big.Int) ([]byte, *big.Int, error) {
	if spec.ToleranceBps < 0 || spec.ToleranceBps > BpsDenominator {
		return nil, nil, &OffsetError{Field: "toleranceBps", Offset: spec.ToleranceBps, Bound: BpsDenominator}
	}
	if err := checkWordOffset("amountOffset", spec.AmountOffset, len(payload)); err != nil {
		return nil, nil, err
	}
	if spec.MinOutOffset != NoOffset {
		if err := checkWordOffset("minOutOffset", spec.MinOutOffset, len(payload)); err != nil {
			return nil, nil, err
		}
	}

	patched := make([]byte, len(payload))
	copy(patched, payload)

	if err := writeWord(patched, spec.AmountOffset, amount); err != nil {
		return nil, nil, err
	}

	effective := minOut
	if spec.MinOutOffset != NoOffset {
		if minOut.Sign() == 0 {
			effective = ToleranceFloor(amount, spec.ToleranceBps)
		}
		if err := writeWord(patched, spec.MinOutOffset, effective); err != nil {
			return nil, nil, err
		}
	}

	if spec.Method != nil {
		if err := checkShape(patched, spec.Method); err != nil {
			return nil, nil, err
		}
	}
	return patched, effective, nil
}

// checkWordOffset verifies a 32-byte word at offset lies fully inside a
// payload of length n.
func checkWordOffset(field string, offset, n int) error {
	if offset < 0 || offset+WordSize > n {
		return &OffsetError{Field: field, Offset: offset, Bound: n}
	}
	return nil
}

// writeWord overwrites one 32-byte word in place with the big-endian value.
func writeWord(payload []byte, offset int, v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("arbvm: word value must be a non-negative integer")
	}
	word, overflow := uint256.FromBig(v)
	if overflow {
		return fmt.Errorf("arbvm: word value %s exceeds 256 bits", v)
	}
	b := word.Bytes32()
	copy(payload[offset:offset+WordSize], b[:])
	return nil
}

// checkShape verifies a patched payload still carries the method's selector
// and unpacks against its inputs.
func checkShape(payload []byte, method *abi.Method) error {
	if len(payload) < selectorSize || !bytes.Equal(payload[:selectorSize], method.ID) {
		return fmt.Errorf("arbvm: patched payload does not carry the %s selector: %w", method.Name, ErrOffsetOutOfBounds)
	}
	if _, err := method.Inputs.Unpack(payload[selectorSize:]); err != nil {
		return fmt.Errorf("arbvm: patched %s payload no longer unpacks: %w", method.Name, ErrOffsetOutOfBounds)
	}
	return nil
}
