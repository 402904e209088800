package arbvm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// MaxUint256 is the largest 256-bit word. It doubles as the maximal
// allowance sentinel and as the far-future deadline the batch venue accepts.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// hopDeadline is the fixed far timestamp the single-hop venue accepts; that
// venue rejects the 2^256-1 sentinel outright.
var hopDeadline = big.NewInt(9_999_999_999)

// singleSwapParams mirrors the conditional venue's exact-input tuple.
type singleSwapParams struct {
	TokenIn          common.Address
	TokenOut         common.Address
	Recipient        common.Address
	Deadline         *big.Int
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
	LimitSqrtPrice   *big.Int
}

// singleSwapOutParams mirrors the conditional venue's exact-output tuple.
type singleSwapOutParams struct {
	TokenIn         common.Address
	TokenOut        common.Address
	Recipient       common.Address
	Deadline        *big.Int
	AmountOut       *big.Int
	AmountInMaximum *big.Int
	LimitSqrtPrice  *big.Int
}

// batchStep is one branch of a multi-branch batch venue swap.
type batchStep struct {
	PoolId        [32]byte
	AssetInIndex  *big.Int
	AssetOutIndex *big.Int
	Amount        *big.Int
	UserData      []byte
}

// batchFunds routes batch venue settlement to external balances of one
// account on both sides.
type batchFunds struct {
	Sender              common.Address
	FromInternalBalance bool
	Recipient           common.Address
	ToInternalBalance   bool
}

// givenIn is the batch venue's exact-input swap kind.
const givenIn = uint8(0)

// mustPack encodes a call against one of the package ABIs. The ABIs and
// argument types are fixed at compile time, so a failure is a bug in this
// package.
func mustPack(a abi.ABI, name string, args ...any) []byte {
	data, err := a.Pack(name, args...)
	if err != nil {
		panic(fmt.Sprintf("arbvm: pack %s: %v", name, err))
	}
	return data
}

// encodeExactInputSingle builds an exact-input swap against the conditional
// venue with the far-future deadline sentinel.
func encodeExactInputSingle(tokenIn, tokenOut, recipient common.Address, amountIn, minOut *big.Int) []byte {
	return mustPack(SwapVenueABI, "exactInputSingle", singleSwapParams{
		TokenIn:          tokenIn,
		TokenOut:         tokenOut,
		Recipient:        recipient,
		Deadline:         MaxUint256,
		AmountIn:         amountIn,
		AmountOutMinimum: minOut,
		LimitSqrtPrice:   big.NewInt(0),
	})
}

// encodeExactOutputSingle builds an exact-output swap against the
// conditional venue with the far-future deadline sentinel.
func encodeExactOutputSingle(tokenIn, tokenOut, recipient common.Address, amountOut, maxIn *big.Int) []byte {
	return mustPack(SwapVenueABI, "exactOutputSingle", singleSwapOutParams{
		TokenIn:         tokenIn,
		TokenOut:        tokenOut,
		Recipient:       recipient,
		Deadline:        MaxUint256,
		AmountOut:       amountOut,
		AmountInMaximum: maxIn,
		LimitSqrtPrice:  big.NewInt(0),
	})
}

// encodeSplit builds the splitter's decompose call.
func encodeSplit(market, token common.Address, amount *big.Int) []byte {
	return mustPack(SplitterABI, "splitPosition", market, token, amount)
}

// encodeMerge builds the splitter's recompose call.
func encodeMerge(market, token common.Address, amount *big.Int) []byte {
	return mustPack(SplitterABI, "mergePositions", market, token, amount)
}

// isDynamicType reports whether an ABI type has variable-length encoding.
func isDynamicType(t abi.Type) bool {
	switch t.T {
	case abi.StringTy, abi.BytesTy, abi.SliceTy:
		return true
	case abi.ArrayTy:
		return isDynamicType(*t.Elem)
	case abi.TupleTy:
		for _, elem := range t.TupleElems {
			if isDynamicType(*elem) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// headSize returns the number of bytes a type occupies in the head section
// of ABI calldata. Dynamic types occupy one pointer word.
func headSize(t abi.Type) int {
	if isDynamicType(t) {
		return WordSize
	}
	switch t.T {
	case abi.ArrayTy:
		return t.Size * headSize(*t.Elem)
	case abi.TupleTy:
		n := 0
		for _, elem := range t.TupleElems {
			n += headSize(*elem)
		}
		return n
	default:
		return WordSize
	}
}

// ArgumentOffset returns the byte offset of a method argument's word within
// calldata encoded for the method (4-byte selector plus 32-byte head words).
// The argument must be a single-word static type: patching the pointer word
// of a dynamic argument corrupts the payload.
func ArgumentOffset(method abi.Method, index int) (int, error) {
	if index < 0 || index >= len(method.Inputs) {
		return 0, &OffsetError{Field: "argument index", Offset: index, Bound: len(method.Inputs)}
	}
	off := selectorSize
	for i := 0; i < index; i++ {
		off += headSize(method.Inputs[i].Type)
	}
	t := method.Inputs[index].Type
	if isDynamicType(t) || headSize(t) != WordSize {
		return 0, fmt.Errorf("arbvm: argument %d of %s is not a single static word", index, method.Name)
	}
	return off, nil
}

// MustArgumentOffset is like ArgumentOffset but panics on error.
func MustArgumentOffset(method abi.Method, index int) int {
	off, err := ArgumentOffset(method, index)
	if err != nil {
		panic(err)
	}
	return off
}

// TupleFieldOffset returns the byte offset of one field of a static tuple
// argument. The field must be a single-word static type.
func TupleFieldOffset(method abi.Method, argIndex, fieldIndex int) (int, error) {
	if argIndex < 0 || argIndex >= len(method.Inputs) {
		return 0, &OffsetError{Field: "argument index", Offset: argIndex, Bound: len(method.Inputs)}
	}
	t := method.Inputs[argIndex].Type
	if t.T != abi.TupleTy || isDynamicType(t) {
		return 0, fmt.Errorf("arbvm: argument %d of %s is not a static tuple", argIndex, method.Name)
	}
	if fieldIndex < 0 || fieldIndex >= len(t.TupleElems) {
		return 0, &OffsetError{Field: "tuple field index", Offset: fieldIndex, Bound: len(t.TupleElems)}
	}
	off := selectorSize
	for i := 0; i < argIndex; i++ {
		off += headSize(method.Inputs[i].Type)
	}
	for i := 0; i < fieldIndex; i++ {
		off += headSize(*t.TupleElems[i])
	}
	if headSize(*t.TupleElems[fieldIndex]) != WordSize {
		return 0, fmt.Errorf("arbvm: field %d of argument %d of %s is not a single static word", fieldIndex, argIndex, method.Name)
	}
	return off, nil
}

// MustTupleFieldOffset is like TupleFieldOffset but panics on error.
func MustTupleFieldOffset(method abi.Method, argIndex, fieldIndex int) int {
	off, err := TupleFieldOffset(method, argIndex, fieldIndex)
	if err != nil {
		panic(err)
	}
	return off
}
