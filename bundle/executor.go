package bundle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
)

// ExecutorABIJSON is the on-chain executor's trade surface. The argument
// tuples mirror the engine's flow arguments field for field.
const ExecutorABIJSON = `[
	{
		"name": "buyComposite",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{
				"name": "args",
				"type": "tuple",
				"components": [
					{
						"name": "tokens",
						"type": "tuple",
						"components": [
							{"name": "collateral", "type": "address"},
							{"name": "composite", "type": "address"},
							{"name": "compositeYes", "type": "address"},
							{"name": "compositeNo", "type": "address"},
							{"name": "collateralYes", "type": "address"},
							{"name": "collateralNo", "type": "address"}
						]
					},
					{"name": "splitter", "type": "address"},
					{"name": "market", "type": "address"},
					{"name": "amountIn", "type": "uint256"},
					{
						"name": "cross",
						"type": "tuple",
						"components": [
							{
								"name": "items",
								"type": "tuple[10]",
								"components": [
									{"name": "target", "type": "address"},
									{"name": "payload", "type": "bytes"}
								]
							},
							{"name": "count", "type": "uint8"},
							{"name": "tokenIn", "type": "address"},
							{"name": "tokenOut", "type": "address"},
							{"name": "spender", "type": "address"},
							{"name": "amountIn", "type": "uint256"},
							{"name": "minOut", "type": "uint256"},
							{"name": "patchIndex", "type": "int8"},
							{"name": "amountOffset", "type": "uint32"},
							{"name": "minOutOffset", "type": "int32"},
							{"name": "toleranceBps", "type": "uint16"}
						]
					},
					{
						"name": "yesSwap",
						"type": "tuple",
						"components": [
							{"name": "router", "type": "address"},
							{"name": "callData", "type": "bytes"},
							{"name": "spender", "type": "address"},
							{"name": "delegated", "type": "bool"},
							{"name": "minOut", "type": "uint256"},
							{"name": "amountOffset", "type": "uint32"},
							{"name": "minOutOffset", "type": "int32"},
							{"name": "toleranceBps", "type": "uint16"}
						]
					},
					{
						"name": "noSwap",
						"type": "tuple",
						"components": [
							{"name": "router", "type": "address"},
							{"name": "callData", "type": "bytes"},
							{"name": "spender", "type": "address"},
							{"name": "delegated", "type": "bool"},
							{"name": "minOut", "type": "uint256"},
							{"name": "amountOffset", "type": "uint32"},
							{"name": "minOutOffset", "type": "int32"},
							{"name": "toleranceBps", "type": "uint16"}
						]
					},
					{
						"name": "liquidation",
						"type": "tuple",
						"components": [
							{"name": "venue", "type": "address"},
							{"name": "directYes", "type": "bool"},
							{"name": "directNo", "type": "bool"},
							{"name": "splitBps", "type": "uint16"},
							{"name": "toleranceBps", "type": "uint16"}
						]
					},
					{"name": "minNetProfit", "type": "int256"}
				]
			}
		],
		"outputs": [
			{"name": "netProfit", "type": "int256"}
		]
	},
	{
		"name": "sellComposite",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{
				"name": "args",
				"type": "tuple",
				"components": [
					{
						"name": "tokens",
						"type": "tuple",
						"components": [
							{"name": "collateral", "type": "address"},
							{"name": "composite", "type": "address"},
							{"name": "compositeYes", "type": "address"},
							{"name": "compositeNo", "type": "address"},
							{"name": "collateralYes", "type": "address"},
							{"name": "collateralNo", "type": "address"}
						]
					},
					{"name": "splitter", "type": "address"},
					{"name": "market", "type": "address"},
					{"name": "amountIn", "type": "uint256"},
					{
						"name": "cross",
						"type": "tuple",
						"components": [
							{
								"name": "items",
								"type": "tuple[10]",
								"components": [
									{"name": "target", "type": "address"},
									{"name": "payload", "type": "bytes"}
								]
							},
							{"name": "count", "type": "uint8"},
							{"name": "tokenIn", "type": "address"},
							{"name": "tokenOut", "type": "address"},
							{"name": "spender", "type": "address"},
							{"name": "amountIn", "type": "uint256"},
							{"name": "minOut", "type": "uint256"},
							{"name": "patchIndex", "type": "int8"},
							{"name": "amountOffset", "type": "uint32"},
							{"name": "minOutOffset", "type": "int32"},
							{"name": "toleranceBps", "type": "uint16"}
						]
					},
					{
						"name": "yesSwap",
						"type": "tuple",
						"components": [
							{"name": "router", "type": "address"},
							{"name": "callData", "type": "bytes"},
							{"name": "spender", "type": "address"},
							{"name": "delegated", "type": "bool"},
							{"name": "minOut", "type": "uint256"},
							{"name": "amountOffset", "type": "uint32"},
							{"name": "minOutOffset", "type": "int32"},
							{"name": "toleranceBps", "type": "uint16"}
						]
					},
					{
						"name": "noSwap",
						"type": "tuple",
						"components": [
							{"name": "router", "type": "address"},
							{"name": "callData", "type": "bytes"},
							{"name": "spender", "type": "address"},
							{"name": "delegated", "type": "bool"},
							{"name": "minOut", "type": "uint256"},
							{"name": "amountOffset", "type": "uint32"},
							{"name": "minOutOffset", "type": "int32"},
							{"name": "toleranceBps", "type": "uint16"}
						]
					},
					{
						"name": "liquidation",
						"type": "tuple",
						"components": [
							{"name": "venue", "type": "address"},
							{"name": "directYes", "type": "bool"},
							{"name": "directNo", "type": "bool"},
							{"name": "splitBps", "type": "uint16"},
							{"name": "toleranceBps", "type": "uint16"}
						]
					},
					{"name": "minNetProfit", "type": "int256"}
				]
			}
		],
		"outputs": [
			{"name": "netProfit", "type": "int256"}
		]
	}
]`

// ExecutorABI is the parsed executor surface.
var ExecutorABI = arbvm.MustParseABI(ExecutorABIJSON)

type abiTokens struct {
	Collateral    common.Address
	Composite     common.Address
	CompositeYes  common.Address
	CompositeNo   common.Address
	CollateralYes common.Address
	CollateralNo  common.Address
}

type abiItem struct {
	Target  common.Address
	Payload []byte
}

type abiBatch struct {
	Items        [10]abiItem
	Count        uint8
	TokenIn      common.Address
	TokenOut     common.Address
	Spender      common.Address
	AmountIn     *big.Int
	MinOut       *big.Int
	PatchIndex   int8
	AmountOffset uint32
	MinOutOffset int32
	ToleranceBps uint16
}

type abiSwap struct {
	Router       common.Address
	CallData     []byte
	Spender      common.Address
	Delegated    bool
	MinOut       *big.Int
	AmountOffset uint32
	MinOutOffset int32
	ToleranceBps uint16
}

type abiLiquidation struct {
	Venue        common.Address
	DirectYes    bool
	DirectNo     bool
	SplitBps     uint16
	ToleranceBps uint16
}

type abiFlowArgs struct {
	Tokens       abiTokens
	Splitter     common.Address
	Market       common.Address
	AmountIn     *big.Int
	Cross        abiBatch
	YesSwap      abiSwap
	NoSwap       abiSwap
	Liquidation  abiLiquidation
	MinNetProfit *big.Int
}

// EncodeBuyComposite packs the acquire-then-decompose entry calldata.
func EncodeBuyComposite(f *arbvm.FlowArgs) ([]byte, error) {
	return encodeFlowEntry("buyComposite", f)
}

// EncodeSellComposite packs the decompose-then-cross entry calldata.
func EncodeSellComposite(f *arbvm.FlowArgs) ([]byte, error) {
	return encodeFlowEntry("sellComposite", f)
}

// BuyCompositeCall builds the flow entry sub-call against the executor.
func BuyCompositeCall(executor common.Address, f *arbvm.FlowArgs) (Call, error) {
	input, err := EncodeBuyComposite(f)
	if err != nil {
		return Call{}, err
	}
	return Call{Target: executor, Value: big.NewInt(0), Input: input}, nil
}

// SellCompositeCall builds the flow entry sub-call against the executor.
func SellCompositeCall(executor common.Address, f *arbvm.FlowArgs) (Call, error) {
	input, err := EncodeSellComposite(f)
	if err != nil {
		return Call{}, err
	}
	return Call{Target: executor, Value: big.NewInt(0), Input: input}, nil
}

func encodeFlowEntry(method string, f *arbvm.FlowArgs) ([]byte, error) {
	if f == nil {
		return nil, errors.New("bundle: flow args unset")
	}
	if f.AmountIn == nil || f.AmountIn.Sign() <= 0 {
		return nil, errors.New("bundle: flow amount in must be positive")
	}
	cross, err := encodeBatch(f.Cross)
	if err != nil {
		return nil, err
	}
	yes, err := encodeSwap(&f.YesSwap, "yes")
	if err != nil {
		return nil, err
	}
	no, err := encodeSwap(&f.NoSwap, "no")
	if err != nil {
		return nil, err
	}
	liq, err := encodeLiquidation(&f.Liquidation)
	if err != nil {
		return nil, err
	}
	minNet := f.MinNetProfit
	if minNet == nil {
		minNet = big.NewInt(0)
	}
	args := abiFlowArgs{
		Tokens: abiTokens{
			Collateral:    f.Tokens.Collateral,
			Composite:     f.Tokens.Composite,
			CompositeYes:  f.Tokens.CompositeYes,
			CompositeNo:   f.Tokens.CompositeNo,
			CollateralYes: f.Tokens.CollateralYes,
			CollateralNo:  f.Tokens.CollateralNo,
		},
		Splitter: f.Splitter,
		Market:   f.Market,
		AmountIn: f.AmountIn,
		Cross:        cross,
		YesSwap:      yes,
		NoSwap:       no,
		Liquidation:  liq,
		MinNetProfit: minNet,
	}
	data, err := ExecutorABI.Pack(method, args)
	if err != nil {
		return nil, fmt.Errorf("bundle: pack %s: %w", method, err)
	}
	return data, nil
}

func encodeBatch(b *arbvm.Batch) (abiBatch, error) {
	if b == nil {
		return abiBatch{}, errors.New("bundle: flow cross batch unset")
	}
	if err := b.Validate(); err != nil {
		return abiBatch{}, err
	}
	out := abiBatch{
		Count:        uint8(b.Count),
		TokenIn:      b.TokenIn,
		TokenOut:     b.TokenOut,
		Spender:      b.Spender,
		AmountIn:     b.AmountIn,
		MinOut:       b.MinOut,
		PatchIndex:   int8(b.PatchIndex),
		MinOutOffset: -1,
	}
	for i := range out.Items {
		out.Items[i].Payload = []byte{}
	}
	for i := 0; i < b.Count; i++ {
		out.Items[i] = abiItem{Target: b.Items[i].Target, Payload: b.Items[i].Payload}
	}
	if b.PatchIndex != arbvm.NoPatch {
		out.AmountOffset = uint32(b.AmountOffset)
		out.MinOutOffset = int32(b.MinOutOffset)
		out.ToleranceBps = uint16(b.ToleranceBps)
	}
	return out, nil
}

func encodeSwap(s *arbvm.LegSwap, side string) (abiSwap, error) {
	if s.Router == (common.Address{}) {
		return abiSwap{}, fmt.Errorf("bundle: %s swap router unset", side)
	}
	if s.ToleranceBps < 0 || s.ToleranceBps > arbvm.BpsDenominator {
		return abiSwap{}, fmt.Errorf("bundle: %s swap tolerance %d beyond the basis-point scale", side, s.ToleranceBps)
	}
	if s.AmountOffset < 0 || s.AmountOffset+arbvm.WordSize > len(s.CallData) {
		return abiSwap{}, fmt.Errorf("bundle: %s swap amount offset %d outside the calldata", side, s.AmountOffset)
	}
	if s.MinOutOffset != arbvm.NoOffset && (s.MinOutOffset < 0 || s.MinOutOffset+arbvm.WordSize > len(s.CallData)) {
		return abiSwap{}, fmt.Errorf("bundle: %s swap min-out offset %d outside the calldata", side, s.MinOutOffset)
	}
	minOut := s.MinOut
	if minOut == nil {
		minOut = big.NewInt(0)
	}
	callData := s.CallData
	if callData == nil {
		callData = []byte{}
	}
	return abiSwap{
		Router:       s.Router,
		CallData:     callData,
		Spender:      s.Spender,
		Delegated:    s.Delegated,
		MinOut:       minOut,
		AmountOffset: uint32(s.AmountOffset),
		MinOutOffset: int32(s.MinOutOffset),
		ToleranceBps: uint16(s.ToleranceBps),
	}, nil
}

func encodeLiquidation(p *arbvm.LiquidationPlan) (abiLiquidation, error) {
	if p.Venue == (common.Address{}) {
		return abiLiquidation{}, errors.New("bundle: liquidation venue unset")
	}
	if p.SplitBps < 0 || p.SplitBps > arbvm.BpsDenominator {
		return abiLiquidation{}, fmt.Errorf("bundle: liquidation splitBps %d beyond the basis-point scale", p.SplitBps)
	}
	if p.ToleranceBps < 0 || p.ToleranceBps > arbvm.BpsDenominator {
		return abiLiquidation{}, fmt.Errorf("bundle: liquidation toleranceBps %d beyond the basis-point scale", p.ToleranceBps)
	}
	return abiLiquidation{
		Venue:        p.Venue,
		DirectYes:    p.DirectYes,
		DirectNo:     p.DirectNo,
		SplitBps:     uint16(p.SplitBps),
		ToleranceBps: uint16(p.ToleranceBps),
	}, nil
}
