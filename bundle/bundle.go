// Package bundle assembles delegated atomic operations off-box: the call
// list a delegated account executes, the signed set-code authorization
// designating its logic body, and the wrapping transaction. Submission is
// left to the transport layer.
package bundle

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
)

// Call is one delegated sub-call.
type Call struct {
	Target common.Address
	Value  *big.Int
	Input  []byte
}

// ApproveCall builds an ERC20 approval grant.
func ApproveCall(token, spender common.Address, amount *big.Int) Call {
	input, err := arbvm.ERC20ABI.Pack("approve", spender, amount)
	if err != nil {
		panic(fmt.Sprintf("bundle: pack approve: %v", err))
	}
	return Call{Target: token, Value: big.NewInt(0), Input: input}
}

// GrantCalls builds the zero-then-max approval pair for one venue, the
// same reset discipline the engine applies on-box.
func GrantCalls(token, spender common.Address) []Call {
	return []Call{
		ApproveCall(token, spender, big.NewInt(0)),
		ApproveCall(token, spender, arbvm.MaxUint256),
	}
}

// DelegateABIJSON is the logic body's entry surface: one call executing a
// list of sub-calls atomically.
const DelegateABIJSON = `[
	{
		"name": "execute",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{
				"name": "calls",
				"type": "tuple[]",
				"components": [
					{"name": "target", "type": "address"},
					{"name": "value", "type": "uint256"},
					{"name": "data", "type": "bytes"}
				]
			}
		],
		"outputs": [
			{"name": "results", "type": "bytes[]"}
		]
	}
]`

// DelegateABI is the parsed delegate surface.
var DelegateABI = arbvm.MustParseABI(DelegateABIJSON)

type delegateCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// PackExecute encodes the delegate entry wrapping calls.
func PackExecute(calls []Call) ([]byte, error) {
	enc := make([]delegateCall, len(calls))
	for i, c := range calls {
		v := c.Value
		if v == nil {
			v = big.NewInt(0)
		} else if v.Sign() < 0 {
			return nil, fmt.Errorf("bundle: call %d has a negative value", i)
		}
		input := c.Input
		if input == nil {
			input = []byte{}
		}
		enc[i] = delegateCall{Target: c.Target, Value: v, Data: input}
	}
	data, err := DelegateABI.Pack("execute", enc)
	if err != nil {
		return nil, fmt.Errorf("bundle: pack execute: %w", err)
	}
	return data, nil
}
