package arbvm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ERC-20 subset the engine touches.
const ERC20ABIJSON = `[
	{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "account", "type": "address"}
		],
		"outputs": [
			{"name": "", "type": "uint256"}
		]
	},
	{
		"name": "allowance",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"outputs": [
			{"name": "", "type": "uint256"}
		]
	},
	{
		"name": "approve",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "spender", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": [
			{"name": "", "type": "bool"}
		]
	},
	{
		"name": "transfer",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": [
			{"name": "", "type": "bool"}
		]
	},
	{
		"name": "transferFrom",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": [
			{"name": "", "type": "bool"}
		]
	}
]`

// Splitter/merger router: decomposes a parent asset into its two conditional
// legs 1:1 and recomposes matched pairs, keyed by market.
const SplitterABIJSON = `[
	{
		"name": "splitPosition",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "market", "type": "address"},
			{"name": "token", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": []
	},
	{
		"name": "mergePositions",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "market", "type": "address"},
			{"name": "token", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": []
	}
]`

// Conditional swap venue: single-hop exact-input and exact-output swaps, one
// pool per token pair, no fee tier parameter.
const SwapVenueABIJSON = `[
	{
		"name": "exactInputSingle",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{
				"name": "params",
				"type": "tuple",
				"components": [
					{"name": "tokenIn", "type": "address"},
					{"name": "tokenOut", "type": "address"},
					{"name": "recipient", "type": "address"},
					{"name": "deadline", "type": "uint256"},
					{"name": "amountIn", "type": "uint256"},
					{"name": "amountOutMinimum", "type": "uint256"},
					{"name": "limitSqrtPrice", "type": "uint160"}
				]
			}
		],
		"outputs": [
			{"name": "amountOut", "type": "uint256"}
		]
	},
	{
		"name": "exactOutputSingle",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{
				"name": "params",
				"type": "tuple",
				"components": [
					{"name": "tokenIn", "type": "address"},
					{"name": "tokenOut", "type": "address"},
					{"name": "recipient", "type": "address"},
					{"name": "deadline", "type": "uint256"},
					{"name": "amountOut", "type": "uint256"},
					{"name": "amountInMaximum", "type": "uint256"},
					{"name": "limitSqrtPrice", "type": "uint160"}
				]
			}
		],
		"outputs": [
			{"name": "amountIn", "type": "uint256"}
		]
	}
]`

// Batch swap venue: multi-branch pooled swaps settled against one shared
// vault, with signed per-asset limits.
const BatchVenueABIJSON = `[
	{
		"name": "batchSwap",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{"name": "kind", "type": "uint8"},
			{
				"name": "swaps",
				"type": "tuple[]",
				"components": [
					{"name": "poolId", "type": "bytes32"},
					{"name": "assetInIndex", "type": "uint256"},
					{"name": "assetOutIndex", "type": "uint256"},
					{"name": "amount", "type": "uint256"},
					{"name": "userData", "type": "bytes"}
				]
			},
			{"name": "assets", "type": "address[]"},
			{
				"name": "funds",
				"type": "tuple",
				"components": [
					{"name": "sender", "type": "address"},
					{"name": "fromInternalBalance", "type": "bool"},
					{"name": "recipient", "type": "address"},
					{"name": "toInternalBalance", "type": "bool"}
				]
			},
			{"name": "limits", "type": "int256[]"},
			{"name": "deadline", "type": "uint256"}
		],
		"outputs": [
			{"name": "assetDeltas", "type": "int256[]"}
		]
	}
]`

// Single-hop venue: path-based exact-input router.
const HopVenueABIJSON = `[
	{
		"name": "swapExactTokensForTokens",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "amountIn", "type": "uint256"},
			{"name": "amountOutMin", "type": "uint256"},
			{"name": "path", "type": "address[]"},
			{"name": "to", "type": "address"},
			{"name": "deadline", "type": "uint256"}
		],
		"outputs": [
			{"name": "amounts", "type": "uint256[]"}
		]
	}
]`

// Permission registry: shared delegation registry recording one
// (amount, expiration) grant per (owner, token, spender).
const RegistryABIJSON = `[
	{
		"name": "approve",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "token", "type": "address"},
			{"name": "spender", "type": "address"},
			{"name": "amount", "type": "uint160"},
			{"name": "expiration", "type": "uint48"}
		],
		"outputs": []
	},
	{
		"name": "allowance",
		"type": "function",
		"stateMutability": "view",
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "token", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"outputs": [
			{"name": "amount", "type": "uint160"},
			{"name": "expiration", "type": "uint48"},
			{"name": "nonce", "type": "uint48"}
		]
	}
]`

// Parsed ABIs shared by the engine's typed encoders and by hosts that decode
// engine calldata.
var (
	ERC20ABI      = MustParseABI(ERC20ABIJSON)
	SplitterABI   = MustParseABI(SplitterABIJSON)
	SwapVenueABI  = MustParseABI(SwapVenueABIJSON)
	BatchVenueABI = MustParseABI(BatchVenueABIJSON)
	HopVenueABI   = MustParseABI(HopVenueABIJSON)
	RegistryABI   = MustParseABI(RegistryABIJSON)
)

// ParseABI parses a JSON ABI string into an abi.ABI.
func ParseABI(abiJSON string) (abi.ABI, error) {
	return abi.JSON(strings.NewReader(abiJSON))
}

// MustParseABI is like ParseABI but panics on error.
func MustParseABI(abiJSON string) abi.ABI {
	parsed, err := ParseABI(abiJSON)
	if err != nil {
		panic(err)
	}
	return parsed
}
