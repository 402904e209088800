package simhost

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
)

// SwapVenue is a simulated conditional-token venue quoting one fixed rate
// per (in, out) pair, with exact-input and exact-output entry points. It
// pulls input directly through token allowances, or through the permission
// registry when deployed with PullViaRegistry.
type SwapVenue struct {
	addr         common.Address
	pools        map[[2]common.Address]rate
	registry     *Registry
	ignoreMinOut bool
}

// VenueOption configures a deployed swap venue.
type VenueOption func(*SwapVenue)

// PullViaRegistry makes the venue pull input tokens through reg instead of
// holding direct grants.
func PullViaRegistry(reg *Registry) VenueOption {
	return func(v *SwapVenue) { v.registry = reg }
}

// IgnoreMinOut makes the venue skip its own exact-input slippage check,
// leaving receipt floors entirely to the caller.
func IgnoreMinOut() VenueOption {
	return func(v *SwapVenue) { v.ignoreMinOut = true }
}

// DeployVenue registers a conditional swap venue and returns its handle.
func (h *Host) DeployVenue(opts ...VenueOption) *SwapVenue {
	v := &SwapVenue{
		addr:  h.allocAddr(),
		pools: make(map[[2]common.Address]rate),
	}
	for _, opt := range opts {
		opt(v)
	}
	h.contracts[v.addr] = v
	return v
}

// Address returns the deployed address.
func (v *SwapVenue) Address() common.Address { return v.addr }

// SetPrice quotes out = in * num / den for the (in, out) pair.
func (v *SwapVenue) SetPrice(in, out common.Address, num, den int64) {
	v.pools[[2]common.Address{in, out}] = rate{num: num, den: den}
}

type swapInParams struct {
	TokenIn          common.Address
	TokenOut         common.Address
	Recipient        common.Address
	Deadline         *big.Int
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
	LimitSqrtPrice   *big.Int
}

type swapOutParams struct {
	TokenIn         common.Address
	TokenOut        common.Address
	Recipient       common.Address
	Deadline        *big.Int
	AmountOut       *big.Int
	AmountInMaximum *big.Int
	LimitSqrtPrice  *big.Int
}

func (v *SwapVenue) call(h *Host, caller common.Address, input []byte) ([]byte, error) {
	m, args, err := decodeCall(arbvm.SwapVenueABI, input)
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "exactInputSingle":
		p := abi.ConvertType(args[0], new(swapInParams)).(*swapInParams)
		if p.Deadline.Cmp(new(big.Int).SetUint64(h.now)) < 0 {
			return nil, revertf("venue: transaction too old")
		}
		r, ok := v.pools[[2]common.Address{p.TokenIn, p.TokenOut}]
		if !ok {
			return nil, revertf("venue: no pool %s/%s", p.TokenIn.Hex(), p.TokenOut.Hex())
		}
		out := new(big.Int).Mul(p.AmountIn, big.NewInt(r.num))
		out.Quo(out, big.NewInt(r.den))
		if !v.ignoreMinOut && out.Cmp(p.AmountOutMinimum) < 0 {
			return nil, revertf("venue: too little received")
		}
		if err := v.pullInput(h, caller, p.TokenIn, p.AmountIn); err != nil {
			return nil, err
		}
		h.token(p.TokenOut).credit(p.Recipient, out)
		return packOutput(m, out)

	case "exactOutputSingle":
		p := abi.ConvertType(args[0], new(swapOutParams)).(*swapOutParams)
		if p.Deadline.Cmp(new(big.Int).SetUint64(h.now)) < 0 {
			return nil, revertf("venue: transaction too old")
		}
		r, ok := v.pools[[2]common.Address{p.TokenIn, p.TokenOut}]
		if !ok {
			return nil, revertf("venue: no pool %s/%s", p.TokenIn.Hex(), p.TokenOut.Hex())
		}
		need := new(big.Int).Mul(p.AmountOut, big.NewInt(r.den))
		need.Add(need, big.NewInt(r.num-1))
		need.Quo(need, big.NewInt(r.num))
		if need.Cmp(p.AmountInMaximum) > 0 {
			return nil, revertf("venue: too much requested")
		}
		if err := v.pullInput(h, caller, p.TokenIn, need); err != nil {
			return nil, err
		}
		h.token(p.TokenOut).credit(p.Recipient, p.AmountOut)
		return packOutput(m, need)
	}
	return nil, revertf("venue: unhandled method %s", m.Name)
}

func (v *SwapVenue) pullInput(h *Host, from common.Address, token common.Address, amount *big.Int) error {
	if v.registry != nil {
		return v.registry.pull(h, from, token, v.addr, v.addr, amount)
	}
	return h.token(token).spendFrom(from, v.addr, amount)
}
