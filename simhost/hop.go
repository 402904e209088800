package simhost

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
)

// HopRouter is a simulated path router for single hops. It rejects
// deadlines wider than 64 bits, so the unbounded sentinel the other venues
// accept reverts here.
type HopRouter struct {
	addr  common.Address
	pools map[[2]common.Address]rate
}

// DeployHopRouter registers a hop router and returns its handle.
func (h *Host) DeployHopRouter() *HopRouter {
	r := &HopRouter{
		addr:  h.allocAddr(),
		pools: make(map[[2]common.Address]rate),
	}
	h.contracts[r.addr] = r
	return r
}

// Address returns the deployed address.
func (r *HopRouter) Address() common.Address { return r.addr }

// SetPrice quotes out = in * num / den for the (in, out) pair.
func (r *HopRouter) SetPrice(in, out common.Address, num, den int64) {
	r.pools[[2]common.Address{in, out}] = rate{num: num, den: den}
}

func (r *HopRouter) call(h *Host, caller common.Address, input []byte) ([]byte, error) {
	m, args, err := decodeCall(arbvm.HopVenueABI, input)
	if err != nil {
		return nil, err
	}
	if m.Name != "swapExactTokensForTokens" {
		return nil, revertf("hop: unhandled method %s", m.Name)
	}

	amountIn := args[0].(*big.Int)
	amountOutMin := args[1].(*big.Int)
	path := args[2].([]common.Address)
	to := args[3].(common.Address)
	deadline := args[4].(*big.Int)

	if !deadline.IsUint64() {
		return nil, revertf("hop: deadline overflow")
	}
	if deadline.Uint64() < h.now {
		return nil, revertf("hop: expired")
	}
	if len(path) != 2 {
		return nil, revertf("hop: path must be a single hop")
	}
	q, ok := r.pools[[2]common.Address{path[0], path[1]}]
	if !ok {
		return nil, revertf("hop: no pair %s/%s", path[0].Hex(), path[1].Hex())
	}

	out := new(big.Int).Mul(amountIn, big.NewInt(q.num))
	out.Quo(out, big.NewInt(q.den))
	if out.Cmp(amountOutMin) < 0 {
		return nil, revertf("hop: insufficient output amount")
	}
	if err := h.token(path[0]).spendFrom(caller, r.addr, amountIn); err != nil {
		return nil, err
	}
	h.token(path[1]).credit(to, out)
	return packOutput(m, []*big.Int{amountIn, out})
}
