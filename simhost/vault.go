package simhost

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
)

// Vault is a simulated batch swap venue: registered pools quote fixed
// rates, all branches settle against one net per-asset delta, and only the
// unbounded deadline sentinel is honored.
type Vault struct {
	addr  common.Address
	pools map[common.Hash]vaultPool
}

type vaultPool struct {
	in  common.Address
	out common.Address
	r   rate
}

// DeployVault registers a batch swap venue and returns its handle.
func (h *Host) DeployVault() *Vault {
	v := &Vault{
		addr:  h.allocAddr(),
		pools: make(map[common.Hash]vaultPool),
	}
	h.contracts[v.addr] = v
	return v
}

// Address returns the deployed address.
func (v *Vault) Address() common.Address { return v.addr }

// SetPool binds id to a one-directional pool quoting out = in * num / den.
func (v *Vault) SetPool(id common.Hash, in, out common.Address, num, den int64) {
	v.pools[id] = vaultPool{in: in, out: out, r: rate{num: num, den: den}}
}

type vaultStep struct {
	PoolId        [32]byte
	AssetInIndex  *big.Int
	AssetOutIndex *big.Int
	Amount        *big.Int
	UserData      []byte
}

type vaultFunds struct {
	Sender              common.Address
	FromInternalBalance bool
	Recipient           common.Address
	ToInternalBalance   bool
}

func (v *Vault) call(h *Host, caller common.Address, input []byte) ([]byte, error) {
	m, args, err := decodeCall(arbvm.BatchVenueABI, input)
	if err != nil {
		return nil, err
	}
	if m.Name != "batchSwap" {
		return nil, revertf("vault: unhandled method %s", m.Name)
	}

	kind := args[0].(uint8)
	steps := *abi.ConvertType(args[1], new([]vaultStep)).(*[]vaultStep)
	assets := args[2].([]common.Address)
	funds := abi.ConvertType(args[3], new(vaultFunds)).(*vaultFunds)
	limits := args[4].([]*big.Int)
	deadline := args[5].(*big.Int)

	if kind != 0 {
		return nil, revertf("vault: unsupported swap kind %d", kind)
	}
	if deadline.Cmp(arbvm.MaxUint256) != 0 {
		return nil, revertf("vault: deadline must be the unbounded sentinel")
	}
	if funds.Sender != caller {
		return nil, revertf("vault: sender is not the caller")
	}
	if len(limits) != len(assets) {
		return nil, revertf("vault: %d limits for %d assets", len(limits), len(assets))
	}

	deltas := make([]*big.Int, len(assets))
	for i := range deltas {
		deltas[i] = new(big.Int)
	}
	for _, s := range steps {
		p, ok := v.pools[common.Hash(s.PoolId)]
		if !ok {
			return nil, revertf("vault: unknown pool %x", s.PoolId)
		}
		in := int(s.AssetInIndex.Int64())
		out := int(s.AssetOutIndex.Int64())
		if in < 0 || in >= len(assets) || out < 0 || out >= len(assets) {
			return nil, revertf("vault: asset index out of range")
		}
		if assets[in] != p.in || assets[out] != p.out {
			return nil, revertf("vault: pool %x does not trade %s into %s", s.PoolId, assets[in].Hex(), assets[out].Hex())
		}
		got := new(big.Int).Mul(s.Amount, big.NewInt(p.r.num))
		got.Quo(got, big.NewInt(p.r.den))
		deltas[in].Add(deltas[in], s.Amount)
		deltas[out].Sub(deltas[out], got)
	}
	for i, d := range deltas {
		if d.Cmp(limits[i]) > 0 {
			return nil, revertf("vault: limit exceeded on asset %d", i)
		}
	}
	for i, d := range deltas {
		tok := h.token(assets[i])
		switch {
		case d.Sign() > 0:
			if err := tok.spendFrom(funds.Sender, v.addr, d); err != nil {
				return nil, err
			}
		case d.Sign() < 0:
			tok.credit(funds.Recipient, new(big.Int).Neg(d))
		}
	}
	return packOutput(m, deltas)
}
