package simhost

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
)

// Registry is a simulated shared permission registry: it records one
// (amount, expiration) grant per (owner, token, spender) and pulls tokens
// on behalf of granted spenders using its own token allowance from the
// owner.
type Registry struct {
	addr   common.Address
	grants map[common.Address]map[common.Address]map[common.Address]grant
}

type grant struct {
	amount     *big.Int
	expiration uint64
}

// DeployRegistry registers a permission registry and returns its handle.
func (h *Host) DeployRegistry() *Registry {
	r := &Registry{
		addr:   h.allocAddr(),
		grants: make(map[common.Address]map[common.Address]map[common.Address]grant),
	}
	h.contracts[r.addr] = r
	h.registries = append(h.registries, r)
	return r
}

// Address returns the deployed address.
func (r *Registry) Address() common.Address { return r.addr }

// Grant reads the recorded (amount, expiration) for one triple directly.
func (r *Registry) Grant(owner, token, spender common.Address) (*big.Int, uint64) {
	g, ok := r.grants[owner][token][spender]
	if !ok {
		return new(big.Int), 0
	}
	return new(big.Int).Set(g.amount), g.expiration
}

func (r *Registry) setGrant(owner, token, spender common.Address, g grant) {
	byToken, ok := r.grants[owner]
	if !ok {
		byToken = make(map[common.Address]map[common.Address]grant)
		r.grants[owner] = byToken
	}
	bySpender, ok := byToken[token]
	if !ok {
		bySpender = make(map[common.Address]grant)
		byToken[token] = bySpender
	}
	bySpender[spender] = g
}

func (r *Registry) call(h *Host, caller common.Address, input []byte) ([]byte, error) {
	m, args, err := decodeCall(arbvm.RegistryABI, input)
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "approve":
		token := args[0].(common.Address)
		spender := args[1].(common.Address)
		amount := args[2].(*big.Int)
		expiration := args[3].(*big.Int)
		r.setGrant(caller, token, spender, grant{
			amount:     new(big.Int).Set(amount),
			expiration: expiration.Uint64(),
		})
		return nil, nil

	case "allowance":
		owner := args[0].(common.Address)
		token := args[1].(common.Address)
		spender := args[2].(common.Address)
		amount, exp := r.Grant(owner, token, spender)
		return packOutput(m, amount, new(big.Int).SetUint64(exp), big.NewInt(0))
	}
	return nil, revertf("registry: unhandled method %s", m.Name)
}

// pull moves amount of token from owner to recipient on behalf of spender,
// checking the recorded grant first. The registry itself pulls through its
// token allowance from the owner.
func (r *Registry) pull(h *Host, owner, token, recipient, spender common.Address, amount *big.Int) error {
	g, ok := r.grants[owner][token][spender]
	if !ok {
		return revertf("registry: no grant for %s", spender.Hex())
	}
	if g.expiration < h.now {
		return revertf("registry: grant expired")
	}
	if g.amount.Cmp(amount) < 0 {
		return revertf("registry: grant amount exceeded")
	}
	tok := h.token(token)
	if err := tok.spendFrom(owner, r.addr, amount); err != nil {
		return err
	}
	tok.credit(recipient, amount)
	return nil
}

type registryState struct {
	grants map[common.Address]map[common.Address]map[common.Address]grant
}

func (r *Registry) state() registryState {
	s := registryState{grants: make(map[common.Address]map[common.Address]map[common.Address]grant, len(r.grants))}
	for o, byToken := range r.grants {
		ct := make(map[common.Address]map[common.Address]grant, len(byToken))
		for t, bySpender := range byToken {
			cs := make(map[common.Address]grant, len(bySpender))
			for sp, g := range bySpender {
				cs[sp] = grant{amount: new(big.Int).Set(g.amount), expiration: g.expiration}
			}
			ct[t] = cs
		}
		s.grants[o] = ct
	}
	return s
}

func (r *Registry) restoreState(s registryState) {
	r.grants = s.grants
}
