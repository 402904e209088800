package simhost

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
)

// Token is a simulated ERC20. Options select the awkward behaviors real
// tokens exhibit so allowance handling can be exercised against them.
type Token struct {
	addr common.Address
	name string

	balances map[common.Address]*big.Int
	allowed  map[common.Address]map[common.Address]*big.Int

	requireZeroReset bool
	failApprovals    bool
	failTransfers    bool
	silent           bool

	approveCalls int
}

// TokenOption configures a deployed token.
type TokenOption func(*Token)

// RequireZeroReset makes approve revert when moving one nonzero allowance
// straight to another, like USDT.
func RequireZeroReset() TokenOption {
	return func(t *Token) { t.requireZeroReset = true }
}

// FailApprovals makes every approve revert.
func FailApprovals() TokenOption {
	return func(t *Token) { t.failApprovals = true }
}

// FailTransfers makes every transfer revert.
func FailTransfers() TokenOption {
	return func(t *Token) { t.failTransfers = true }
}

// SilentTransfers makes approve and transfer return no data instead of a
// bool.
func SilentTransfers() TokenOption {
	return func(t *Token) { t.silent = true }
}

// DeployToken registers a token and returns its handle.
func (h *Host) DeployToken(name string, opts ...TokenOption) *Token {
	t := &Token{
		addr:     h.allocAddr(),
		name:     name,
		balances: make(map[common.Address]*big.Int),
		allowed:  make(map[common.Address]map[common.Address]*big.Int),
	}
	for _, opt := range opts {
		opt(t)
	}
	h.contracts[t.addr] = t
	h.tokens = append(h.tokens, t)
	return t
}

// Address returns the deployed address.
func (t *Token) Address() common.Address { return t.addr }

// Mint credits amount to a.
func (t *Token) Mint(a common.Address, amount *big.Int) { t.credit(a, amount) }

// BalanceOf reads a's balance directly.
func (t *Token) BalanceOf(a common.Address) *big.Int { return t.balance(a) }

// Allowance reads owner's grant to spender directly.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	return t.allowanceOf(owner, spender)
}

// ApproveCalls counts approve dispatches, reverted ones included.
func (t *Token) ApproveCalls() int { return t.approveCalls }

func (t *Token) call(_ *Host, caller common.Address, input []byte) ([]byte, error) {
	m, args, err := decodeCall(arbvm.ERC20ABI, input)
	if err != nil {
		return nil, err
	}
	switch m.Name {
	case "balanceOf":
		return packOutput(m, t.balance(args[0].(common.Address)))

	case "allowance":
		return packOutput(m, t.allowanceOf(args[0].(common.Address), args[1].(common.Address)))

	case "approve":
		t.approveCalls++
		spender := args[0].(common.Address)
		amount := args[1].(*big.Int)
		if t.failApprovals {
			return nil, revertf("%s: approvals disabled", t.name)
		}
		if cur := t.allowanceOf(caller, spender); t.requireZeroReset && cur.Sign() != 0 && amount.Sign() != 0 {
			return nil, revertf("%s: approve from nonzero allowance", t.name)
		}
		t.setAllowance(caller, spender, amount)
		if t.silent {
			return nil, nil
		}
		return packOutput(m, true)

	case "transfer":
		to := args[0].(common.Address)
		amount := args[1].(*big.Int)
		if t.failTransfers {
			return nil, revertf("%s: transfers disabled", t.name)
		}
		if err := t.debit(caller, amount); err != nil {
			return nil, err
		}
		t.credit(to, amount)
		if t.silent {
			return nil, nil
		}
		return packOutput(m, true)

	case "transferFrom":
		from := args[0].(common.Address)
		to := args[1].(common.Address)
		amount := args[2].(*big.Int)
		if err := t.spendFrom(from, caller, amount); err != nil {
			return nil, err
		}
		t.credit(to, amount)
		if t.silent {
			return nil, nil
		}
		return packOutput(m, true)
	}
	return nil, revertf("%s: unhandled method %s", t.name, m.Name)
}

func (t *Token) balance(a common.Address) *big.Int {
	if b, ok := t.balances[a]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *Token) credit(a common.Address, amount *big.Int) {
	t.balances[a] = new(big.Int).Add(t.balance(a), amount)
}

func (t *Token) debit(a common.Address, amount *big.Int) error {
	b := t.balance(a)
	if b.Cmp(amount) < 0 {
		return revertf("%s: transfer amount exceeds balance", t.name)
	}
	t.balances[a] = b.Sub(b, amount)
	return nil
}

func (t *Token) allowanceOf(owner, spender common.Address) *big.Int {
	if m, ok := t.allowed[owner]; ok {
		if v, ok := m[spender]; ok {
			return new(big.Int).Set(v)
		}
	}
	return new(big.Int)
}

func (t *Token) setAllowance(owner, spender common.Address, v *big.Int) {
	m, ok := t.allowed[owner]
	if !ok {
		m = make(map[common.Address]*big.Int)
		t.allowed[owner] = m
	}
	m[spender] = new(big.Int).Set(v)
}

// spendAllowance debits spender's grant from owner. An unbounded grant is
// never decremented.
func (t *Token) spendAllowance(owner, spender common.Address, amount *big.Int) error {
	cur := t.allowanceOf(owner, spender)
	if cur.Cmp(arbvm.MaxUint256) == 0 {
		return nil
	}
	if cur.Cmp(amount) < 0 {
		return revertf("%s: insufficient allowance", t.name)
	}
	t.setAllowance(owner, spender, cur.Sub(cur, amount))
	return nil
}

// spendFrom pulls amount from owner on behalf of spender, allowance first.
func (t *Token) spendFrom(owner, spender common.Address, amount *big.Int) error {
	if err := t.spendAllowance(owner, spender, amount); err != nil {
		return err
	}
	return t.debit(owner, amount)
}

type tokenState struct {
	balances map[common.Address]*big.Int
	allowed  map[common.Address]map[common.Address]*big.Int
}

func (t *Token) state() tokenState {
	s := tokenState{
		balances: make(map[common.Address]*big.Int, len(t.balances)),
		allowed:  make(map[common.Address]map[common.Address]*big.Int, len(t.allowed)),
	}
	for a, b := range t.balances {
		s.balances[a] = new(big.Int).Set(b)
	}
	for o, m := range t.allowed {
		cp := make(map[common.Address]*big.Int, len(m))
		for sp, v := range m {
			cp[sp] = new(big.Int).Set(v)
		}
		s.allowed[o] = cp
	}
	return s
}

func (t *Token) restoreState(s tokenState) {
	t.balances = s.balances
	t.allowed = s.allowed
}
