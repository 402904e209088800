// Package simhost is an in-memory execution substrate for exercising the
// engine without a chain: simulated tokens, venues, and a permission
// registry behind the arbvm.Host interface, with snapshot rollback on
// failed units.
package simhost

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
)

// handler is one deployed contract.
type handler interface {
	call(h *Host, caller common.Address, input []byte) ([]byte, error)
}

// Host simulates the executing account's environment. Units run against
// live state and a failed unit restores the snapshot taken at entry. Call
// counters and logs survive rollback, so tests can assert on attempted
// traffic.
type Host struct {
	self   common.Address
	caller common.Address
	now    uint64

	contracts  map[common.Address]handler
	tokens     []*Token
	registries []*Registry

	nextAddr uint64

	calls   map[common.Address]int
	callLog map[common.Address][][]byte
}

var _ arbvm.Host = (*Host)(nil)

// New returns a host whose units execute as self and are entered by
// caller.
func New(self, caller common.Address) *Host {
	return &Host{
		self:      self,
		caller:    caller,
		now:       1_700_000_000,
		contracts: make(map[common.Address]handler),
		nextAddr:  0x1000,
		calls:     make(map[common.Address]int),
		callLog:   make(map[common.Address][][]byte),
	}
}

// Atomic runs fn as one unit of work. Any error restores every token
// balance, token allowance, and registry grant to its state at entry.
func (h *Host) Atomic(ctx context.Context, fn func(arbvm.Unit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := h.snapshot()
	if err := fn(unit{h}); err != nil {
		h.restore(snap)
		return err
	}
	return nil
}

// SetCaller changes the account entering subsequent units.
func (h *Host) SetCaller(a common.Address) { h.caller = a }

// SetNow moves the simulated clock.
func (h *Host) SetNow(ts uint64) { h.now = ts }

// Calls returns how many calls target received, rolled back units
// included.
func (h *Host) Calls(target common.Address) int { return h.calls[target] }

// CallInputs returns the raw inputs target received, oldest first.
func (h *Host) CallInputs(target common.Address) [][]byte { return h.callLog[target] }

func (h *Host) allocAddr() common.Address {
	h.nextAddr++
	return common.BigToAddress(new(big.Int).SetUint64(h.nextAddr))
}

// token resolves a deployed token or panics; wiring a flow against a
// missing token is a test bug, not a venue revert.
func (h *Host) token(a common.Address) *Token {
	t, ok := h.contracts[a].(*Token)
	if !ok {
		panic("simhost: no token at " + a.Hex())
	}
	return t
}

type unit struct{ h *Host }

func (u unit) Self() common.Address   { return u.h.self }
func (u unit) Caller() common.Address { return u.h.caller }

func (u unit) Call(target common.Address, input []byte) ([]byte, error) {
	h := u.h
	h.calls[target]++
	h.callLog[target] = append(h.callLog[target], append([]byte(nil), input...))
	c, ok := h.contracts[target]
	if !ok {
		return nil, revertf("no code at %s", target.Hex())
	}
	return c.call(h, h.self, input)
}

type hostSnapshot struct {
	tokens []tokenState
	grants []registryState
}

func (h *Host) snapshot() hostSnapshot {
	var s hostSnapshot
	for _, t := range h.tokens {
		s.tokens = append(s.tokens, t.state())
	}
	for _, r := range h.registries {
		s.grants = append(s.grants, r.state())
	}
	return s
}

func (h *Host) restore(s hostSnapshot) {
	for i := range s.tokens {
		h.tokens[i].restoreState(s.tokens[i])
	}
	for i := range s.grants {
		h.registries[i].restoreState(s.grants[i])
	}
}
