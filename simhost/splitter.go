package simhost

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
)

// Splitter decomposes registered parent assets into their outcome leg
// pairs 1:1 and recomposes matched pairs. Splitting burns the parent and
// mints the legs; merging does the reverse.
type Splitter struct {
	addr    common.Address
	markets map[common.Address]map[common.Address]legPair
}

type legPair struct {
	yes common.Address
	no  common.Address
}

// DeploySplitter registers a splitter and returns its handle.
func (h *Host) DeploySplitter() *Splitter {
	s := &Splitter{
		addr:    h.allocAddr(),
		markets: make(map[common.Address]map[common.Address]legPair),
	}
	h.contracts[s.addr] = s
	return s
}

// Address returns the deployed address.
func (s *Splitter) Address() common.Address { return s.addr }

// Register binds parent's outcome legs under market.
func (s *Splitter) Register(market, parent, yes, no common.Address) {
	m, ok := s.markets[market]
	if !ok {
		m = make(map[common.Address]legPair)
		s.markets[market] = m
	}
	m[parent] = legPair{yes: yes, no: no}
}

func (s *Splitter) call(h *Host, caller common.Address, input []byte) ([]byte, error) {
	m, args, err := decodeCall(arbvm.SplitterABI, input)
	if err != nil {
		return nil, err
	}
	market := args[0].(common.Address)
	parent := args[1].(common.Address)
	amount := args[2].(*big.Int)

	legs, ok := s.markets[market][parent]
	if !ok {
		return nil, revertf("splitter: unknown position %s/%s", market.Hex(), parent.Hex())
	}
	par := h.token(parent)
	yes := h.token(legs.yes)
	no := h.token(legs.no)

	switch m.Name {
	case "splitPosition":
		if err := par.spendFrom(caller, s.addr, amount); err != nil {
			return nil, err
		}
		yes.credit(caller, amount)
		no.credit(caller, amount)
		return nil, nil

	case "mergePositions":
		if err := yes.spendFrom(caller, s.addr, amount); err != nil {
			return nil, err
		}
		if err := no.spendFrom(caller, s.addr, amount); err != nil {
			return nil, err
		}
		par.credit(caller, amount)
		return nil, nil
	}
	return nil, revertf("splitter: unhandled method %s", m.Name)
}
