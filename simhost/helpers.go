package simhost

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/branched-services/go-arbvm"
)

// revertError carries a simulated venue revert: the reason string plus the
// ABI-encoded Error(string) payload the engine surfaces on sub-call
// failures.
type revertError struct {
	reason string
	data   []byte
}

var _ arbvm.RevertData = (*revertError)(nil)

func (e *revertError) Error() string { return "simhost: execution reverted: " + e.reason }

func (e *revertError) RevertData() []byte { return e.data }

var errorStringArgs = abi.Arguments{{Type: mustType("string")}}

func mustType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

func revertf(format string, a ...any) error {
	reason := fmt.Sprintf(format, a...)
	enc, err := errorStringArgs.Pack(reason)
	if err != nil {
		panic(err)
	}
	return &revertError{
		reason: reason,
		data:   append([]byte{0x08, 0xc3, 0x79, 0xa0}, enc...),
	}
}

// decodeCall resolves input against a and unpacks the arguments.
func decodeCall(a abi.ABI, input []byte) (*abi.Method, []any, error) {
	if len(input) < 4 {
		return nil, nil, revertf("input shorter than a selector")
	}
	m, err := a.MethodById(input[:4])
	if err != nil {
		return nil, nil, revertf("unknown selector %x", input[:4])
	}
	args, err := m.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, nil, revertf("malformed calldata for %s", m.Name)
	}
	return m, args, nil
}

func packOutput(m *abi.Method, vals ...any) ([]byte, error) {
	out, err := m.Outputs.Pack(vals...)
	if err != nil {
		return nil, revertf("pack %s output: %v", m.Name, err)
	}
	return out, nil
}

// rate is a fixed num/den conversion a simulated pool quotes.
type rate struct {
	num int64
	den int64
}
