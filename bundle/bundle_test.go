package bundle

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/branched-services/go-arbvm"
)

var (
	tokenAddr    = common.HexToAddress("0x0000000000000000000000000000000000000011")
	spenderAddr  = common.HexToAddress("0x0000000000000000000000000000000000000022")
	executorAddr = common.HexToAddress("0x0000000000000000000000000000000000000033")
)

func decodeExecute(t *testing.T, data []byte) []struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
} {
	t.Helper()
	method := DelegateABI.Methods["execute"]
	if !bytes.Equal(data[:4], method.ID) {
		t.Fatalf("Expected the execute selector, got %x", data[:4])
	}
	vals, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var calls []struct {
		Target common.Address
		Value  *big.Int
		Data   []byte
	}
	return *abi.ConvertType(vals[0], &calls).(*[]struct {
		Target common.Address
		Value  *big.Int
		Data   []byte
	})
}

func TestApproveCall(t *testing.T) {
	call := ApproveCall(tokenAddr, spenderAddr, big.NewInt(77))

	if call.Target != tokenAddr {
		t.Errorf("Expected target %s, got %s", tokenAddr.Hex(), call.Target.Hex())
	}
	if call.Value.Sign() != 0 {
		t.Errorf("Expected zero value, got %s", call.Value)
	}

	vals, err := arbvm.ERC20ABI.Methods["approve"].Inputs.Unpack(call.Input[4:])
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := vals[0].(common.Address); got != spenderAddr {
		t.Errorf("Expected spender %s, got %s", spenderAddr.Hex(), got.Hex())
	}
	if got := vals[1].(*big.Int); got.Int64() != 77 {
		t.Errorf("Expected amount 77, got %s", got)
	}
}

func TestGrantCalls(t *testing.T) {
	calls := GrantCalls(tokenAddr, spenderAddr)
	if len(calls) != 2 {
		t.Fatalf("Expected the zero-then-max pair, got %d calls", len(calls))
	}

	amounts := make([]*big.Int, 2)
	for i, c := range calls {
		if c.Target != tokenAddr {
			t.Errorf("Expected call %d to target the token, got %s", i, c.Target.Hex())
		}
		vals, err := arbvm.ERC20ABI.Methods["approve"].Inputs.Unpack(c.Input[4:])
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		amounts[i] = vals[1].(*big.Int)
	}
	if amounts[0].Sign() != 0 {
		t.Errorf("Expected the first grant to reset to zero, got %s", amounts[0])
	}
	if amounts[1].Cmp(arbvm.MaxUint256) != 0 {
		t.Errorf("Expected the second grant to be maximal, got %s", amounts[1])
	}
}

func TestPackExecute(t *testing.T) {
	t.Run("round-trips the call list", func(t *testing.T) {
		calls := []Call{
			{Target: tokenAddr, Value: big.NewInt(0), Input: []byte{0x01, 0x02}},
			{Target: executorAddr, Value: big.NewInt(5), Input: []byte{0x03}},
		}
		data, err := PackExecute(calls)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		decoded := decodeExecute(t, data)
		if len(decoded) != 2 {
			t.Fatalf("Expected 2 calls, got %d", len(decoded))
		}
		if decoded[0].Target != tokenAddr || !bytes.Equal(decoded[0].Data, []byte{0x01, 0x02}) {
			t.Errorf("Unexpected first call: %+v", decoded[0])
		}
		if decoded[1].Target != executorAddr || decoded[1].Value.Int64() != 5 {
			t.Errorf("Unexpected second call: %+v", decoded[1])
		}
	})

	t.Run("nil value and input normalized", func(t *testing.T) {
		data, err := PackExecute([]Call{{Target: tokenAddr}})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		decoded := decodeExecute(t, data)
		if decoded[0].Value.Sign() != 0 {
			t.Errorf("Expected zero value, got %s", decoded[0].Value)
		}
		if len(decoded[0].Data) != 0 {
			t.Errorf("Expected empty data, got %x", decoded[0].Data)
		}
	})

	t.Run("negative value rejected", func(t *testing.T) {
		_, err := PackExecute([]Call{{Target: tokenAddr, Value: big.NewInt(-1)}})
		if err == nil || err.Error() != "bundle: call 0 has a negative value" {
			t.Errorf("Expected the negative-value rejection, got %v", err)
		}
	})
}
