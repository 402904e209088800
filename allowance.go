package arbvm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MaxRegistryExpiration is the registry's largest uint48 expiration, the
// default horizon recorded on delegated grants.
const MaxRegistryExpiration = uint64(1)<<48 - 1

// maxRegistryAmount is the registry's uint160 amount cap.
var maxRegistryAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 160), big.NewInt(1))

// ensureAllowance grants spender the maximal allowance on token unless the
// current allowance already covers need. Grants are never tight amounts, so
// repeated trades dispatch no approval churn. When a grant is needed the
// allowance is first reset to zero for tokens that refuse nonzero-to-nonzero
// changes.
func (e *Engine) ensureAllowance(u Unit, token, spender common.Address, need *big.Int) error {
	current, err := e.allowance(u, token, u.Self(), spender)
	if err != nil {
		return &AllowanceError{Token: token, Spender: spender, Err: err}
	}
	if current.Cmp(need) >= 0 {
		return nil
	}
	if err := e.approve(u, token, spender, big.NewInt(0)); err != nil {
		return err
	}
	return e.approve(u, token, spender, MaxUint256)
}

// ensureDelegatedAllowance grants router spending power over token through
// the shared permission registry: a direct maximal grant to the registry,
// then a registry record naming router. Both hops are idempotent.
func (e *Engine) ensureDelegatedAllowance(u Unit, token, router common.Address, need *big.Int) error {
	if e.registry == (common.Address{}) {
		return &AllowanceError{Token: token, Spender: router, Err: errors.New("no permission registry configured")}
	}
	if err := e.ensureAllowance(u, token, e.registry, need); err != nil {
		return err
	}

	amount, expiration, err := e.registryAllowance(u, u.Self(), token, router)
	if err != nil {
		return &AllowanceError{Token: token, Spender: router, Err: err}
	}
	if amount.Cmp(need) >= 0 && expiration >= e.registryExpiry {
		return nil
	}

	exp := new(big.Int).SetUint64(e.registryExpiry)
	if _, err := u.Call(e.registry, mustPack(RegistryABI, "approve", token, router, maxRegistryAmount, exp)); err != nil {
		return &AllowanceError{Token: token, Spender: router, Err: subCallError(-1, e.registry, err)}
	}
	return nil
}

// approve dispatches one ERC-20 approval and rejects explicit refusals.
func (e *Engine) approve(u Unit, token, spender common.Address, amount *big.Int) error {
	ret, err := u.Call(token, mustPack(ERC20ABI, "approve", spender, amount))
	if err != nil {
		return &AllowanceError{Token: token, Spender: spender, Err: subCallError(-1, token, err)}
	}
	if err := checkReturnedBool(ERC20ABI, "approve", ret); err != nil {
		return &AllowanceError{Token: token, Spender: spender, Err: err}
	}
	return nil
}

// allowance reads the ERC-20 allowance owner has granted spender.
func (e *Engine) allowance(u Unit, token, owner, spender common.Address) (*big.Int, error) {
	ret, err := u.Call(token, mustPack(ERC20ABI, "allowance", owner, spender))
	if err != nil {
		return nil, subCallError(-1, token, err)
	}
	out, err := ERC20ABI.Unpack("allowance", ret)
	if err != nil {
		return nil, fmt.Errorf("arbvm: allowance return from %s: %w", token.Hex(), err)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("arbvm: allowance return from %s: unexpected type %T", token.Hex(), out[0])
	}
	return v, nil
}

// registryAllowance reads the registry record for (owner, token, spender).
func (e *Engine) registryAllowance(u Unit, owner, token, spender common.Address) (*big.Int, uint64, error) {
	ret, err := u.Call(e.registry, mustPack(RegistryABI, "allowance", owner, token, spender))
	if err != nil {
		return nil, 0, subCallError(-1, e.registry, err)
	}
	out, err := RegistryABI.Unpack("allowance", ret)
	if err != nil {
		return nil, 0, fmt.Errorf("arbvm: registry allowance return: %w", err)
	}
	if len(out) != 3 {
		return nil, 0, fmt.Errorf("arbvm: registry allowance returned %d values", len(out))
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("arbvm: registry allowance amount: unexpected type %T", out[0])
	}
	expiration, ok := out[1].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("arbvm: registry allowance expiration: unexpected type %T", out[1])
	}
	return amount, expiration.Uint64(), nil
}
