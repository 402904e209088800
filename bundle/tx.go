package bundle

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Authorization signs the set-code tuple designating delegate as the
// account's logic body. authNonce is the account's authorization counter,
// a separate sequence from the transaction nonce; the two are supplied
// independently and never derived from one another.
func Authorization(chainID *big.Int, delegate common.Address, authNonce uint64, key *ecdsa.PrivateKey) (types.SetCodeAuthorization, error) {
	if key == nil {
		return types.SetCodeAuthorization{}, errors.New("bundle: signing key unset")
	}
	id, err := toU256("chain id", chainID)
	if err != nil {
		return types.SetCodeAuthorization{}, err
	}
	return types.SignSetCode(key, types.SetCodeAuthorization{
		ChainID: *id,
		Address: delegate,
		Nonce:   authNonce,
	})
}

// TxParams sizes the wrapping transaction. Nonce is the account's
// transaction counter, independent of any authorization nonce.
type TxParams struct {
	ChainID   *big.Int
	Nonce     uint64
	GasTipCap *big.Int
	GasFeeCap *big.Int
	Gas       uint64
}

// Transaction assembles the delegated operation: a set-code transaction to
// the executing account itself, carrying the signed authorization and the
// packed call list. The result still needs transaction signing by the
// transport layer.
func Transaction(account common.Address, p TxParams, auth types.SetCodeAuthorization, calls []Call) (*types.Transaction, error) {
	if account == (common.Address{}) {
		return nil, errors.New("bundle: executing account unset")
	}
	if len(calls) == 0 {
		return nil, errors.New("bundle: empty call list")
	}
	data, err := PackExecute(calls)
	if err != nil {
		return nil, err
	}
	chainID, err := toU256("chain id", p.ChainID)
	if err != nil {
		return nil, err
	}
	tip, err := toU256("gas tip cap", p.GasTipCap)
	if err != nil {
		return nil, err
	}
	feeCap, err := toU256("gas fee cap", p.GasFeeCap)
	if err != nil {
		return nil, err
	}
	return types.NewTx(&types.SetCodeTx{
		ChainID:   chainID,
		Nonce:     p.Nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       p.Gas,
		To:        account,
		Value:     uint256.NewInt(0),
		Data:      data,
		AuthList:  []types.SetCodeAuthorization{auth},
	}), nil
}

func toU256(field string, v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return nil, fmt.Errorf("bundle: %s unset", field)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("bundle: %s is negative", field)
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("bundle: %s overflows 256 bits", field)
	}
	return u, nil
}
