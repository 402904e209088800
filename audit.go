package arbvm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BatchReport is the declared-versus-achieved record emitted for every
// successful batch execution, intended for off-box reconciliation.
type BatchReport struct {
	TokenIn  common.Address `json:"token_in"`
	TokenOut common.Address `json:"token_out"`
	Spender  common.Address `json:"spender"`
	Calls    int            `json:"calls"`
	Patched  bool           `json:"patched"`

	// AmountDeclared is the batch's construction-time spend; AmountUsed is
	// the spend after any runtime override.
	AmountDeclared *big.Int `json:"amount_declared"`
	AmountUsed     *big.Int `json:"amount_used"`

	// MinOutDeclared is the batch's construction-time floor; MinOutUsed is
	// the effective floor after tolerance derivation.
	MinOutDeclared *big.Int `json:"min_out_declared"`
	MinOutUsed     *big.Int `json:"min_out_used"`

	// OutDelta is the observed output token receipt.
	OutDelta *big.Int `json:"out_delta"`
}

// FlowReport is the per-flow record: amounts spent and received at each step
// and the observed signed net profit.
type FlowReport struct {
	Flow   string         `json:"flow"`
	Market common.Address `json:"market"`
	Pools  PoolRefs       `json:"pools"`

	AmountIn *big.Int `json:"amount_in"`

	// CrossOut is the cross-asset leg's output: the composite acquired when
	// the leg runs first, the collateral recovered when it runs last.
	CrossOut *big.Int `json:"cross_out,omitempty"`

	// IntermediaryOut is the first fixed leg's output on routed flows.
	IntermediaryOut *big.Int `json:"intermediary_out,omitempty"`

	SplitAmount *big.Int `json:"split_amount"`
	YesOut      *big.Int `json:"yes_out"`
	NoOut       *big.Int `json:"no_out"`

	// ExcessSide names the larger leg, empty when the legs matched exactly.
	ExcessSide string   `json:"excess_side,omitempty"`
	Excess     *big.Int `json:"excess,omitempty"`

	// LiquidationOut is the collateral recovered by a direct liquidation or
	// the other-side legs acquired by an indirect one.
	LiquidationOut *big.Int `json:"liquidation_out,omitempty"`

	// Merged is the amount recomposed into the parent asset.
	Merged *big.Int `json:"merged"`

	Initial      *big.Int `json:"initial"`
	Final        *big.Int `json:"final"`
	NetProfit    *big.Int `json:"net_profit"`
	MinNetProfit *big.Int `json:"min_net_profit"`
}

// Auditor receives flow and batch records. The engine only reports units
// that completed; failures surface as returned errors for the calling loop
// to log. Implementations must not block: the engine never fails a unit on
// audit behavior.
type Auditor interface {
	BatchExecuted(BatchReport)
	FlowExecuted(FlowReport)
}

// NopAuditor discards all records.
type NopAuditor struct{}

// BatchExecuted discards the record.
func (NopAuditor) BatchExecuted(BatchReport) {}

// FlowExecuted discards the record.
func (NopAuditor) FlowExecuted(FlowReport) {}
