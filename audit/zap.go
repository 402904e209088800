// Package audit provides Auditor sinks: structured zap logs for live
// operation and append-only JSONL journals for reconciliation.
package audit

import (
	"go.uber.org/zap"

	"github.com/branched-services/go-arbvm"
)

// ZapSink logs every record as one structured entry.
type ZapSink struct {
	log *zap.Logger
}

var _ arbvm.Auditor = (*ZapSink)(nil)

// NewZapSink returns a sink logging to log. Nil gets a no-op logger.
func NewZapSink(log *zap.Logger) *ZapSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapSink{log: log}
}

// BatchExecuted logs one batch settlement.
func (s *ZapSink) BatchExecuted(r arbvm.BatchReport) {
	s.log.Info("batch executed",
		zap.Stringer("token_in", r.TokenIn),
		zap.Stringer("token_out", r.TokenOut),
		zap.Stringer("spender", r.Spender),
		zap.Int("calls", r.Calls),
		zap.Bool("patched", r.Patched),
		zap.Stringer("amount_declared", r.AmountDeclared),
		zap.Stringer("amount_used", r.AmountUsed),
		zap.Stringer("min_out_used", r.MinOutUsed),
		zap.Stringer("out_delta", r.OutDelta),
	)
}

// FlowExecuted logs one completed flow. Optional legs appear only when the
// flow took them.
func (s *ZapSink) FlowExecuted(r arbvm.FlowReport) {
	fields := []zap.Field{
		zap.String("flow", r.Flow),
		zap.Stringer("market", r.Market),
		zap.Stringer("amount_in", r.AmountIn),
		zap.Stringer("split_amount", r.SplitAmount),
		zap.Stringer("yes_out", r.YesOut),
		zap.Stringer("no_out", r.NoOut),
		zap.Stringer("merged", r.Merged),
		zap.Stringer("net_profit", r.NetProfit),
		zap.Stringer("min_net_profit", r.MinNetProfit),
	}
	if r.CrossOut != nil {
		fields = append(fields, zap.Stringer("cross_out", r.CrossOut))
	}
	if r.IntermediaryOut != nil {
		fields = append(fields, zap.Stringer("intermediary_out", r.IntermediaryOut))
	}
	if r.ExcessSide != "" {
		fields = append(fields,
			zap.String("excess_side", r.ExcessSide),
			zap.Stringer("excess", r.Excess),
		)
	}
	if r.LiquidationOut != nil {
		fields = append(fields, zap.Stringer("liquidation_out", r.LiquidationOut))
	}
	s.log.Info("flow executed", fields...)
}
