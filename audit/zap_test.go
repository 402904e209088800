package audit

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapSink(t *testing.T) {
	t.Run("batch record logged with its deltas", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		s := NewZapSink(zap.New(core))

		s.BatchExecuted(testBatchReport())

		entries := logs.All()
		if len(entries) != 1 {
			t.Fatalf("Expected one entry, got %d", len(entries))
		}
		if entries[0].Message != "batch executed" {
			t.Errorf("Unexpected message %q", entries[0].Message)
		}
		fields := entries[0].ContextMap()
		if fields["amount_used"] != "120" {
			t.Errorf("Expected amount_used 120, got %v", fields["amount_used"])
		}
		if fields["out_delta"] != "130" {
			t.Errorf("Expected out_delta 130, got %v", fields["out_delta"])
		}
	})

	t.Run("flow record carries the excess fields only when present", func(t *testing.T) {
		core, logs := observer.New(zap.InfoLevel)
		s := NewZapSink(zap.New(core))

		withExcess := testFlowReport()
		s.FlowExecuted(withExcess)

		balanced := testFlowReport()
		balanced.ExcessSide = ""
		balanced.Excess = nil
		s.FlowExecuted(balanced)

		entries := logs.All()
		if len(entries) != 2 {
			t.Fatalf("Expected two entries, got %d", len(entries))
		}
		first := entries[0].ContextMap()
		if first["excess_side"] != "yes" || first["net_profit"] != "110" {
			t.Errorf("Unexpected fields: %v", first)
		}
		second := entries[1].ContextMap()
		if _, ok := second["excess_side"]; ok {
			t.Error("Expected no excess fields on a balanced flow")
		}
	})

	t.Run("nil logger gets a no-op", func(t *testing.T) {
		s := NewZapSink(nil)
		s.BatchExecuted(testBatchReport())
		s.FlowExecuted(testFlowReport())
	})
}
