package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"blazemarket/core/types"
	"blazemarket/native/market"
)

type stubEvent struct {
	evt *types.Event
}

func (e stubEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e stubEvent) Event() *types.Event { return e.evt }

func TestEmitCountsEventsAndSaleVolume(t *testing.T) {
	registry := Events()

	listed := stubEvent{evt: &types.Event{Type: market.EventTypeListed, Attributes: map[string]string{}}}
	registry.Emit(listed)
	registry.Emit(listed)
	if got := testutil.ToFloat64(registry.emitted.WithLabelValues(market.EventTypeListed)); got != 2 {
		t.Fatalf("expected 2 listed events, got %v", got)
	}

	volumeBefore := testutil.ToFloat64(registry.saleVolume)
	sold := stubEvent{evt: &types.Event{Type: market.EventTypeSold, Attributes: map[string]string{"price": "2000"}}}
	registry.Emit(sold)
	if got := testutil.ToFloat64(registry.saleVolume) - volumeBefore; got != 2000 {
		t.Fatalf("expected sale volume delta 2000, got %v", got)
	}

	// Malformed payloads count the event but leave the volume untouched.
	broken := stubEvent{evt: &types.Event{Type: market.EventTypeSold, Attributes: map[string]string{"price": "n/a"}}}
	registry.Emit(broken)
	if got := testutil.ToFloat64(registry.saleVolume) - volumeBefore; got != 2000 {
		t.Fatalf("sale volume moved on malformed payload: %v", got)
	}
}
