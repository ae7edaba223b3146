package observability

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"blazemarket/core/events"
	"blazemarket/core/types"
	"blazemarket/native/market"
)

// payloadCarrier is implemented by the engines' event wrappers and exposes the
// structured payload behind the emitter interface.
type payloadCarrier interface {
	Event() *types.Event
}

type eventMetrics struct {
	emitted    *prometheus.CounterVec
	saleVolume prometheus.Counter
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking structured marketplace events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "blaze",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of engine events segmented by event type.",
			}, []string{"type"}),
			saleVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "blaze",
				Subsystem: "market",
				Name:      "sale_volume_total",
				Help:      "Cumulative currency volume of settled purchases.",
			}),
		}
		prometheus.MustRegister(eventRegistry.emitted, eventRegistry.saleVolume)
	})
	return eventRegistry
}

// Emit implements events.Emitter, so the registry can be wired straight into
// an engine via SetEmitter.
func (m *eventMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	if eventType == "" {
		eventType = "unknown"
	}
	m.emitted.WithLabelValues(eventType).Inc()
	if eventType != market.EventTypeSold {
		return
	}
	carrier, ok := evt.(payloadCarrier)
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	price, err := strconv.ParseFloat(payload.Attributes["price"], 64)
	if err != nil {
		return
	}
	m.saleVolume.Add(price)
}

var _ events.Emitter = (*eventMetrics)(nil)
