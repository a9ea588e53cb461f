package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the ledger and its event relay.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Ledger transactions by operation and outcome code ("ok" on success).
	Operations *prometheus.CounterVec
	TxDuration *prometheus.HistogramVec

	AssetsRegistered prometheus.Counter
	Transfers        *prometheus.CounterVec
	PauseState       prometheus.Gauge

	EventsAppended  prometheus.Counter
	EventsDelivered *prometheus.CounterVec
	DeliveryErrors  *prometheus.CounterVec
	SinkLag         *prometheus.GaugeVec
}

// New creates and registers all collectors on reg. Pass prometheus.NewRegistry()
// in tests to avoid duplicate registration on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rwaledger_operations_total",
			Help: "Ledger mutations by operation and outcome",
		}, []string{"op", "outcome"}),
		TxDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rwaledger_tx_duration_seconds",
			Help:    "Duration of ledger transactions including lock wait",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op"}),
		AssetsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "rwaledger_assets_registered_total",
			Help: "Total number of assets registered",
		}),
		Transfers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rwaledger_transfers_total",
			Help: "Completed ownership changes by entry point",
		}, []string{"kind"}), // kind: "plain", "priced"
		PauseState: f.NewGauge(prometheus.GaugeOpts{
			Name: "rwaledger_paused",
			Help: "Circuit breaker state (1=paused, 0=running)",
		}),
		EventsAppended: f.NewCounter(prometheus.CounterOpts{
			Name: "rwaledger_events_appended_total",
			Help: "Events committed to the ordered event log",
		}),
		EventsDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rwaledger_events_delivered_total",
			Help: "Events acknowledged by each sink",
		}, []string{"sink"}),
		DeliveryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rwaledger_event_delivery_errors_total",
			Help: "Failed publish attempts by sink",
		}, []string{"sink"}),
		SinkLag: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rwaledger_event_sink_lag",
			Help: "Committed events not yet acknowledged by each sink",
		}, []string{"sink"}),
	}
}

// ObserveTx records one ledger transaction.
func (m *Metrics) ObserveTx(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
	m.TxDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) IncAssetsRegistered() {
	if m != nil {
		m.AssetsRegistered.Inc()
	}
}

func (m *Metrics) IncTransfers(kind string) {
	if m != nil {
		m.Transfers.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SetPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.PauseState.Set(1)
	} else {
		m.PauseState.Set(0)
	}
}

func (m *Metrics) AddEventsAppended(n int) {
	if m != nil {
		m.EventsAppended.Add(float64(n))
	}
}

func (m *Metrics) AddDelivered(sink string, n int) {
	if m != nil {
		m.EventsDelivered.WithLabelValues(sink).Add(float64(n))
	}
}

func (m *Metrics) IncDeliveryErrors(sink string) {
	if m != nil {
		m.DeliveryErrors.WithLabelValues(sink).Inc()
	}
}

func (m *Metrics) SetLag(sink string, lag uint64) {
	if m != nil {
		m.SinkLag.WithLabelValues(sink).Set(float64(lag))
	}
}
