package batch

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts processed batches and records.
type Metrics struct {
	Batches   prometheus.Counter
	Records   *prometheus.CounterVec
	BatchSize prometheus.Histogram
	Recovered prometheus.Counter
}

// Record outcome label values.
const (
	outcomeTransformed = "transformed"
	outcomePassThrough = "pass_through"
)

// NewMetrics creates the batch collectors. They must be registered
// with Register before they are exported.
func NewMetrics() *Metrics {
	return &Metrics{
		Batches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "log2json_batches_total",
				Help: "Total number of batches processed.",
			},
		),
		Records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "log2json_records_total",
				Help: "Total number of records processed, by outcome.",
			},
			[]string{"outcome"},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "log2json_batch_size",
				Help:    "Number of records per batch.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 6),
			},
		),
		Recovered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "log2json_worker_panics_total",
				Help: "Total number of records passed through after a recovered panic.",
			},
		),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Batches, m.Records, m.BatchSize, m.Recovered} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observe(total, transformed int) {
	if m == nil {
		return
	}
	m.Batches.Inc()
	m.BatchSize.Observe(float64(total))
	m.Records.WithLabelValues(outcomeTransformed).Add(float64(transformed))
	m.Records.WithLabelValues(outcomePassThrough).Add(float64(total - transformed))
}

func (m *Metrics) recovered() {
	if m == nil {
		return
	}
	m.Recovered.Inc()
}
