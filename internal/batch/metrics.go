package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the batch pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	ItemsTotal    *prometheus.CounterVec
	StepSeconds   *prometheus.HistogramVec
	CommitsTotal  *prometheus.CounterVec
	CommittedRows prometheus.Counter
	ActiveBatches prometheus.Gauge
	QueueDepth    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapcheck_batch_items_total",
				Help: "Essays that finished the pipeline, by outcome",
			},
			[]string{"outcome"},
		),
		StepSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snapcheck_batch_step_seconds",
				Help:    "Pipeline step latency",
				Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"step", "outcome"},
		),
		CommitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapcheck_batch_commits_total",
				Help: "Commit attempts, by outcome",
			},
			[]string{"outcome"},
		),
		CommittedRows: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "snapcheck_batch_committed_submissions_total",
				Help: "Submissions written by successful commits",
			},
		),
		ActiveBatches: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapcheck_batch_active",
				Help: "Open batch sessions",
			},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "snapcheck_batch_queue_depth",
				Help: "Essays waiting for the pipeline across all batches",
			},
		),
	}
}

func (m *Metrics) observeStep(step string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.StepSeconds.WithLabelValues(step, outcome(err)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) item(outcome string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) commit(outcome string, rows int) {
	if m == nil {
		return
	}
	m.CommitsTotal.WithLabelValues(outcome).Inc()
	m.CommittedRows.Add(float64(rows))
}

func (m *Metrics) queueDelta(d float64) {
	if m == nil {
		return
	}
	m.QueueDepth.Add(d)
}

func (m *Metrics) batchDelta(d float64) {
	if m == nil {
		return
	}
	m.ActiveBatches.Add(d)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
