// Package metrics records store round-trips and ledger operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the rest of the code reports to.
type Recorder interface {
	ObserveStore(op, table string, d time.Duration, err error)
	ObserveLedgerOp(op string, err error)
	SetCoercionIssues(table string, n int)
	ObserveMirror(d time.Duration, err error)
}

type Prometheus struct {
	registry       *prometheus.Registry
	storeCalls     *prometheus.CounterVec
	storeDuration  *prometheus.HistogramVec
	ledgerOps      *prometheus.CounterVec
	coercionIssues *prometheus.GaugeVec
	mirrorRuns     *prometheus.CounterVec
	mirrorDuration prometheus.Histogram
}

// NewPrometheus registers the ledger collectors, plus Go runtime and process
// collectors, on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		storeCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizledger_store_calls_total",
			Help: "Table store calls by operation, table and outcome",
		}, []string{"operation", "table", "status"}),
		storeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bizledger_store_call_duration_milliseconds",
			Help:    "Table store call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}, []string{"operation"}),
		ledgerOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizledger_ledger_operations_total",
			Help: "Presentation operations by name and outcome",
		}, []string{"operation", "status"}),
		coercionIssues: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bizledger_coercion_issues",
			Help: "Cells that failed to parse on the last load",
		}, []string{"table"}),
		mirrorRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizledger_mirror_runs_total",
			Help: "Mirror synchronisations by outcome",
		}, []string{"status"}),
		mirrorDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bizledger_mirror_duration_milliseconds",
			Help:    "Mirror synchronisation latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (p *Prometheus) ObserveStore(op, table string, d time.Duration, err error) {
	p.storeCalls.WithLabelValues(op, table, status(err)).Inc()
	p.storeDuration.WithLabelValues(op).Observe(ms(d))
}

func (p *Prometheus) ObserveLedgerOp(op string, err error) {
	p.ledgerOps.WithLabelValues(op, status(err)).Inc()
}

func (p *Prometheus) SetCoercionIssues(table string, n int) {
	p.coercionIssues.WithLabelValues(table).Set(float64(n))
}

func (p *Prometheus) ObserveMirror(d time.Duration, err error) {
	p.mirrorRuns.WithLabelValues(status(err)).Inc()
	p.mirrorDuration.Observe(ms(d))
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Noop discards everything.
type Noop struct{}

func (Noop) ObserveStore(string, string, time.Duration, error) {}
func (Noop) ObserveLedgerOp(string, error)                     {}
func (Noop) SetCoercionIssues(string, int)                     {}
func (Noop) ObserveMirror(time.Duration, error)                {}
