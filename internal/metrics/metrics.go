// Package metrics exposes Prometheus instrumentation for query execution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeStoreFailed = "store_error"
)

// Collector records query executions. A nil *Collector is valid and
// records nothing.
type Collector struct {
	queries  *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates a collector and registers it with reg.
// If reg is nil the collector is created but not registered.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filterql_queries_total",
				Help: "Total number of entity queries by outcome",
			},
			[]string{"entity", "outcome"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filterql_rows_returned_total",
				Help: "Total number of rows returned to callers",
			},
			[]string{"entity"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filterql_query_duration_seconds",
				Help:    "Store round-trip latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"entity"},
		),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{c.queries, c.rows, c.duration} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Observe records one finished query.
func (c *Collector) Observe(entity, outcome string, rows int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.queries.WithLabelValues(entity, outcome).Inc()
	if outcome == OutcomeOK {
		c.rows.WithLabelValues(entity).Add(float64(rows))
		c.duration.WithLabelValues(entity).Observe(elapsed.Seconds())
	}
}

// Rejected records a query refused before reaching the store.
func (c *Collector) Rejected(entity string) {
	if c == nil {
		return
	}
	c.queries.WithLabelValues(entity, OutcomeInvalid).Inc()
}
