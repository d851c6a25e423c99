package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fastygo/productsync/domain"
)

// Prometheus metrics for webhook handling and the propagation pipeline
var (
	InvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productsync_invocations_total",
			Help: "Webhook invocations by returned status code",
		},
		[]string{"status"},
	)

	ShortCircuitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "productsync_short_circuits_total",
			Help: "Deliveries completed early because a stage produced nothing",
		},
		[]string{"stage"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "productsync_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	LineItemsUpdatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "productsync_line_items_updated_total",
			Help: "Line items whose description was rewritten",
		},
	)

	DuplicateDeliveriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "productsync_duplicate_deliveries_total",
			Help: "Deliveries acknowledged from the ledger without running the pipeline",
		},
	)
)

var registerOnce sync.Once

// Register registers all Prometheus metrics with the default registry.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			InvocationsTotal,
			ShortCircuitsTotal,
			StageDuration,
			LineItemsUpdatedTotal,
			DuplicateDeliveriesTotal,
		)
	})
}

// ObserveStage records how long a stage took.
func ObserveStage(stage domain.State, started time.Time) {
	StageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())
}

// ObserveInvocation counts a finished invocation.
func ObserveInvocation(statusCode int) {
	InvocationsTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}
