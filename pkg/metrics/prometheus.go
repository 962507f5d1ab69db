// Package metrics provides Prometheus metrics for the settlement
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus metric for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Event lifecycle
	eventsRegistered prometheus.Counter
	eventsSettled    prometheus.Counter
	eventsDiscarded  prometheus.Counter
	pendingEvents    prometheus.Gauge

	// Reconciliation
	reconcileRounds  prometheus.Counter
	reconcileErrors  prometheus.Counter
	reconcileLatency prometheus.Histogram

	// Forecast intake
	forecastsAccepted prometheus.Counter
	forecastsDeduped  prometheus.Counter
	ledgerBuckets     prometheus.Gauge

	// Commit-reveal
	commitments     prometheus.Counter
	revealsAccepted prometheus.Counter
	revealsRejected prometheus.Counter

	// Settlement
	settlements       prometheus.Counter
	settlementErrors  prometheus.Counter
	settlementLatency prometheus.Histogram
	rewards           prometheus.Histogram

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with configuration options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "settle",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // metric declarations are long but flat
	auto := promauto.With(m.registry)

	m.eventsRegistered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_registered_total",
		Help: "Total number of events inserted into the registry",
	})
	m.eventsSettled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_settled_total",
		Help: "Total number of events that reached a settled state",
	})
	m.eventsDiscarded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_discarded_total",
		Help: "Total number of events discarded upstream",
	})
	m.pendingEvents = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "events_pending",
		Help: "Events currently awaiting resolution",
	})

	m.reconcileRounds = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reconcile_rounds_total",
		Help: "Total number of completed reconciliation passes",
	})
	m.reconcileErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reconcile_errors_total",
		Help: "Provider round-trips abandoned after retries",
	})
	m.reconcileLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "reconcile_latency_seconds",
		Help:    "Duration of a full reconciliation pass",
		Buckets: m.histogramBuckets,
	})

	m.forecastsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "forecasts_accepted_total",
		Help: "Forecast submissions appended to the ledger",
	})
	m.forecastsDeduped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "forecasts_deduped_total",
		Help: "Forecast submissions dropped as consecutive repeats",
	})
	m.ledgerBuckets = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ledger_buckets",
		Help: "Live (participant, event) histories in the ledger",
	})

	m.commitments = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "commitments_total",
		Help: "Commit-phase digests recorded",
	})
	m.revealsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reveals_accepted_total",
		Help: "Reveals that matched their prior commitment",
	})
	m.revealsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "reveals_rejected_total",
		Help: "Reveals rejected for mismatch, staleness, or no commitment",
	})

	m.settlements = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "settlements_total",
		Help: "Settlement passes completed",
	})
	m.settlementErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "settlement_errors_total",
		Help: "Per-participant scoring failures during settlement",
	})
	m.settlementLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "settlement_latency_seconds",
		Help:    "Duration of a settlement pass over all participants",
		Buckets: m.histogramBuckets,
	})
	m.rewards = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "reward",
		Help:    "Distribution of per-participant rewards",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_size",
		Help: "Settled events waiting for a settlement worker",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_capacity",
		Help: "Configured settlement queue capacity",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueues_total",
		Help: "Events enqueued for settlement",
	})
	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_dequeues_total",
		Help: "Events handed to settlement workers",
	})
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "queue_enqueue_errors_total",
		Help: "Enqueue attempts refused (closed or full queue)",
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_count",
		Help: "Settlement workers running",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method, and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration by endpoint and method",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method"})
}

// GetRegistry returns the registry metrics are collected into, for
// serving via promhttp.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers, delegating to the global manager.

func RecordEventRegistered() { globalManager.eventsRegistered.Inc() }
func RecordEventSettled()    { globalManager.eventsSettled.Inc() }
func RecordEventDiscarded()  { globalManager.eventsDiscarded.Inc() }
func UpdatePendingEvents(n int) {
	globalManager.pendingEvents.Set(float64(n))
}

func RecordReconcileRound() { globalManager.reconcileRounds.Inc() }
func RecordReconcileError() { globalManager.reconcileErrors.Inc() }
func RecordReconcileLatency(seconds float64) {
	globalManager.reconcileLatency.Observe(seconds)
}

func RecordForecastAccepted() { globalManager.forecastsAccepted.Inc() }
func RecordForecastDeduped()  { globalManager.forecastsDeduped.Inc() }
func UpdateLedgerBuckets(n int) {
	globalManager.ledgerBuckets.Set(float64(n))
}

func RecordCommitment()     { globalManager.commitments.Inc() }
func RecordRevealAccepted() { globalManager.revealsAccepted.Inc() }
func RecordRevealRejected() { globalManager.revealsRejected.Inc() }

func RecordSettlement()      { globalManager.settlements.Inc() }
func RecordSettlementError() { globalManager.settlementErrors.Inc() }
func RecordSettlementLatency(seconds float64) {
	globalManager.settlementLatency.Observe(seconds)
}
func ObserveReward(reward float64) { globalManager.rewards.Observe(reward) }

func UpdateQueueSize(n int)     { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }
func RecordQueueEnqueue()       { globalManager.queueEnqueues.Inc() }
func RecordQueueDequeue()       { globalManager.queueDequeues.Inc() }
func RecordQueueEnqueueError()  { globalManager.queueEnqueueErrors.Inc() }
func UpdateWorkerCount(n int)   { globalManager.workerCount.Set(float64(n)) }

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(seconds)
}
