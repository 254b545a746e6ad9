package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// KeyClass identifies which dispatch priority bucket a key was requested under.
type KeyClass string

const (
	KeyClassASAP    KeyClass = "asap"
	KeyClassNormal  KeyClass = "normal"
	KeyClassBacklog KeyClass = "backlog"
)

// CacheOutcome captures the result of a cache lookup against a coordinator key.
type CacheOutcome string

const (
	CacheOutcomeHit      CacheOutcome = "hit"
	CacheOutcomeMiss     CacheOutcome = "miss"
	CacheOutcomeNotFound CacheOutcome = "not_found"
)

// Recorder publishes Prometheus metrics for coordinator activity.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	dispatchCycles   prometheus.Counter
	dispatchDuration prometheus.Histogram

	keysRequested *prometheus.CounterVec
	keysErrored   prometheus.Counter
	backlogSize   prometheus.Gauge

	cacheOutcomes *prometheus.CounterVec

	queriesRegistered prometheus.Counter
	queriesCompleted  prometheus.Counter
	queriesActive     prometheus.Gauge

	requesterLatency *prometheus.HistogramVec
}

// NewRecorder constructs a Prometheus-backed Recorder. When reg is nil a dedicated
// registry is created so multiple recorders can coexist without conflicting with
// the global default registerer.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	dispatchCycles := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bulkcoord",
		Subsystem: "dispatch",
		Name:      "cycles_total",
		Help:      "Total dispatch cycles run by the coordinator scheduler.",
	})

	dispatchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bulkcoord",
		Subsystem: "dispatch",
		Name:      "cycle_duration_seconds",
		Help:      "Latency distribution for a single dispatch cycle.",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	keysRequested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bulkcoord",
		Subsystem: "dispatch",
		Name:      "keys_requested_total",
		Help:      "Keys handed to the requester per dispatch priority class.",
	}, []string{"class"})

	keysErrored := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bulkcoord",
		Subsystem: "dispatch",
		Name:      "keys_errored_total",
		Help:      "Keys for which the requester reported a transient error.",
	})

	backlogSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bulkcoord",
		Subsystem: "dispatch",
		Name:      "backlog_size",
		Help:      "Backlog keys seen in the most recent dispatch cycle, informational keys not yet in the asap or normal set.",
	})

	cacheOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bulkcoord",
		Subsystem: "cache",
		Name:      "outcomes_total",
		Help:      "Cache lookups performed while computing query results.",
	}, []string{"outcome"})

	queriesRegistered := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bulkcoord",
		Subsystem: "query",
		Name:      "registered_total",
		Help:      "Total queries registered via Submit or GetOrSubmit.",
	})

	queriesCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bulkcoord",
		Subsystem: "query",
		Name:      "completed_total",
		Help:      "Total queries that reached HasAllKeys and were retired.",
	})

	queriesActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "bulkcoord",
		Subsystem: "query",
		Name:      "active",
		Help:      "Queries currently registered with the coordinator.",
	})

	requesterLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bulkcoord",
		Subsystem: "requester",
		Name:      "call_duration_seconds",
		Help:      "Latency distribution for a single Requester.Request call.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"outcome"})

	reg.MustRegister(
		dispatchCycles, dispatchDuration, keysRequested, keysErrored, backlogSize,
		cacheOutcomes, queriesRegistered, queriesCompleted, queriesActive,
		requesterLatency,
	)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return &Recorder{
		gatherer:          reg,
		handler:           handler,
		dispatchCycles:    dispatchCycles,
		dispatchDuration:  dispatchDuration,
		keysRequested:     keysRequested,
		keysErrored:       keysErrored,
		backlogSize:       backlogSize,
		cacheOutcomes:     cacheOutcomes,
		queriesRegistered: queriesRegistered,
		queriesCompleted:  queriesCompleted,
		queriesActive:     queriesActive,
		requesterLatency:  requesterLatency,
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying Prometheus gatherer for tests and advanced
// integrations.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// ObserveDispatchCycle records one pass through the dispatcher's ASAP/normal/backlog
// classification and the Requester call it drove. backlog also updates the current
// backlog-size gauge, since unlike asap/normal it is not necessarily drained by the
// Requester call and its instantaneous depth is the useful signal.
func (r *Recorder) ObserveDispatchCycle(duration time.Duration, asap, normal, backlog int) {
	if r == nil {
		return
	}
	r.dispatchCycles.Inc()
	r.dispatchDuration.Observe(duration.Seconds())
	if asap > 0 {
		r.keysRequested.WithLabelValues(string(KeyClassASAP)).Add(float64(asap))
	}
	if normal > 0 {
		r.keysRequested.WithLabelValues(string(KeyClassNormal)).Add(float64(normal))
	}
	if backlog > 0 {
		r.keysRequested.WithLabelValues(string(KeyClassBacklog)).Add(float64(backlog))
	}
	r.backlogSize.Set(float64(backlog))
}

// ObserveKeyError records that the requester reported a transient error for a key.
func (r *Recorder) ObserveKeyError() {
	if r == nil {
		return
	}
	r.keysErrored.Inc()
}

// ObserveCacheOutcome records the result of a single cache lookup.
func (r *Recorder) ObserveCacheOutcome(outcome CacheOutcome) {
	if r == nil {
		return
	}
	r.cacheOutcomes.WithLabelValues(string(outcome)).Inc()
}

// ObserveQueryRegistered records a new query entering the coordinator.
func (r *Recorder) ObserveQueryRegistered() {
	if r == nil {
		return
	}
	r.queriesRegistered.Inc()
	r.queriesActive.Inc()
}

// ObserveQueryCompleted records a query reaching HasAllKeys and being retired.
func (r *Recorder) ObserveQueryCompleted() {
	if r == nil {
		return
	}
	r.queriesCompleted.Inc()
	r.queriesActive.Dec()
}

// ObserveRequesterCall records the latency of a Requester.Request invocation.
func (r *Recorder) ObserveRequesterCall(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	r.requesterLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}
