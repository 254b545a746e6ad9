package main

import (
	"time"

	"github.com/tduva/bulkcoord/coordinator"
	"github.com/tduva/bulkcoord/internal/metrics"
)

// instrumentedRequester wraps a coordinator.Requester with dispatch-cycle
// and call-latency observations, keeping the core coordinator and the
// example requester free of a metrics dependency (METRICS is an ambient
// concern of this demo binary, not the core's).
type instrumentedRequester[K comparable, V any] struct {
	inner    coordinator.Requester[K, V]
	recorder *metrics.Recorder
}

func instrument[K comparable, V any](inner coordinator.Requester[K, V], recorder *metrics.Recorder) coordinator.Requester[K, V] {
	return &instrumentedRequester[K, V]{inner: inner, recorder: recorder}
}

func (r *instrumentedRequester[K, V]) Request(c *coordinator.Coordinator[K, V], asap, normal, backlog []K) {
	start := time.Now()
	r.inner.Request(c, asap, normal, backlog)
	elapsed := time.Since(start)
	r.recorder.ObserveDispatchCycle(elapsed, len(asap), len(normal), len(backlog))
	r.recorder.ObserveRequesterCall("ok", elapsed)
}

// metricsObserver adapts a metrics.Recorder to coordinator.Observer, wiring
// cache-outcome and query-lifecycle counters into the coordinator the same
// way instrumentedRequester wires in dispatch-cycle and call-latency ones.
type metricsObserver struct {
	recorder *metrics.Recorder
}

func (o metricsObserver) ObserveCacheOutcome(outcome coordinator.CacheOutcome) {
	switch outcome {
	case coordinator.CacheHit:
		o.recorder.ObserveCacheOutcome(metrics.CacheOutcomeHit)
	case coordinator.CacheNotFound:
		o.recorder.ObserveCacheOutcome(metrics.CacheOutcomeNotFound)
	default:
		o.recorder.ObserveCacheOutcome(metrics.CacheOutcomeMiss)
	}
}

func (o metricsObserver) ObserveKeyError() { o.recorder.ObserveKeyError() }

func (o metricsObserver) ObserveQueryRegistered() { o.recorder.ObserveQueryRegistered() }

func (o metricsObserver) ObserveQueryCompleted() { o.recorder.ObserveQueryCompleted() }
