package coordinator

// CacheOutcome classifies a single cache lookup performed while computing a
// query result.
type CacheOutcome int

const (
	CacheHit CacheOutcome = iota
	CacheMiss
	CacheNotFound
)

// Observer receives fine-grained lifecycle events from a running
// Coordinator: cache lookups, per-key transient errors, and query
// registration/completion. It lets ambient instrumentation (metrics,
// tracing) watch the coordinator's internals without the core depending on
// any concrete reporting library, the same way Requester keeps I/O
// pluggable. A nil Observer, the default, receives no calls.
type Observer interface {
	ObserveCacheOutcome(CacheOutcome)
	ObserveKeyError()
	ObserveQueryRegistered()
	ObserveQueryCompleted()
}

// WithObserver attaches an Observer to a Coordinator at construction time.
func WithObserver[K comparable, V any](o Observer) Option[K, V] {
	return func(c *Coordinator[K, V]) { c.observer = o }
}
