// Package coordinator implements a generic cached bulk request coordinator:
// a reusable component that sits between callers who ask for data by key
// and a data provider that can only reasonably be invoked in batches. It
// aggregates single-key interests into bulk upstream calls, caches
// successful responses, tracks transient failures with bounded retry,
// tracks permanent not-found outcomes, and delivers results back to
// originating callers in whole or partial form according to per-query
// policy.
//
// The coordinator does no I/O itself. All I/O is delegated to a
// caller-supplied Requester; how results ultimately reach the rest of an
// application is the caller's business.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by Submit/GetOrSubmit once the coordinator has been
// closed.
var ErrClosed = errors.New("coordinator: closed")

// clock abstracts wall-clock access so tests can avoid real sleeps for
// back-off windows that saturate at 30 minutes. None of the pack's examples
// wire a clock library into application code (indirect pulls like
// benbjohnson/clock arrive only transitively through libp2p), so this stays
// a tiny unexported stdlib-backed interface rather than an added
// dependency.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Token identifies a registered query for replace/dedupe purposes (spec.md
// §4.1). A token minted internally by Submit (when the caller passes a zero
// Token) is always distinct from every other token; a caller-supplied token
// is compared by value, matching the "identity vs equality" rule in spec.md
// §9.
type Token struct {
	id string
}

// String returns the token's opaque string form, primarily for logging.
func (t Token) String() string { return t.id }

// IsZero reports whether t is the zero Token (never registered).
func (t Token) IsZero() bool { return t.id == "" }

func newToken() Token {
	return Token{id: uuid.NewString()}
}

// entry is the cache record for one key: at most one of value/notFound may
// hold, per spec.md §3 invariant 1.
type entry[V any] struct {
	value    V
	hasValue bool
	notFound bool
}

// Coordinator is a thread-safe facade over a cache, a query registry, and a
// timer-driven dispatcher, parameterized over an arbitrary comparable key
// type K and value type V.
type Coordinator[K comparable, V any] struct {
	mu sync.Mutex

	requester Requester[K, V]
	backoff   BackoffStrategy
	equal     func(V, V) bool
	clock     clock
	log       *slog.Logger
	observer  Observer

	options Policy // coordinator-level options, e.g. DAEMON

	cache       map[K]entry[V]
	pending     map[K]time.Time
	lastErrorAt map[K]time.Time
	errorCount  map[K]int

	queries map[Token]*query[K, V]

	dispatching atomic.Bool

	tickInterval  time.Duration
	reconfigureCh chan time.Duration
	stopTicker    chan struct{}
	tickerDone    chan struct{}
	closed        atomic.Bool
}

// Option configures a Coordinator at construction time.
type Option[K comparable, V any] func(*Coordinator[K, V])

// WithBackoffStrategy overrides the default (spec-compatible, steep)
// error back-off curve.
func WithBackoffStrategy[K comparable, V any](b BackoffStrategy) Option[K, V] {
	return func(c *Coordinator[K, V]) { c.backoff = b }
}

// WithEqual supplies a value-equality function used for the result-dedupe
// check (spec.md §4.5 step 6 / §8's "dedupe law"). The default uses `==`
// via an any-comparison, which panics for non-comparable V; callers whose V
// is not comparable (a slice, a map, a struct containing either) must
// supply this.
func WithEqual[K comparable, V any](eq func(V, V) bool) Option[K, V] {
	return func(c *Coordinator[K, V]) { c.equal = eq }
}

// WithTickInterval overrides the default 10s scheduler period.
func WithTickInterval[K comparable, V any](d time.Duration) Option[K, V] {
	return func(c *Coordinator[K, V]) {
		if d > 0 {
			c.tickInterval = d
		}
	}
}

// WithLogger supplies a structured logger; the default discards all output.
func WithLogger[K comparable, V any](l *slog.Logger) Option[K, V] {
	return func(c *Coordinator[K, V]) { c.log = l }
}

func defaultEqual[V any](a, b V) bool {
	return any(a) == any(b)
}

// New constructs a Coordinator backed by requester and starts its
// scheduler. settings is the coordinator-level Policy: every policy check in
// Submit, dispatch and completion ORs these bits with the query's own, so a
// bit set here applies to every query.
func New[K comparable, V any](requester Requester[K, V], settings Policy, opts ...Option[K, V]) *Coordinator[K, V] {
	c := &Coordinator[K, V]{
		requester:    requester,
		backoff:      DefaultBackoff{},
		equal:        defaultEqual[V],
		clock:        realClock{},
		log:          slog.New(slog.DiscardHandler),
		options:      settings,
		cache:        make(map[K]entry[V]),
		pending:      make(map[K]time.Time),
		lastErrorAt:  make(map[K]time.Time),
		errorCount:   make(map[K]int),
		queries:      make(map[Token]*query[K, V]),
		tickInterval:  10 * time.Second,
		reconfigureCh: make(chan time.Duration, 1),
		stopTicker:    make(chan struct{}),
		tickerDone:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startScheduler()
	return c
}

func (c *Coordinator[K, V]) logger() *slog.Logger { return c.log }

// Close stops the scheduler and causes subsequent Submit/GetOrSubmit calls
// to return ErrClosed instead of registering work. This is the explicit
// shutdown path spec.md §9 asks re-implementers to add, since the original
// has no way to stop its background timer.
func (c *Coordinator[K, V]) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(c.stopTicker)
	select {
	case <-c.tickerDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Get returns the cached value for k, if any.
func (c *Coordinator[K, V]) Get(k K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.cache[k]
	if !ok || !e.hasValue {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Debug returns a short diagnostic string: registered-query count and
// pending-key count (spec.md §6).
func (c *Coordinator[K, V]) Debug() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return debugString(len(c.queries), len(c.pending))
}

func debugString(queries, pending int) string {
	return fmt.Sprintf("requests: %d pending: %d", queries, pending)
}

// PendingRequests returns the number of registered queries (spec.md §6).
func (c *Coordinator[K, V]) PendingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

// Reconfigure applies an updated tick interval and/or back-off strategy to a
// running coordinator without disturbing its cache or registered queries.
// It is the hook the config watcher's hot-reload path (spec.md §4.1) uses to
// push a changed tickIntervalMs or backoffExpr into an already-started
// Coordinator. A zero tickInterval or nil backoff leaves that setting
// unchanged.
func (c *Coordinator[K, V]) Reconfigure(tickInterval time.Duration, backoff BackoffStrategy) {
	if backoff != nil {
		c.mu.Lock()
		c.backoff = backoff
		c.mu.Unlock()
	}
	if tickInterval <= 0 {
		return
	}
	select {
	case c.reconfigureCh <- tickInterval:
	default:
		select {
		case <-c.reconfigureCh:
		default:
		}
		select {
		case c.reconfigureCh <- tickInterval:
		default:
		}
	}
}
