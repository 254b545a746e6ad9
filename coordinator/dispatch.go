package coordinator

import "time"

// Requester is the pluggable callback that actually fetches data for keys,
// typically via a remote API. Coordinator invokes it once per dispatch
// cycle, outside its own lock, with three disjoint key sets in priority
// order.
//
// Implementations MAY act on any subset of asap ∪ normal and MAY ignore
// backlog entirely; it is informational, surfaced so a requester can
// opportunistically fold backlog keys into a batch it is already making
// without paying extra request overhead. Any key an implementation does act
// on MUST be passed to MarkRequested before the implementation starts doing
// network/IO for it, so the key is excluded from the next dispatch cycle
// while the call is in flight. The implementation must eventually call
// SetValue, SetNotFound, or SetError for every key it marked requested, or
// let the pending record be superseded by a later MarkRequested/SetError
// call - otherwise the key stays pending forever.
type Requester[K comparable, V any] interface {
	Request(coordinator *Coordinator[K, V], asap, normal, backlog []K)
}

// RequesterFunc adapts a plain function to a Requester.
type RequesterFunc[K comparable, V any] func(coordinator *Coordinator[K, V], asap, normal, backlog []K)

// Request invokes the wrapped function.
func (f RequesterFunc[K, V]) Request(c *Coordinator[K, V], asap, normal, backlog []K) {
	f(c, asap, normal, backlog)
}

// dispatchSets is the classification produced by one dispatch pass, built
// while the coordinator's lock is held, then handed to the requester
// outside the lock.
type dispatchSets[K comparable] struct {
	asap    map[K]struct{}
	normal  map[K]struct{}
	backlog map[K]struct{}
}

// buildDispatchSets implements spec.md §4.4 steps 1-3. Must be called with
// c.mu held.
func (c *Coordinator[K, V]) buildDispatchSets() dispatchSets[K] {
	sets := dispatchSets[K]{
		asap:    make(map[K]struct{}),
		normal:  make(map[K]struct{}),
		backlog: make(map[K]struct{}),
	}
	for _, q := range c.queries {
		for k := range q.keys {
			if _, pending := c.pending[k]; pending {
				continue
			}
			if q.isAccepted(k) {
				continue
			}
			if c.checkError(k, q) {
				if c.option(q, ASAP) {
					sets.asap[k] = struct{}{}
				} else {
					sets.normal[k] = struct{}{}
				}
			} else {
				sets.backlog[k] = struct{}{}
			}
		}
	}
	for k := range sets.asap {
		delete(sets.normal, k)
		delete(sets.backlog, k)
	}
	for k := range sets.normal {
		delete(sets.backlog, k)
	}
	return sets
}

// checkError implements spec.md §4.4 "check_error(k, Q)". Must be called
// with c.mu held.
func (c *Coordinator[K, V]) checkError(k K, q *query[K, V]) bool {
	if c.option(q, REFRESH) && !q.hasResponse(k) {
		return true
	}
	errAt, hasErr := c.lastErrorAt[k]
	if !hasErr {
		return true
	}
	delay := c.errorDelay(k, q)
	return c.clock.Now().Sub(errAt) > delay
}

// errorDelay implements spec.md §4.4 "error_delay(k, Q)". Must be called
// with c.mu held (it only reads errorCount, so a read lock would suffice,
// but the coordinator holds a single coarse lock throughout).
func (c *Coordinator[K, V]) errorDelay(k K, q *query[K, V]) time.Duration {
	errors := c.errorCount[k]
	return c.backoff.Delay(errors, c.option(q, ASAP))
}

// dispatch runs one pass of the dispatcher: spec.md §4.4. It is safe to call
// concurrently; overlapping calls are dropped (the second returns
// immediately) rather than serialized, matching the "reentrancy is
// forbidden" contract.
func (c *Coordinator[K, V]) dispatch() {
	if !c.dispatching.CompareAndSwap(false, true) {
		c.logger().Warn("dispatch: dropped overlapping invocation")
		return
	}
	defer c.dispatching.Store(false)

	c.mu.Lock()
	sets := c.buildDispatchSets()
	c.mu.Unlock()

	if len(sets.asap) == 0 && len(sets.normal) == 0 {
		return
	}
	if c.requester == nil {
		return
	}
	c.requester.Request(c, toSlice(sets.asap), toSlice(sets.normal), toSlice(sets.backlog))
}

func toSlice[K comparable](set map[K]struct{}) []K {
	out := make([]K, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// AcceptUpTo is a Requester-side convenience that takes at most limit keys
// total from asap, then normal, then backlog (in that priority order),
// marks them as requested via MarkRequested, and returns the accepted
// slice. It exists for requesters whose upstream API caps how many keys can
// go into a single batch; it changes no coordinator state beyond what
// MarkRequested already does.
func (c *Coordinator[K, V]) AcceptUpTo(asap, normal, backlog []K, limit int) []K {
	if limit <= 0 {
		return nil
	}
	accepted := make([]K, 0, limit)
	for _, group := range [][]K{asap, normal, backlog} {
		for _, k := range group {
			if len(accepted) >= limit {
				break
			}
			accepted = append(accepted, k)
		}
		if len(accepted) >= limit {
			break
		}
	}
	c.MarkRequested(accepted...)
	return accepted
}
