package coordinator

// SetValue records a successful result for k. It clears k's error count and
// not-found marker (spec.md §3 invariants 2 and 5) and then runs the
// completion engine.
func (c *Coordinator[K, V]) SetValue(k K, v V) {
	c.mu.Lock()
	c.setValueLocked(k, v)
	c.mu.Unlock()
	c.runCompletion()
}

// SetValues is the bulk form of SetValue.
func (c *Coordinator[K, V]) SetValues(values map[K]V) {
	c.mu.Lock()
	for k, v := range values {
		c.setValueLocked(k, v)
	}
	c.mu.Unlock()
	c.runCompletion()
}

func (c *Coordinator[K, V]) setValueLocked(k K, v V) {
	c.cache[k] = entry[V]{value: v, hasValue: true}
	delete(c.errorCount, k)
	c.markResponseReceivedLocked(k)
}

// SetNotFound marks keys as permanently absent upstream: a resolution
// distinct from error, which never gets retried. It drops any cached value
// (spec.md §3 invariant 1) and clears error-count for each key (spec.md §3
// invariant 3).
func (c *Coordinator[K, V]) SetNotFound(keys ...K) {
	c.mu.Lock()
	for _, k := range keys {
		c.cache[k] = entry[V]{notFound: true}
		delete(c.errorCount, k)
		c.markResponseReceivedLocked(k)
	}
	c.mu.Unlock()
	c.runCompletion()
}

// SetError records a transient error for each key: stamps last-error-at and
// increments error-count, without disturbing any previously cached value
// (spec.md §3 invariant 4).
func (c *Coordinator[K, V]) SetError(keys ...K) {
	c.mu.Lock()
	now := c.clock.Now()
	for _, k := range keys {
		c.lastErrorAt[k] = now
		c.errorCount[k]++
		c.markResponseReceivedLocked(k)
	}
	c.mu.Unlock()

	if c.observer != nil {
		for range keys {
			c.observer.ObserveKeyError()
		}
	}
	c.runCompletion()
}

// MarkRequested stamps pending = now for each key so it is excluded from the
// next dispatch cycle while an upstream call for it is in flight. Requester
// implementations must call this for every key they accept before starting
// any IO for it (spec.md §4.3).
func (c *Coordinator[K, V]) MarkRequested(keys ...K) {
	if len(keys) == 0 {
		return
	}
	c.mu.Lock()
	now := c.clock.Now()
	for _, k := range keys {
		c.pending[k] = now
	}
	c.mu.Unlock()
}

// markResponseReceivedLocked implements spec.md §4.3's "mark response
// received": clears pending for k and updates every registered query's
// per-query response set. Must be called with c.mu held.
func (c *Coordinator[K, V]) markResponseReceivedLocked(k K) {
	delete(c.pending, k)
	for _, q := range c.queries {
		q.markResponseReceived(k)
	}
}
