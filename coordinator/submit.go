package coordinator

// Submit registers a new query for keys, governed by policy, and returns the
// token it was registered under (or the zero Token if the submit was
// dropped). Passing the zero Token mints a fresh, always-unique one;
// passing a non-zero Token reuses it, replacing whatever query (if any) was
// previously registered under it (spec.md §4.1).
//
// An empty keys slice is rejected silently, returning the zero Token.
func (c *Coordinator[K, V]) Submit(token Token, listener ResultListener[K, V], policy Policy, keys []K) (Token, error) {
	if c.closed.Load() {
		return Token{}, ErrClosed
	}
	if len(keys) == 0 {
		return Token{}, nil
	}
	if token.IsZero() {
		token = newToken()
	}
	q := newQuery[K, V](listener, policy, keys)

	c.mu.Lock()
	if c.option(q, UNIQUE) && c.hasEqualQuery(q) {
		c.mu.Unlock()
		return Token{}, nil
	}
	if c.option(q, NO_REPLACE) {
		if _, exists := c.queries[token]; exists {
			c.mu.Unlock()
			return Token{}, nil
		}
	}
	c.queries[token] = q
	if c.option(q, REFRESH) {
		for k := range q.keys {
			delete(c.cache, k)
		}
	}
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.ObserveQueryRegistered()
	}
	c.runCompletion()

	if c.option(q, ASAP) {
		c.triggerImmediateDispatch()
	}
	return token, nil
}

// SubmitKeys is the variadic convenience form of Submit (mirrors the
// original's @SafeVarargs overloads).
func (c *Coordinator[K, V]) SubmitKeys(token Token, listener ResultListener[K, V], policy Policy, keys ...K) (Token, error) {
	return c.Submit(token, listener, policy, keys)
}

// option reports whether q or the coordinator's own settings carry flag
// (spec.md §4.5's "option(r, flag)" helper: query flags OR coordinator
// flags).
func (c *Coordinator[K, V]) option(q *query[K, V], flag Policy) bool {
	return q.policy.Has(flag) || c.options.Has(flag)
}

// hasEqualQuery reports whether an equal query (spec.md §3 invariant 2) is
// already registered. Must be called with c.mu held.
func (c *Coordinator[K, V]) hasEqualQuery(q *query[K, V]) bool {
	for _, existing := range c.queries {
		if existing.equalQuery(q) {
			return true
		}
	}
	return false
}

// GetOrSubmit computes the current result snapshot for the given query
// definition; if every key already has a resolution, the snapshot is
// returned synchronously and no query is registered. Otherwise both a
// synchronous partial snapshot and a newly registered query are produced.
// The synchronous snapshot respects the same RETRY/WAIT rules as the
// completion engine (spec.md §4.2).
func (c *Coordinator[K, V]) GetOrSubmit(token Token, listener ResultListener[K, V], policy Policy, keys []K) (Result[K, V], Token, error) {
	if len(keys) == 0 {
		return Result[K, V]{}, Token{}, nil
	}
	probe := newQuery[K, V](listener, policy, keys)

	c.mu.Lock()
	result, _, counts := c.computeResult(probe)
	c.mu.Unlock()
	counts.report(c.observer)

	if result.HasAllKeys {
		return result, Token{}, nil
	}
	registered, err := c.Submit(token, listener, policy, keys)
	return result, registered, err
}

// GetOrSubmitSingle is a single-key convenience over GetOrSubmit (mirrors
// the original's getOrQuerySingle): it returns the cached value directly
// when already resolved, or registers a query and returns the zero value.
func (c *Coordinator[K, V]) GetOrSubmitSingle(token Token, listener ResultListener[K, V], policy Policy, key K) (V, bool) {
	result, _, _ := c.GetOrSubmit(token, listener, policy, []K{key})
	return result.Get(key)
}
