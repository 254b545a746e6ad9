package coordinator

import "time"

// startScheduler launches the single periodic task that drives dispatch
// cycles (spec.md §4.6). There is exactly one scheduler per coordinator; it
// runs until Close stops it.
func (c *Coordinator[K, V]) startScheduler() {
	go func() {
		defer close(c.tickerDone)
		ticker := time.NewTicker(c.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopTicker:
				return
			case <-ticker.C:
				c.dispatch()
			case d := <-c.reconfigureCh:
				ticker.Reset(d)
			}
		}
	}()
}

// triggerImmediateDispatch runs dispatch synchronously on the calling
// goroutine, used for ASAP submits (spec.md §4.1: "triggers an immediate
// dispatch rather than waiting for the next tick").
func (c *Coordinator[K, V]) triggerImmediateDispatch() {
	c.dispatch()
}
