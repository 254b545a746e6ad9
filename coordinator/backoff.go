package coordinator

import (
	"math"
	"time"
)

// BackoffStrategy computes how long a key must sit in its error cool-off
// window before it is eligible for re-dispatch again. errors is the number
// of consecutive transient errors recorded for the key since its last
// success or not-found outcome; asap reports whether the query driving the
// check carries the ASAP policy bit.
type BackoffStrategy interface {
	Delay(errors int, asap bool) time.Duration
}

// maxBackoff is the saturation point for every strategy shipped in this
// package: no key is ever held back more than 30 minutes.
const maxBackoff = 1800 * time.Second

// DefaultBackoff reproduces the back-off curve from the original
// implementation exactly: min(base*errors^10, 1800s), base 2 when the query
// has ASAP set, 10 otherwise. The exponent of 10 is almost certainly a bug
// in the source this coordinator is modeled on: it makes the curve
// saturate at the 1800s cap on a key's second consecutive error (base
// 10 * 2^10 already exceeds it), leaving essentially no graduated back-off
// between the first and second error. Re-implementations preserve this
// behavior verbatim for compatibility; callers who want a gentler curve can
// supply their own BackoffStrategy (see CELBackoffStrategy for one way to
// do that without a code change).
type DefaultBackoff struct{}

// Delay implements BackoffStrategy.
func (DefaultBackoff) Delay(errors int, asap bool) time.Duration {
	base := 10.0
	if asap {
		base = 2.0
	}
	seconds := base * math.Pow(float64(errors), 10)
	if seconds > float64(maxBackoff/time.Second) {
		seconds = float64(maxBackoff / time.Second)
	}
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds) * time.Second
}
