package coordinator

import (
	"fmt"
	"strings"
)

// Policy is a bitset of options that govern how a query behaves: when it is
// dispatched, how errors are surfaced, and when (and how often) its listener
// is called.
type Policy int

const (
	// NONE is the default: tick-driven dispatch, a query completes once no
	// non-errored key remains outstanding, and errors are surfaced to the
	// listener as a nil value rather than held back.
	NONE Policy = 0

	// RETRY keeps a query registered while any of its keys are still inside
	// an error cool-off window, emitting partial results as resolutions
	// come in instead of surfacing the error as a nil value.
	RETRY Policy = 1

	// ASAP routes a query's keys through the high-priority class and
	// triggers an immediate dispatch on submit rather than waiting for the
	// next scheduler tick. It also shortens the error back-off base.
	ASAP Policy = 2

	// WAIT only allows a query to emit once every key has a concrete
	// resolution (a value or not-found); an errored key never satisfies it.
	WAIT Policy = 4

	// REFRESH evicts the query's keys from the value cache on submit and
	// requires a fresh response before any of them are eligible for
	// completion, even if a value was already cached for another reason.
	REFRESH Policy = 8

	// DAEMON is a coordinator-level bit (passed to New, not to a query). The
	// scheduler does not read it: its background goroutine never keeps the
	// process alive by itself, whether or not DAEMON is set.
	DAEMON Policy = 16

	// UNIQUE rejects a submit if an equal query (same policy, listener
	// identity, and key set) is already registered.
	UNIQUE Policy = 32

	// PARTIAL emits a result every time the accumulated result map changes,
	// rather than only once all keys are resolved.
	PARTIAL Policy = 64

	// NO_REPLACE rejects a submit if a query is already registered under
	// the same token.
	NO_REPLACE Policy = 128
)

// Has reports whether p contains all bits set in flag.
func (p Policy) Has(flag Policy) bool {
	return p&flag == flag
}

var policyByName = map[string]Policy{
	"NONE": NONE, "RETRY": RETRY, "ASAP": ASAP, "WAIT": WAIT,
	"REFRESH": REFRESH, "DAEMON": DAEMON, "UNIQUE": UNIQUE,
	"PARTIAL": PARTIAL, "NO_REPLACE": NO_REPLACE,
}

// ParsePolicy ORs together the named policy bits (case-insensitive), for
// turning a config file's string list into a Policy. An unknown name
// returns an error naming it; this mirrors the name set config.Validate
// checks against without either package importing the other.
func ParsePolicy(names []string) (Policy, error) {
	var p Policy
	for _, name := range names {
		bit, ok := policyByName[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return NONE, fmt.Errorf("coordinator: unknown policy name %q", name)
		}
		p |= bit
	}
	return p, nil
}
