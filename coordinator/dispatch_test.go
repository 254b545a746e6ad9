package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatchSkipsPendingKeys(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	_, err := c.SubmitKeys(Token{}, &collectingListener[string, int]{}, NONE, "a", "b")
	require.NoError(t, err)
	c.MarkRequested("a")

	c.mu.Lock()
	sets := c.buildDispatchSets()
	c.mu.Unlock()

	require.NotContains(t, toSlice(sets.normal), "a")
	require.Contains(t, toSlice(sets.normal), "b")
}

func TestDispatchRoutesASAPKeysSeparately(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	_, err := c.SubmitKeys(Token{}, &collectingListener[string, int]{}, NONE, "normal-key")
	require.NoError(t, err)
	_, err = c.SubmitKeys(Token{}, &collectingListener[string, int]{}, ASAP, "asap-key")
	require.NoError(t, err)

	c.mu.Lock()
	sets := c.buildDispatchSets()
	c.mu.Unlock()

	require.Contains(t, toSlice(sets.asap), "asap-key")
	require.Contains(t, toSlice(sets.normal), "normal-key")
	require.NotContains(t, toSlice(sets.normal), "asap-key")
}

func TestDispatchBacklogsKeysInsideErrorCooloff(t *testing.T) {
	clock := newFakeClock()
	c := New[string, int](noopRequester[string, int](), NONE)
	c.clock = clock
	defer closeCoordinator(t, c)

	// RETRY keeps the query registered while "a" is cooling off; under NONE
	// the error would be surfaced as a nil result and the query retired.
	_, err := c.SubmitKeys(Token{}, &collectingListener[string, int]{}, RETRY, "a")
	require.NoError(t, err)
	c.SetError("a")

	c.mu.Lock()
	sets := c.buildDispatchSets()
	c.mu.Unlock()

	require.Contains(t, toSlice(sets.backlog), "a")
	require.NotContains(t, toSlice(sets.normal), "a")

	clock.Advance(20 * time.Second)

	c.mu.Lock()
	sets = c.buildDispatchSets()
	c.mu.Unlock()

	require.Contains(t, toSlice(sets.normal), "a")
}

func TestCheckErrorRefreshQueryAlwaysEligibleBeforeResponse(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	q := newQuery[string, int](nil, REFRESH, []string{"a"})
	c.mu.Lock()
	defer c.mu.Unlock()
	require.True(t, c.checkError("a", q))
}

func TestAcceptUpToRespectsLimitAndPriorityOrder(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	accepted := c.AcceptUpTo([]string{"a1", "a2"}, []string{"n1"}, []string{"b1", "b2"}, 3)
	require.Equal(t, []string{"a1", "a2", "n1"}, accepted)

	c.mu.Lock()
	pendingCount := len(c.pending)
	c.mu.Unlock()
	require.Equal(t, 3, pendingCount)
}
