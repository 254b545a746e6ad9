package coordinator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitUniqueRejectsEqualQuery(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	listener := &collectingListener[string, int]{}
	first, err := c.SubmitKeys(Token{}, listener, UNIQUE, "a", "b")
	require.NoError(t, err)
	require.False(t, first.IsZero())

	second, err := c.SubmitKeys(Token{}, listener, UNIQUE, "b", "a")
	require.NoError(t, err)
	require.True(t, second.IsZero())
	require.Equal(t, 1, c.PendingRequests())
}

func TestSubmitUniqueAllowsDifferentKeySet(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	listener := &collectingListener[string, int]{}
	_, err := c.SubmitKeys(Token{}, listener, UNIQUE, "a")
	require.NoError(t, err)
	_, err = c.SubmitKeys(Token{}, listener, UNIQUE, "b")
	require.NoError(t, err)
	require.Equal(t, 2, c.PendingRequests())
}

func TestSubmitNoReplaceRejectsReuseOfToken(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	token, err := c.SubmitKeys(Token{id: "fixed"}, &collectingListener[string, int]{}, NO_REPLACE, "a")
	require.NoError(t, err)
	require.Equal(t, "fixed", token.String())

	reused, err := c.SubmitKeys(token, &collectingListener[string, int]{}, NO_REPLACE, "b")
	require.NoError(t, err)
	require.True(t, reused.IsZero())
}

func TestSubmitReplacesQueryUnderSameTokenByDefault(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	token := Token{id: "fixed"}
	_, err := c.SubmitKeys(token, &collectingListener[string, int]{}, NONE, "a")
	require.NoError(t, err)
	require.Equal(t, 1, c.PendingRequests())

	second := &collectingListener[string, int]{}
	_, err = c.SubmitKeys(token, second, NONE, "b")
	require.NoError(t, err)
	require.Equal(t, 1, c.PendingRequests())

	c.SetValue("b", 9)
	require.Len(t, second.all(), 1)
}

func TestSubmitRefreshEvictsCachedValue(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	c.SetValue("a", 1)
	listener := &collectingListener[string, int]{}
	_, err := c.SubmitKeys(Token{}, listener, REFRESH, "a")
	require.NoError(t, err)

	require.Empty(t, listener.all(), "a stale cached value must not satisfy a REFRESH query")

	c.SetValue("a", 2)
	results := listener.all()
	require.Len(t, results, 1)
	v, ok := results[0].Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestSubmitASAPTriggersImmediateDispatch(t *testing.T) {
	dispatched := make(chan []string, 1)
	requester := RequesterFunc[string, int](func(c *Coordinator[string, int], asap, normal, backlog []string) {
		dispatched <- asap
	})
	c := New[string, int](requester, NONE)
	defer closeCoordinator(t, c)

	_, err := c.SubmitKeys(Token{}, &collectingListener[string, int]{}, ASAP, "a")
	require.NoError(t, err)

	select {
	case keys := <-dispatched:
		require.Equal(t, []string{"a"}, keys)
	default:
		t.Fatal("expected ASAP submit to trigger an immediate dispatch")
	}
}
