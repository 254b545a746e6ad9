package coordinator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetValueClearsPriorErrorCount(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	c.SetError("a")
	c.mu.Lock()
	require.Equal(t, 1, c.errorCount["a"])
	c.mu.Unlock()

	c.SetValue("a", 5)
	c.mu.Lock()
	_, hasErr := c.errorCount["a"]
	c.mu.Unlock()
	require.False(t, hasErr)
}

func TestSetNotFoundClearsPriorErrorCount(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	c.SetError("a")
	c.SetNotFound("a")

	c.mu.Lock()
	_, hasErr := c.errorCount["a"]
	entry := c.cache["a"]
	c.mu.Unlock()
	require.False(t, hasErr)
	require.True(t, entry.notFound)
	require.False(t, entry.hasValue)
}

func TestSetValuesBulkIngestsAllKeys(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	c.SetValues(map[string]int{"a": 1, "b": 2})
	va, oka := c.Get("a")
	vb, okb := c.Get("b")
	require.True(t, oka)
	require.True(t, okb)
	require.Equal(t, 1, va)
	require.Equal(t, 2, vb)
}

func TestMarkRequestedExcludesKeyFromDispatchUntilResponse(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	_, err := c.SubmitKeys(Token{}, &collectingListener[string, int]{}, NONE, "a")
	require.NoError(t, err)
	c.MarkRequested("a")

	c.mu.Lock()
	sets := c.buildDispatchSets()
	c.mu.Unlock()
	require.Empty(t, toSlice(sets.normal))
	require.Empty(t, toSlice(sets.asap))

	c.SetValue("a", 1)
	c.mu.Lock()
	_, stillPending := c.pending["a"]
	c.mu.Unlock()
	require.False(t, stillPending)
}

func TestMarkRequestedIgnoresEmptyInput(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	c.MarkRequested()
	c.mu.Lock()
	size := len(c.pending)
	c.mu.Unlock()
	require.Equal(t, 0, size)
}
