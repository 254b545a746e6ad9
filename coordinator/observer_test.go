package coordinator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingObserver tallies every event it receives, guarded by a mutex
// since Observer callbacks can arrive from the scheduler goroutine as well
// as whichever goroutine calls Submit/SetValue/SetError.
type recordingObserver struct {
	mu sync.Mutex

	hits, misses, notFound int
	keyErrors              int
	registered, completed  int
}

func (o *recordingObserver) ObserveCacheOutcome(outcome CacheOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch outcome {
	case CacheHit:
		o.hits++
	case CacheNotFound:
		o.notFound++
	default:
		o.misses++
	}
}

func (o *recordingObserver) ObserveKeyError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.keyErrors++
}

func (o *recordingObserver) ObserveQueryRegistered() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.registered++
}

func (o *recordingObserver) ObserveQueryCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func (o *recordingObserver) snapshot() recordingObserver {
	o.mu.Lock()
	defer o.mu.Unlock()
	return recordingObserver{
		hits: o.hits, misses: o.misses, notFound: o.notFound,
		keyErrors: o.keyErrors, registered: o.registered, completed: o.completed,
	}
}

func TestObserverReceivesQueryLifecycleEvents(t *testing.T) {
	observer := &recordingObserver{}
	c := New[string, int](noopRequester[string, int](), NONE, WithObserver[string, int](observer))
	defer closeCoordinator(t, c)

	_, err := c.SubmitKeys(Token{}, &collectingListener[string, int]{}, NONE, "a")
	require.NoError(t, err)
	c.SetValue("a", 1)

	snap := observer.snapshot()
	require.Equal(t, 1, snap.registered)
	require.Equal(t, 1, snap.completed)
}

func TestObserverReceivesCacheOutcomes(t *testing.T) {
	observer := &recordingObserver{}
	c := New[string, int](noopRequester[string, int](), NONE, WithObserver[string, int](observer))
	defer closeCoordinator(t, c)

	c.SetValue("hit", 1)
	c.SetNotFound("absent")

	_, err := c.SubmitKeys(Token{}, &collectingListener[string, int]{}, PARTIAL, "hit", "absent", "miss")
	require.NoError(t, err)

	snap := observer.snapshot()
	require.GreaterOrEqual(t, snap.hits, 1)
	require.GreaterOrEqual(t, snap.notFound, 1)
	require.GreaterOrEqual(t, snap.misses, 1)
}

func TestObserverReceivesKeyErrors(t *testing.T) {
	observer := &recordingObserver{}
	c := New[string, int](noopRequester[string, int](), NONE, WithObserver[string, int](observer))
	defer closeCoordinator(t, c)

	c.SetError("a", "b")

	snap := observer.snapshot()
	require.Equal(t, 2, snap.keyErrors)
}

func TestNilObserverIsNeverCalled(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	_, err := c.SubmitKeys(Token{}, &collectingListener[string, int]{}, NONE, "a")
	require.NoError(t, err)
	c.SetValue("a", 1)
	c.SetError("b")
}
