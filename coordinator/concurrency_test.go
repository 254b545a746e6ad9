package coordinator

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestConcurrentSubmitAndIngestIsRaceFree exercises every externally
// reachable mutator from many goroutines at once. It asserts nothing about
// ordering, only that it completes without the race detector firing and
// without a deadlock.
func TestConcurrentSubmitAndIngestIsRaceFree(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%8)
			listener := &collectingListener[string, int]{}
			for j := 0; j < 50; j++ {
				switch j % 5 {
				case 0:
					_, _ = c.SubmitKeys(Token{}, listener, PARTIAL, key)
				case 1:
					c.SetValue(key, j)
				case 2:
					c.SetError(key)
				case 3:
					c.SetNotFound(key)
				case 4:
					_, _ = c.Get(key)
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestConcurrentGetOrSubmitIsRaceFree(t *testing.T) {
	c := New[string, int](noopRequester[string, int](), NONE)
	defer closeCoordinator(t, c)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k-%d", i%4)
			listener := &collectingListener[string, int]{}
			for j := 0; j < 25; j++ {
				_, _, err := c.GetOrSubmit(Token{}, listener, NONE, []string{key})
				require.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	wg.Add(4)
	for i := 0; i < 4; i++ {
		go func(i int) {
			defer wg.Done()
			c.SetValue(fmt.Sprintf("k-%d", i), i)
		}(i)
	}
	wg.Wait()
}
