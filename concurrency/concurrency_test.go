package concurrency

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBarrierReleasesAllAtOnce(t *testing.T) {
	b := NewBarrier(3)
	var wg sync.WaitGroup
	done := make(chan int, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, b.Wait())
			done <- i
		}(i)
	}
	wg.Wait()
	close(done)
	count := 0
	for range done {
		count++
	}
	require.Equal(t, 3, count)
}

func TestBarrierIsReusable(t *testing.T) {
	b := NewBarrier(2)
	for round := 0; round < 2; round++ {
		var wg sync.WaitGroup
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				defer wg.Done()
				assert := require.New(t)
				assert.NoError(b.Wait())
			}()
		}
		wg.Wait()
	}
}

func TestBarrierAbortWakesWaiters(t *testing.T) {
	b := NewBarrier(2)
	errs := make(chan error, 1)
	go func() {
		errs <- b.Wait()
	}()
	time.Sleep(20 * time.Millisecond)
	b.Abort()
	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrAborted)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Abort")
	}
}

func TestMutexSerializesForwardRing(t *testing.T) {
	m := NewMutex(3)
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 2; i >= 0; i-- { // launch in reverse order to prove the ring enforces order
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := m.Enter(i, false); err != nil {
				t.Errorf("Enter(%d): %v", i, err)
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			m.Exit(i, false)
		}(i)
	}
	wg.Wait()
	require.Equal(t, []int{0, 1, 2}, order, "expected forward ring order 0,1,2")
}

func TestMutexCounterFlowRejected(t *testing.T) {
	m := NewMutex(2)
	require.NoError(t, m.Enter(0, false))
	require.ErrorIs(t, m.Enter(1, true), ErrCounterFlow)
	m.Exit(0, false)
}

func TestCoordinatorAbortPropagatesToBarrierAndMutex(t *testing.T) {
	c := NewCoordinator(2)
	b := c.Barrier("b")
	m := c.Mutex("m")
	errs := make(chan error, 1)
	go func() { errs <- b.Wait() }()
	time.Sleep(20 * time.Millisecond)
	c.Abort(ErrAborted)
	select {
	case err := <-errs:
		require.ErrorIs(t, err, ErrAborted)
	case <-time.After(time.Second):
		t.Fatal("barrier was not aborted by coordinator")
	}
	require.ErrorIs(t, m.Enter(1, false), ErrAborted)
	require.ErrorIs(t, c.FirstError(), ErrAborted)
}
