package httpserver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testClosure struct {
	run     func()
	destroy func()
}

func (c *testClosure) Run() {
	if c.run != nil {
		c.run()
	}
}

func (c *testClosure) Destroy() {
	if c.destroy != nil {
		c.destroy()
	}
}

func TestWorkQueueBound(t *testing.T) {
	q := NewWorkQueue(2)
	require.True(t, q.Enqueue(&testClosure{}))
	require.True(t, q.Enqueue(&testClosure{}))
	require.False(t, q.Enqueue(&testClosure{}), "enqueue beyond maxDepth must fail fast")
	require.Equal(t, 2, q.Depth())
}

func TestWorkQueueFIFO(t *testing.T) {
	q := NewWorkQueue(16)

	var mtx sync.Mutex
	var order []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		q.Enqueue(&testClosure{run: func() {
			mtx.Lock()
			order = append(order, i)
			if len(order) == 5 {
				close(done)
			}
			mtx.Unlock()
		}})
	}

	// a single worker must see insertion order
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Run()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not drain the queue")
	}
	q.Interrupt()
	wg.Wait()
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestWorkQueueInterruptStopsWorkers(t *testing.T) {
	q := NewWorkQueue(4)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Run()
		}()
	}
	q.Interrupt()

	exited := make(chan struct{})
	go func() {
		wg.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("workers did not exit after Interrupt")
	}
}

func TestWorkQueuePendingDestroyedNotRun(t *testing.T) {
	q := NewWorkQueue(4)

	var ran, destroyed int
	for i := 0; i < 3; i++ {
		q.Enqueue(&testClosure{
			run:     func() { ran++ },
			destroy: func() { destroyed++ },
		})
	}
	q.Interrupt()

	// an interrupted worker must not consume the backlog
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Run()
	}()
	wg.Wait()

	q.Close()
	require.Equal(t, 0, ran)
	require.Equal(t, 3, destroyed)
	require.Equal(t, 0, q.Depth())
}
