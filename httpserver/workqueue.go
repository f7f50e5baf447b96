package httpserver

import (
	"sync"

	"github.com/eapache/queue"
)

// HTTPClosure is one unit of work for the worker pool.
type HTTPClosure interface {
	// Run executes the work on a worker goroutine.
	Run()
	// Destroy releases a closure that will never run.
	Destroy()
}

// WorkQueue is a bounded FIFO distributing closures over multiple worker
// goroutines. Producers never block: Enqueue fails fast at depth.
type WorkQueue struct {
	mtx      sync.Mutex
	cond     *sync.Cond
	items    *queue.Queue
	running  bool
	maxDepth int
}

func NewWorkQueue(maxDepth int) *WorkQueue {
	q := &WorkQueue{
		items:    queue.New(),
		running:  true,
		maxDepth: maxDepth,
	}
	q.cond = sync.NewCond(&q.mtx)
	return q
}

// Enqueue adds item unless the queue is at depth. The caller keeps ownership
// when false is returned.
func (q *WorkQueue) Enqueue(item HTTPClosure) bool {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if q.items.Length() >= q.maxDepth {
		return false
	}
	q.items.Add(item)
	metrics.WorkQueueDepth.Set(float64(q.items.Length()))
	q.cond.Signal()
	return true
}

// Run loops until Interrupt, executing one item at a time. Items run outside
// the queue lock.
func (q *WorkQueue) Run() {
	for {
		q.mtx.Lock()
		for q.running && q.items.Length() == 0 {
			q.cond.Wait()
		}
		if !q.running {
			q.mtx.Unlock()
			return
		}
		item := q.items.Remove().(HTTPClosure)
		metrics.WorkQueueDepth.Set(float64(q.items.Length()))
		q.mtx.Unlock()
		item.Run()
	}
}

// Interrupt stops consumption and wakes every worker. Pending items stay
// queued until Close.
func (q *WorkQueue) Interrupt() {
	q.mtx.Lock()
	q.running = false
	q.cond.Broadcast()
	q.mtx.Unlock()
}

// Close destroys whatever is still queued. All workers must have been joined
// before calling it.
func (q *WorkQueue) Close() {
	q.mtx.Lock()
	for q.items.Length() > 0 {
		item := q.items.Remove().(HTTPClosure)
		q.mtx.Unlock()
		item.Destroy()
		q.mtx.Lock()
	}
	metrics.WorkQueueDepth.Set(0)
	q.mtx.Unlock()
}

// Depth reports the number of queued items.
func (q *WorkQueue) Depth() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.items.Length()
}
