package httpserver

import (
	"sync"
	"time"

	"github.com/eapache/queue"
)

// EventBase is the reactor: a single goroutine consuming posted closures in
// FIFO order. Everything that touches a connection for I/O runs inside a
// closure on the dispatch goroutine.
type EventBase struct {
	mtx     sync.Mutex
	pending *queue.Queue
	wake    chan struct{}
	done    chan struct{}
}

func NewEventBase() *EventBase {
	return &EventBase{
		pending: queue.New(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Post schedules fn on the dispatch goroutine. Posting never blocks. Closures
// posted after Break are dropped.
func (b *EventBase) Post(fn func()) {
	b.mtx.Lock()
	b.pending.Add(fn)
	b.mtx.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Dispatch runs the loop until Break's sentinel is consumed. It must be
// called from exactly one goroutine.
func (b *EventBase) Dispatch() {
	defer close(b.done)
	for {
		b.mtx.Lock()
		for b.pending.Length() > 0 {
			v := b.pending.Remove()
			b.mtx.Unlock()
			if v == nil {
				return
			}
			v.(func())()
			b.mtx.Lock()
		}
		b.mtx.Unlock()
		<-b.wake
	}
}

// Break stops the loop once everything posted before it has run.
func (b *EventBase) Break() {
	b.mtx.Lock()
	b.pending.Add(nil)
	b.mtx.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// WaitExit blocks until Dispatch has returned.
func (b *EventBase) WaitExit() {
	<-b.done
}

func (b *EventBase) exited() <-chan struct{} {
	return b.done
}

// Event is a trigger delivered on the dispatch goroutine. An event created
// with deleteOnFire is one-shot: arming it a second time is a programmer
// error. Events must only be created while the reactor is alive.
type Event struct {
	base         *EventBase
	deleteOnFire bool
	handler      func()

	mtx   sync.Mutex
	armed bool
	timer *time.Timer
}

func NewEvent(base *EventBase, deleteOnFire bool, handler func()) *Event {
	return &Event{base: base, deleteOnFire: deleteOnFire, handler: handler}
}

// Trigger arms the event. A nil delay fires it on the next dispatch
// iteration; otherwise a timer posts it once the delay elapses.
func (e *Event) Trigger(delay *time.Duration) {
	e.mtx.Lock()
	if e.deleteOnFire && e.armed {
		e.mtx.Unlock()
		panic("httpserver: one-shot event triggered twice")
	}
	e.armed = true
	if delay == nil {
		e.mtx.Unlock()
		e.base.Post(e.handler)
		return
	}
	e.timer = time.AfterFunc(*delay, func() {
		e.base.Post(e.handler)
	})
	e.mtx.Unlock()
}

// Close cancels a pending timer. Owners of reusable events call it at
// teardown; one-shot reply events need no cleanup.
func (e *Event) Close() {
	e.mtx.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mtx.Unlock()
}
