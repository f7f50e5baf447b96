package httpserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startBase(t *testing.T) *EventBase {
	t.Helper()
	base := NewEventBase()
	go base.Dispatch()
	t.Cleanup(func() {
		base.Break()
		base.WaitExit()
	})
	return base
}

func TestEventBasePostRunsInOrder(t *testing.T) {
	base := startBase(t)

	var order []int
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		i := i
		base.Post(func() {
			order = append(order, i)
			if i == 9 {
				close(done)
			}
		})
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("posted closures did not run")
	}
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestEventBaseBreakRunsEarlierPosts(t *testing.T) {
	base := NewEventBase()

	ran := 0
	for i := 0; i < 5; i++ {
		base.Post(func() { ran++ })
	}
	base.Break()
	base.Dispatch()
	require.Equal(t, 5, ran)
}

func TestEventImmediateTrigger(t *testing.T) {
	base := startBase(t)

	fired := make(chan struct{})
	ev := NewEvent(base, true, func() { close(fired) })
	ev.Trigger(nil)

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("event did not fire")
	}
}

func TestEventTimedTrigger(t *testing.T) {
	base := startBase(t)

	fired := make(chan time.Time, 1)
	ev := NewEvent(base, true, func() { fired <- time.Now() })
	delay := 50 * time.Millisecond
	start := time.Now()
	ev.Trigger(&delay)

	select {
	case at := <-fired:
		require.GreaterOrEqual(t, at.Sub(start), delay)
	case <-time.After(5 * time.Second):
		t.Fatal("timed event did not fire")
	}
}

func TestOneShotEventRefusesSecondTrigger(t *testing.T) {
	base := startBase(t)

	ev := NewEvent(base, true, func() {})
	ev.Trigger(nil)
	require.Panics(t, func() { ev.Trigger(nil) })
}

func TestReusableEventRearms(t *testing.T) {
	base := startBase(t)

	fired := make(chan struct{}, 2)
	ev := NewEvent(base, false, func() { fired <- struct{}{} })
	defer ev.Close()

	ev.Trigger(nil)
	<-fired
	ev.Trigger(nil)
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("reusable event did not fire twice")
	}
}
