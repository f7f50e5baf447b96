package shutdown

import "sync/atomic"

// The process-wide shutdown sentinel. The HTTP front-end consults it when
// writing replies so that connections are closed once the node begins to
// shut down; the daemon sets it from its signal handler.

var requested int32

func Request() {
	atomic.StoreInt32(&requested, 1)
}

func Requested() bool {
	return atomic.LoadInt32(&requested) == 1
}

// Reset clears the sentinel. Only tests should need this.
func Reset() {
	atomic.StoreInt32(&requested, 0)
}
