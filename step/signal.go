package step

import (
	"os"
	"os/signal"
	"sync"

	"github.com/rwcarlsen/madsgo/stopreason"
)

// SignalWatcher implements §4.1's SIGINT handling: the first Ctrl-C raises
// HOT_RESTART on reasons and latches an "interrupted" flag; a second
// Ctrl-C terminates the process outright, since a user who interrupts
// twice wants out immediately rather than waiting for a graceful
// hot-restart flush.
//
// Grounded as stdlib-only (os/signal): no repo in the retrieval pack reaches
// for a signal-handling library for this, and os/signal is the only
// reasonable tool for it.
type SignalWatcher struct {
	mu          sync.Mutex
	interrupted bool
	ch          chan os.Signal
	done        chan struct{}
}

// NewSignalWatcher starts watching for SIGINT and applying HOT_RESTART to
// reasons on the first one, terminating the process on the second.
func NewSignalWatcher(reasons *stopreason.Reasons) *SignalWatcher {
	w := &SignalWatcher{
		ch:   make(chan os.Signal, 2),
		done: make(chan struct{}),
	}
	signal.Notify(w.ch, os.Interrupt)
	go w.run(reasons)
	return w
}

func (w *SignalWatcher) run(reasons *stopreason.Reasons) {
	for {
		select {
		case <-w.ch:
			w.mu.Lock()
			first := !w.interrupted
			w.interrupted = true
			w.mu.Unlock()
			if first {
				reasons.Set(stopreason.HotRestart)
			} else {
				os.Exit(130) // 128 + SIGINT, conventional for interrupted processes
			}
		case <-w.done:
			return
		}
	}
}

// Interrupted reports whether at least one SIGINT has been received.
func (w *SignalWatcher) Interrupted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interrupted
}

// Stop detaches the signal handler, restoring default SIGINT behavior.
func (w *SignalWatcher) Stop() {
	signal.Stop(w.ch)
	close(w.done)
}
