package changewatch

import (
	"sync"
	"time"
)

// Watcher is the public handle returned by New. It corresponds to
// spec.md's Registry/public-entry-points layer: a small, stateless
// wrapper routing StartWatching/StopWatching/Close into a per-platform
// Server.
//
// A Watcher should not be copied after first use.
type Watcher struct {
	srv server

	closeMu sync.Mutex
	closed  bool
}

// New creates a Watcher that reports events and errors to sink. It starts
// the dedicated run-loop goroutine immediately and blocks until it's
// ready, returning *InitializationError if the underlying OS mechanism
// could not be started.
func New(sink ChangeSink, opts ...Option) (*Watcher, error) {
	if sink == nil {
		panic("changewatch: nil ChangeSink")
	}

	cfg := newConfig()
	for _, o := range opts {
		o(&cfg)
	}

	srv := newPlatformServer(sink, cfg)
	if err := srv.start(); err != nil {
		return nil, err
	}
	return &Watcher{srv: srv}, nil
}

// StartWatching begins watching each of paths, which must be absolute
// paths to directories (macOS silently accepts non-existent or
// non-directory paths; see SPEC_FULL.md §9's Open Question). It returns
// the first error encountered. On Linux and Windows, paths registered
// before the failing one remain watched; on macOS every path is checked
// before any is added, so a failure leaves none of them watched.
func (w *Watcher) StartWatching(paths []string) error {
	return w.srv.registerPaths(paths)
}

// StopWatching stops watching each of paths. Unknown paths are silently
// accepted. It returns whether every path had previously been watched.
// Events already observed by the OS before StopWatching is acknowledged
// may still be delivered; callers must tolerate a short tail, per
// spec.md §5.
func (w *Watcher) StopWatching(paths []string) bool {
	return w.srv.unregisterPaths(paths)
}

// Close requests termination of the run-loop goroutine and waits up to
// timeout for it to drain in-flight events and exit. It returns whether
// termination completed within timeout; if not, the Watcher remains in a
// draining state and a later Close call may be used to extend the wait.
//
// Calling Close a second time after it has fully drained returns
// *AlreadyClosed.
func (w *Watcher) Close(timeout time.Duration) (bool, error) {
	w.closeMu.Lock()
	if w.closed {
		w.closeMu.Unlock()
		return false, &AlreadyClosed{}
	}
	drained := w.srv.shutdown(timeout)
	if drained {
		w.closed = true
	}
	w.closeMu.Unlock()
	return drained, nil
}
