package changewatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// server is the abstract contract each platform run loop satisfies. It
// corresponds to spec.md's abstract Server base: start the run-loop
// goroutine, register/unregister watch points on it, and drain it on
// shutdown. Every method here is called from the caller's goroutine;
// implementations are responsible for crossing over to their own run-loop
// goroutine via whatever wakeup primitive fits their OS (self-pipe+epoll
// on Linux, an FSEvents Restart on macOS, an I/O completion post on
// Windows).
type server interface {
	// start creates the run-loop goroutine and blocks until it signals
	// ready or failed.
	start() error
	// registerPaths validates and adds each path, in order, returning the
	// first error encountered. Already-registered paths are left alone
	// and reported as *AlreadyWatching. The macOS server checks every path
	// before adding any, so a failure there registers none of them.
	registerPaths(paths []string) error
	// unregisterPaths removes each path if present; unknown paths are
	// silently accepted. It reports whether every path had been watched.
	unregisterPaths(paths []string) bool
	// shutdown requests termination and waits up to timeout for the
	// run-loop goroutine to drain and exit. It reports whether it drained
	// in time.
	shutdown(timeout time.Duration) bool
}

// baseServer holds the state common to every platform's server: the
// mutation mutex that serializes structural changes from the caller's
// goroutine, the sink, and the ambient logger. The watch-point set itself
// is owned by each platform's server: on Linux only the run-loop goroutine
// mutates it, while the macOS and Windows servers also mutate it from the
// caller's goroutine under their own lock. baseServer doesn't hold that
// set because its shape (path ↔ fd, path ↔ inode, path ↔ OS handle)
// differs per platform.
type baseServer struct {
	sink zerolog.Logger
	cb   ChangeSink
	cfg  config

	mutationMutex sync.Mutex

	termMu         sync.Mutex
	terminated     bool
	terminatedChan chan struct{}
}

func newBaseServer(cb ChangeSink, cfg config) baseServer {
	return baseServer{
		sink:           cfg.logger,
		cb:             cb,
		cfg:            cfg,
		terminatedChan: make(chan struct{}),
	}
}

// dispatch invokes the ChangeSink on the run-loop goroutine, recovering a
// panic into a *CallbackFailure exactly once per spec.md §4.6. A panic
// from ReportError is logged and suppressed, never propagated.
func (b *baseServer) dispatch(t ChangeType, path string) {
	defer func() {
		if r := recover(); r != nil {
			b.reportError(&CallbackFailure{Message: fmt.Sprint(r)})
		}
	}()
	b.cb.PathChanged(t, path)
}

func (b *baseServer) reportError(err error) {
	defer func() {
		if r := recover(); r != nil {
			b.sink.Error().Interface("panic", r).Msg("changewatch: ChangeSink.ReportError panicked; suppressed")
		}
	}()
	b.cb.ReportError(err)
}

// markTerminated signals waiters in shutdown() that the run loop has
// finished. The Linux and Windows loops empty their watch-point set before
// calling it; the macOS loop stops with its registered paths still
// recorded.
func (b *baseServer) markTerminated() {
	b.termMu.Lock()
	defer b.termMu.Unlock()
	if !b.terminated {
		b.terminated = true
		close(b.terminatedChan)
	}
}

// waitTerminated blocks until markTerminated is called or timeout
// elapses, reporting which happened first. It never leaves a goroutine
// behind: both arms are satisfied by channels the caller already owns.
func (b *baseServer) waitTerminated(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-b.terminatedChan:
		return true
	case <-timer.C:
		return false
	}
}
