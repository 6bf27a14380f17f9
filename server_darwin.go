//go:build darwin

package changewatch

import (
	"sync"
	"time"

	"github.com/mutagen-io/fsevents"
)

type darwinWatchPoint struct {
	path   string
	status watchPointStatus
}

type darwinServer struct {
	baseServer

	mu     sync.Mutex // guards stream + watches; registerPaths/unregisterPaths restart the single shared stream
	stream *fsevents.EventStream
	byPath map[string]*darwinWatchPoint

	terminating bool
	stopLoop    chan struct{}
}

func newPlatformServer(cb ChangeSink, cfg config) server {
	return &darwinServer{
		baseServer: newBaseServer(cb, cfg),
		byPath:     make(map[string]*darwinWatchPoint),
		stopLoop:   make(chan struct{}),
		stream: &fsevents.EventStream{
			Events:  make(chan []fsevents.Event, 64),
			Paths:   []string{},
			Latency: cfg.latency,
			Flags:   fsevents.FileEvents | fsevents.WatchRoot,
		},
	}
}

// start launches the run-loop goroutine that drains the FSEvents stream.
// The stream itself is started lazily on the first registerPaths call, as
// FSEvents requires at least one path; starting it with an empty Paths
// slice is a silent no-op on macOS.
func (s *darwinServer) start() error {
	go s.runLoop()
	return nil
}

func (s *darwinServer) runLoop() {
	for {
		select {
		case batch, ok := <-s.stream.Events:
			if !ok {
				s.markTerminated()
				return
			}
			s.handleBatch(batch)
		case <-s.stopLoop:
			s.markTerminated()
			return
		}
	}
}

func (s *darwinServer) registerPaths(paths []string) error {
	s.mutationMutex.Lock()
	defer s.mutationMutex.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range paths {
		if err := validatePath(p); err != nil {
			return err
		}
		if _, ok := s.byPath[p]; ok {
			return &AlreadyWatching{Path: p}
		}
	}

	for _, p := range paths {
		s.byPath[p] = &darwinWatchPoint{path: p, status: watchPointListening}
		s.stream.Paths = append(s.stream.Paths, p)
	}

	if !s.terminating {
		if len(s.byPath) == len(paths) {
			s.stream.Start()
		} else {
			s.stream.Restart()
		}
	}
	return nil
}

func (s *darwinServer) unregisterPaths(paths []string) bool {
	s.mutationMutex.Lock()
	defer s.mutationMutex.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	allKnown := true
	for _, p := range paths {
		if _, ok := s.byPath[p]; !ok {
			allKnown = false
			continue
		}
		delete(s.byPath, p)
	}

	remaining := make([]string, 0, len(s.byPath))
	for p := range s.byPath {
		remaining = append(remaining, p)
	}
	s.stream.Paths = remaining

	if !s.terminating {
		if len(remaining) == 0 {
			s.stream.Stop()
		} else {
			s.stream.Restart()
		}
	}
	return allKnown
}

func (s *darwinServer) shutdown(timeout time.Duration) bool {
	s.mutationMutex.Lock()
	s.mu.Lock()
	if !s.terminating {
		s.terminating = true
		s.stream.Stop()
		close(s.stopLoop)
	}
	s.mu.Unlock()
	s.mutationMutex.Unlock()

	return s.waitTerminated(timeout)
}

// watchedRoot returns the longest registered path that prefixes name, the
// way FSEvents reports paths nested under (possibly several levels below)
// the watched root rather than the root itself.
func (s *darwinServer) watchedRoot(name string) (string, bool) {
	best := ""
	for p := range s.byPath {
		if (name == p || len(name) > len(p) && name[len(p)] == '/' && name[:len(p)] == p) && len(p) > len(best) {
			best = p
		}
	}
	return best, best != ""
}

// pendingEvent is a normalized event waiting to be dispatched once
// handleBatch has released s.mu — the ChangeSink callback must never run
// while an internal lock is held, since a sink that calls back into the
// Watcher (e.g. StopWatching from PathChanged) would deadlock against
// registerPaths/unregisterPaths.
type pendingEvent struct {
	t    ChangeType
	path string
}

// handleBatch normalizes one FSEvents callback invocation, applying the
// flag-priority rules of spec.md §4.2: ROOT_CHANGED beats everything,
// MUST_SCAN_SUB_DIRS becomes OVERFLOW, and a single entry's remaining
// flags fan out in (Created, Modified, Removed) order.
func (s *darwinServer) handleBatch(batch []fsevents.Event) {
	var toDispatch []pendingEvent
	rootInvalidated := false

	s.mu.Lock()
	for _, ev := range batch {
		root, ok := s.watchedRoot(ev.Path)
		if !ok {
			continue
		}

		flags := ev.Flags
		switch {
		case flags&fsevents.RootChanged != 0:
			toDispatch = append(toDispatch, pendingEvent{Invalidated, root})
			delete(s.byPath, root)
			rootInvalidated = true
			continue
		case flags&fsevents.MustScanSubDirs != 0:
			toDispatch = append(toDispatch, pendingEvent{Overflow, ev.Path})
			continue
		}

		emitted := false
		if flags&(fsevents.ItemCreated|fsevents.ItemRenamed) != 0 {
			toDispatch = append(toDispatch, pendingEvent{Created, ev.Path})
			emitted = true
		}
		if flags&(fsevents.ItemModified|fsevents.ItemInodeMetaMod|fsevents.ItemFinderInfoMod|
			fsevents.ItemChangeOwner|fsevents.ItemXattrMod) != 0 {
			toDispatch = append(toDispatch, pendingEvent{Modified, ev.Path})
			emitted = true
		}
		if flags&fsevents.ItemRemoved != 0 {
			toDispatch = append(toDispatch, pendingEvent{Removed, ev.Path})
			emitted = true
		}
		if !emitted {
			toDispatch = append(toDispatch, pendingEvent{Unknown, ev.Path})
		}
	}

	// A RootChanged root was dropped from byPath above; drop it from the
	// stream's path set too, or FSEvents keeps re-arming a watch for a
	// root this server no longer considers registered.
	if rootInvalidated && !s.terminating {
		remaining := make([]string, 0, len(s.byPath))
		for p := range s.byPath {
			remaining = append(remaining, p)
		}
		s.stream.Paths = remaining
		if len(remaining) == 0 {
			s.stream.Stop()
		} else {
			s.stream.Restart()
		}
	}
	s.mu.Unlock()

	for _, pe := range toDispatch {
		s.dispatch(pe.t, pe.path)
	}
}
