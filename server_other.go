//go:build !darwin && !linux && !windows || appengine

package changewatch

import (
	"errors"
	"time"
)

// otherServer backs platforms spec.md never promises support for (and the
// appengine build, which forbids raw syscalls). start always fails rather
// than silently watching nothing.
type otherServer struct {
	baseServer
}

func newPlatformServer(cb ChangeSink, cfg config) server {
	return &otherServer{baseServer: newBaseServer(cb, cfg)}
}

func (s *otherServer) start() error {
	return &InitializationError{Err: errors.New("changewatch: platform not supported")}
}

func (s *otherServer) registerPaths(paths []string) error {
	return &InitializationError{Err: errors.New("changewatch: platform not supported")}
}

func (s *otherServer) unregisterPaths(paths []string) bool {
	return false
}

func (s *otherServer) shutdown(timeout time.Duration) bool {
	s.markTerminated()
	return true
}
