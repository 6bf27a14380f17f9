package changewatch

import "fmt"

// ChangeType is the closed set of normalized events the engine reports.
//
// INVALIDATED signals that the watched root is no longer observable and
// must be re-scanned. OVERFLOW signals that the OS dropped events and a
// re-scan is required. UNKNOWN signals that the OS reported an action the
// engine does not map to anything more specific.
type ChangeType int

const (
	// Unknown is the zero value: the OS reported an action this engine
	// doesn't map to anything more specific.
	Unknown ChangeType = iota
	// Created means a path was created (or renamed into the watched tree).
	Created
	// Removed means a path was removed (or renamed out of the watched tree).
	Removed
	// Modified means a path's content or metadata changed.
	Modified
	// Invalidated means the watched root is no longer observable; the
	// caller must re-scan it.
	Invalidated
	// Overflow means events were dropped by the OS; a re-scan is required.
	Overflow
)

func (t ChangeType) String() string {
	switch t {
	case Created:
		return "CREATED"
	case Removed:
		return "REMOVED"
	case Modified:
		return "MODIFIED"
	case Invalidated:
		return "INVALIDATED"
	case Overflow:
		return "OVERFLOW"
	default:
		return "UNKNOWN"
	}
}

// Event is a single normalized change notification. Events are transient:
// the engine never stores them, it dispatches each synchronously to the
// ChangeSink from the run-loop goroutine as soon as it's normalized.
type Event struct {
	// Type is the normalized kind of change.
	Type ChangeType
	// Path is the absolute path the change occurred at. It is never
	// canonicalized: if the caller watched a symlink, the symlink's own
	// path is reported, not its target.
	Path string
}

func (e Event) String() string {
	return fmt.Sprintf("%s: %q", e.Type, e.Path)
}

// ChangeSink receives normalized events and error reports from a Watcher.
// It is invoked from the Watcher's dedicated run-loop goroutine, which is
// never the goroutine that called New or StartWatching.
//
// The sink is externally owned and must outlive the Watcher.
type ChangeSink interface {
	// PathChanged is called once per normalized Event. If it panics, the
	// Watcher recovers, wraps the panic value in a *CallbackFailure, and
	// delivers it via ReportError exactly once. A panic from ReportError
	// itself is logged and suppressed.
	PathChanged(t ChangeType, path string)

	// ReportError delivers an error that arose on the run-loop goroutine:
	// an *InternalError or a *CallbackFailure. Overflow and
	// invalidation are never reported here — they're Events, not errors.
	ReportError(err error)
}

// FuncSink adapts two plain functions into a ChangeSink, the way
// http.HandlerFunc adapts a function into an http.Handler.
type FuncSink struct {
	OnChange func(t ChangeType, path string)
	OnError  func(err error)
}

// PathChanged implements ChangeSink.
func (f FuncSink) PathChanged(t ChangeType, path string) {
	if f.OnChange != nil {
		f.OnChange(t, path)
	}
}

// ReportError implements ChangeSink.
func (f FuncSink) ReportError(err error) {
	if f.OnError != nil {
		f.OnError(err)
	}
}
