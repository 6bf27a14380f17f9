// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package changewatch provides a cross-platform filesystem change
// notification engine.
//
// It watches one or more directory trees and delivers normalized change
// events (Created, Removed, Modified, Invalidated, Overflow) to a
// caller-supplied ChangeSink. Three platform-specific run loops do the
// actual work: FSEvents on macOS, inotify on Linux, and
// ReadDirectoryChangesW on Windows. All three present the same lifecycle,
// error reporting, and thread model through the Watcher type.
//
// A Watcher owns exactly one dedicated run-loop goroutine. All OS
// notifications are received, normalized, and dispatched to the
// ChangeSink from that goroutine; the caller's goroutine only blocks
// briefly during StartWatching, StopWatching, and Close.
package changewatch
