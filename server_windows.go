//go:build windows

package changewatch

import (
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// notifyMask covers every change class ReadDirectoryChangesW can report;
// spec.md §4.4 only distinguishes ADDED/REMOVED/MODIFIED/RENAMED_*, so we
// ask the OS for everything and let the action switch narrow it down.
const notifyMask = windows.FILE_NOTIFY_CHANGE_FILE_NAME |
	windows.FILE_NOTIFY_CHANGE_DIR_NAME |
	windows.FILE_NOTIFY_CHANGE_ATTRIBUTES |
	windows.FILE_NOTIFY_CHANGE_SIZE |
	windows.FILE_NOTIFY_CHANGE_LAST_WRITE |
	windows.FILE_NOTIFY_CHANGE_CREATION

type windowsWatchPoint struct {
	// ov must be the first field: completion status hands back a pointer
	// to it, and the run loop recovers the owning watch point via
	// unsafe.Pointer, exactly as the teacher's windows.go does with its
	// own watch.ov.
	ov     windows.Overlapped
	handle windows.Handle
	path   string
	buf    []byte
	status watchPointStatus
}

type windowsServer struct {
	baseServer

	port windows.Handle

	mu          sync.Mutex // guards byPath; see spec.md §3's "or under the mutation mutex during startup/shutdown"
	byPath      map[string]*windowsWatchPoint
	terminating bool
}

func newPlatformServer(cb ChangeSink, cfg config) server {
	return &windowsServer{
		baseServer: newBaseServer(cb, cfg),
		byPath:     make(map[string]*windowsWatchPoint),
	}
}

func (s *windowsServer) start() error {
	port, err := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, 0)
	if err != nil {
		return &InitializationError{Err: err}
	}
	s.port = port
	go s.runLoop()
	return nil
}

func longPath(path string) string {
	if len(path) < 248 || len(path) > 1 && path[:2] == `\\` {
		return path
	}
	return `\\?\` + path
}

func (s *windowsServer) registerPaths(paths []string) error {
	s.mutationMutex.Lock()
	defer s.mutationMutex.Unlock()

	for _, p := range paths {
		if err := validatePath(p); err != nil {
			return err
		}

		s.mu.Lock()
		_, already := s.byPath[p]
		s.mu.Unlock()
		if already {
			return &AlreadyWatching{Path: p}
		}

		h, err := windows.CreateFile(
			windows.StringToUTF16Ptr(longPath(p)),
			windows.FILE_LIST_DIRECTORY,
			windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
			nil, windows.OPEN_EXISTING,
			windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_OVERLAPPED, 0)
		if err != nil {
			return &WatchFailed{Path: p, Errno: err}
		}

		if _, err := windows.CreateIoCompletionPort(h, s.port, 0, 0); err != nil {
			windows.CloseHandle(h)
			return &WatchFailed{Path: p, Errno: err}
		}

		wp := &windowsWatchPoint{
			handle: h,
			path:   p,
			buf:    make([]byte, s.cfg.bufferSize),
			status: watchPointUninitialized,
		}

		if err := s.arm(wp); err != nil {
			windows.CloseHandle(h)
			return &WatchFailed{Path: p, Errno: err}
		}
		wp.status = watchPointListening

		s.mu.Lock()
		s.byPath[p] = wp
		s.mu.Unlock()
	}
	return nil
}

func (s *windowsServer) arm(wp *windowsWatchPoint) error {
	return windows.ReadDirectoryChanges(wp.handle, &wp.buf[0], uint32(len(wp.buf)), false,
		notifyMask, nil, &wp.ov, 0)
}

func (s *windowsServer) unregisterPaths(paths []string) bool {
	s.mutationMutex.Lock()
	defer s.mutationMutex.Unlock()

	allKnown := true
	for _, p := range paths {
		s.mu.Lock()
		wp, ok := s.byPath[p]
		s.mu.Unlock()
		if !ok {
			allKnown = false
			continue
		}
		windows.CancelIo(wp.handle)
	}
	return allKnown
}

func (s *windowsServer) shutdown(timeout time.Duration) bool {
	s.mutationMutex.Lock()
	s.terminating = true
	s.mu.Lock()
	for _, wp := range s.byPath {
		windows.CancelIo(wp.handle)
	}
	s.mu.Unlock()
	s.mutationMutex.Unlock()

	// Always wake the run loop, even with nothing registered: it may be
	// parked in GetQueuedCompletionStatus with nothing ever scheduled to
	// post to it otherwise, which would leak the goroutine.
	windows.PostQueuedCompletionStatus(s.port, 0, 0, nil)
	return s.waitTerminated(timeout)
}

func (s *windowsServer) runLoop() {
	for {
		var n uint32
		var key uintptr
		var ov *windows.Overlapped
		err := windows.GetQueuedCompletionStatus(s.port, &n, &key, &ov, windows.INFINITE)

		if ov == nil {
			// Wakeup post with no associated I/O: just re-check termination.
			if s.checkDone() {
				return
			}
			continue
		}

		wp := (*windowsWatchPoint)(unsafe.Pointer(ov))

		switch err {
		case windows.ERROR_OPERATION_ABORTED:
			s.finish(wp)
		case nil, windows.ERROR_MORE_DATA:
			if n == 0 {
				// Zero-byte completion: buffer overflow, the Windows
				// idiom for "events were dropped" per spec.md §4.4.
				s.dispatch(Invalidated, wp.path)
			} else {
				s.parseBuffer(wp, n)
			}
			if rearmErr := s.arm(wp); rearmErr != nil {
				s.reportError(&InternalError{Errno: rearmErr})
				s.finish(wp)
			}
		default:
			s.reportError(&InternalError{Errno: err})
			s.finish(wp)
		}

		if s.checkDone() {
			return
		}
	}
}

func (s *windowsServer) finish(wp *windowsWatchPoint) {
	s.mu.Lock()
	if cur, ok := s.byPath[wp.path]; ok && cur == wp {
		delete(s.byPath, wp.path)
	}
	s.mu.Unlock()
	wp.status = watchPointFinished
	windows.CloseHandle(wp.handle)
}

func (s *windowsServer) checkDone() bool {
	s.mutationMutex.Lock()
	terminating := s.terminating
	s.mutationMutex.Unlock()
	if !terminating {
		return false
	}
	s.mu.Lock()
	empty := len(s.byPath) == 0
	s.mu.Unlock()
	if empty {
		s.markTerminated()
		return true
	}
	return false
}

func (s *windowsServer) parseBuffer(wp *windowsWatchPoint, n uint32) {
	offset := uint32(0)
	for {
		raw := (*windows.FileNotifyInformation)(unsafe.Pointer(&wp.buf[offset]))
		nameLen := int(raw.FileNameLength / 2)
		nameSlice := unsafe.Slice(&raw.FileName, nameLen)
		name := windows.UTF16ToString(nameSlice)
		full := wp.path + `\` + name

		switch raw.Action {
		case windows.FILE_ACTION_ADDED, windows.FILE_ACTION_RENAMED_NEW_NAME:
			s.dispatch(Created, full)
		case windows.FILE_ACTION_REMOVED, windows.FILE_ACTION_RENAMED_OLD_NAME:
			s.dispatch(Removed, full)
		case windows.FILE_ACTION_MODIFIED:
			s.dispatch(Modified, full)
		default:
			s.dispatch(Unknown, full)
		}

		if raw.NextEntryOffset == 0 {
			return
		}
		offset += raw.NextEntryOffset
		if offset >= n {
			return
		}
	}
}
