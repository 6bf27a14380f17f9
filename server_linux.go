//go:build linux && !appengine

package changewatch

import (
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/changewatch/changewatch/internal/capabilities"
)

// watchMask is the fixed inotify mask installed for every registered
// directory, exactly as spec.md §4.3 specifies.
const watchMask = unix.IN_CREATE | unix.IN_MODIFY | unix.IN_ATTRIB |
	unix.IN_CLOSE_WRITE | unix.IN_MOVED_FROM | unix.IN_MOVED_TO |
	unix.IN_DELETE | unix.IN_DELETE_SELF | unix.IN_MOVE_SELF | unix.IN_ONLYDIR

// inotifyEventHeader mirrors struct inotify_event's fixed portion; the
// variable-length name follows it in the read buffer.
type inotifyEventHeader struct {
	Wd     int32
	Mask   uint32
	Cookie uint32
	Len    uint32
}

const inotifyHeaderSize = int(unsafe.Sizeof(inotifyEventHeader{}))

type linuxWatchPoint struct {
	wd     uint32
	path   string
	status watchPointStatus
}

// linuxRequest is one cross-thread mutation request, delivered to the
// run-loop goroutine through a mutex-guarded queue and the self-pipe
// wakeup, exactly as spec.md §4.3/§9 describes for Linux.
type linuxRequest struct {
	kind   requestKind
	path   string
	result chan error  // register
	done   chan bool   // unregister / shutdown
}

type requestKind int

const (
	reqRegister requestKind = iota
	reqUnregister
	reqShutdown
)

type linuxServer struct {
	baseServer

	fd    int // inotify instance fd
	epfd  int
	pipeR int
	pipeW int

	byWd   map[uint32]*linuxWatchPoint
	byPath map[string]*linuxWatchPoint

	reqMu   sync.Mutex
	pending []linuxRequest
}

func newPlatformServer(cb ChangeSink, cfg config) server {
	return &linuxServer{
		baseServer: newBaseServer(cb, cfg),
		byWd:       make(map[uint32]*linuxWatchPoint),
		byPath:     make(map[string]*linuxWatchPoint),
	}
}

func (s *linuxServer) start() error {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return &InitializationError{Err: err}
	}

	var pipeFDs [2]int
	if err := unix.Pipe2(pipeFDs[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.Close(fd)
		return &InitializationError{Err: err}
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		unix.Close(fd)
		unix.Close(pipeFDs[0])
		unix.Close(pipeFDs[1])
		return &InitializationError{Err: err}
	}

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Fd: int32(fd), Events: unix.EPOLLIN}); err != nil {
		unix.Close(fd)
		unix.Close(pipeFDs[0])
		unix.Close(pipeFDs[1])
		unix.Close(epfd)
		return &InitializationError{Err: err}
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, pipeFDs[0], &unix.EpollEvent{Fd: int32(pipeFDs[0]), Events: unix.EPOLLIN}); err != nil {
		unix.Close(fd)
		unix.Close(pipeFDs[0])
		unix.Close(pipeFDs[1])
		unix.Close(epfd)
		return &InitializationError{Err: err}
	}

	s.fd = fd
	s.epfd = epfd
	s.pipeR = pipeFDs[0]
	s.pipeW = pipeFDs[1]

	if can, err := capabilities.HasDACReadSearch(); err == nil {
		s.sink.Debug().Bool("cap_dac_read_search", can).Msg("changewatch: linux run loop starting")
	}

	go s.runLoop()
	return nil
}

func (s *linuxServer) wake() {
	var b [1]byte
	unix.Write(s.pipeW, b[:])
}

func (s *linuxServer) enqueue(r linuxRequest) {
	s.reqMu.Lock()
	s.pending = append(s.pending, r)
	s.reqMu.Unlock()
	s.wake()
}

func (s *linuxServer) drainRequests() []linuxRequest {
	var buf [64]byte
	for {
		n, err := unix.Read(s.pipeR, buf[:])
		if n <= 0 || err != nil {
			break
		}
	}
	s.reqMu.Lock()
	reqs := s.pending
	s.pending = nil
	s.reqMu.Unlock()
	return reqs
}

func (s *linuxServer) registerPaths(paths []string) error {
	for _, p := range paths {
		if err := validatePath(p); err != nil {
			return err
		}
		result := make(chan error, 1)
		s.enqueue(linuxRequest{kind: reqRegister, path: p, result: result})
		if err := <-result; err != nil {
			return err
		}
	}
	return nil
}

func (s *linuxServer) unregisterPaths(paths []string) bool {
	allKnown := true
	for _, p := range paths {
		done := make(chan bool, 1)
		s.enqueue(linuxRequest{kind: reqUnregister, path: p, done: done})
		if !<-done {
			allKnown = false
		}
	}
	return allKnown
}

func (s *linuxServer) shutdown(timeout time.Duration) bool {
	done := make(chan bool, 1)
	s.enqueue(linuxRequest{kind: reqShutdown, done: done})
	return s.waitTerminated(timeout)
}

func (s *linuxServer) runLoop() {
	events := make([]unix.EpollEvent, 8)
	buf := make([]byte, 64*1024)

	// pendingModify suppresses a following IN_CLOSE_WRITE for the same wd
	// within one read, per spec.md §4.3.
	pendingModify := make(map[uint32]bool)

	for {
		n, err := unix.EpollWait(s.epfd, events, -1)
		if n == -1 {
			if err == unix.EINTR {
				continue
			}
			s.reportError(&InternalError{Errno: err})
			continue
		}

		wokeByPipe := false
		inotifyReady := false
		for _, ev := range events[:n] {
			if int(ev.Fd) == s.pipeR {
				wokeByPipe = true
			}
			if int(ev.Fd) == s.fd {
				inotifyReady = true
			}
		}

		if wokeByPipe {
			for _, req := range s.drainRequests() {
				switch req.kind {
				case reqRegister:
					req.result <- s.addWatch(req.path)
				case reqUnregister:
					req.done <- s.removeWatch(req.path)
				case reqShutdown:
					// Closing the inotify fd drops every outstanding watch
					// at once, the same as the teacher's Watcher.Close —
					// there's no need to RmWatch each wd individually.
					unix.Close(s.fd)
					unix.Close(s.epfd)
					unix.Close(s.pipeR)
					unix.Close(s.pipeW)
					clear(s.byWd)
					clear(s.byPath)
					req.done <- true
					s.markTerminated()
					return
				}
			}
		}

		if inotifyReady {
			clear(pendingModify)
			s.readInotify(buf, pendingModify)
		}
	}
}

func (s *linuxServer) addWatch(path string) error {
	if _, ok := s.byPath[path]; ok {
		return &AlreadyWatching{Path: path}
	}
	wd, err := unix.InotifyAddWatch(s.fd, path, watchMask)
	if err != nil {
		return &WatchFailed{Path: path, Errno: err}
	}
	wp := &linuxWatchPoint{wd: uint32(wd), path: path, status: watchPointListening}
	s.byWd[uint32(wd)] = wp
	s.byPath[path] = wp
	return nil
}

func (s *linuxServer) removeWatch(path string) bool {
	wp, ok := s.byPath[path]
	if !ok {
		return false
	}
	unix.InotifyRmWatch(s.fd, wp.wd)
	delete(s.byPath, path)
	delete(s.byWd, wp.wd)
	return true
}

func (s *linuxServer) readInotify(buf []byte, pendingModify map[uint32]bool) {
	for {
		n, err := unix.Read(s.fd, buf)
		if n <= 0 || err != nil {
			return
		}

		offset := 0
		for offset+inotifyHeaderSize <= n {
			raw := (*inotifyEventHeader)(unsafe.Pointer(&buf[offset]))
			nameStart := offset + inotifyHeaderSize
			name := ""
			if raw.Len > 0 {
				nameBytes := buf[nameStart : nameStart+int(raw.Len)]
				if i := indexByte(nameBytes, 0); i >= 0 {
					nameBytes = nameBytes[:i]
				}
				name = string(nameBytes)
			}
			offset = nameStart + int(raw.Len)

			s.handleRecord(uint32(raw.Wd), raw.Mask, name, pendingModify)
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

func (s *linuxServer) handleRecord(wd uint32, mask uint32, name string, pendingModify map[uint32]bool) {
	if mask&unix.IN_Q_OVERFLOW != 0 {
		for _, wp := range s.byWd {
			s.dispatch(Overflow, wp.path)
		}
		return
	}

	wp, ok := s.byWd[wd]
	if !ok {
		return // IN_IGNORED or a descriptor we already reaped
	}

	path := wp.path
	if name != "" {
		path = wp.path + "/" + name
	}

	switch {
	case mask&unix.IN_IGNORED != 0:
		// internal only: descriptor is already gone.
	case mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0:
		s.dispatch(Created, path)
	case mask&(unix.IN_DELETE|unix.IN_MOVED_FROM) != 0:
		s.dispatch(Removed, path)
	case mask&(unix.IN_DELETE_SELF|unix.IN_MOVE_SELF) != 0:
		s.dispatch(Removed, wp.path)
		delete(s.byWd, wd)
		delete(s.byPath, wp.path)
	case mask&unix.IN_MODIFY != 0:
		pendingModify[wd] = true
		s.dispatch(Modified, path)
	case mask&unix.IN_ATTRIB != 0:
		s.dispatch(Modified, path)
	case mask&unix.IN_CLOSE_WRITE != 0:
		if !pendingModify[wd] {
			s.dispatch(Modified, path)
		}
		pendingModify[wd] = false
	default:
		s.dispatch(Unknown, path)
	}
}
