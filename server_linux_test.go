//go:build linux && !appengine

package changewatch

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/stretchr/testify/require"
)

func newTestLinuxServer() (*linuxServer, *collector) {
	c := &collector{}
	s := &linuxServer{
		baseServer: newBaseServer(c, newConfig()),
		byWd:       make(map[uint32]*linuxWatchPoint),
		byPath:     make(map[string]*linuxWatchPoint),
	}
	return s, c
}

func TestHandleRecordCreate(t *testing.T) {
	s, c := newTestLinuxServer()
	s.byWd[1] = &linuxWatchPoint{wd: 1, path: "/tmp/root", status: watchPointListening}

	s.handleRecord(1, unix.IN_CREATE, "child", map[uint32]bool{})

	require.True(t, c.hasPath(Created, "/tmp/root/child"))
}

func TestHandleRecordModifySuppressesFollowingCloseWrite(t *testing.T) {
	s, c := newTestLinuxServer()
	s.byWd[1] = &linuxWatchPoint{wd: 1, path: "/tmp/root", status: watchPointListening}

	pending := map[uint32]bool{}
	s.handleRecord(1, unix.IN_MODIFY, "file", pending)
	s.handleRecord(1, unix.IN_CLOSE_WRITE, "file", pending)

	modifyCount := 0
	for _, e := range c.snapshot() {
		if e.Type == Modified {
			modifyCount++
		}
	}
	require.Equal(t, 1, modifyCount, "a CLOSE_WRITE immediately after MODIFY for the same wd must not double-report")
}

func TestHandleRecordCloseWriteWithoutModify(t *testing.T) {
	s, c := newTestLinuxServer()
	s.byWd[1] = &linuxWatchPoint{wd: 1, path: "/tmp/root", status: watchPointListening}

	s.handleRecord(1, unix.IN_CLOSE_WRITE, "file", map[uint32]bool{})

	require.True(t, c.hasPath(Modified, "/tmp/root/file"))
}

func TestHandleRecordDeleteSelfRemovesWatchPoint(t *testing.T) {
	s, c := newTestLinuxServer()
	s.byWd[1] = &linuxWatchPoint{wd: 1, path: "/tmp/root", status: watchPointListening}
	s.byPath["/tmp/root"] = s.byWd[1]

	s.handleRecord(1, unix.IN_DELETE_SELF, "", map[uint32]bool{})

	require.True(t, c.hasPath(Removed, "/tmp/root"))
	require.NotContains(t, s.byWd, uint32(1))
	require.NotContains(t, s.byPath, "/tmp/root")
}

func TestHandleRecordOverflowFansOutToEveryRoot(t *testing.T) {
	s, c := newTestLinuxServer()
	s.byWd[1] = &linuxWatchPoint{wd: 1, path: "/tmp/a", status: watchPointListening}
	s.byWd[2] = &linuxWatchPoint{wd: 2, path: "/tmp/b", status: watchPointListening}

	s.handleRecord(1, unix.IN_Q_OVERFLOW, "", map[uint32]bool{})

	require.True(t, c.hasPath(Overflow, "/tmp/a"))
	require.True(t, c.hasPath(Overflow, "/tmp/b"))
}

func TestHandleRecordUnknownWdIsIgnored(t *testing.T) {
	s, c := newTestLinuxServer()
	s.handleRecord(99, unix.IN_CREATE, "x", map[uint32]bool{})
	require.Empty(t, c.snapshot())
}

func TestIndexByte(t *testing.T) {
	require.Equal(t, 2, indexByte([]byte("ab\x00cd"), 0))
	require.Equal(t, -1, indexByte([]byte("abcd"), 0))
}
