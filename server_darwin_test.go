//go:build darwin

package changewatch

import (
	"testing"

	"github.com/mutagen-io/fsevents"
	"github.com/stretchr/testify/require"
)

func newTestDarwinServer() (*darwinServer, *collector) {
	c := &collector{}
	s := newPlatformServer(c, newConfig()).(*darwinServer)
	return s, c
}

func TestWatchedRootPicksLongestPrefix(t *testing.T) {
	s, _ := newTestDarwinServer()
	s.byPath["/tmp/a"] = &darwinWatchPoint{path: "/tmp/a", status: watchPointListening}
	s.byPath["/tmp/a/b"] = &darwinWatchPoint{path: "/tmp/a/b", status: watchPointListening}

	root, ok := s.watchedRoot("/tmp/a/b/c")
	require.True(t, ok)
	require.Equal(t, "/tmp/a/b", root)
}

func TestWatchedRootRejectsPartialSegmentMatch(t *testing.T) {
	s, _ := newTestDarwinServer()
	s.byPath["/tmp/ab"] = &darwinWatchPoint{path: "/tmp/ab", status: watchPointListening}

	_, ok := s.watchedRoot("/tmp/abc/file")
	require.False(t, ok)
}

func TestHandleBatchRootChangedInvalidatesAndRemoves(t *testing.T) {
	s, c := newTestDarwinServer()
	s.terminating = true // avoid touching the real FSEvents stream in this unit test
	s.byPath["/tmp/root"] = &darwinWatchPoint{path: "/tmp/root", status: watchPointListening}

	s.handleBatch([]fsevents.Event{{Path: "/tmp/root", Flags: fsevents.RootChanged}})

	require.True(t, c.hasPath(Invalidated, "/tmp/root"))
	require.NotContains(t, s.byPath, "/tmp/root")
}

func TestHandleBatchMustScanSubDirsReportsOverflow(t *testing.T) {
	s, c := newTestDarwinServer()
	s.byPath["/tmp/root"] = &darwinWatchPoint{path: "/tmp/root", status: watchPointListening}

	s.handleBatch([]fsevents.Event{{Path: "/tmp/root/sub", Flags: fsevents.MustScanSubDirs}})

	require.True(t, c.hasPath(Overflow, "/tmp/root/sub"))
}

func TestHandleBatchCreatedAndModifiedFanOut(t *testing.T) {
	s, c := newTestDarwinServer()
	s.byPath["/tmp/root"] = &darwinWatchPoint{path: "/tmp/root", status: watchPointListening}

	s.handleBatch([]fsevents.Event{{
		Path:  "/tmp/root/file",
		Flags: fsevents.ItemCreated | fsevents.ItemModified,
	}})

	require.True(t, c.hasPath(Created, "/tmp/root/file"))
	require.True(t, c.hasPath(Modified, "/tmp/root/file"))
}

func TestHandleBatchIgnoresEventsOutsideWatchedRoots(t *testing.T) {
	s, c := newTestDarwinServer()
	s.handleBatch([]fsevents.Event{{Path: "/tmp/unwatched/file", Flags: fsevents.ItemCreated}})
	require.Empty(t, c.snapshot())
}

func TestRegisterPathsRejectsDuplicate(t *testing.T) {
	s, _ := newTestDarwinServer()
	s.terminating = true // avoid touching the real FSEvents stream in this unit test
	dir := t.TempDir()

	require.NoError(t, s.registerPaths([]string{dir}))
	err := s.registerPaths([]string{dir})
	require.Error(t, err)
	require.IsType(t, &AlreadyWatching{}, err)
}
