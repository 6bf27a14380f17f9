//go:build linux && !appengine

// Package capabilities supplements WatchFailed diagnostics on Linux: when
// inotify_add_watch refuses a path, it's often because the process lacks
// CAP_DAC_READ_SEARCH for a directory it doesn't otherwise have traversal
// rights to. Grounded on the teacher's own internal/capabilities_linux.go,
// but wired onto the real github.com/syndtr/gocapability dependency that
// the teacher's go.mod already declares instead of the teacher's
// hand-rolled unix.Capget wrapper.
package capabilities

import (
	"github.com/syndtr/gocapability/capability"
)

// HasDACReadSearch reports whether the current process holds
// CAP_DAC_READ_SEARCH in its effective set, which lets it bypass directory
// read/traversal permission checks. A false return (with a non-nil error)
// means the capability set could not be loaded at all, not that the
// capability is absent.
func HasDACReadSearch() (bool, error) {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return false, err
	}
	if err := caps.Load(); err != nil {
		return false, err
	}
	return caps.Get(capability.EFFECTIVE, capability.CAP_DAC_READ_SEARCH), nil
}
