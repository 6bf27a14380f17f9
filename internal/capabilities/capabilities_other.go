//go:build !linux || appengine

package capabilities

// HasDACReadSearch only means anything on Linux; elsewhere it always
// reports false with no error so callers can use it unconditionally.
func HasDACReadSearch() (bool, error) { return false, nil }
