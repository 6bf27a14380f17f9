//go:build darwin

package changewatch

// On macOS, watching a non-existent or non-directory path succeeds
// silently — this mirrors the reference implementation and is preserved
// deliberately per the Open Question in SPEC_FULL.md §9; it is not a bug
// to be fixed.
const requireDirectoryCheck = false
