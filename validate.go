package changewatch

import (
	"os"
	"path/filepath"
)

// validatePath enforces spec.md §4.1's registerPaths validation: paths
// must be absolute, and (except on macOS, see the Open Question in
// SPEC_FULL.md §9) must refer to an existing directory, not a file.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return &InvalidTarget{Path: path, Reason: "path is not absolute"}
	}
	if !requireDirectoryCheck {
		return nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return &InvalidTarget{Path: path, Reason: err.Error()}
	}
	if !fi.IsDir() {
		return &InvalidTarget{Path: path, Reason: "not a directory"}
	}
	return nil
}
