//go:build !darwin

package changewatch

const requireDirectoryCheck = true
