// Package fileutils provides utility functions for file operations.
package fileutils

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// FileExists checks if a file exists at the given path.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return !errors.Is(err, os.ErrNotExist), nil
}

// CheckOwnerAndPermissions fails if the file is not owned by root or the current
// user, or if any permission bit of forbidden is set on it.
func CheckOwnerAndPermissions(path string, forbidden os.FileMode) error {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("can't stat file: %w", err)
	}

	stat, ok := fileInfo.Sys().(*syscall.Stat_t)
	if !ok {
		return fmt.Errorf("can't get file information for %s", path)
	}
	if stat.Uid != 0 && int(stat.Uid) != os.Getuid() {
		return fmt.Errorf("unexpected file owner for %s, should be root or %d but is %d", path, os.Getuid(), stat.Uid)
	}

	perm := fileInfo.Mode().Perm()
	if perm&forbidden != 0 {
		return fmt.Errorf("insecure file permissions for %s: %o", path, perm)
	}

	return nil
}
