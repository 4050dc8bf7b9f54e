//go:build windows

package launcher

import (
	"errors"
	"fmt"
	"os"
)

// Windows has no flock; exclusive creation of the lock file stands in for it.
// Release removes the file, so a crashed holder leaves a stale lock that must
// be cleaned up manually.
func acquireFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err == nil {
		return file, nil
	}
	if errors.Is(err, os.ErrExist) {
		return nil, ErrAlreadyRunning
	}
	return nil, fmt.Errorf("open lock file %s: %w", path, err)
}

func releaseFile(file *os.File) error {
	return file.Close()
}
