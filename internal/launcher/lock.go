// Package launcher enforces single-instance execution of the multi-bot
// launcher via an OS advisory file lock.
package launcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrAlreadyRunning indicates another process holds the single-instance lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Lock is a held single-instance lock.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes the exclusive lock at path without blocking. When another
// process holds it, the returned error wraps ErrAlreadyRunning and names the
// holder's PID when the lock file is readable. The holder's own PID is
// written into the file for the same diagnostic.
func Acquire(path string) (*Lock, error) {
	file, err := acquireFile(path)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			if pid := holderPID(path); pid != "" {
				return nil, fmt.Errorf("%w (held by pid %s)", ErrAlreadyRunning, pid)
			}
		}
		return nil, err
	}

	_ = file.Truncate(0)
	_, _ = file.Seek(0, io.SeekStart)
	_, _ = fmt.Fprintf(file, "%d", os.Getpid())
	_ = file.Sync()

	return &Lock{path: path, file: file}, nil
}

// Release unlocks and removes the lock file. Safe to call on a nil lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := releaseFile(l.file)
	l.file = nil
	_ = os.Remove(l.path)
	return err
}

func holderPID(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
