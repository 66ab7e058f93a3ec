// Package workdir guards a scratch directory against concurrent autosub
// runs with an advisory file lock.
package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the guarded directory.
const LockFileName = ".autosub.lock"

// ErrBusy is returned when another process holds the directory lock.
var ErrBusy = errors.New("scratch directory is in use by another autosub run")

// Lock is a held directory lock.
type Lock struct {
	dir  string
	lock *flock.Flock
}

// Acquire creates dir if needed and takes a non-blocking exclusive lock on
// it. The lock is released by Release or when the process exits.
func Acquire(dir string) (*Lock, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("workdir: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workdir: create %s: %w", dir, err)
	}
	fl := flock.New(filepath.Join(dir, LockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("workdir: acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, dir)
	}
	return &Lock{dir: dir, lock: fl}, nil
}

// Dir returns the locked directory.
func (l *Lock) Dir() string {
	if l == nil {
		return ""
	}
	return l.dir
}

// Release unlocks the directory. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("workdir: release lock: %w", err)
	}
	return nil
}
