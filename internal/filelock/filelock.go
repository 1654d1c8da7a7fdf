// Package filelock provides a cross-process advisory lock on a sentinel file.
//
// The kernel drops the lock when the holding descriptor closes, including on
// crash, so an orphaned sentinel file never blocks later processes.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrTimeout is returned when the lock stays held past the caller's timeout.
var ErrTimeout = errors.New("timed out waiting for lock")

// errBusy is returned by tryLock when another descriptor holds the lock.
var errBusy = errors.New("lock held elsewhere")

// pollInterval is how often a waiting Acquire retries.
var pollInterval = 100 * time.Millisecond

// Lock is a held exclusive lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive lock on dir/name, creating dir and the file as
// needed. It retries until the lock is free, timeout elapses, or ctx ends.
func Acquire(ctx context.Context, dir, name string, timeout time.Duration) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		err := tryLock(f)
		if err == nil {
			return &Lock{file: f, path: path}, nil
		}
		if !errors.Is(err, errBusy) {
			f.Close()
			return nil, fmt.Errorf("lock %s: %w", path, err)
		}
		if !time.Now().Before(deadline) {
			f.Close()
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, path, timeout)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Path returns the sentinel file path.
func (l *Lock) Path() string { return l.path }

// Release unlocks and closes the sentinel. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unlock(l.file)
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return fmt.Errorf("unlock %s: %w", l.path, unlockErr)
	}
	return closeErr
}
