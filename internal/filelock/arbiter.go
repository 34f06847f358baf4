// Package filelock serializes access to shared files such as the age key
// file.
//
// Arbiter.Do opens the file, takes an exclusive OS lock without blocking,
// runs the caller's work, then unlocks and closes. A lock held by another
// handle is treated as transient: Do waits Interval and tries again, up to
// Attempts times, before giving up with ErrFileLocked. Other failures are
// returned immediately.
//
// Work done inside Do must read and write through the provided *File so
// that the lock and the data refer to the same inode.
package filelock

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
	logger "github.com/PolarWolf314/agekeeper/internal/logging"
)

const (
	DefaultAttempts = 3
	DefaultInterval = 100 * time.Millisecond
)

// Mode selects how the file is opened.
type Mode int

const (
	// Read opens an existing file for reading.
	Read Mode = iota
	// Update opens an existing file for reading and writing.
	Update
	// Create opens the file for reading and writing, creating it and its
	// parent directories when missing.
	Create
	// CreateNew is Create for a file that must not exist yet. An existing
	// file fails with fs.ErrExist. When fn fails the new file is removed.
	CreateNew
)

// Arbiter grants exclusive access to a file with bounded retry.
type Arbiter struct {
	Attempts int
	Interval time.Duration
	Logger   logger.Logger
}

// Do runs fn while holding an exclusive lock on path.
func (a Arbiter) Do(ctx context.Context, path string, mode Mode, fn func(*File) error) error {
	attempts := a.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	interval := a.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		file, err := acquire(path, mode)
		if err == nil {
			return file.run(fn)
		}
		if !isContention(err) {
			return err
		}

		lastErr = err
		a.Logger.Debugf("%s is locked (attempt %d/%d): %v", path, attempt, attempts, err)
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s after %d attempts: %w: %w", path, attempts, kerrors.ErrFileLocked, lastErr)
}

func acquire(path string, mode Mode) (*File, error) {
	var flag int
	switch mode {
	case Read:
		flag = os.O_RDONLY
	case Update:
		flag = os.O_RDWR
	case Create, CreateNew:
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		flag = os.O_RDWR | os.O_CREATE
		if mode == CreateNew {
			flag |= os.O_EXCL
		}
	default:
		return nil, fmt.Errorf("unknown file mode %d", mode)
	}

	f, err := os.OpenFile(path, flag, 0600)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		discard(f)
		if mode == CreateNew {
			os.Remove(path)
		}
		return nil, err
	}
	return &File{f: f, created: mode == CreateNew}, nil
}

// File is a locked file handle.
type File struct {
	f       *os.File
	created bool
}

func (f *File) run(fn func(*File) error) (err error) {
	defer func() {
		unlockErr := unlockFile(f.f)
		closeErr := f.f.Close()
		if err == nil && unlockErr != nil {
			err = fmt.Errorf("failed to unlock %s: %w", f.f.Name(), unlockErr)
		}
		if err == nil && closeErr != nil {
			err = fmt.Errorf("failed to close %s: %w", f.f.Name(), closeErr)
		}
		if err != nil && f.created {
			os.Remove(f.f.Name())
		}
	}()
	return fn(f)
}

// Name returns the path the file was opened with.
func (f *File) Name() string {
	return f.f.Name()
}

// ReadAll returns the full contents of the file.
func (f *File) ReadAll() ([]byte, error) {
	if _, err := f.f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek %s: %w", f.f.Name(), err)
	}
	data, err := io.ReadAll(f.f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.f.Name(), err)
	}
	return data, nil
}

// Replace swaps the whole contents of the file for data in a single write.
func (f *File) Replace(data []byte) error {
	if err := f.f.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", f.f.Name(), err)
	}
	if _, err := f.f.WriteAt(data, 0); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.f.Name(), err)
	}
	if err := f.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", f.f.Name(), err)
	}
	return nil
}
