package storage

import (
	"errors"
	"fmt"
	"os"
)

// ErrLocked indicates another process holds the collection lock.
var ErrLocked = errors.New("collection is locked by another process")

// Lock is an exclusive file lock guarding the citation set. The persisted
// files are read-modify-write documents with no row-level locking, so only
// one writer may run against a collection at a time.
type Lock struct {
	path string
}

// AcquireLock takes the lock at path, failing with ErrLocked when a live
// lock file already exists.
func AcquireLock(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()

	return &Lock{path: path}, nil
}

// Release removes the lock file. Safe to call once per acquired lock.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing lock: %w", err)
	}
	return nil
}
