// Package lockfile guards a target directory against concurrent moon
// invocations using gofrs/flock, a maintained fork of the now-archived
// theckman/go-flock.
package lockfile

import (
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// Name is the advisory lock file's name within a target directory.
const Name = ".moon-lock"

// Lock wraps a held advisory lock on one target directory.
type Lock struct {
	fl *flock.Flock
}

// Acquire blocks until it holds the exclusive lock on targetDir/.moon-lock,
// used to serialize two `moon build` invocations against the same target
// directory so their stamp-cache writes (internal/executor.StampCache)
// never race.
func Acquire(targetDir string) (*Lock, error) {
	fl := flock.New(filepath.Join(targetDir, Name))
	if err := fl.Lock(); err != nil {
		return nil, errors.Wrapf(err, "locking %s", targetDir)
	}
	return &Lock{fl: fl}, nil
}

// TryAcquire attempts a non-blocking lock, returning ok=false if another
// process already holds it.
func TryAcquire(targetDir string) (l *Lock, ok bool, err error) {
	fl := flock.New(filepath.Join(targetDir, Name))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, false, errors.Wrapf(err, "locking %s", targetDir)
	}
	if !locked {
		return nil, false, nil
	}
	return &Lock{fl: fl}, true, nil
}

// Release unlocks and closes the underlying lock file handle.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
