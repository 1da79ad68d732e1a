// Package lock serialises builds per working directory. A second weft
// invocation in the same directory fails fast instead of racing the first
// over shared output files.
package lock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nightlyone/lockfile"
)

// FileName is the lock file weft places in the working directory.
const FileName = ".weft.lock"

// ErrBusy indicates another weft build holds the lock.
var ErrBusy = errors.New("another weft build is running in this directory")

// Acquire takes the build lock for dir. The returned release function must
// be called when the build finishes; it is safe to call once. Locks held by
// dead processes are recovered automatically.
func Acquire(dir string) (release func(), err error) {
	abs, err := filepath.Abs(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("resolving lock path: %w", err)
	}

	lock, err := lockfile.New(abs)
	if err != nil {
		return nil, fmt.Errorf("creating lock handle: %w", err)
	}

	tryErr := lock.TryLock()
	switch {
	case tryErr == nil:
		// Acquired.
	case errors.Is(tryErr, lockfile.ErrBusy):
		return nil, ErrBusy
	case errors.Is(tryErr, lockfile.ErrDeadOwner), errors.Is(tryErr, lockfile.ErrInvalidPid):
		// The library removed the stale lock; one more attempt claims it.
		if retryErr := lock.TryLock(); retryErr != nil {
			if errors.Is(retryErr, lockfile.ErrBusy) {
				return nil, ErrBusy
			}
			return nil, fmt.Errorf("acquiring build lock: %w", retryErr)
		}
	default:
		return nil, fmt.Errorf("acquiring build lock: %w", tryErr)
	}

	return func() { _ = lock.Unlock() }, nil
}
