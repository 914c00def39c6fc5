package fsstore

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

const lockRetryWait = 25 * time.Millisecond

// LockPathFor returns the lock file path guarding the given state file. The
// lock lives next to the state file so both share a filesystem.
func LockPathFor(statePath string) (string, error) {
	p, err := cleanPath(statePath)
	if err != nil {
		return "", err
	}
	return p + ".lck", nil
}

// WithLock runs fn while holding an exclusive advisory lock on lockPath,
// retrying until the lock is acquired or ctx is done.
func WithLock(ctx context.Context, lockPath string, fn func() error) error {
	p, err := cleanPath(lockPath)
	if err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := EnsureDir(filepath.Dir(p)); err != nil {
		return err
	}
	return withLockFile(ctx, p, fn)
}

func waitForLockRetry(ctx context.Context, lockPath string) error {
	timer := time.NewTimer(lockRetryWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", ErrLockTimeout, lockPath, ctx.Err())
	case <-timer.C:
		return nil
	}
}
