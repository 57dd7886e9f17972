package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockPollInterval = 100 * time.Millisecond
	// StaleLockThreshold is the age after which a lock left by a crashed
	// process is broken.
	StaleLockThreshold = 10 * time.Minute
)

// AcquireLock serialises installs of the same version. It creates
// dir/name.lock exclusively, polling while another process holds it, and
// returns a function that releases the lock.
func AcquireLock(ctx context.Context, dir, name string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare lock dir: %w", err)
	}

	lockPath := filepath.Join(dir, fmt.Sprintf("%s.lock", name))
	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			fmt.Fprintf(f, "pid=%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if isLockStale(lockPath) {
			_ = os.Remove(lockPath)
			continue
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func isLockStale(lockPath string) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > StaleLockThreshold
}
