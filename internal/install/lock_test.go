package install

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireLockReleases(t *testing.T) {
	dir := t.TempDir()

	release, err := AcquireLock(context.Background(), dir, "v1")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "v1.lock"))

	release()
	assert.NoFileExists(t, filepath.Join(dir, "v1.lock"))

	release, err = AcquireLock(context.Background(), dir, "v1")
	require.NoError(t, err)
	release()
}

func TestAcquireLockWaitsForHolder(t *testing.T) {
	dir := t.TempDir()
	release, err := AcquireLock(context.Background(), dir, "v1")
	require.NoError(t, err)

	acquired := make(chan func(), 1)
	go func() {
		next, err := AcquireLock(context.Background(), dir, "v1")
		if err == nil {
			acquired <- next
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(250 * time.Millisecond):
	}

	release()
	select {
	case next := <-acquired:
		next()
	case <-time.After(5 * time.Second):
		t.Fatal("lock was not handed over")
	}
}

func TestAcquireLockHonoursContext(t *testing.T) {
	dir := t.TempDir()
	release, err := AcquireLock(context.Background(), dir, "v1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err = AcquireLock(ctx, dir, "v1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquireLockBreaksStaleLock(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "v1.lock")
	require.NoError(t, os.WriteFile(lockPath, []byte("pid=1\n"), 0o600))
	old := time.Now().Add(-2 * StaleLockThreshold)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	release, err := AcquireLock(ctx, dir, "v1")
	require.NoError(t, err)
	release()
}

func TestAcquireLockIndependentNames(t *testing.T) {
	dir := t.TempDir()
	a, err := AcquireLock(context.Background(), dir, "v1")
	require.NoError(t, err)
	defer a()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	b, err := AcquireLock(ctx, dir, "v2")
	require.NoError(t, err)
	b()
}
