package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraphd/codegraphd/snapshot"
)

func TestLockFile_AcquireAndRelease(t *testing.T) {
	repo := t.TempDir()
	l := NewLockFile(repo)

	require.NoError(t, l.Acquire())
	assert.FileExists(t, filepath.Join(repo, snapshot.Dir, "daemon.lock"))

	require.NoError(t, l.Release())
	assert.NoFileExists(t, filepath.Join(repo, snapshot.Dir, "daemon.lock"))
}

func TestLockFile_SecondAcquireFailsWhileHeld(t *testing.T) {
	repo := t.TempDir()
	first := NewLockFile(repo)
	require.NoError(t, first.Acquire())
	defer first.Release()

	second := NewLockFile(repo)
	err := second.Acquire()
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestLockFile_StaleLockIsReplaced(t *testing.T) {
	repo := t.TempDir()
	lockPath := filepath.Join(repo, snapshot.Dir, "daemon.lock")
	require.NoError(t, os.MkdirAll(filepath.Dir(lockPath), 0o755))

	// A PID that is exceedingly unlikely to be running.
	require.NoError(t, os.WriteFile(lockPath, []byte(strconv.Itoa(1<<30)), 0o644))

	l := NewLockFile(repo)
	require.NoError(t, l.Acquire())
	defer l.Release()

	pid, ok := l.readPID()
	require.True(t, ok)
	assert.Equal(t, os.Getpid(), pid)
}

func TestLockFile_ReleaseWithoutAcquireIsNoop(t *testing.T) {
	l := NewLockFile(t.TempDir())
	assert.NoError(t, l.Release())
}

func TestProcessAlive(t *testing.T) {
	assert.True(t, processAlive(os.Getpid()))
	assert.False(t, processAlive(1<<30))
	assert.False(t, processAlive(0))
	assert.False(t, processAlive(-1))
}
