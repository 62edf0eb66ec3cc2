package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/codegraphd/codegraphd/snapshot"
)

// ErrLockHeld is returned by AcquireLock when another live process
// already holds the lock file.
var ErrLockHeld = errors.New("daemon: lock held by a running process")

// LockFile is the exclusive PID lock that prevents two daemon instances
// from watching the same repository at once, grounded on
// _examples/original_source/tools/codegraphd.py's create_lock_file /
// is_daemon_running pair: the Python original used psutil.pid_exists,
// which translates to syscall.Kill(pid, 0) for a Go liveness probe.
type LockFile struct {
	path string
}

// NewLockFile returns a LockFile at <repoRoot>/.graph/daemon.lock.
func NewLockFile(repoRoot string) *LockFile {
	return &LockFile{path: filepath.Join(repoRoot, snapshot.Dir, "daemon.lock")}
}

// Acquire writes the current process's PID into the lock file,
// returning ErrLockHeld if a live process already holds it. A lock file
// left behind by a process that is no longer running (stale) is
// cleaned up and replaced.
func (l *LockFile) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("daemon: create lock directory: %w", err)
	}

	if pid, ok := l.readPID(); ok {
		if processAlive(pid) {
			return ErrLockHeld
		}
		// Stale lock: the recorded process is gone.
		os.Remove(l.path)
	}

	return os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// Release removes the lock file. It is a no-op if the file is already
// gone.
func (l *LockFile) Release() error {
	err := os.Remove(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (l *LockFile) readPID() (int, bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether pid names a running process. Sending
// signal 0 performs no action beyond the existence/permission check,
// the same technique psutil.pid_exists relies on internally.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return !errors.Is(err, syscall.ESRCH)
}
