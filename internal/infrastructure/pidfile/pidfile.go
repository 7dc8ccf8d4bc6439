package pidfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Lock enforces a single daemon instance per pidfile path. The file holds
// the owning process id; a stale file left by a dead process is reclaimed
// on the next Acquire.
type Lock struct {
	path string
}

// New creates a lock for the given path. Nothing touches the filesystem
// until Acquire.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Path returns the pidfile location
func (l *Lock) Path() string {
	return l.path
}

// Acquire writes the current pid to the lock file. It fails if a live
// process already holds the lock and silently reclaims stale or garbled
// files.
func (l *Lock) Acquire() error {
	if pid, ok := l.readPID(); ok {
		if processAlive(pid) {
			return fmt.Errorf("daemon is already running (PID %d)", pid)
		}
		_ = os.Remove(l.path)
	}

	data := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(l.path, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	return nil
}

// Release removes the lock file. Releasing a lock that is already gone is
// not an error.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// KillExisting terminates the process currently holding the lock. It sends
// SIGTERM, waits briefly for a clean exit, and escalates to SIGKILL if the
// process lingers.
func (l *Lock) KillExisting() error {
	pid, ok := l.readPID()
	if !ok {
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH {
			_ = os.Remove(l.path)
			return nil
		}
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	// Give the daemon a moment to shut down before escalating
	for i := 0; i < 50; i++ {
		if !processAlive(pid) {
			_ = os.Remove(l.path)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := process.Signal(syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("failed to kill process %d: %w", pid, err)
	}
	_ = os.Remove(l.path)
	return nil
}

// readPID parses the pid stored in the lock file. A missing or garbled
// file reports no owner.
func (l *Lock) readPID() (int, bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

// processAlive reports whether a process with the given pid exists. Signal
// 0 probes without delivering anything; EPERM means the process exists but
// belongs to someone else.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
