package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sunhome243/nexus-cli-sub000/internal/logging"
)

// unreadableLockGrace is how old a lock file with no parseable owner
// pid must be before it is reclaimed. Locks written by this package
// always carry a pid, so an unreadable lock is foreign or damaged, but
// it still gets a window in case its writer is mid-flight.
const unreadableLockGrace = 2 * time.Second

// LockTimeoutError indicates the state lock could not be acquired
// before the configured timeout. Nothing partial was written.
type LockTimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("lock timeout: could not acquire %s within %s", e.Path, e.Timeout)
}

// fileLock is a cooperative mutual-exclusion primitive: a marker file
// created with exclusive-create semantics whose content is the owning
// process id, used solely for staleness detection.
type fileLock struct {
	path         string
	timeout      time.Duration
	pollInterval time.Duration
}

// acquire takes the lock, retrying until timeout. A lock file whose
// recorded owner no longer exists is reclaimed immediately.
func (l *fileLock) acquire() error {
	deadline := time.Now().Add(l.timeout)
	for {
		ok, err := l.tryAcquire()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if l.reclaimIfStale() {
			continue
		}
		if time.Now().After(deadline) {
			return &LockTimeoutError{Path: l.path, Timeout: l.timeout}
		}
		time.Sleep(l.pollInterval)
	}
}

// tryAcquire links a pid-bearing temp file into place. The link is
// atomic, so the lock is never visible without its owner recorded and
// a contender can never observe an empty lock written by this package.
func (l *fileLock) tryAcquire() (bool, error) {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".lock-*")
	if err != nil {
		return false, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, werr := fmt.Fprintf(tmp, "%d", os.Getpid())
	cerr := tmp.Close()
	if werr != nil {
		return false, fmt.Errorf("failed to write lock file: %w", werr)
	}
	if cerr != nil {
		return false, cerr
	}

	if err := os.Link(tmp.Name(), l.path); err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create lock file: %w", err)
	}
	return true, nil
}

// release removes the lock file
func (l *fileLock) release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to remove lock file %s: %v", l.path, err)
	}
}

// reclaimIfStale inspects the recorded owner pid and removes the lock
// if that process no longer exists. Returns true when the lock was
// reclaimed (or vanished) and another acquire attempt should be made
// right away.
func (l *fileLock) reclaimIfStale() bool {
	data, err := os.ReadFile(l.path)
	if err != nil {
		// Lock vanished between the link attempt and the read
		return os.IsNotExist(err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		// No parseable owner. Treat it as contended until it has sat
		// unreadable for the whole grace window.
		info, serr := os.Stat(l.path)
		if serr != nil || time.Since(info.ModTime()) < unreadableLockGrace {
			return false
		}
		logging.Warn("Reclaiming lock %s with unreadable owner %q", l.path, strings.TrimSpace(string(data)))
		os.Remove(l.path)
		return true
	}
	if processExists(pid) {
		return false
	}

	logging.Warn("Reclaiming stale lock %s held by dead process %d", l.path, pid)
	os.Remove(l.path)
	return true
}

// processExists reports whether a process with the given pid is alive.
// Signal 0 performs the existence check without delivering anything.
func processExists(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to another user
	return err == syscall.EPERM
}
