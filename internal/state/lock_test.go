package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "nexus-state-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return NewStore(dir, WithLockTimeout(2*time.Second), WithPollInterval(10*time.Millisecond))
}

func TestWithLockMutualExclusion(t *testing.T) {
	store := newTestStore(t)

	inCritical := 0
	maxInCritical := 0
	var observed sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithLock(func() error {
				observed.Lock()
				inCritical++
				if inCritical > maxInCritical {
					maxInCritical = inCritical
				}
				observed.Unlock()

				time.Sleep(20 * time.Millisecond)

				observed.Lock()
				inCritical--
				observed.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("WithLock() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInCritical != 1 {
		t.Errorf("critical sections overlapped: max concurrency %d", maxInCritical)
	}
}

func TestWithLockTimeout(t *testing.T) {
	store := newTestStore(t)
	store.lockTimeout = 100 * time.Millisecond

	// Hold the lock with this process's own pid so it is never stale
	if err := os.MkdirAll(store.dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.LockPath(), []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(store.LockPath())

	err := store.WithLock(func() error { return nil })
	var timeoutErr *LockTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected LockTimeoutError, got %v", err)
	}
}

func TestStaleLockReclaimed(t *testing.T) {
	store := newTestStore(t)

	// A pid beyond the kernel's pid space never names a live process
	if err := os.MkdirAll(store.dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.LockPath(), []byte("99999999"), 0644); err != nil {
		t.Fatal(err)
	}

	ran := false
	err := store.WithLock(func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() should reclaim the stale lock, got: %v", err)
	}
	if !ran {
		t.Error("critical section did not run")
	}
}

func TestUnreadableLockReclaimedAfterGrace(t *testing.T) {
	store := newTestStore(t)

	if err := os.MkdirAll(store.dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.LockPath(), []byte("not-a-pid"), 0644); err != nil {
		t.Fatal(err)
	}
	// Age the lock past the grace window so it counts as abandoned
	old := time.Now().Add(-2 * unreadableLockGrace)
	if err := os.Chtimes(store.LockPath(), old, old); err != nil {
		t.Fatal(err)
	}

	if err := store.WithLock(func() error { return nil }); err != nil {
		t.Fatalf("WithLock() should reclaim an aged unreadable lock, got: %v", err)
	}
}

func TestFreshEmptyLockNotStolen(t *testing.T) {
	store := newTestStore(t)
	store.lockTimeout = 200 * time.Millisecond

	// An empty lock file is what a foreign owner's lock looks like
	// mid-write; it must be treated as contended, not reclaimed.
	if err := os.MkdirAll(store.dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.LockPath(), nil, 0644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(store.LockPath())

	start := time.Now()
	err := store.WithLock(func() error { return nil })
	var timeoutErr *LockTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected LockTimeoutError for a fresh empty lock, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < store.lockTimeout {
		t.Errorf("gave up after %v, before the %v timeout", elapsed, store.lockTimeout)
	}
}

func TestLockFileAlwaysCarriesOwnerPid(t *testing.T) {
	store := newTestStore(t)

	err := store.WithLock(func() error {
		data, err := os.ReadFile(store.LockPath())
		if err != nil {
			return err
		}
		want := fmt.Sprintf("%d", os.Getpid())
		if string(data) != want {
			t.Errorf("lock content = %q, want owner pid %q", data, want)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() error: %v", err)
	}
}

func TestLockReleasedAfterOperation(t *testing.T) {
	store := newTestStore(t)

	if err := store.WithLock(func() error { return nil }); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(store.LockPath()); !os.IsNotExist(err) {
		t.Error("lock file should be removed after the operation")
	}

	// Failing operations release the lock too
	wantErr := errors.New("boom")
	if err := store.WithLock(func() error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("WithLock() should propagate the operation error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.dir, lockFileName)); !os.IsNotExist(err) {
		t.Error("lock file should be removed after a failed operation")
	}
}
