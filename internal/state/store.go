package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sunhome243/nexus-cli-sub000/internal/logging"
	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

const (
	stateFileName = "sync-state.json"
	lockFileName  = "sync-state.lock"

	// DefaultLockTimeout bounds how long a mutation waits for the lock
	DefaultLockTimeout = 10 * time.Second
	// DefaultPollInterval is the retry interval while waiting
	DefaultPollInterval = 100 * time.Millisecond
)

// NotFoundError indicates no sync state exists for a session tag
type NotFoundError struct {
	Tag string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no sync state for session %q", e.Tag)
}

// Store is a durable key-value store of SyncState keyed by session tag.
// The state file and the lock file live side by side under dir.
type Store struct {
	dir          string
	lockTimeout  time.Duration
	pollInterval time.Duration
}

// Option configures a Store
type Option func(*Store)

// WithLockTimeout overrides the lock acquisition timeout
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithPollInterval overrides the lock retry interval
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.pollInterval = d }
}

// NewStore creates a store rooted at dir
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:          dir,
		lockTimeout:  DefaultLockTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StatePath returns the state file path
func (s *Store) StatePath() string {
	return filepath.Join(s.dir, stateFileName)
}

// LockPath returns the lock file path
func (s *Store) LockPath() string {
	return filepath.Join(s.dir, lockFileName)
}

// WithLock runs op while holding the state lock. Two WithLock calls
// against the same store directory never run their critical sections
// concurrently. On timeout the whole operation fails with
// LockTimeoutError and nothing is written.
func (s *Store) WithLock(op func() error) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	lock := &fileLock{path: s.LockPath(), timeout: s.lockTimeout, pollInterval: s.pollInterval}
	if err := lock.acquire(); err != nil {
		return err
	}
	defer lock.release()
	return op()
}

// load reads the state document. A missing file is an empty document.
// A corrupt file is recoverable: the store logs the corruption and
// resynthesizes an empty, versioned document rather than failing.
func (s *Store) load() *document {
	data, err := os.ReadFile(s.StatePath())
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("Failed to read state file %s: %v; starting empty", s.StatePath(), err)
		}
		return emptyDocument()
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		logging.Warn("Corrupt state file %s: %v; resynthesizing", s.StatePath(), err)
		return emptyDocument()
	}
	if doc.Version == "" || doc.States == nil {
		logging.Warn("Structurally invalid state file %s; resynthesizing", s.StatePath())
		return emptyDocument()
	}
	return &doc
}

// save writes the document atomically
func (s *Store) save(doc *document) error {
	doc.Version = DocumentVersion
	doc.LastUpdated = time.Now()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".state-*")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.StatePath())
}

// mutate runs fn against the loaded document under lock and commits
// the result only when fn succeeds.
func (s *Store) mutate(fn func(doc *document) error) error {
	return s.WithLock(func() error {
		doc := s.load()
		if err := fn(doc); err != nil {
			return err
		}
		return s.save(doc)
	})
}

// InitializeState creates the sync state for a session tag. An existing
// state for the same tag is left untouched.
func (s *Store) InitializeState(tag, sessionID string) error {
	return s.mutate(func(doc *document) error {
		if _, ok := doc.States[tag]; ok {
			return nil
		}
		doc.States[tag] = &SyncState{
			SessionID:  sessionID,
			SessionTag: tag,
			Providers:  make(map[message.Provider]*ProviderState),
			Status:     StatusPending,
		}
		return nil
	})
}

// GetSyncState returns the last committed state for a tag. It reads
// without taking the lock, so the view may trail an in-flight mutation.
func (s *Store) GetSyncState(tag string) (*SyncState, error) {
	doc := s.load()
	st, ok := doc.States[tag]
	if !ok {
		return nil, &NotFoundError{Tag: tag}
	}
	return st, nil
}

// UpdateSyncState applies fn to the state for tag under lock
func (s *Store) UpdateSyncState(tag string, fn func(st *SyncState) error) error {
	return s.mutate(func(doc *document) error {
		st, ok := doc.States[tag]
		if !ok {
			return &NotFoundError{Tag: tag}
		}
		return fn(st)
	})
}

// UpdateProviderSession records a provider's current session id
func (s *Store) UpdateProviderSession(tag string, p message.Provider, sessionID string) error {
	return s.UpdateSyncState(tag, func(st *SyncState) error {
		ps := st.provider(p)
		if ps.CurrentSessionID != "" && ps.CurrentSessionID != sessionID {
			ps.LastSessionID = ps.CurrentSessionID
		}
		ps.CurrentSessionID = sessionID
		return nil
	})
}

// MarkSyncCompleted rotates a provider's current session pointer into
// the last slot and commits counts and timestamps. The rotated slot
// becomes the diff baseline for the provider's next sync.
func (s *Store) MarkSyncCompleted(tag string, p message.Provider, messageCount int) error {
	now := time.Now()
	return s.UpdateSyncState(tag, func(st *SyncState) error {
		ps := st.provider(p)
		if ps.CurrentSessionID != "" {
			ps.LastSessionID = ps.CurrentSessionID
		}
		ps.LastSyncTime = now
		st.LastSyncTimestamp = now
		st.MessageCount = messageCount
		st.Status = StatusSynced
		return nil
	})
}

// UpdateBackupInfo records the backup taken before overwriting a
// provider's conversation file.
func (s *Store) UpdateBackupInfo(tag string, p message.Provider, path string) error {
	return s.UpdateSyncState(tag, func(st *SyncState) error {
		if st.Backups == nil {
			st.Backups = make(map[message.Provider]*BackupInfo)
		}
		st.Backups[p] = &BackupInfo{Path: path, CreatedAt: time.Now()}
		return nil
	})
}

// ListStates returns all sync states sorted by tag
func (s *Store) ListStates() ([]*SyncState, error) {
	doc := s.load()
	out := make([]*SyncState, 0, len(doc.States))
	for _, st := range doc.States {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionTag < out[j].SessionTag })
	return out, nil
}

// RemoveState deletes the state for a tag on explicit session teardown
func (s *Store) RemoveState(tag string) error {
	return s.mutate(func(doc *document) error {
		delete(doc.States, tag)
		return nil
	})
}
