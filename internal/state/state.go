// Package state persists per-session sync metadata in a versioned JSON
// document guarded by a cooperative lock file. All mutations go through
// the lock; read-only queries may return the last committed view.
package state

import (
	"time"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

// DocumentVersion is written into every state file
const DocumentVersion = "1.0"

// Status values for a session's sync state
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
)

// ProviderState tracks one provider's session identity across syncs.
// LastSessionID is the baseline slot, CurrentSessionID the head slot;
// MarkSyncCompleted rotates current into last.
type ProviderState struct {
	LastSessionID    string    `json:"lastSessionId,omitempty"`
	CurrentSessionID string    `json:"currentSessionId,omitempty"`
	LastSyncTime     time.Time `json:"lastSyncTime,omitempty"`
}

// BackupInfo records the snapshot taken before a provider file is
// overwritten.
type BackupInfo struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
}

// SyncState is the durable per-session sync metadata, keyed by session
// tag. It is created once per tag, mutated only through the Store under
// lock, and removed only on explicit session teardown.
type SyncState struct {
	SessionID         string                              `json:"sessionId"`
	SessionTag        string                              `json:"sessionTag"`
	Providers         map[message.Provider]*ProviderState `json:"providers"`
	Backups           map[message.Provider]*BackupInfo    `json:"backups,omitempty"`
	LastSyncTimestamp time.Time                           `json:"lastSyncTimestamp,omitempty"`
	MessageCount      int                                 `json:"messageCount"`
	Status            string                              `json:"status"`
	ActiveProvider    message.Provider                    `json:"activeProvider,omitempty"`
}

// document is the on-disk shape of the state file
type document struct {
	Version     string                `json:"version"`
	LastUpdated time.Time             `json:"lastUpdated"`
	States      map[string]*SyncState `json:"states"`
}

func emptyDocument() *document {
	return &document{
		Version: DocumentVersion,
		States:  make(map[string]*SyncState),
	}
}

// provider returns the sub-state for p, creating it if needed
func (s *SyncState) provider(p message.Provider) *ProviderState {
	if s.Providers == nil {
		s.Providers = make(map[message.Provider]*ProviderState)
	}
	ps, ok := s.Providers[p]
	if !ok {
		ps = &ProviderState{}
		s.Providers[p] = ps
	}
	return ps
}
