package gemini

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sunhome243/nexus-cli-sub000/internal/provider"
)

// Lifecycle manages Gemini CLI session identity. Gemini CLI only
// persists its checkpoint on an explicit save, so a manual save is
// required before switching away.
type Lifecycle struct {
	handler   *Handler
	sessionID string
	tag       string
}

// NewLifecycle creates a lifecycle bound to a handler
func NewLifecycle(handler *Handler) *Lifecycle {
	return &Lifecycle{handler: handler}
}

// CreateSession starts a fresh session for the given tag
func (l *Lifecycle) CreateSession(ctx context.Context, tag string) (*provider.SessionInfo, error) {
	l.sessionID = uuid.NewString()
	l.tag = tag
	if err := l.handler.InitializeState(ctx, l.sessionID); err != nil {
		return nil, err
	}
	return &provider.SessionInfo{
		Provider:  provider.Gemini,
		SessionID: l.sessionID,
		Tag:       tag,
		CreatedAt: time.Now(),
	}, nil
}

// ResumeSession attaches to an existing session
func (l *Lifecycle) ResumeSession(ctx context.Context, sessionID string) error {
	l.sessionID = sessionID
	return nil
}

// CurrentSessionID returns the active session identifier
func (l *Lifecycle) CurrentSessionID() string {
	return l.sessionID
}

// SetSessionTag records the user-facing tag for the session
func (l *Lifecycle) SetSessionTag(tag string) {
	l.tag = tag
}

// Capabilities reports provider behavior flags
func (l *Lifecycle) Capabilities() provider.Capabilities {
	return provider.Capabilities{RequiresManualSave: true}
}

// PerformFinalSave makes sure the live checkpoint exists on disk so a
// sync started right after the switch sees the latest conversation.
func (l *Lifecycle) PerformFinalSave(ctx context.Context) error {
	if l.sessionID == "" {
		return nil
	}
	after, _ := l.handler.GetAfterFile(l.sessionID)
	if _, err := os.Stat(after); os.IsNotExist(err) {
		return WriteCheckpoint(after, nil)
	}
	return nil
}
