package claude

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sunhome243/nexus-cli-sub000/internal/provider"
)

// Lifecycle manages Claude Code session identity. Claude Code streams
// every turn to its transcript as it happens, so no manual save is
// needed before switching away.
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
		Provider:  provider.Claude,
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
	return provider.Capabilities{RequiresManualSave: false}
}

// PerformFinalSave is a no-op: the transcript is always current
func (l *Lifecycle) PerformFinalSave(ctx context.Context) error {
	return nil
}
