// Package provider defines the boundary contracts the sync core depends
// on. Each backend implements a SyncHandler over its native conversation
// storage and a Lifecycle for session management; the core never touches
// a provider's physical storage format directly.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

// Type identifies a registered provider
type Type = message.Provider

const (
	Claude = message.ProviderClaude
	Gemini = message.ProviderGemini
)

// SessionInfo is the ephemeral per-provider session identity, recreated
// on each creation or switch.
type SessionInfo struct {
	Provider  Type
	SessionID string
	Tag       string
	CreatedAt time.Time
}

// Capabilities describes optional provider behaviors
type Capabilities struct {
	// RequiresManualSave gates whether an extra save call is issued
	// before switching away from this provider.
	RequiresManualSave bool
}

// SyncHandler reads and writes one provider's native conversation
// storage. "Before" is the snapshot taken at the last completed sync
// (the diff baseline); "after" is the live conversation file.
type SyncHandler interface {
	GetBeforeFile(sessionID string) (string, error)
	GetAfterFile(sessionID string) (string, error)
	ReadConversation(ctx context.Context, path string) ([]message.Message, error)
	WriteConversation(ctx context.Context, path string, msgs []message.Message) error
	InitializeState(ctx context.Context, sessionID string) error
	UpdateAfterSync(ctx context.Context, sessionID string) error
	UpdateSessionTracking(oldSessionID, newSessionID string) error
	Cleanup(ctx context.Context, sessionID string) error
}

// Lifecycle manages a provider's session lifetime
type Lifecycle interface {
	CreateSession(ctx context.Context, tag string) (*SessionInfo, error)
	ResumeSession(ctx context.Context, sessionID string) error
	CurrentSessionID() string
	SetSessionTag(tag string)
	Capabilities() Capabilities
	PerformFinalSave(ctx context.Context) error
}

// UnavailableError indicates a requested provider is not registered or
// not initialized.
type UnavailableError struct {
	Provider Type
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider %s is not available", e.Provider)
}

// Registration bundles everything the orchestrators need per provider
type Registration struct {
	Type      Type
	Handler   SyncHandler
	Lifecycle Lifecycle
}

// Registry holds the set of available providers
type Registry struct {
	providers map[Type]*Registration
	order     []Type
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[Type]*Registration)}
}

// Register adds a provider. Registering the same type twice replaces the
// earlier registration.
func (r *Registry) Register(reg *Registration) {
	if _, ok := r.providers[reg.Type]; !ok {
		r.order = append(r.order, reg.Type)
	}
	r.providers[reg.Type] = reg
}

// Get returns the registration for a provider type
func (r *Registry) Get(t Type) (*Registration, error) {
	reg, ok := r.providers[t]
	if !ok {
		return nil, &UnavailableError{Provider: t}
	}
	return reg, nil
}

// Types returns registered provider types in registration order
func (r *Registry) Types() []Type {
	out := make([]Type, len(r.order))
	copy(out, r.order)
	return out
}
