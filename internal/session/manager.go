// Package session manages provider lifecycle for one continuous
// conversation: circuit-breaker-guarded session creation across all
// available providers, the current-provider pointer, and the sync
// trigger on provider switch.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/sunhome243/nexus-cli-sub000/internal/logging"
	"github.com/sunhome243/nexus-cli-sub000/internal/provider"
	"github.com/sunhome243/nexus-cli-sub000/internal/state"
	"github.com/sunhome243/nexus-cli-sub000/internal/syncer"
)

// Syncer is the slice of the sync orchestrator the manager needs
type Syncer interface {
	SyncSession(ctx context.Context, tag string, dir syncer.Direction) (*syncer.Report, error)
}

// DuplicateCreationError indicates a creation request for a tag that is
// already being created. The request is rejected, never queued.
type DuplicateCreationError struct {
	Tag string
}

func (e *DuplicateCreationError) Error() string {
	return fmt.Sprintf("session %q is already being created", e.Tag)
}

// ProviderOutcome is one provider's result within a creation attempt
type ProviderOutcome struct {
	Info *provider.SessionInfo
	Err  error
}

// CreateResult is the per-provider success/error map of a creation
// attempt. Success is true when at least one provider succeeded.
type CreateResult struct {
	Tag       string
	Success   bool
	Providers map[provider.Type]*ProviderOutcome
}

// Manager is the session orchestrator
type Manager struct {
	mu       sync.Mutex
	registry *provider.Registry
	states   *state.Store
	syncer   Syncer
	breaker  *Breaker
	inflight map[string]struct{}
	current  provider.Type
	tag      string
	sessions map[provider.Type]*provider.SessionInfo
}

// Option configures a Manager
type Option func(*Manager)

// WithBreaker overrides the default circuit breaker
func WithBreaker(b *Breaker) Option {
	return func(m *Manager) { m.breaker = b }
}

// NewManager creates a session orchestrator over the given providers
func NewManager(registry *provider.Registry, states *state.Store, sy Syncer, opts ...Option) *Manager {
	m := &Manager{
		registry: registry,
		states:   states,
		syncer:   sy,
		breaker:  NewBreaker(DefaultBreakerThreshold, DefaultBreakerCooldown),
		inflight: make(map[string]struct{}),
		sessions: make(map[provider.Type]*provider.SessionInfo),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize prepares the orchestrator: at least one provider must be
// registered, and the first registered provider becomes current. This
// is the bootstrap step; no sync is triggered here.
func (m *Manager) Initialize(ctx context.Context) error {
	types := m.registry.Types()
	if len(types) == 0 {
		return fmt.Errorf("no providers registered")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == "" {
		m.current = types[0]
	}
	return nil
}

// CurrentProvider returns the provider the conversation is on
func (m *Manager) CurrentProvider() provider.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentTag returns the active session tag, if any
func (m *Manager) CurrentTag() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tag
}

// CreateSession creates a session for tag on every available provider
// concurrently. One provider's failure never blocks its siblings: the
// result maps each provider to its own success or error, and the
// overall attempt succeeds when at least one provider does.
func (m *Manager) CreateSession(ctx context.Context, tag string) (*CreateResult, error) {
	if err := m.breaker.Allow(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, busy := m.inflight[tag]; busy {
		m.mu.Unlock()
		return nil, &DuplicateCreationError{Tag: tag}
	}
	m.inflight[tag] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.inflight, tag)
		m.mu.Unlock()
	}()

	types := m.registry.Types()
	result := &CreateResult{
		Tag:       tag,
		Providers: make(map[provider.Type]*ProviderOutcome, len(types)),
	}

	var wg sync.WaitGroup
	var resMu sync.Mutex
	for _, t := range types {
		reg, err := m.registry.Get(t)
		if err != nil {
			result.Providers[t] = &ProviderOutcome{Err: err}
			continue
		}
		wg.Add(1)
		go func(t provider.Type, reg *provider.Registration) {
			defer wg.Done()
			info, err := reg.Lifecycle.CreateSession(ctx, tag)
			resMu.Lock()
			result.Providers[t] = &ProviderOutcome{Info: info, Err: err}
			resMu.Unlock()
		}(t, reg)
	}
	wg.Wait()

	var firstInfo *provider.SessionInfo
	for _, t := range types {
		out := result.Providers[t]
		if out == nil || out.Err != nil {
			continue
		}
		result.Success = true
		if firstInfo == nil {
			firstInfo = out.Info
		}
	}

	if !result.Success {
		m.breaker.RecordFailure()
		return result, nil
	}
	m.breaker.RecordSuccess()

	if err := m.states.InitializeState(tag, firstInfo.SessionID); err != nil {
		return result, err
	}
	for _, t := range types {
		out := result.Providers[t]
		if out == nil || out.Err != nil || out.Info == nil {
			continue
		}
		if err := m.states.UpdateProviderSession(tag, t, out.Info.SessionID); err != nil {
			return result, err
		}
	}

	m.mu.Lock()
	m.tag = tag
	if m.current == "" {
		m.current = firstInfo.Provider
	}
	current := m.current
	for _, t := range types {
		if out := result.Providers[t]; out != nil && out.Err == nil {
			m.sessions[t] = out.Info
		}
	}
	m.mu.Unlock()

	if err := m.persistActiveProvider(tag, current); err != nil {
		logging.Warn("Failed to record active provider for %s: %v", tag, err)
	}
	return result, nil
}

// AttachSession points the orchestrator at an existing session,
// restoring the current-provider pointer from durable state.
func (m *Manager) AttachSession(tag string) error {
	st, err := m.states.GetSyncState(tag)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tag = tag
	if st.ActiveProvider != "" {
		m.current = st.ActiveProvider
	}
	return nil
}

func (m *Manager) persistActiveProvider(tag string, p provider.Type) error {
	return m.states.UpdateSyncState(tag, func(st *state.SyncState) error {
		st.ActiveProvider = p
		return nil
	})
}

// SwitchProvider moves the conversation to target: validate, issue a
// manual save on the outgoing provider when its capabilities require
// one, flip the pointer, then sync in the direction away from the
// provider just left so the provider being entered is caught up. Sync
// failures degrade to a warning; the switch itself still completes.
func (m *Manager) SwitchProvider(ctx context.Context, target provider.Type) error {
	if _, err := m.registry.Get(target); err != nil {
		return err
	}

	m.mu.Lock()
	outgoing := m.current
	if outgoing == target {
		m.mu.Unlock()
		return nil
	}
	tag := m.tag
	m.current = target
	m.mu.Unlock()

	if outgoing != "" {
		if outReg, err := m.registry.Get(outgoing); err == nil {
			if outReg.Lifecycle.Capabilities().RequiresManualSave {
				if err := outReg.Lifecycle.PerformFinalSave(ctx); err != nil {
					logging.Warn("Final save on %s before switch failed: %v", outgoing, err)
				}
			}
		}
	}

	// Outside of bootstrap, catch the target up before the user
	// continues there
	if tag != "" && outgoing != "" {
		dir := DirectionAwayFrom(outgoing)
		if _, err := m.syncer.SyncSession(ctx, tag, dir); err != nil {
			logging.Warn("Sync on switch to %s failed, will retry on next turn: %v", target, err)
		}
	}
	if tag != "" {
		if err := m.persistActiveProvider(tag, target); err != nil {
			logging.Warn("Failed to record active provider for %s: %v", tag, err)
		}
	}
	return nil
}

// DirectionAwayFrom returns the sync direction flowing away from the
// provider that was just left.
func DirectionAwayFrom(outgoing provider.Type) syncer.Direction {
	if outgoing == provider.Gemini {
		return syncer.DirectionGeminiToClaude
	}
	return syncer.DirectionClaudeToGemini
}

// GetSyncState returns the last committed sync state for a tag
func (m *Manager) GetSyncState(tag string) (*state.SyncState, error) {
	return m.states.GetSyncState(tag)
}

// ListSyncStates returns all known sync states
func (m *Manager) ListSyncStates() ([]*state.SyncState, error) {
	return m.states.ListStates()
}

// Teardown removes a session: provider tracking files are cleaned up
// and the durable sync state is deleted.
func (m *Manager) Teardown(ctx context.Context, tag string) error {
	st, err := m.states.GetSyncState(tag)
	if err != nil {
		return err
	}
	for _, t := range m.registry.Types() {
		reg, err := m.registry.Get(t)
		if err != nil {
			continue
		}
		sessionID := st.SessionID
		if ps, ok := st.Providers[t]; ok && ps.CurrentSessionID != "" {
			sessionID = ps.CurrentSessionID
		}
		if err := reg.Handler.Cleanup(ctx, sessionID); err != nil {
			logging.Warn("Cleanup for %s session %s failed: %v", t, sessionID, err)
		}
	}

	m.mu.Lock()
	if m.tag == tag {
		m.tag = ""
		m.sessions = make(map[provider.Type]*provider.SessionInfo)
	}
	m.mu.Unlock()
	return m.states.RemoveState(tag)
}
