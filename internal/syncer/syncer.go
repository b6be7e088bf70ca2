// Package syncer composes the converters, diff engine, state store, and
// provider sync handlers into directional sync operations. A sync never
// mutates the source side's files, and durable state is committed only
// after the target provider's write succeeds.
package syncer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sunhome243/nexus-cli-sub000/internal/archive"
	"github.com/sunhome243/nexus-cli-sub000/internal/diff"
	"github.com/sunhome243/nexus-cli-sub000/internal/logging"
	"github.com/sunhome243/nexus-cli-sub000/internal/message"
	"github.com/sunhome243/nexus-cli-sub000/internal/provider"
	"github.com/sunhome243/nexus-cli-sub000/internal/state"
)

// Direction selects which way messages flow during a sync
type Direction string

const (
	DirectionBidirectional  Direction = "bidirectional"
	DirectionClaudeToGemini Direction = "claude-to-gemini"
	DirectionGeminiToClaude Direction = "gemini-to-claude"
)

// ParseDirection maps a user-supplied string to a Direction
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "both", string(DirectionBidirectional):
		return DirectionBidirectional, nil
	case string(DirectionClaudeToGemini):
		return DirectionClaudeToGemini, nil
	case string(DirectionGeminiToClaude):
		return DirectionGeminiToClaude, nil
	default:
		return "", fmt.Errorf("unknown sync direction %q", s)
	}
}

// pairs expands a direction into ordered (source, target) legs
func (d Direction) pairs() [][2]provider.Type {
	switch d {
	case DirectionClaudeToGemini:
		return [][2]provider.Type{{provider.Claude, provider.Gemini}}
	case DirectionGeminiToClaude:
		return [][2]provider.Type{{provider.Gemini, provider.Claude}}
	default:
		return [][2]provider.Type{
			{provider.Claude, provider.Gemini},
			{provider.Gemini, provider.Claude},
		}
	}
}

// WriteError indicates the post-diff write to a provider failed. It is
// folded into the sync report per provider, never thrown across the
// whole operation.
type WriteError struct {
	Provider provider.Type
	Path     string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sync write error [%s] %s: %v", e.Provider, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ProviderResult describes one target provider's outcome within a sync
type ProviderResult struct {
	Added        int
	MessageCount int
	Err          error
}

// Report is the structured result of a sync call, describing exactly
// what succeeded and what didn't.
type Report struct {
	Tag       string
	Direction Direction
	Results   map[provider.Type]*ProviderResult
}

// Succeeded reports whether every leg of the sync completed
func (r *Report) Succeeded() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return false
		}
	}
	return true
}

// Added returns the total number of messages applied across legs
func (r *Report) Added() int {
	total := 0
	for _, res := range r.Results {
		total += res.Added
	}
	return total
}

// Engine is the sync orchestrator
type Engine struct {
	registry *provider.Registry
	states   *state.Store
	archive  *archive.Archive

	mu       sync.Mutex
	tagLocks map[string]*sync.Mutex
}

// New creates an engine. The archive may be nil to skip archiving.
func New(registry *provider.Registry, states *state.Store, arch *archive.Archive) *Engine {
	return &Engine{
		registry: registry,
		states:   states,
		archive:  arch,
		tagLocks: make(map[string]*sync.Mutex),
	}
}

// tagLock returns the mutex serializing syncs for one session tag.
// The state store's file lock only guards individual state mutations;
// this keeps two whole read-diff-write passes for the same tag from
// interleaving within a process.
func (e *Engine) tagLock(tag string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.tagLocks[tag]
	if !ok {
		l = &sync.Mutex{}
		e.tagLocks[tag] = l
	}
	return l
}

// SyncSession synchronizes the conversation identified by tag in the
// given direction. A failure on one leg does not touch the other leg's
// committed state; each leg's error is folded into the report.
func (e *Engine) SyncSession(ctx context.Context, tag string, dir Direction) (*Report, error) {
	l := e.tagLock(tag)
	l.Lock()
	defer l.Unlock()

	st, err := e.states.GetSyncState(tag)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Tag:       tag,
		Direction: dir,
		Results:   make(map[provider.Type]*ProviderResult),
	}
	for _, leg := range dir.pairs() {
		from, to := leg[0], leg[1]
		res := &ProviderResult{}
		res.Added, res.MessageCount, res.Err = e.syncOne(ctx, st, from, to)
		if res.Err != nil {
			logging.Warn("Sync %s -> %s for session %s failed: %v", from, to, tag, res.Err)
		}
		report.Results[to] = res
	}
	return report, nil
}

// InstantSync is SyncSession addressed by session tag; it exists as the
// entry point for callers reacting to a provider switch, where only the
// tag is at hand.
func (e *Engine) InstantSync(ctx context.Context, tag string, dir Direction) (*Report, error) {
	return e.SyncSession(ctx, tag, dir)
}

// syncOne runs one directional leg: read source head and target
// baseline/current, diff, stage the merge in memory, write the target,
// and only then commit durable state.
func (e *Engine) syncOne(ctx context.Context, st *state.SyncState, from, to provider.Type) (added, total int, err error) {
	fromReg, err := e.registry.Get(from)
	if err != nil {
		return 0, 0, err
	}
	toReg, err := e.registry.Get(to)
	if err != nil {
		return 0, 0, err
	}

	srcID := providerSessionID(st, from)
	dstID := providerSessionID(st, to)

	srcHead, err := e.readSide(ctx, fromReg.Handler, srcID, false)
	if err != nil {
		return 0, 0, err
	}
	baseline, err := e.readSide(ctx, toReg.Handler, dstID, true)
	if err != nil {
		return 0, 0, err
	}
	current, err := e.readSide(ctx, toReg.Handler, dstID, false)
	if err != nil {
		return 0, 0, err
	}

	// New messages the source gained since the target's last baseline
	result := diff.Compute(baseline, srcHead)
	if !result.HasChanges {
		return 0, len(current), nil
	}

	merged, err := diff.Apply(current, result.Operations)
	if err != nil {
		return 0, 0, err
	}
	if len(merged) == len(current) {
		// Everything the diff proposed was already present
		return 0, len(current), nil
	}

	// Relink the merged chain and refuse to write a malformed sequence
	merged = message.Chain(merged, "")
	if err := message.ValidateSequence(merged); err != nil {
		return 0, 0, fmt.Errorf("refusing to write an invalid sequence to %s: %w", to, err)
	}

	afterPath, err := toReg.Handler.GetAfterFile(dstID)
	if err != nil {
		return 0, 0, err
	}

	if backupPath, berr := backupFile(afterPath); berr != nil {
		logging.Warn("Failed to back up %s before sync: %v", afterPath, berr)
	} else if backupPath != "" {
		if uerr := e.states.UpdateBackupInfo(st.SessionTag, to, backupPath); uerr != nil {
			logging.Warn("Failed to record backup for %s: %v", to, uerr)
		}
	}

	if err := toReg.Handler.WriteConversation(ctx, afterPath, merged); err != nil {
		return 0, 0, &WriteError{Provider: to, Path: afterPath, Err: err}
	}

	// Write succeeded: advance the provider baseline and commit state
	if err := toReg.Handler.UpdateAfterSync(ctx, dstID); err != nil {
		return 0, 0, fmt.Errorf("failed to advance %s baseline: %w", to, err)
	}
	if err := e.states.MarkSyncCompleted(st.SessionTag, to, len(merged)); err != nil {
		return 0, 0, err
	}

	if e.archive != nil {
		if aerr := e.archive.Record(st.SessionTag, to, merged); aerr != nil {
			logging.Warn("Failed to archive session %s: %v", st.SessionTag, aerr)
		}
	}

	logging.Info("Synced %d message(s) %s -> %s for session %s", len(merged)-len(current), from, to, st.SessionTag)
	return len(merged) - len(current), len(merged), nil
}

// HasChangesToSync is a cheap pre-check that compares sequence
// fingerprints so callers can skip a full sync when nothing changed.
func (e *Engine) HasChangesToSync(ctx context.Context, tag string, dir Direction) (bool, error) {
	st, err := e.states.GetSyncState(tag)
	if err != nil {
		return false, err
	}

	for _, leg := range dir.pairs() {
		from, to := leg[0], leg[1]
		fromReg, err := e.registry.Get(from)
		if err != nil {
			return false, err
		}
		toReg, err := e.registry.Get(to)
		if err != nil {
			return false, err
		}

		srcHead, err := e.readSide(ctx, fromReg.Handler, providerSessionID(st, from), false)
		if err != nil {
			return false, err
		}
		baseline, err := e.readSide(ctx, toReg.Handler, providerSessionID(st, to), true)
		if err != nil {
			return false, err
		}
		if len(srcHead) != len(baseline) || message.Fingerprint(srcHead) != message.Fingerprint(baseline) {
			return true, nil
		}
	}
	return false, nil
}

// readSide reads a provider's conversation, either the baseline
// snapshot (before) or the live file (after).
func (e *Engine) readSide(ctx context.Context, h provider.SyncHandler, sessionID string, before bool) ([]message.Message, error) {
	var path string
	var err error
	if before {
		path, err = h.GetBeforeFile(sessionID)
	} else {
		path, err = h.GetAfterFile(sessionID)
	}
	if err != nil {
		return nil, err
	}
	return h.ReadConversation(ctx, path)
}

func providerSessionID(st *state.SyncState, p provider.Type) string {
	if ps, ok := st.Providers[p]; ok && ps.CurrentSessionID != "" {
		return ps.CurrentSessionID
	}
	return st.SessionID
}

// backupFile snapshots a file before it is overwritten. A missing file
// needs no backup and returns an empty path.
func backupFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	backupPath := fmt.Sprintf("%s.bak-%d", path, time.Now().UnixMilli())
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", err
	}
	return backupPath, nil
}
