package claude

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sunhome243/nexus-cli-sub000/internal/logging"
	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

// Handler implements provider.SyncHandler over Claude Code's JSONL
// transcript storage. The live transcript is the "after" file; a
// snapshot taken at the last completed sync lives under syncDir and is
// the "before" file (the diff baseline).
type Handler struct {
	root    string
	syncDir string
}

// NewHandler creates a handler rooted at the transcript directory
func NewHandler(root, syncDir string) *Handler {
	return &Handler{root: root, syncDir: syncDir}
}

// GetAfterFile returns the live transcript path for a session
func (h *Handler) GetAfterFile(sessionID string) (string, error) {
	return filepath.Join(h.root, sessionID+".jsonl"), nil
}

// GetBeforeFile returns the baseline snapshot path for a session
func (h *Handler) GetBeforeFile(sessionID string) (string, error) {
	return filepath.Join(h.syncDir, "claude-"+sessionID+".before.jsonl"), nil
}

// ReadConversation reads a transcript file and converts it to canonical
// form. A missing file is an empty conversation.
func (h *Handler) ReadConversation(ctx context.Context, path string) ([]message.Message, error) {
	envelopes, err := ReadTranscript(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read transcript %s: %w", path, err)
	}
	if len(envelopes) == 0 {
		return nil, nil
	}

	sessionID := envelopes[0].SessionID
	if sessionID == "" {
		sessionID = strings.TrimSuffix(filepath.Base(path), ".jsonl")
	}
	return ToCanonical(envelopes, sessionID, time.Now())
}

// WriteConversation converts canonical messages to transcript form and
// writes them atomically.
func (h *Handler) WriteConversation(ctx context.Context, path string, msgs []message.Message) error {
	sessionID := strings.TrimSuffix(filepath.Base(path), ".jsonl")
	envelopes, err := FromCanonical(msgs, sessionID)
	if err != nil {
		return err
	}
	return WriteTranscript(path, envelopes)
}

// InitializeState snapshots the live transcript as the initial baseline
func (h *Handler) InitializeState(ctx context.Context, sessionID string) error {
	if err := os.MkdirAll(h.syncDir, 0755); err != nil {
		return fmt.Errorf("failed to create sync dir: %w", err)
	}
	return h.UpdateAfterSync(ctx, sessionID)
}

// UpdateAfterSync advances the baseline snapshot to the live transcript
func (h *Handler) UpdateAfterSync(ctx context.Context, sessionID string) error {
	after, _ := h.GetAfterFile(sessionID)
	before, _ := h.GetBeforeFile(sessionID)

	data, err := os.ReadFile(after)
	if os.IsNotExist(err) {
		data = nil
	} else if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(before), 0755); err != nil {
		return err
	}
	return os.WriteFile(before, data, 0644)
}

// UpdateSessionTracking moves tracking files when the provider assigns
// a new session identifier.
func (h *Handler) UpdateSessionTracking(oldSessionID, newSessionID string) error {
	oldBefore, _ := h.GetBeforeFile(oldSessionID)
	newBefore, _ := h.GetBeforeFile(newSessionID)
	if err := os.Rename(oldBefore, newBefore); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to move baseline snapshot: %w", err)
	}
	return nil
}

// Cleanup removes tracking files for a session
func (h *Handler) Cleanup(ctx context.Context, sessionID string) error {
	before, _ := h.GetBeforeFile(sessionID)
	if err := os.Remove(before); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ReadTranscript reads a JSONL transcript. Lines that are not user or
// assistant envelopes (summaries, system events) are skipped.
func ReadTranscript(path string) ([]Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var envelopes []Envelope
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var env Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			logging.Debug("Skipping unparsable transcript line %d in %s: %v", line, path, err)
			continue
		}
		if env.Type != "user" && env.Type != "assistant" {
			continue
		}
		envelopes = append(envelopes, env)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan transcript: %w", err)
	}
	return envelopes, nil
}

// WriteTranscript writes envelopes as JSONL via a temp file and rename
func WriteTranscript(path string, envelopes []Envelope) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create transcript dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".transcript-*")
	if err != nil {
		return fmt.Errorf("failed to create temp transcript: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	for i := range envelopes {
		if err := enc.Encode(&envelopes[i]); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to encode envelope: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
