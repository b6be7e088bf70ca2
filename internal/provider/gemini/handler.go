package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

// Handler implements provider.SyncHandler over Gemini CLI's checkpoint
// storage: a single JSON file holding the conversation turns. The live
// checkpoint is the "after" file; the baseline snapshot under syncDir
// is the "before" file.
type Handler struct {
	root    string
	syncDir string
}

// NewHandler creates a handler rooted at the checkpoint directory
func NewHandler(root, syncDir string) *Handler {
	return &Handler{root: root, syncDir: syncDir}
}

// GetAfterFile returns the live checkpoint path for a session
func (h *Handler) GetAfterFile(sessionID string) (string, error) {
	return filepath.Join(h.root, "checkpoint-"+sessionID+".json"), nil
}

// GetBeforeFile returns the baseline snapshot path for a session
func (h *Handler) GetBeforeFile(sessionID string) (string, error) {
	return filepath.Join(h.syncDir, "gemini-"+sessionID+".before.json"), nil
}

// ReadConversation reads a checkpoint file and converts it to canonical
// form. A missing file is an empty conversation.
func (h *Handler) ReadConversation(ctx context.Context, path string) ([]message.Message, error) {
	turns, err := ReadCheckpoint(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", path, err)
	}
	if len(turns) == 0 {
		return nil, nil
	}

	sessionID := sessionIDFromPath(path)
	base := checkpointBaseTime(path)
	return ToCanonical(turns, sessionID, base)
}

// WriteConversation converts canonical messages to checkpoint form and
// writes them atomically.
func (h *Handler) WriteConversation(ctx context.Context, path string, msgs []message.Message) error {
	turns, err := FromCanonical(msgs)
	if err != nil {
		return err
	}
	return WriteCheckpoint(path, turns)
}

// InitializeState snapshots the live checkpoint as the initial baseline
func (h *Handler) InitializeState(ctx context.Context, sessionID string) error {
	if err := os.MkdirAll(h.syncDir, 0755); err != nil {
		return fmt.Errorf("failed to create sync dir: %w", err)
	}
	return h.UpdateAfterSync(ctx, sessionID)
}

// UpdateAfterSync advances the baseline snapshot to the live checkpoint
func (h *Handler) UpdateAfterSync(ctx context.Context, sessionID string) error {
	after, _ := h.GetAfterFile(sessionID)
	before, _ := h.GetBeforeFile(sessionID)

	data, err := os.ReadFile(after)
	if os.IsNotExist(err) {
		data = []byte("[]")
	} else if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
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

// sessionIDFromPath recovers the session id from a checkpoint file name
func sessionIDFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	base = strings.TrimPrefix(base, "checkpoint-")
	base = strings.TrimPrefix(base, "gemini-")
	return strings.TrimSuffix(base, ".before")
}

// checkpointBaseTime anchors synthetic timestamps. The file's mod time
// minus a fixed window keeps synthesized times in the conversation's
// actual past.
func checkpointBaseTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Now().Add(-time.Hour)
	}
	return info.ModTime().Add(-time.Hour)
}

// ReadCheckpoint reads a checkpoint JSON file
func ReadCheckpoint(path string) ([]Turn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint JSON: %w", err)
	}
	return turns, nil
}

// WriteCheckpoint writes turns via a temp file and rename
func WriteCheckpoint(path string, turns []Turn) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint dir: %w", err)
	}
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
