package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

// TextMessage builds a canonical text message for testing
func TextMessage(role message.Role, text string) message.Message {
	return message.Message{
		ID:        fmt.Sprintf("msg-%s-%d", role, len(text)),
		SessionID: "test-session",
		Timestamp: time.Unix(1700000000, 0),
		Role:      role,
		Type:      message.TypeMessage,
		Text:      text,
	}
}

// Conversation builds an alternating user/assistant conversation from
// the given texts, starting with the user.
func Conversation(texts ...string) []message.Message {
	msgs := make([]message.Message, 0, len(texts))
	for i, text := range texts {
		role := message.RoleUser
		if i%2 == 1 {
			role = message.RoleAssistant
		}
		m := TextMessage(role, text)
		m.ID = fmt.Sprintf("msg-%d", i)
		m.Timestamp = time.Unix(1700000000+int64(i)*10, 0)
		msgs = append(msgs, m)
	}
	return message.Chain(msgs, "")
}

// ClaudeTranscriptJSONL renders JSONL transcript lines for the given
// alternating user/assistant texts.
func ClaudeTranscriptJSONL(t *testing.T, sessionID string, texts ...string) []byte {
	t.Helper()
	var b strings.Builder
	parent := ""
	for i, text := range texts {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		id := fmt.Sprintf("%s-env-%d", sessionID, i)
		ts := time.Unix(1700000000+int64(i)*10, 0).UTC().Format(time.RFC3339)
		parentField := "null"
		if parent != "" {
			parentField = fmt.Sprintf("%q", parent)
		}
		fmt.Fprintf(&b,
			`{"type":%q,"uuid":%q,"parentUuid":%s,"sessionId":%q,"timestamp":%q,"message":{"role":%q,"content":[{"type":"text","text":%q}]}}`,
			role, id, parentField, sessionID, ts, role, text)
		b.WriteString("\n")
		parent = id
	}
	return []byte(b.String())
}

// GeminiCheckpointJSON renders a checkpoint file for the given
// alternating user/model texts.
func GeminiCheckpointJSON(t *testing.T, texts ...string) []byte {
	t.Helper()
	var parts []string
	for i, text := range texts {
		role := "user"
		if i%2 == 1 {
			role = "model"
		}
		parts = append(parts, fmt.Sprintf(`{"role":%q,"parts":[{"text":%q}]}`, role, text))
	}
	return []byte("[" + strings.Join(parts, ",") + "]")
}
