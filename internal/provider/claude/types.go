package claude

import (
	"encoding/json"
	"time"
)

// Envelope represents one raw JSONL line from a Claude Code transcript
type Envelope struct {
	Type       string    `json:"type"` // "user" | "assistant"
	UUID       string    `json:"uuid"`
	ParentUUID *string   `json:"parentUuid"`
	SessionID  string    `json:"sessionId"`
	Timestamp  time.Time `json:"timestamp"`
	Message    *Body     `json:"message,omitempty"`
}

// Body holds the actual message data. Content is either a bare string
// or an array of content blocks.
type Body struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ContentBlock represents a single block in the content array
type ContentBlock struct {
	Type      string          `json:"type"` // "text" | "tool_use" | "tool_result"
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// blockText extracts the textual payload of a tool_result block, which
// Claude Code writes either as a string or as nested text blocks.
func blockText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var nested []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil {
		out := ""
		for _, n := range nested {
			if n.Type == "text" {
				out += n.Text
			}
		}
		return out
	}
	return string(raw)
}
