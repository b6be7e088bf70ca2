package claude

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
	"github.com/sunhome243/nexus-cli-sub000/internal/provider"
)

// Synthetic spacing for envelopes missing a timestamp, weighted by
// role: user turns ~2s apart, assistant turns 3-5s by content size.
const (
	userSpacing      = 2 * time.Second
	assistantSpacing = 3 * time.Second
	maxExtraSpacing  = 2 * time.Second
)

// ToCanonical converts a batch of transcript envelopes to canonical
// messages. An envelope embedding several tool invocations splits into
// one canonical message per tool call plus a trailing message for any
// leftover text, all linked by parent id. Conversion aborts on the
// first malformed envelope.
func ToCanonical(envelopes []Envelope, sessionID string, base time.Time) ([]message.Message, error) {
	var out []message.Message
	toolNames := make(map[string]string) // native tool_use id -> tool name
	clock := base

	for i, env := range envelopes {
		if env.Message == nil {
			return nil, &provider.ConversionError{Provider: provider.Claude, Index: i, Reason: "envelope has no message body"}
		}
		role, err := parseRole(env.Message.Role, i)
		if err != nil {
			return nil, err
		}

		msgs, err := convertBody(env.Message.Content, role, i, toolNames)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			return nil, &provider.ConversionError{Provider: provider.Claude, Index: i, Reason: "empty content"}
		}

		ts := env.Timestamp
		if ts.IsZero() {
			clock = clock.Add(spacing(role, contentSize(msgs)))
			ts = clock
		} else {
			clock = ts
		}

		for j := range msgs {
			msgs[j].SessionID = sessionID
			msgs[j].Timestamp = ts
			msgs[j].Provider = provider.Claude
			if j == 0 && env.UUID != "" {
				msgs[j].ID = env.UUID
			}
		}
		out = append(out, msgs...)
	}

	return message.Chain(out, ""), nil
}

// spacing returns the synthetic gap before a turn
func spacing(role message.Role, contentSize int) time.Duration {
	if role == message.RoleUser {
		return userSpacing
	}
	extra := time.Duration(contentSize/500) * time.Second
	if extra > maxExtraSpacing {
		extra = maxExtraSpacing
	}
	return assistantSpacing + extra
}

// contentSize totals the textual payload of one envelope's messages
func contentSize(msgs []message.Message) int {
	size := 0
	for i := range msgs {
		m := &msgs[i]
		size += len(m.Text)
		if m.Call != nil {
			size += len(m.Call.Name)
		}
		if m.Result != nil {
			size += len(m.Result.Content)
		}
	}
	return size
}

func parseRole(role string, index int) (message.Role, error) {
	switch role {
	case "user":
		return message.RoleUser, nil
	case "assistant":
		return message.RoleAssistant, nil
	case "":
		return "", &provider.ConversionError{Provider: provider.Claude, Index: index, Reason: "missing role"}
	default:
		return "", &provider.ConversionError{Provider: provider.Claude, Index: index, Reason: fmt.Sprintf("unknown role %q", role)}
	}
}

// convertBody expands one envelope body into canonical messages
func convertBody(raw json.RawMessage, role message.Role, index int, toolNames map[string]string) ([]message.Message, error) {
	// Bare string content
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text == "" {
			return nil, &provider.ConversionError{Provider: provider.Claude, Index: index, Reason: "empty content"}
		}
		return []message.Message{{ID: uuid.NewString(), Role: role, Type: message.TypeMessage, Text: text}}, nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, &provider.ConversionError{Provider: provider.Claude, Index: index, Reason: "unrecognized content shape", Err: err}
	}

	var out []message.Message
	var trailing string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			trailing += b.Text
		case "tool_use":
			if b.Name == "" {
				return nil, &provider.ConversionError{Provider: provider.Claude, Index: index, Reason: "tool_use block without name"}
			}
			toolNames[b.ID] = b.Name
			out = append(out, message.Message{
				ID:   uuid.NewString(),
				Role: role,
				Type: message.TypeToolUse,
				Call: &message.ToolCall{Name: b.Name, Arguments: b.Input},
			})
		case "tool_result":
			out = append(out, message.Message{
				ID:   uuid.NewString(),
				Role: role,
				Type: message.TypeToolResult,
				Result: &message.ToolResult{
					Name:    toolNames[b.ToolUseID],
					Content: blockText(b.Content),
					IsError: b.IsError,
				},
			})
		default:
			return nil, &provider.ConversionError{Provider: provider.Claude, Index: index, Reason: fmt.Sprintf("unrecognized block type %q", b.Type)}
		}
	}
	if trailing != "" {
		out = append(out, message.Message{ID: uuid.NewString(), Role: role, Type: message.TypeMessage, Text: trailing})
	}
	return out, nil
}

// FromCanonical converts canonical messages back to transcript
// envelopes. Tool call identifiers are session-local, so fresh ones are
// generated; a tool result is linked to the oldest unanswered call of
// the same tool.
func FromCanonical(msgs []message.Message, sessionID string) ([]Envelope, error) {
	out := make([]Envelope, 0, len(msgs))
	pending := make(map[string][]string) // tool name -> unanswered tool_use ids
	var parent *string

	for i := range msgs {
		m := &msgs[i]
		var block ContentBlock
		switch m.Type {
		case message.TypeMessage:
			if m.Text == "" {
				return nil, &provider.ConversionError{Provider: provider.Claude, Index: i, Reason: "empty content"}
			}
			block = ContentBlock{Type: "text", Text: m.Text}
		case message.TypeToolUse:
			if m.Call == nil {
				return nil, &provider.ConversionError{Provider: provider.Claude, Index: i, Reason: "tool_use without a call"}
			}
			id := "toolu_" + uuid.NewString()
			pending[m.Call.Name] = append(pending[m.Call.Name], id)
			block = ContentBlock{Type: "tool_use", ID: id, Name: m.Call.Name, Input: m.Call.Arguments}
		case message.TypeToolResult:
			if m.Result == nil {
				return nil, &provider.ConversionError{Provider: provider.Claude, Index: i, Reason: "tool_result without a result"}
			}
			var useID string
			if ids := pending[m.Result.Name]; len(ids) > 0 {
				useID = ids[0]
				pending[m.Result.Name] = ids[1:]
			}
			content, _ := json.Marshal(m.Result.Content)
			block = ContentBlock{Type: "tool_result", ToolUseID: useID, Content: content, IsError: m.Result.IsError}
		default:
			return nil, &provider.ConversionError{Provider: provider.Claude, Index: i, Reason: fmt.Sprintf("unknown type %q", m.Type)}
		}

		content, err := json.Marshal([]ContentBlock{block})
		if err != nil {
			return nil, &provider.ConversionError{Provider: provider.Claude, Index: i, Reason: "marshal content", Err: err}
		}

		id := m.ID
		if id == "" {
			id = uuid.NewString()
		}
		env := Envelope{
			Type:       string(m.Role),
			UUID:       id,
			ParentUUID: parent,
			SessionID:  sessionID,
			Timestamp:  m.Timestamp,
			Message:    &Body{Role: string(m.Role), Content: content},
		}
		out = append(out, env)
		parent = &out[len(out)-1].UUID
	}
	return out, nil
}
