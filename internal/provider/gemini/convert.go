package gemini

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
	"github.com/sunhome243/nexus-cli-sub000/internal/provider"
)

// Checkpoint turns carry no timestamps, so conversion assigns synthetic
// ones spaced by role: user turns ~2s apart, model turns 3-5s depending
// on content size. Order is preserved without collisions.
const (
	userSpacing      = 2 * time.Second
	assistantSpacing = 3 * time.Second
	maxExtraSpacing  = 2 * time.Second
)

// ToCanonical converts checkpoint turns to canonical messages. A turn
// with several functionCall parts splits into one canonical message per
// call plus a trailing message for leftover text. Conversion aborts on
// the first malformed turn.
func ToCanonical(turns []Turn, sessionID string, base time.Time) ([]message.Message, error) {
	var out []message.Message
	clock := base

	for i, turn := range turns {
		role, err := parseRole(turn.Role, i)
		if err != nil {
			return nil, err
		}
		if len(turn.Parts) == 0 {
			return nil, &provider.ConversionError{Provider: provider.Gemini, Index: i, Reason: "turn has no parts"}
		}

		msgs, size, err := convertParts(turn.Parts, role, i)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			return nil, &provider.ConversionError{Provider: provider.Gemini, Index: i, Reason: "empty content"}
		}

		clock = clock.Add(spacing(role, size))
		for j := range msgs {
			msgs[j].SessionID = sessionID
			msgs[j].Timestamp = clock
			msgs[j].Provider = provider.Gemini
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

func parseRole(role string, index int) (message.Role, error) {
	switch role {
	case "user":
		return message.RoleUser, nil
	case "model":
		return message.RoleAssistant, nil
	case "":
		return "", &provider.ConversionError{Provider: provider.Gemini, Index: index, Reason: "missing role"}
	default:
		return "", &provider.ConversionError{Provider: provider.Gemini, Index: index, Reason: fmt.Sprintf("unknown role %q", role)}
	}
}

func convertParts(parts []Part, role message.Role, index int) ([]message.Message, int, error) {
	var out []message.Message
	var trailing string
	size := 0

	for _, p := range parts {
		switch {
		case p.FunctionCall != nil:
			if p.FunctionCall.Name == "" {
				return nil, 0, &provider.ConversionError{Provider: provider.Gemini, Index: index, Reason: "functionCall without name"}
			}
			out = append(out, message.Message{
				ID:   uuid.NewString(),
				Role: role,
				Type: message.TypeToolUse,
				Call: &message.ToolCall{Name: p.FunctionCall.Name, Arguments: p.FunctionCall.Args},
			})
			size += len(p.FunctionCall.Name)
		case p.FunctionResponse != nil:
			content, isError := flattenResponse(p.FunctionResponse.Response)
			out = append(out, message.Message{
				ID:   uuid.NewString(),
				Role: role,
				Type: message.TypeToolResult,
				Result: &message.ToolResult{
					Name:    p.FunctionResponse.Name,
					Content: content,
					IsError: isError,
				},
			})
			size += len(content)
		case p.Text != "":
			trailing += p.Text
			size += len(p.Text)
		default:
			return nil, 0, &provider.ConversionError{Provider: provider.Gemini, Index: index, Reason: "unrecognized part shape"}
		}
	}
	if trailing != "" {
		out = append(out, message.Message{ID: uuid.NewString(), Role: role, Type: message.TypeMessage, Text: trailing})
	}
	return out, size, nil
}

// flattenResponse extracts a textual payload and error flag from a
// functionResponse body
func flattenResponse(resp map[string]any) (string, bool) {
	if resp == nil {
		return "", false
	}
	if v, ok := resp["error"]; ok {
		return fmt.Sprintf("%v", v), true
	}
	if v, ok := resp["output"]; ok {
		if s, ok := v.(string); ok {
			return s, false
		}
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return "", false
	}
	return string(data), false
}

// FromCanonical converts canonical messages back to checkpoint turns
func FromCanonical(msgs []message.Message) ([]Turn, error) {
	out := make([]Turn, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		role := "user"
		if m.Role == message.RoleAssistant {
			role = "model"
		}

		var part Part
		switch m.Type {
		case message.TypeMessage:
			if m.Text == "" {
				return nil, &provider.ConversionError{Provider: provider.Gemini, Index: i, Reason: "empty content"}
			}
			part = Part{Text: m.Text}
		case message.TypeToolUse:
			if m.Call == nil {
				return nil, &provider.ConversionError{Provider: provider.Gemini, Index: i, Reason: "tool_use without a call"}
			}
			part = Part{FunctionCall: &FunctionCall{Name: m.Call.Name, Args: m.Call.Arguments}}
		case message.TypeToolResult:
			if m.Result == nil {
				return nil, &provider.ConversionError{Provider: provider.Gemini, Index: i, Reason: "tool_result without a result"}
			}
			resp := map[string]any{}
			if m.Result.IsError {
				resp["error"] = m.Result.Content
			} else {
				resp["output"] = m.Result.Content
			}
			part = Part{FunctionResponse: &FunctionResponse{Name: m.Result.Name, Response: resp}}
		default:
			return nil, &provider.ConversionError{Provider: provider.Gemini, Index: i, Reason: fmt.Sprintf("unknown type %q", m.Type)}
		}
		out = append(out, Turn{Role: role, Parts: []Part{part}})
	}
	return out, nil
}
