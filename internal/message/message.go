package message

import (
	"time"
)

// Role identifies who produced a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Type identifies the kind of conversation event a message carries
type Type string

const (
	TypeMessage    Type = "message"
	TypeToolUse    Type = "tool_use"
	TypeToolResult Type = "tool_result"
)

// Provider identifies which backend a message originated from
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderGemini Provider = "gemini"
)

// ToolCall represents a tool invocation requested by the assistant
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult represents the outcome of a tool invocation
type ToolResult struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"isError,omitempty"`
}

// Part is one element of a multi-part message body
type Part struct {
	Type   Type        `json:"type"`
	Text   string      `json:"text,omitempty"`
	Call   *ToolCall   `json:"call,omitempty"`
	Result *ToolResult `json:"result,omitempty"`
}

// Message is the provider-agnostic representation of one conversation
// turn or tool event. ParentID links messages into an ordered chain so
// relative order survives conversion across providers.
//
// The content carried is determined by Type: Text for TypeMessage, Call
// for TypeToolUse, Result for TypeToolResult. Parts may carry additional
// typed content alongside Text on TypeMessage.
type Message struct {
	ID        string      `json:"id"`
	ParentID  string      `json:"parentId,omitempty"`
	SessionID string      `json:"sessionId"`
	Timestamp time.Time   `json:"timestamp"`
	Role      Role        `json:"role"`
	Type      Type        `json:"type"`
	Text      string      `json:"text,omitempty"`
	Call      *ToolCall   `json:"call,omitempty"`
	Result    *ToolResult `json:"result,omitempty"`
	Parts     []Part      `json:"parts,omitempty"`
	Provider  Provider    `json:"provider,omitempty"`
}

// IsEmpty reports whether the message carries no content at all
func (m *Message) IsEmpty() bool {
	return m.Text == "" && m.Call == nil && m.Result == nil && len(m.Parts) == 0
}

// Chain links msgs into a parent chain in slice order, starting from
// parentID. It returns the same slice for convenience.
func Chain(msgs []Message, parentID string) []Message {
	prev := parentID
	for i := range msgs {
		msgs[i].ParentID = prev
		prev = msgs[i].ID
	}
	return msgs
}
