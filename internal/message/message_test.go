package message

import (
	"testing"
	"time"
)

func TestValidateSequence(t *testing.T) {
	tests := []struct {
		name    string
		msgs    []Message
		wantErr bool
		wantIdx int
	}{
		{
			name: "valid chain",
			msgs: []Message{
				{ID: "a", Role: RoleUser, Type: TypeMessage, Text: "hi"},
				{ID: "b", ParentID: "a", Role: RoleAssistant, Type: TypeMessage, Text: "hello"},
			},
		},
		{
			name:    "missing role",
			msgs:    []Message{{ID: "a", Type: TypeMessage, Text: "hi"}},
			wantErr: true,
			wantIdx: 0,
		},
		{
			name: "empty content",
			msgs: []Message{
				{ID: "a", Role: RoleUser, Type: TypeMessage, Text: "hi"},
				{ID: "b", ParentID: "a", Role: RoleAssistant, Type: TypeMessage},
			},
			wantErr: true,
			wantIdx: 1,
		},
		{
			name:    "unknown type",
			msgs:    []Message{{ID: "a", Role: RoleUser, Type: "note", Text: "hi"}},
			wantErr: true,
			wantIdx: 0,
		},
		{
			name: "tool_use without call",
			msgs: []Message{
				{ID: "a", Role: RoleAssistant, Type: TypeToolUse},
			},
			wantErr: true,
			wantIdx: 0,
		},
		{
			name: "broken parent chain",
			msgs: []Message{
				{ID: "a", Role: RoleUser, Type: TypeMessage, Text: "hi"},
				{ID: "b", ParentID: "zzz", Role: RoleAssistant, Type: TypeMessage, Text: "hello"},
			},
			wantErr: true,
			wantIdx: 1,
		},
		{
			name:    "self parent",
			msgs:    []Message{{ID: "a", ParentID: "a", Role: RoleUser, Type: TypeMessage, Text: "hi"}},
			wantErr: true,
			wantIdx: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSequence(tt.msgs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSequence() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				ve, ok := err.(*ValidationError)
				if !ok {
					t.Fatalf("expected *ValidationError, got %T", err)
				}
				if ve.Index != tt.wantIdx {
					t.Errorf("ValidationError.Index = %d, want %d", ve.Index, tt.wantIdx)
				}
			}
		})
	}
}

func TestEqualIgnoresIdentity(t *testing.T) {
	a := Message{
		ID:        "id-1",
		ParentID:  "parent-1",
		SessionID: "session-1",
		Timestamp: time.Unix(1000, 0),
		Role:      RoleUser,
		Type:      TypeMessage,
		Text:      "hi",
		Provider:  ProviderClaude,
	}
	b := Message{
		ID:        "id-2",
		ParentID:  "parent-2",
		SessionID: "session-2",
		Timestamp: time.Unix(9999, 0),
		Role:      RoleUser,
		Type:      TypeMessage,
		Text:      "hi",
		Provider:  ProviderGemini,
	}

	if !Equal(&a, &b) {
		t.Error("messages with identical role/type/content should be equal across sessions")
	}

	b.Text = "bye"
	if Equal(&a, &b) {
		t.Error("messages with different content should not be equal")
	}
}

func TestEqualToolCalls(t *testing.T) {
	call := func(name string, args map[string]any) Message {
		return Message{Role: RoleAssistant, Type: TypeToolUse, Call: &ToolCall{Name: name, Arguments: args}}
	}

	a := call("read_file", map[string]any{"path": "main.go", "limit": 10})
	b := call("read_file", map[string]any{"limit": 10, "path": "main.go"})
	if !Equal(&a, &b) {
		t.Error("tool calls with equal name+arguments should be equal regardless of key order")
	}

	c := call("read_file", map[string]any{"path": "other.go"})
	if Equal(&a, &c) {
		t.Error("tool calls with different arguments should not be equal")
	}

	d := call("write_file", map[string]any{"path": "main.go", "limit": 10})
	if Equal(&a, &d) {
		t.Error("tool calls with different names should not be equal")
	}
}

func TestEqualToolResults(t *testing.T) {
	res := func(content string, isErr bool) Message {
		return Message{Role: RoleUser, Type: TypeToolResult, Result: &ToolResult{Name: "bash", Content: content, IsError: isErr}}
	}

	a, b := res("ok", false), res("ok", false)
	if !Equal(&a, &b) {
		t.Error("identical tool results should be equal")
	}
	c := res("ok", true)
	if Equal(&a, &c) {
		t.Error("error flag should participate in equality")
	}
}

func TestFingerprint(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Type: TypeMessage, Text: "hi"},
		{Role: RoleAssistant, Type: TypeMessage, Text: "hello"},
	}
	fp1 := Fingerprint(msgs)
	fp2 := Fingerprint(msgs)
	if fp1 != fp2 {
		t.Error("Fingerprint should be stable")
	}

	msgs[1].Text = "goodbye"
	if Fingerprint(msgs) == fp1 {
		t.Error("Fingerprint should change when content changes")
	}

	if Fingerprint(nil) != Fingerprint([]Message{}) {
		t.Error("empty sequences should fingerprint identically")
	}
}

func TestChain(t *testing.T) {
	msgs := []Message{
		{ID: "a", Role: RoleUser, Type: TypeMessage, Text: "1"},
		{ID: "b", Role: RoleAssistant, Type: TypeMessage, Text: "2"},
		{ID: "c", Role: RoleUser, Type: TypeMessage, Text: "3"},
	}
	Chain(msgs, "root")

	if msgs[0].ParentID != "root" {
		t.Errorf("first parent = %q, want root", msgs[0].ParentID)
	}
	if msgs[1].ParentID != "a" || msgs[2].ParentID != "b" {
		t.Errorf("chain not linked in order: %q, %q", msgs[1].ParentID, msgs[2].ParentID)
	}
	if err := ValidateSequence(msgs); err != nil {
		t.Errorf("chained sequence should validate: %v", err)
	}
}
