package gemini

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
	"github.com/sunhome243/nexus-cli-sub000/internal/provider"
)

func TestToCanonicalText(t *testing.T) {
	base := time.Unix(1700000000, 0)
	turns := []Turn{
		{Role: "user", Parts: []Part{{Text: "hi"}}},
		{Role: "model", Parts: []Part{{Text: "hello"}}},
	}

	msgs, err := ToCanonical(turns, "sess", base)
	if err != nil {
		t.Fatalf("ToCanonical() error: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != message.RoleUser || msgs[0].Text != "hi" {
		t.Errorf("first message: %+v", msgs[0])
	}
	if msgs[1].Role != message.RoleAssistant {
		t.Errorf("model turn should map to assistant, got %s", msgs[1].Role)
	}
	if msgs[1].ParentID != msgs[0].ID {
		t.Error("parent chain broken")
	}
	if err := message.ValidateSequence(msgs); err != nil {
		t.Errorf("converted sequence should validate: %v", err)
	}
}

func TestSyntheticTimestamps(t *testing.T) {
	base := time.Unix(1700000000, 0)
	turns := []Turn{
		{Role: "user", Parts: []Part{{Text: "hi"}}},
		{Role: "model", Parts: []Part{{Text: "short"}}},
		{Role: "user", Parts: []Part{{Text: "more"}}},
		{Role: "model", Parts: []Part{{Text: strings.Repeat("x", 1200)}}},
	}

	msgs, err := ToCanonical(turns, "sess", base)
	if err != nil {
		t.Fatalf("ToCanonical() error: %v", err)
	}

	if got := msgs[0].Timestamp; got != base.Add(2*time.Second) {
		t.Errorf("user turn timestamp = %v, want base+2s", got)
	}
	if got := msgs[1].Timestamp; got != base.Add(5*time.Second) {
		t.Errorf("short model turn timestamp = %v, want base+5s", got)
	}
	// 1200 chars of content adds 2 extra seconds on top of the 3s floor.
	if got := msgs[3].Timestamp; got != base.Add(12*time.Second) {
		t.Errorf("long model turn timestamp = %v, want base+12s", got)
	}
	for i := 1; i < len(msgs); i++ {
		if !msgs[i].Timestamp.After(msgs[i-1].Timestamp) {
			t.Errorf("timestamps not strictly increasing at %d", i)
		}
	}
}

func TestToCanonicalSplitsFunctionCalls(t *testing.T) {
	turns := []Turn{{
		Role: "model",
		Parts: []Part{
			{FunctionCall: &FunctionCall{Name: "read_file", Args: map[string]any{"path": "a.go"}}},
			{FunctionCall: &FunctionCall{Name: "shell", Args: map[string]any{"cmd": "ls"}}},
			{Text: "running those now"},
		},
	}}

	msgs, err := ToCanonical(turns, "sess", time.Unix(1, 0))
	if err != nil {
		t.Fatalf("ToCanonical() error: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3 (two calls + trailing text)", len(msgs))
	}
	if msgs[0].Type != message.TypeToolUse || msgs[0].Call.Name != "read_file" {
		t.Errorf("first split message: %+v", msgs[0])
	}
	if msgs[2].Type != message.TypeMessage || msgs[2].Text != "running those now" {
		t.Errorf("trailing message: %+v", msgs[2])
	}
	// Messages split from one turn share the turn's synthetic timestamp.
	if msgs[0].Timestamp != msgs[2].Timestamp {
		t.Error("split messages should share the turn timestamp")
	}
}

func TestFunctionResponseFlattening(t *testing.T) {
	tests := []struct {
		name        string
		response    map[string]any
		wantContent string
		wantError   bool
	}{
		{"error key", map[string]any{"error": "boom"}, "boom", true},
		{"output string", map[string]any{"output": "all good"}, "all good", false},
		{"arbitrary object", map[string]any{"status": "ok"}, `{"status":"ok"}`, false},
		{"nil response", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turns := []Turn{{
				Role:  "user",
				Parts: []Part{{FunctionResponse: &FunctionResponse{Name: "shell", Response: tt.response}}},
			}}
			msgs, err := ToCanonical(turns, "s", time.Unix(1, 0))
			if err != nil {
				t.Fatalf("ToCanonical() error: %v", err)
			}
			res := msgs[0].Result
			if res == nil {
				t.Fatal("expected a tool result")
			}
			if res.Content != tt.wantContent {
				t.Errorf("content = %q, want %q", res.Content, tt.wantContent)
			}
			if res.IsError != tt.wantError {
				t.Errorf("isError = %v, want %v", res.IsError, tt.wantError)
			}
		})
	}
}

func TestToCanonicalErrors(t *testing.T) {
	tests := []struct {
		name    string
		turns   []Turn
		wantIdx int
	}{
		{"missing role", []Turn{{Parts: []Part{{Text: "hi"}}}}, 0},
		{"unknown role", []Turn{{Role: "system", Parts: []Part{{Text: "hi"}}}}, 0},
		{"no parts", []Turn{{Role: "user"}}, 0},
		{"empty part second turn", []Turn{
			{Role: "user", Parts: []Part{{Text: "hi"}}},
			{Role: "model", Parts: []Part{{}}},
		}, 1},
		{"call without name", []Turn{{Role: "model", Parts: []Part{{FunctionCall: &FunctionCall{}}}}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToCanonical(tt.turns, "s", time.Unix(1, 0))
			var convErr *provider.ConversionError
			if !errors.As(err, &convErr) {
				t.Fatalf("expected ConversionError, got %v", err)
			}
			if convErr.Index != tt.wantIdx {
				t.Errorf("error index = %d, want %d", convErr.Index, tt.wantIdx)
			}
		})
	}
}

func TestFromCanonicalRoundTripContent(t *testing.T) {
	msgs := []message.Message{
		{ID: "m1", Role: message.RoleUser, Type: message.TypeMessage, Text: "hi"},
		{ID: "m2", ParentID: "m1", Role: message.RoleAssistant, Type: message.TypeToolUse, Call: &message.ToolCall{Name: "shell", Arguments: map[string]any{"cmd": "ls"}}},
		{ID: "m3", ParentID: "m2", Role: message.RoleUser, Type: message.TypeToolResult, Result: &message.ToolResult{Name: "shell", Content: "ok"}},
		{ID: "m4", ParentID: "m3", Role: message.RoleUser, Type: message.TypeToolResult, Result: &message.ToolResult{Name: "shell", Content: "boom", IsError: true}},
		{ID: "m5", ParentID: "m4", Role: message.RoleAssistant, Type: message.TypeMessage, Text: "done"},
	}

	turns, err := FromCanonical(msgs)
	if err != nil {
		t.Fatalf("FromCanonical() error: %v", err)
	}
	if len(turns) != 5 {
		t.Fatalf("got %d turns, want 5", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "model" {
		t.Errorf("roles: %s, %s", turns[0].Role, turns[1].Role)
	}
	if turns[3].Parts[0].FunctionResponse == nil {
		t.Fatal("error result should map to a functionResponse part")
	}
	if _, ok := turns[3].Parts[0].FunctionResponse.Response["error"]; !ok {
		t.Error("error result should carry an error key")
	}

	back, err := ToCanonical(turns, "sess", time.Unix(1, 0))
	if err != nil {
		t.Fatalf("ToCanonical() on round trip error: %v", err)
	}
	if len(back) != len(msgs) {
		t.Fatalf("round trip changed length: %d -> %d", len(msgs), len(back))
	}
	for i := range msgs {
		if !message.Equal(&msgs[i], &back[i]) {
			t.Errorf("message %d content changed over round trip", i)
		}
	}
}
