package diff

import (
	"testing"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

func text(role message.Role, s string) message.Message {
	return message.Message{Role: role, Type: message.TypeMessage, Text: s}
}

func TestComputeAppendOnly(t *testing.T) {
	old := []message.Message{text(message.RoleUser, "hi")}
	new := []message.Message{
		text(message.RoleUser, "hi"),
		text(message.RoleAssistant, "hello"),
	}

	result := Compute(old, new)
	if !result.HasChanges {
		t.Fatal("expected changes")
	}
	if len(result.Operations) != 1 {
		t.Fatalf("expected exactly one operation, got %d", len(result.Operations))
	}
	op := result.Operations[0]
	if op.Type != OpAdd {
		t.Errorf("op type = %s, want add", op.Type)
	}
	if op.Index != 1 {
		t.Errorf("op index = %d, want 1", op.Index)
	}
	if op.Message.Role != message.RoleAssistant || op.Message.Text != "hello" {
		t.Errorf("op carries wrong message: %+v", op.Message)
	}
	if result.Summary.Added != 1 || result.Summary.Unchanged != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}

	merged, err := Apply(old, result.Operations)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("merged length = %d, want 2", len(merged))
	}
}

func TestComputeNoChanges(t *testing.T) {
	msgs := []message.Message{
		text(message.RoleUser, "hi"),
		text(message.RoleAssistant, "hello"),
	}
	result := Compute(msgs, msgs)
	if result.HasChanges {
		t.Errorf("identical sequences should produce no operations, got %d", len(result.Operations))
	}
}

func TestComputeNeverRemoves(t *testing.T) {
	// new is shorter than old; the live path must not emit removals
	old := []message.Message{
		text(message.RoleUser, "hi"),
		text(message.RoleAssistant, "hello"),
		text(message.RoleUser, "more"),
	}
	new := []message.Message{text(message.RoleUser, "hi")}

	result := Compute(old, new)
	for _, op := range result.Operations {
		if op.Type != OpAdd {
			t.Errorf("live path emitted %s operation", op.Type)
		}
	}

	merged, err := Apply(old, result.Operations)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if len(merged) < len(old) {
		t.Errorf("merged dropped messages: %d < %d", len(merged), len(old))
	}
}

func TestComputeMatchesByContentNotIdentity(t *testing.T) {
	a := text(message.RoleUser, "hi")
	a.ID, a.SessionID = "claude-1", "session-a"
	b := text(message.RoleUser, "hi")
	b.ID, b.SessionID = "gemini-9", "session-b"

	result := Compute([]message.Message{a}, []message.Message{b})
	if result.HasChanges {
		t.Error("same content under different identifiers should not diff")
	}
}

func TestComputeCountsDuplicates(t *testing.T) {
	// old holds one "ok", new holds two; only the second is an addition
	old := []message.Message{text(message.RoleUser, "ok")}
	new := []message.Message{text(message.RoleUser, "ok"), text(message.RoleUser, "ok")}

	result := Compute(old, new)
	if len(result.Operations) != 1 {
		t.Fatalf("expected 1 addition for the extra duplicate, got %d", len(result.Operations))
	}
}

func TestApplyIdempotent(t *testing.T) {
	old := []message.Message{text(message.RoleUser, "hi")}
	new := []message.Message{
		text(message.RoleUser, "hi"),
		text(message.RoleAssistant, "hello"),
		text(message.RoleUser, "thanks"),
	}

	ops := Compute(old, new).Operations
	once, err := Apply(old, ops)
	if err != nil {
		t.Fatalf("first Apply() error: %v", err)
	}
	twice, err := Apply(once, ops)
	if err != nil {
		t.Fatalf("second Apply() error: %v", err)
	}
	if len(once) != len(twice) {
		t.Fatalf("apply is not idempotent: %d then %d messages", len(once), len(twice))
	}
	for i := range once {
		if !message.Equal(&once[i], &twice[i]) {
			t.Errorf("message %d differs after reapplication", i)
		}
	}
}

func TestApplyRejectsRemovals(t *testing.T) {
	ops := []Operation{{Type: OpRemove, Index: 0, Message: text(message.RoleUser, "hi")}}
	if _, err := Apply([]message.Message{text(message.RoleUser, "hi")}, ops); err == nil {
		t.Error("Apply should reject non-add operations")
	}
}

func TestApplyPreservesEveryOldMessage(t *testing.T) {
	old := []message.Message{
		text(message.RoleUser, "a"),
		text(message.RoleAssistant, "b"),
	}
	new := []message.Message{
		text(message.RoleUser, "c"),
		text(message.RoleAssistant, "b"),
	}

	merged, err := Apply(old, Compute(old, new).Operations)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	// Every old message must survive, every content-distinct new
	// message must appear
	for i := range old {
		if !containsContent(merged, &old[i]) {
			t.Errorf("old message %d dropped", i)
		}
	}
	for i := range new {
		if !containsContent(merged, &new[i]) {
			t.Errorf("new message %d missing", i)
		}
	}
	if len(merged) != 3 {
		t.Errorf("merged length = %d, want 3", len(merged))
	}
}

func containsContent(msgs []message.Message, target *message.Message) bool {
	for i := range msgs {
		if message.Equal(&msgs[i], target) {
			return true
		}
	}
	return false
}
