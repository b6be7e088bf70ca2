package diff

import (
	"testing"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

func TestComputeFullEqual(t *testing.T) {
	msgs := []message.Message{
		text(message.RoleUser, "hi"),
		text(message.RoleAssistant, "hello"),
	}
	result := ComputeFull(msgs, msgs)
	if result.HasChanges {
		t.Errorf("equal sequences should have no edit script, got %d ops", len(result.Operations))
	}
	if result.Summary.Unchanged != 2 {
		t.Errorf("unchanged = %d, want 2", result.Summary.Unchanged)
	}
}

func TestComputeFullInsertion(t *testing.T) {
	old := []message.Message{text(message.RoleUser, "a")}
	new := []message.Message{text(message.RoleUser, "a"), text(message.RoleAssistant, "b")}

	result := ComputeFull(old, new)
	if len(result.Operations) != 1 {
		t.Fatalf("expected 1 op, got %d", len(result.Operations))
	}
	if result.Operations[0].Type != OpAdd || result.Operations[0].Message.Text != "b" {
		t.Errorf("unexpected op: %+v", result.Operations[0])
	}
}

func TestComputeFullRemoval(t *testing.T) {
	old := []message.Message{text(message.RoleUser, "a"), text(message.RoleAssistant, "b")}
	new := []message.Message{text(message.RoleUser, "a")}

	result := ComputeFull(old, new)
	if len(result.Operations) != 1 {
		t.Fatalf("expected 1 op, got %d", len(result.Operations))
	}
	op := result.Operations[0]
	if op.Type != OpRemove || op.Message.Text != "b" {
		t.Errorf("unexpected op: %+v", op)
	}
	if result.Summary.Removed != 1 {
		t.Errorf("removed = %d, want 1", result.Summary.Removed)
	}
}

func TestComputeFullReplacement(t *testing.T) {
	old := []message.Message{text(message.RoleUser, "a"), text(message.RoleAssistant, "b")}
	new := []message.Message{text(message.RoleUser, "a"), text(message.RoleAssistant, "c")}

	result := ComputeFull(old, new)
	adds, removes := 0, 0
	for _, op := range result.Operations {
		switch op.Type {
		case OpAdd:
			adds++
		case OpRemove:
			removes++
		}
	}
	if adds != 1 || removes != 1 {
		t.Errorf("expected 1 add and 1 remove, got %d/%d", adds, removes)
	}
}

func TestComputeFullEmptySides(t *testing.T) {
	new := []message.Message{text(message.RoleUser, "a")}
	result := ComputeFull(nil, new)
	if len(result.Operations) != 1 || result.Operations[0].Type != OpAdd {
		t.Errorf("insert-into-empty produced %+v", result.Operations)
	}

	result = ComputeFull(new, nil)
	if len(result.Operations) != 1 || result.Operations[0].Type != OpRemove {
		t.Errorf("delete-to-empty produced %+v", result.Operations)
	}

	result = ComputeFull(nil, nil)
	if result.HasChanges {
		t.Error("empty vs empty should have no changes")
	}
}
