package message

import "fmt"

// ValidationError represents a malformed canonical message
type ValidationError struct {
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error at message %d: %s", e.Index, e.Reason)
}

// Validate checks a single message for structural validity
func validate(m *Message, index int) error {
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return &ValidationError{Index: index, Reason: fmt.Sprintf("unknown role %q", m.Role)}
	}
	switch m.Type {
	case TypeMessage:
		if m.IsEmpty() {
			return &ValidationError{Index: index, Reason: "empty content"}
		}
	case TypeToolUse:
		if m.Call == nil || m.Call.Name == "" {
			return &ValidationError{Index: index, Reason: "tool_use without a named call"}
		}
	case TypeToolResult:
		if m.Result == nil {
			return &ValidationError{Index: index, Reason: "tool_result without a result"}
		}
	default:
		return &ValidationError{Index: index, Reason: fmt.Sprintf("unknown type %q", m.Type)}
	}
	return nil
}

// ValidateSequence checks every message in a canonical sequence and the
/// integrity of its parent chain: each message's ParentID must reference
// the preceding message, and no message may reference itself.
func ValidateSequence(msgs []Message) error {
	prev := ""
	for i := range msgs {
		m := &msgs[i]
		if err := validate(m, i); err != nil {
			return err
		}
		if m.ID != "" && m.ID == m.ParentID {
			return &ValidationError{Index: i, Reason: "message references itself as parent"}
		}
		if i > 0 && m.ParentID != "" && m.ParentID != prev {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("broken parent chain: parent %s, expected %s", m.ParentID, prev)}
		}
		prev = m.ID
	}
	return nil
}
