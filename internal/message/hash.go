package message

import (
	"encoding/binary"
	"encoding/json"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns a hash of the message's logical content: role,
// type, and content payload. Identity fields (ID, SessionID, ParentID,
// Timestamp) and provider metadata are deliberately excluded, because
// each provider assigns its own identifiers to the same logical message.
func ContentHash(m *Message) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(string(m.Role))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(string(m.Type))
	_, _ = h.WriteString("\x00")
	writeContent(h, m)
	return h.Sum64()
}

func writeContent(h *xxhash.Digest, m *Message) {
	_, _ = h.WriteString(m.Text)
	if m.Call != nil {
		_, _ = h.WriteString("\x01")
		_, _ = h.WriteString(m.Call.Name)
		_, _ = h.WriteString(marshalArgs(m.Call.Arguments))
	}
	if m.Result != nil {
		_, _ = h.WriteString("\x02")
		_, _ = h.WriteString(m.Result.Name)
		_, _ = h.WriteString(m.Result.Content)
		if m.Result.IsError {
			_, _ = h.WriteString("!")
		}
	}
	for _, p := range m.Parts {
		_, _ = h.WriteString("\x03")
		_, _ = h.WriteString(string(p.Type))
		_, _ = h.WriteString(p.Text)
		if p.Call != nil {
			_, _ = h.WriteString(p.Call.Name)
			_, _ = h.WriteString(marshalArgs(p.Call.Arguments))
		}
		if p.Result != nil {
			_, _ = h.WriteString(p.Result.Name)
			_, _ = h.WriteString(p.Result.Content)
		}
	}
}

// marshalArgs produces a stable serialization of tool arguments.
// encoding/json sorts map keys, so equal argument maps always hash equal.
func marshalArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return ""
	}
	return string(data)
}

// Equal reports whether two messages carry the same logical content.
// Two messages from different sessions with different identifiers are
// equal as long as role, type, and content match.
func Equal(a, b *Message) bool {
	if a.Role != b.Role || a.Type != b.Type {
		return false
	}
	return ContentHash(a) == ContentHash(b)
}

// Fingerprint returns a cheap fingerprint of a whole canonical sequence,
// usable to detect "nothing changed" without running a full diff.
func Fingerprint(msgs []Message) uint64 {
	h := xxhash.New()
	var buf [8]byte
	for i := range msgs {
		binary.LittleEndian.PutUint64(buf[:], ContentHash(&msgs[i]))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
