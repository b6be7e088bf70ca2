// Package diff compares two canonical message sequences and produces
// an ordered operation stream. The live path is append-only: it never
// emits a removal, because removing a message would delete history the
// other provider still considers authoritative.
package diff

import (
	"fmt"
	"sort"

	"github.com/sunhome243/nexus-cli-sub000/internal/message"
)

// OpType identifies a diff operation
type OpType string

const (
	OpAdd    OpType = "add"
	OpRemove OpType = "remove" // produced only by the full edit-script path
)

// Operation is one ordered step of a diff
type Operation struct {
	Type    OpType          `json:"type"`
	Index   int             `json:"index"`
	Message message.Message `json:"message"`
}

// Summary counts the outcome of a comparison
type Summary struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Result is the outcome of comparing two sequences
type Result struct {
	Operations []Operation `json:"operations"`
	HasChanges bool        `json:"hasChanges"`
	Summary    Summary     `json:"summary"`
}

// Compute compares old and new by content, not identity: two messages
// match iff role, type, and content are equal, regardless of which
// session produced them. Every message of new with no content match in
// old becomes an ADD positioned after old's tail. Matches are consumed,
// so repeated identical messages are handled count-wise.
func Compute(old, new []message.Message) Result {
	remaining := make(map[uint64]int, len(old))
	for i := range old {
		remaining[message.ContentHash(&old[i])]++
	}

	var ops []Operation
	unchanged := 0
	for i := range new {
		h := message.ContentHash(&new[i])
		if remaining[h] > 0 {
			remaining[h]--
			unchanged++
			continue
		}
		ops = append(ops, Operation{
			Type:    OpAdd,
			Index:   len(old) + len(ops),
			Message: new[i],
		})
	}

	return Result{
		Operations: ops,
		HasChanges: len(ops) > 0,
		Summary:    Summary{Added: len(ops), Unchanged: unchanged},
	}
}

// Apply appends ADD operations to base in index order. Operations whose
// payload content-equals a message already present are skipped, which
// makes Apply idempotent: applying the same operation set twice yields
// the same result as applying it once. Any non-ADD operation is
// rejected.
func Apply(base []message.Message, ops []Operation) ([]message.Message, error) {
	merged := make([]message.Message, len(base))
	copy(merged, base)

	present := make(map[uint64]int, len(merged))
	for i := range merged {
		present[message.ContentHash(&merged[i])]++
	}

	ordered := make([]Operation, len(ops))
	copy(ordered, ops)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	for _, op := range ordered {
		if op.Type != OpAdd {
			return nil, fmt.Errorf("refusing to apply %s operation at index %d: only additions are applied", op.Type, op.Index)
		}
		h := message.ContentHash(&op.Message)
		if present[h] > 0 {
			present[h]--
			continue
		}
		merged = append(merged, op.Message)
	}
	return merged, nil
}
