package diff

import "github.com/sunhome243/nexus-cli-sub000/internal/message"

// ComputeFull runs a Myers O((M+N)D) edit script over the two
// sequences and may emit REMOVE operations. It exists for scenarios
// where a conversation is allowed to shrink; the live sync path never
// calls it and Apply rejects its removals. Indexes in the returned
// operations refer to positions in old for removals and positions in
// the edited sequence for additions.
func ComputeFull(old, new []message.Message) Result {
	n, m := len(old), len(new)
	if n == 0 && m == 0 {
		return Result{}
	}

	eq := func(i, j int) bool { return message.Equal(&old[i], &new[j]) }

	max := n + m
	// v maps diagonal k -> furthest x; offset by max for negative k
	v := make([]int, 2*max+2)
	trace := make([][]int, 0, max+1)

	var d int
	for d = 0; d <= max; d++ {
		saved := make([]int, len(v))
		copy(saved, v)
		trace = append(trace, saved)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[max+k-1] < v[max+k+1]) {
				x = v[max+k+1]
			} else {
				x = v[max+k-1] + 1
			}
			y := x - k
			for x < n && y < m && eq(x, y) {
				x++
				y++
			}
			v[max+k] = x
			if x >= n && y >= m {
				goto done
			}
		}
	}
done:

	// Backtrack the recorded traces into operations
	var ops []Operation
	x, y := n, m
	for depth := d; depth > 0 && (x > 0 || y > 0); depth-- {
		vPrev := trace[depth-1]
		k := x - y
		var prevK int
		if k == -depth || (k != depth && vPrev[max+k-1] < vPrev[max+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := vPrev[max+prevK]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
		}
		if x == prevX {
			// down move: insertion of new[prevY]
			y--
			ops = append(ops, Operation{Type: OpAdd, Index: y, Message: new[y]})
		} else {
			// right move: deletion of old[prevX]
			x--
			ops = append(ops, Operation{Type: OpRemove, Index: x, Message: old[x]})
		}
	}

	// Backtracking yields operations tail-first
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}

	summary := Summary{}
	for _, op := range ops {
		if op.Type == OpAdd {
			summary.Added++
		} else {
			summary.Removed++
		}
	}
	summary.Unchanged = n - summary.Removed

	return Result{
		Operations: ops,
		HasChanges: len(ops) > 0,
		Summary:    summary,
	}
}
