// Package mark implements the bidirectional mark table used to remap
// input fast-export marks onto the engine's own monotonic mark space.
package mark

// Table holds the forward input->engine map, the reverse engine->inputs
// map, and the counter used to allocate fresh engine marks. It is owned
// by a single engine run; there is no package-level state.
type Table struct {
	forward map[int]int
	reverse map[int][]int
	next    int
}

// NewTable returns an empty mark table.
func NewTable() *Table {
	return &Table{
		forward: make(map[int]int),
		reverse: make(map[int][]int),
	}
}

// New allocates and returns the next engine mark.
func (t *Table) New() int {
	t.next++
	return t.next
}

// Translate looks up mark in the forward map. A mark with no record
// translates to itself.
func (t *Table) Translate(m int) int {
	if v, ok := t.forward[m]; ok {
		return v
	}
	return m
}

// RecordRename records that old now resolves to new. When transitive is
// set, every mark that previously resolved to old is rewritten to
// resolve to new as well, preserving the invariant that
// Translate(Translate(x)) == Translate(x).
func (t *Table) RecordRename(old, new int, transitive bool) {
	if transitive {
		if olds, ok := t.reverse[old]; ok {
			for _, o := range olds {
				t.forward[o] = new
				t.reverse[new] = append(t.reverse[new], o)
			}
			delete(t.reverse, old)
		}
	}
	t.forward[old] = new
	t.reverse[new] = append(t.reverse[new], old)
}
