package ancestry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinearHistoryAncestry(t *testing.T) {
	g := NewGraph()
	g.Add(1, nil)
	g.Add(2, []interface{}{1})
	g.Add(3, []interface{}{2})

	assert.True(t, g.IsAncestor(1, 3))
	assert.True(t, g.IsAncestor(1, 1))
	assert.False(t, g.IsAncestor(3, 1))
}

func TestMergeAncestry(t *testing.T) {
	g := NewGraph()
	g.Add(1, nil)
	g.Add(2, []interface{}{1})
	g.Add(3, []interface{}{1})
	g.Add(4, []interface{}{2, 3})

	assert.True(t, g.IsAncestor(1, 4))
	assert.True(t, g.IsAncestor(2, 4))
	assert.True(t, g.IsAncestor(3, 4))
	assert.False(t, g.IsAncestor(4, 2))
}

func TestExternalCommitsAreRoots(t *testing.T) {
	g := NewGraph()
	g.RecordExternal("deadbeef")
	g.Add(1, []interface{}{"deadbeef"})

	assert.True(t, g.IsAncestor("deadbeef", 1))
	assert.False(t, g.IsAncestor(1, "deadbeef"))
}

func TestUnrelatedBranchesAreNotAncestors(t *testing.T) {
	g := NewGraph()
	g.Add(1, nil)
	g.Add(2, nil)

	assert.False(t, g.IsAncestor(1, 2))
	assert.False(t, g.IsAncestor(2, 1))
}
