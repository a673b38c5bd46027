package engine

import (
	"testing"

	"tabledit/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sectionRows() []*models.Row {
	return []*models.Row{
		{RowID: "foundation", IsGroup: true, Fields: map[string]interface{}{"name": "Foundation"}},
		{RowID: "excavation", ParentID: "foundation", Fields: map[string]interface{}{"name": "Excavation"}},
		{RowID: "concrete", ParentID: "foundation", Fields: map[string]interface{}{"name": "Concrete"}},
		{RowID: "framing", IsGroup: true, Fields: map[string]interface{}{"name": "Framing"}},
		{RowID: "lumber", ParentID: "framing", Fields: map[string]interface{}{"name": "Lumber"}},
	}
}

func rowIDs(rows []*models.Row) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.RowID
	}
	return out
}

func TestBuildHierarchy(t *testing.T) {
	tree := BuildHierarchy(sectionRows())

	require.Len(t, tree.Roots, 2)
	assert.Equal(t, "foundation", tree.Roots[0].Row.RowID)
	assert.Len(t, tree.Roots[0].Children, 2)

	node, ok := tree.Node("excavation")
	require.True(t, ok)
	assert.Equal(t, 1, node.Depth)
}

func TestBuildHierarchyUnknownParentBecomesRoot(t *testing.T) {
	rows := []*models.Row{
		{RowID: "orphan", ParentID: "nowhere"},
	}
	tree := BuildHierarchy(rows)

	require.Len(t, tree.Roots, 1)
	assert.Equal(t, "orphan", tree.Roots[0].Row.RowID)
	assert.Equal(t, 0, tree.Roots[0].Depth)
}

func TestBuildHierarchyLoopedParentChainBecomesRoots(t *testing.T) {
	rows := []*models.Row{
		{RowID: "a", ParentID: "b"},
		{RowID: "b", ParentID: "a"},
	}
	tree := BuildHierarchy(rows)
	assert.Len(t, tree.Roots, 2)
}

func TestFlattenCollapsedShowsOnlyRoots(t *testing.T) {
	tree := BuildHierarchy(sectionRows())

	flat := tree.Flatten(map[string]bool{})
	assert.Equal(t, []string{"foundation", "framing"}, rowIDs(flat))
}

func TestFlattenExpandedInterleavesChildren(t *testing.T) {
	tree := BuildHierarchy(sectionRows())

	flat := tree.Flatten(map[string]bool{"foundation": true})
	assert.Equal(t, []string{"foundation", "excavation", "concrete", "framing"}, rowIDs(flat))

	flat = tree.Flatten(map[string]bool{"foundation": true, "framing": true})
	assert.Equal(t, []string{"foundation", "excavation", "concrete", "framing", "lumber"}, rowIDs(flat))
}

func TestReparentMovesSubtree(t *testing.T) {
	rs := NewRowSet(sectionRows(), zap.NewNop().Sugar())

	require.NoError(t, rs.Reparent("lumber", "foundation"))

	row, ok := rs.ByID("lumber")
	require.True(t, ok)
	assert.Equal(t, "foundation", row.ParentID)
}

func TestReparentToEmptyMakesRoot(t *testing.T) {
	rs := NewRowSet(sectionRows(), zap.NewNop().Sugar())

	require.NoError(t, rs.Reparent("excavation", ""))

	row, _ := rs.ByID("excavation")
	assert.Equal(t, "", row.ParentID)
}

func TestReparentRejectsCycle(t *testing.T) {
	rs := NewRowSet(sectionRows(), zap.NewNop().Sugar())

	// foundation -> excavation would make foundation its own descendant.
	err := rs.Reparent("foundation", "excavation")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCyclicReparent)

	// Nothing moved.
	row, _ := rs.ByID("foundation")
	assert.Equal(t, "", row.ParentID)
	row, _ = rs.ByID("excavation")
	assert.Equal(t, "foundation", row.ParentID)
}

func TestReparentRejectsSelf(t *testing.T) {
	rs := NewRowSet(sectionRows(), zap.NewNop().Sugar())

	err := rs.Reparent("lumber", "lumber")
	assert.ErrorIs(t, err, ErrCyclicReparent)
}

func TestReparentUnknownRows(t *testing.T) {
	rs := NewRowSet(sectionRows(), zap.NewNop().Sugar())

	assert.Error(t, rs.Reparent("ghost", "foundation"))
	assert.Error(t, rs.Reparent("lumber", "ghost"))
}

func TestMoveUpAtTopIsNoOp(t *testing.T) {
	rs := NewRowSet(sectionRows(), zap.NewNop().Sugar())
	before := rowIDs(rs.Rows())

	remapped, moved := rs.MoveUp([]int{0, 2})
	assert.False(t, moved)
	assert.Equal(t, []int{0, 2}, remapped)
	assert.Equal(t, before, rowIDs(rs.Rows()))
}

func TestMoveDownAtBottomIsNoOp(t *testing.T) {
	rs := NewRowSet(sectionRows(), zap.NewNop().Sugar())
	before := rowIDs(rs.Rows())

	_, moved := rs.MoveDown([]int{4})
	assert.False(t, moved)
	assert.Equal(t, before, rowIDs(rs.Rows()))
}

func TestMoveUpThenDownRoundTrips(t *testing.T) {
	rs := NewRowSet(sectionRows(), zap.NewNop().Sugar())
	before := rowIDs(rs.Rows())

	remapped, moved := rs.MoveUp([]int{2})
	require.True(t, moved)
	assert.Equal(t, []int{1}, remapped)
	assert.Equal(t, "concrete", rs.Rows()[1].RowID)

	_, moved = rs.MoveDown(remapped)
	require.True(t, moved)
	assert.Equal(t, before, rowIDs(rs.Rows()))
}

func TestMoveRenumbersOrderNums(t *testing.T) {
	rs := NewRowSet(sectionRows(), zap.NewNop().Sugar())

	_, moved := rs.MoveDown([]int{1})
	require.True(t, moved)

	for i, row := range rs.Rows() {
		assert.Equal(t, i+1, row.OrderNum)
	}
}

func TestMoveUpMultiSelectionSwapsWithinSiblings(t *testing.T) {
	rs := NewRowSet(sectionRows(), zap.NewNop().Sugar())

	// concrete swaps with its sibling excavation; framing, a root, swaps
	// with the root foundation and jumps its whole subtree.
	remapped, moved := rs.MoveUp([]int{2, 3})
	require.True(t, moved)
	assert.Equal(t, []int{1, 0}, remapped)
	assert.Equal(t, []string{"framing", "concrete", "excavation", "foundation", "lumber"}, rowIDs(rs.Rows()))
}

func TestMoveUpAcrossCollapsedSubtree(t *testing.T) {
	rows := []*models.Row{
		{RowID: "g1", IsGroup: true},
		{RowID: "c1", ParentID: "g1"},
		{RowID: "g2", IsGroup: true},
	}
	rs := NewRowSet(rows, zap.NewNop().Sugar())

	// g2's upper neighbor among its siblings is g1, not g1's hidden child.
	remapped, moved := rs.MoveUp([]int{2})
	require.True(t, moved)
	assert.Equal(t, []int{0}, remapped)

	collapsed := BuildHierarchy(rs.Rows()).Flatten(map[string]bool{})
	assert.Equal(t, []string{"g2", "g1"}, rowIDs(collapsed))

	c1, ok := rs.ByID("c1")
	require.True(t, ok)
	assert.Equal(t, "g1", c1.ParentID)
}

func TestMoveUpIntoOwnGroupIsNoOp(t *testing.T) {
	rows := []*models.Row{
		{RowID: "g1", IsGroup: true},
		{RowID: "c1", ParentID: "g1"},
	}
	rs := NewRowSet(rows, zap.NewNop().Sugar())
	before := rowIDs(rs.Rows())

	// c1 is its group's first child; it cannot climb out over its parent.
	_, moved := rs.MoveUp([]int{1})
	assert.False(t, moved)
	assert.Equal(t, before, rowIDs(rs.Rows()))
}

func TestMoveDownAcrossExpandedSubtree(t *testing.T) {
	rows := []*models.Row{
		{RowID: "r1"},
		{RowID: "g1", IsGroup: true},
		{RowID: "c1", ParentID: "g1"},
	}
	rs := NewRowSet(rows, zap.NewNop().Sugar())

	// r1 lands below the whole g1 subtree, not between g1 and its child.
	_, moved := rs.MoveDown([]int{0})
	require.True(t, moved)

	expanded := BuildHierarchy(rs.Rows()).Flatten(map[string]bool{"g1": true})
	assert.Equal(t, []string{"g1", "c1", "r1"}, rowIDs(expanded))
}
