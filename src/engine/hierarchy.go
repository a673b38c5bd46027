package engine

import (
	"errors"
	"fmt"
	"sort"

	"tabledit/src/models"
)

// ErrCyclicReparent is returned when a reparent would make a row its own
// transitive ancestor.
var ErrCyclicReparent = errors.New("reparent would create a cycle")

// RowNode is one node of the derived display tree.
type RowNode struct {
	Row      *models.Row
	Children []*RowNode
	Depth    int
}

// RowTree is a disposable view derived from the flat row list. It is
// recomputed from scratch on every data load and after every structural
// mutation; it is never the source of truth.
type RowTree struct {
	Roots []*RowNode
	byID  map[string]*RowNode
}

// BuildHierarchy derives the parent/child tree from the flat rows. A row
// whose parent id is unknown, or whose parent chain loops back onto itself,
// is treated as a root; the engine surfaces bad data instead of recursing
// into it.
func BuildHierarchy(rows []*models.Row) *RowTree {
	tree := &RowTree{byID: make(map[string]*RowNode, len(rows))}

	for _, row := range rows {
		tree.byID[row.RowID] = &RowNode{Row: row}
	}

	for _, row := range rows {
		node := tree.byID[row.RowID]
		if row.ParentID == "" {
			tree.Roots = append(tree.Roots, node)
			continue
		}
		parent, ok := tree.byID[row.ParentID]
		if !ok || onCycle(row, tree.byID) {
			tree.Roots = append(tree.Roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	for _, root := range tree.Roots {
		assignDepth(root, 0, make(map[string]bool))
	}
	return tree
}

// onCycle walks the parent chain with an explicit visited set and reports
// whether the chain revisits the row.
func onCycle(row *models.Row, byID map[string]*RowNode) bool {
	visited := map[string]bool{row.RowID: true}
	current := row.ParentID
	for current != "" {
		if visited[current] {
			return true
		}
		visited[current] = true
		node, ok := byID[current]
		if !ok {
			return false
		}
		current = node.Row.ParentID
	}
	return false
}

func assignDepth(node *RowNode, depth int, visited map[string]bool) {
	if visited[node.Row.RowID] {
		return
	}
	visited[node.Row.RowID] = true
	node.Depth = depth
	for _, child := range node.Children {
		assignDepth(child, depth+1, visited)
	}
}

// Node returns the tree node for the given row id.
func (t *RowTree) Node(rowID string) (*RowNode, bool) {
	node, ok := t.byID[rowID]
	return node, ok
}

// Flatten produces the display order: depth-first, every parent immediately
// followed by its descendants, but only descending into nodes whose id is in
// the expanded set. With an empty set the result is exactly the root rows in
// their original order.
func (t *RowTree) Flatten(expanded map[string]bool) []*models.Row {
	var out []*models.Row
	visited := make(map[string]bool)
	for _, root := range t.Roots {
		flattenNode(root, expanded, visited, &out)
	}
	return out
}

func flattenNode(node *RowNode, expanded, visited map[string]bool, out *[]*models.Row) {
	if visited[node.Row.RowID] {
		return
	}
	visited[node.Row.RowID] = true
	*out = append(*out, node.Row)
	if !expanded[node.Row.RowID] {
		return
	}
	for _, child := range node.Children {
		flattenNode(child, expanded, visited, out)
	}
}

// Reparent points the row at a new parent ("" makes it a root). The new
// parent's ancestor chain is walked with a visited set first: if the row
// itself appears in that chain the operation is rejected and the row list is
// left untouched. This is the only mutation that could introduce a cycle.
func (rs *RowSet) Reparent(rowID, newParentID string) error {
	row, ok := rs.byID[rowID]
	if !ok {
		return fmt.Errorf("row '%s' not found", rowID)
	}

	if newParentID == "" {
		row.ParentID = ""
		return nil
	}

	if newParentID == rowID {
		return fmt.Errorf("row '%s' cannot be its own parent: %w", rowID, ErrCyclicReparent)
	}

	parent, ok := rs.byID[newParentID]
	if !ok {
		return fmt.Errorf("parent row '%s' not found", newParentID)
	}

	visited := make(map[string]bool)
	current := parent
	for {
		if current.RowID == rowID {
			return fmt.Errorf("row '%s' is an ancestor of '%s': %w", rowID, newParentID, ErrCyclicReparent)
		}
		if visited[current.RowID] {
			// Existing bad data loops; refuse to attach anything to it.
			return fmt.Errorf("parent chain of '%s' already loops: %w", newParentID, ErrCyclicReparent)
		}
		visited[current.RowID] = true
		if current.ParentID == "" {
			break
		}
		next, ok := rs.byID[current.ParentID]
		if !ok {
			break
		}
		current = next
	}

	row.ParentID = newParentID
	return nil
}

// prevSibling returns the index of the nearest earlier row sharing the
// row's parent, or -1 when the row is its parent's first child.
func (rs *RowSet) prevSibling(i int) int {
	parent := rs.rows[i].ParentID
	for j := i - 1; j >= 0; j-- {
		if rs.rows[j].ParentID == parent {
			return j
		}
	}
	return -1
}

// nextSibling is the forward mirror of prevSibling.
func (rs *RowSet) nextSibling(i int) int {
	parent := rs.rows[i].ParentID
	for j := i + 1; j < len(rs.rows); j++ {
		if rs.rows[j].ParentID == parent {
			return j
		}
	}
	return -1
}

// MoveUp swaps each selected row with its upper neighbor in the current
// display order. The neighbor is the previous row under the same parent, so
// on a hierarchical table a row travels across the neighbor's whole subtree
// rather than into it; descendants follow their parent wherever it lands.
// It returns the remapped selection so the visual selection tracks the
// moved rows, and whether anything moved. A selection touching a first
// sibling is a no-op with no mutation.
func (rs *RowSet) MoveUp(selection []int) ([]int, bool) {
	if len(selection) == 0 {
		return selection, false
	}
	sorted := append([]int(nil), selection...)
	sort.Ints(sorted)
	if sorted[0] < 0 || sorted[len(sorted)-1] >= len(rs.rows) {
		return selection, false
	}
	for _, i := range sorted {
		if rs.prevSibling(i) < 0 {
			return selection, false
		}
	}

	remapped := make([]int, 0, len(sorted))
	for _, i := range sorted {
		j := rs.prevSibling(i)
		rs.rows[j], rs.rows[i] = rs.rows[i], rs.rows[j]
		remapped = append(remapped, j)
	}
	rs.Renumber()
	return remapped, true
}

// MoveDown is the mirror of MoveUp; a selection touching a last sibling is
// a no-op with no mutation.
func (rs *RowSet) MoveDown(selection []int) ([]int, bool) {
	if len(selection) == 0 {
		return selection, false
	}
	sorted := append([]int(nil), selection...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	if sorted[0] >= len(rs.rows) || sorted[len(sorted)-1] < 0 {
		return selection, false
	}
	for _, i := range sorted {
		if rs.nextSibling(i) < 0 {
			return selection, false
		}
	}

	remapped := make([]int, 0, len(sorted))
	for _, i := range sorted {
		j := rs.nextSibling(i)
		rs.rows[i], rs.rows[j] = rs.rows[j], rs.rows[i]
		remapped = append(remapped, j)
	}
	rs.Renumber()
	return remapped, true
}
