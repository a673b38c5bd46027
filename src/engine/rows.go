package engine

import (
	"fmt"
	"time"

	"tabledit/src/helpers"
	"tabledit/src/models"

	"go.uber.org/zap"
)

// RowFactory builds rows with a stable identity and timestamps.
type RowFactory interface {
	NewRow(fields map[string]interface{}) *models.Row
}

type rowFactory struct{}

func NewRowFactory() RowFactory {
	return &rowFactory{}
}

func (f *rowFactory) NewRow(fields map[string]interface{}) *models.Row {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	now := time.Now()
	return &models.Row{
		RowID:     helpers.GenerateUUID(),
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RowSet is the flat row storage of one table part. The slice order is the
// display order for non-hierarchical tables and the source order the
// hierarchy is derived from. The set is the single source of truth; every
// tree is a disposable view over it.
type RowSet struct {
	rows    []*models.Row
	byID    map[string]*models.Row
	factory RowFactory
	logger  *zap.SugaredLogger
}

// NewRowSet wraps the host-supplied rows. Rows without an id get one
// assigned; order numbers are rewritten to match slice positions.
func NewRowSet(rows []*models.Row, logger *zap.SugaredLogger) *RowSet {
	rs := &RowSet{
		rows:    make([]*models.Row, 0, len(rows)),
		byID:    make(map[string]*models.Row, len(rows)),
		factory: NewRowFactory(),
		logger:  logger,
	}
	for _, row := range rows {
		if row == nil {
			continue
		}
		if row.RowID == "" {
			row.RowID = helpers.GenerateUUID()
		}
		rs.rows = append(rs.rows, row)
		rs.byID[row.RowID] = row
	}
	rs.Renumber()
	return rs
}

// Rows returns the backing slice in display order. Callers treat it as
// read-only; mutations go through the RowSet methods.
func (rs *RowSet) Rows() []*models.Row {
	return rs.rows
}

func (rs *RowSet) Len() int {
	return len(rs.rows)
}

// ByID returns the row with the given identity.
func (rs *RowSet) ByID(rowID string) (*models.Row, bool) {
	row, ok := rs.byID[rowID]
	return row, ok
}

// At returns the row at the given display index.
func (rs *RowSet) At(index int) (*models.Row, bool) {
	if index < 0 || index >= len(rs.rows) {
		return nil, false
	}
	return rs.rows[index], true
}

// IndexOf returns the display index of the row with the given identity.
func (rs *RowSet) IndexOf(rowID string) (int, bool) {
	for i, row := range rs.rows {
		if row.RowID == rowID {
			return i, true
		}
	}
	return 0, false
}

// FindByField returns the first row whose field equals the given value.
// Group rows participate: imports can match against group headers too.
func (rs *RowSet) FindByField(columnID string, value interface{}) (*models.Row, bool) {
	for _, row := range rs.rows {
		if row.Field(columnID) == value {
			return row, true
		}
	}
	return nil, false
}

// Append creates a row from the given fields and places it last.
func (rs *RowSet) Append(fields map[string]interface{}) *models.Row {
	row := rs.factory.NewRow(fields)
	rs.rows = append(rs.rows, row)
	rs.byID[row.RowID] = row
	rs.Renumber()
	return row
}

// InsertAt creates a row from the given fields at the display index.
// Indexes outside the list clamp to append.
func (rs *RowSet) InsertAt(index int, fields map[string]interface{}) *models.Row {
	if index < 0 || index >= len(rs.rows) {
		return rs.Append(fields)
	}
	row := rs.factory.NewRow(fields)
	rs.rows = append(rs.rows, nil)
	copy(rs.rows[index+1:], rs.rows[index:])
	rs.rows[index] = row
	rs.byID[row.RowID] = row
	rs.Renumber()
	return row
}

// AdoptRow places an already-built row (an import or paste product) last.
func (rs *RowSet) AdoptRow(row *models.Row) error {
	return rs.AdoptRowAt(len(rs.rows), row)
}

// AdoptRowAt places an already-built row at the display index, clamping to
// append when the index is outside the list.
func (rs *RowSet) AdoptRowAt(index int, row *models.Row) error {
	if row == nil {
		return fmt.Errorf("cannot adopt a nil row")
	}
	if row.RowID == "" {
		row.RowID = helpers.GenerateUUID()
	}
	if _, exists := rs.byID[row.RowID]; exists {
		return fmt.Errorf("row '%s' already belongs to the table", row.RowID)
	}
	if index < 0 || index > len(rs.rows) {
		index = len(rs.rows)
	}
	rs.rows = append(rs.rows, nil)
	copy(rs.rows[index+1:], rs.rows[index:])
	rs.rows[index] = row
	rs.byID[row.RowID] = row
	rs.Renumber()
	return nil
}

// RemoveAt deletes the rows at the given display indices and returns the
// removed rows. Children of a removed row are reparented to the removed
// row's parent so the hierarchy never dangles.
func (rs *RowSet) RemoveAt(indices []int) []*models.Row {
	if len(indices) == 0 {
		return nil
	}

	doomed := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(rs.rows) {
			doomed[i] = true
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	var removed []*models.Row
	var kept []*models.Row
	for i, row := range rs.rows {
		if doomed[i] {
			removed = append(removed, row)
			delete(rs.byID, row.RowID)
		} else {
			kept = append(kept, row)
		}
	}

	// Lift orphaned children to the nearest surviving ancestor.
	removedByID := make(map[string]*models.Row, len(removed))
	for _, row := range removed {
		removedByID[row.RowID] = row
	}
	for _, child := range kept {
		visited := make(map[string]bool)
		for child.ParentID != "" && !visited[child.ParentID] {
			gone, ok := removedByID[child.ParentID]
			if !ok {
				break
			}
			visited[gone.RowID] = true
			child.ParentID = gone.ParentID
		}
	}

	rs.rows = kept
	rs.Renumber()
	return removed
}

// Renumber rewrites the explicit line numbers to match display order.
func (rs *RowSet) Renumber() {
	for i, row := range rs.rows {
		row.OrderNum = i + 1
	}
}
