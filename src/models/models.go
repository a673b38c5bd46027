package models

import (
	"sort"
	"time"
)

// Row is one line of a document table part. Fields is open-ended: a row
// carries whatever named values its table's columns define, plus any
// extra values custom calculation rules want to stash.
type Row struct {
	// RowID is the stable identity of the row, unique within one table instance.
	RowID string

	// ParentID is a weak reference to another row's RowID, empty for roots.
	// Ownership always stays with the flat row list.
	ParentID string

	// IsGroup marks header/group rows that are excluded from totals.
	IsGroup bool

	// OrderNum is the explicit line number, rewritten after every reorder.
	OrderNum int

	// MarkedForDeletion is set by import reconciliation, never by edits.
	MarkedForDeletion bool

	Fields map[string]interface{}

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Field returns the named field value, nil when absent.
func (r *Row) Field(columnID string) interface{} {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[columnID]
}

// SetField writes the named field value and bumps UpdatedAt.
func (r *Row) SetField(columnID string, value interface{}) {
	if r.Fields == nil {
		r.Fields = make(map[string]interface{})
	}
	r.Fields[columnID] = value
	r.UpdatedAt = time.Now()
}

// HasField reports whether the row carries the named field at all.
func (r *Row) HasField(columnID string) bool {
	if r.Fields == nil {
		return false
	}
	_, ok := r.Fields[columnID]
	return ok
}

// Clone returns a deep copy of the row with the same identity.
func (r *Row) Clone() *Row {
	c := *r
	c.Fields = make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return &c
}

type ColumnType string

const (
	ColumnText      ColumnType = "text"
	ColumnNumber    ColumnType = "number"
	ColumnCurrency  ColumnType = "currency"
	ColumnReference ColumnType = "reference"
)

// IsNumeric reports whether values of this column type are coerced to numbers.
func (t ColumnType) IsNumeric() bool {
	return t == ColumnNumber || t == ColumnCurrency
}

// TableColumn describes one column of a table part. Columns are immutable
// once a table instance is constructed.
type TableColumn struct {
	ColumnID      string
	Name          string
	Type          ColumnType
	Editable      bool
	Sortable      bool
	Width         int
	ShowTotal     bool
	ReferenceType string
}

type CalculationType string

const (
	CalculationMultiply CalculationType = "MULTIPLY"
	CalculationSum      CalculationType = "SUM"
	CalculationCustom   CalculationType = "CUSTOM"
)

// CustomCalcFunc computes a value for one row. It receives the full row and
// returns the value to write to the rule's target column.
type CustomCalcFunc func(row *Row) (float64, error)

// CalculationRule recomputes TargetColumn from SourceColumns whenever one of
// the sources changes. Target must not appear among the sources unless the
// rule is CUSTOM.
type CalculationRule struct {
	RuleID          string
	SourceColumns   []string
	TargetColumn    string
	CalculationType CalculationType
	CustomFunc      CustomCalcFunc
	TriggerOnChange bool
	Precision       int
	Enabled         bool
}

// HasSource reports whether columnID is among the rule's source columns.
func (r *CalculationRule) HasSource(columnID string) bool {
	for _, s := range r.SourceColumns {
		if s == columnID {
			return true
		}
	}
	return false
}

type TotalCalculationType string

const (
	TotalSum     TotalCalculationType = "SUM"
	TotalAverage TotalCalculationType = "AVERAGE"
	TotalMin     TotalCalculationType = "MIN"
	TotalMax     TotalCalculationType = "MAX"
	TotalCustom  TotalCalculationType = "CUSTOM"
)

// CustomTotalFunc reduces the collected column values to a single aggregate.
type CustomTotalFunc func(values []float64) float64

type TotalCalculationRule struct {
	RuleID          string
	Column          string
	CalculationType TotalCalculationType
	CustomFunc      CustomTotalFunc
	Precision       int
	Enabled         bool
}

// CalculationResult reports the outcome of one CalculateField pass.
type CalculationResult struct {
	Success         bool
	ExecutionTimeMs float64
	Message         string

	// ChangedColumns lists the target columns written during the pass so
	// the host knows which cells to re-render.
	ChangedColumns []string
}

// TotalResult is one computed column aggregate.
type TotalResult struct {
	Value     float64
	Formatted string
	RuleID    string
}

// CalculationMetrics is a snapshot of the engine's rolling counters.
type CalculationMetrics struct {
	IndividualCalculationTimeMs float64
	TotalCalculationTimeMs      float64
	CalculationsPerSecond       float64
	ErrorCount                  int64
	ThresholdBreaches           int64
	MemoryUsageMb               float64
}

type CommandAvailability string

const (
	AvailabilityAlways                   CommandAvailability = "ALWAYS"
	AvailabilityRequiresSelection        CommandAvailability = "REQUIRES_SELECTION"
	AvailabilityRequiresRows             CommandAvailability = "REQUIRES_ROWS"
	AvailabilityRequiresFirstNotSelected CommandAvailability = "REQUIRES_FIRST_NOT_SELECTED"
	AvailabilityRequiresLastNotSelected  CommandAvailability = "REQUIRES_LAST_NOT_SELECTED"
)

// CommandDefinition is the declarative metadata attached to a command handler.
type CommandDefinition struct {
	CommandID    string
	Name         string
	Icon         string
	Tooltip      string
	Shortcut     string
	Availability CommandAvailability
	IsStandard   bool
}

// CommandContext is the snapshot of table state a command sees. Hosts build
// a fresh context before every availability check and execution.
type CommandContext struct {
	SelectedRows       map[int]bool
	TableData          []*Row
	IsFirstRowSelected bool
	IsLastRowSelected  bool
}

// SelectionCount returns the number of selected row indices.
func (c *CommandContext) SelectionCount() int {
	return len(c.SelectedRows)
}

// SelectedIndices returns the selected row indices in ascending order.
func (c *CommandContext) SelectedIndices() []int {
	out := make([]int, 0, len(c.SelectedRows))
	for i := range c.SelectedRows {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// CommandResult is the normalized outcome of a command execution. A command
// that cannot run resolves to Success=false, never to a panic.
type CommandResult struct {
	Success         bool
	Message         string
	AffectedRows    []int
	RefreshRequired bool
}

type ShortcutAction string

const (
	ActionAddRow          ShortcutAction = "ADD_ROW"
	ActionDeleteRow       ShortcutAction = "DELETE_ROW"
	ActionCopyRows        ShortcutAction = "COPY_ROWS"
	ActionPasteRows       ShortcutAction = "PASTE_ROWS"
	ActionMoveRowUp       ShortcutAction = "MOVE_ROW_UP"
	ActionMoveRowDown     ShortcutAction = "MOVE_ROW_DOWN"
	ActionOpenRefSelector ShortcutAction = "OPEN_REFERENCE_SELECTOR"
	ActionExpandNode      ShortcutAction = "EXPAND_NODE"
	ActionCollapseNode    ShortcutAction = "COLLAPSE_NODE"
	ActionGoToFirst       ShortcutAction = "GO_TO_FIRST"
	ActionGoToLast        ShortcutAction = "GO_TO_LAST"
	ActionConfirmEdit     ShortcutAction = "CONFIRM_EDIT"
	ActionCancelEdit      ShortcutAction = "CANCEL_EDIT"
)

// IsHierarchical reports whether the action only makes sense on a
// hierarchical table part.
func (a ShortcutAction) IsHierarchical() bool {
	return a == ActionExpandNode || a == ActionCollapseNode
}

type MergePolicy string

const (
	MergeSkipExisting    MergePolicy = "skip-existing"
	MergeMarkForDeletion MergePolicy = "mark-for-deletion"
	MergeOverwrite       MergePolicy = "overwrite"
)

// ImportRowError records one failed input row of an import. Imports collect
// errors and keep going, they never abort on the first bad row.
type ImportRowError struct {
	RowIndex int
	Message  string
}

// ImportResult summarizes an import reconciliation.
type ImportResult struct {
	Added             int
	Skipped           int
	Updated           int
	MarkedForDeletion int
	Errors            []ImportRowError
}
