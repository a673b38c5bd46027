package directors

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tabledit/src/config"
	"tabledit/src/engine"
	"tabledit/src/exchange"
	"tabledit/src/helpers"
	"tabledit/src/keyboard"
	"tabledit/src/models"
	"tabledit/src/settings"

	"go.uber.org/zap"
)

// TablePartService owns everything one open document section needs: the row
// arena, the calculation engine, the command service and the keyboard
// dispatcher, all parameterized by one configuration holder. The host wires
// input events in and re-renders from the result objects coming back.
type TablePartService struct {
	tableID   string
	columns   []models.TableColumn
	colByID   map[string]models.TableColumn
	keyColumn string

	rows     *engine.RowSet
	calc     *engine.CalculationEngine
	commands *CommandService
	keys     *keyboard.Dispatcher
	holder   *config.Holder

	// Derived display state, rebuilt after every structural mutation.
	tree     *engine.RowTree
	expanded map[string]bool
	display  []*models.Row

	clipboard []*models.Row
	totals    map[string]models.TotalResult

	importLoad   RowLoader
	importPolicy models.MergePolicy

	logger *zap.SugaredLogger
}

func NewTablePartService(tableID string, columns []models.TableColumn, rows []*models.Row,
	rules []*models.CalculationRule, totalRules []*models.TotalCalculationRule,
	holder *config.Holder, logger *zap.SugaredLogger) (*TablePartService, error) {

	if len(columns) == 0 {
		return nil, fmt.Errorf("table '%s' has no columns", tableID)
	}

	colByID := make(map[string]models.TableColumn, len(columns))
	for _, col := range columns {
		colByID[col.ColumnID] = col
	}

	calc, err := engine.NewCalculationEngine(rules, totalRules, columns, holder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build calculation engine for table '%s': %w", tableID, err)
	}

	s := &TablePartService{
		tableID:   tableID,
		columns:   columns,
		colByID:   colByID,
		keyColumn: columns[0].ColumnID,
		rows:      engine.NewRowSet(rows, logger),
		calc:      calc,
		commands:  NewCommandService(holder, logger),
		keys:      keyboard.NewDispatcher(holder, logger),
		holder:    holder,
		expanded:  make(map[string]bool),
		logger:    logger,
	}

	s.commands.RegisterHostCommands(s)
	s.bindShortcuts()
	s.refresh()
	return s, nil
}

// SetImportKeyColumn changes the column import reconciliation matches on.
// The default is the first column.
func (s *TablePartService) SetImportKeyColumn(columnID string) error {
	if _, ok := s.colByID[columnID]; !ok {
		return fmt.Errorf("unknown column '%s'", columnID)
	}
	s.keyColumn = columnID
	return nil
}

// bindShortcuts routes the row-mutating shortcut actions through the command
// service. Navigation and editor actions stay unbound here; the UI host
// registers those and may replace any of these bindings.
func (s *TablePartService) bindShortcuts() {
	execute := func(commandID string) keyboard.ActionHandler {
		return func(kctx keyboard.ShortcutContext) models.CommandResult {
			return s.commands.Execute(commandID, s.BuildContext(kctx.Selection))
		}
	}
	s.keys.RegisterActionHandler(models.ActionAddRow, execute(CommandAddRow))
	s.keys.RegisterActionHandler(models.ActionDeleteRow, execute(CommandDeleteRow))
	s.keys.RegisterActionHandler(models.ActionCopyRows, execute(CommandCopyRows))
	s.keys.RegisterActionHandler(models.ActionPasteRows, execute(CommandPasteRows))
	s.keys.RegisterActionHandler(models.ActionMoveRowUp, execute(CommandMoveRowUp))
	s.keys.RegisterActionHandler(models.ActionMoveRowDown, execute(CommandMoveRowDown))

	s.keys.RegisterActionHandler(models.ActionExpandNode, func(kctx keyboard.ShortcutContext) models.CommandResult {
		return s.setExpandedFromSelection(kctx.Selection, true)
	})
	s.keys.RegisterActionHandler(models.ActionCollapseNode, func(kctx keyboard.ShortcutContext) models.CommandResult {
		return s.setExpandedFromSelection(kctx.Selection, false)
	})
}

// refresh rebuilds the derived tree and display order and recomputes totals.
func (s *TablePartService) refresh() {
	s.tree = engine.BuildHierarchy(s.rows.Rows())
	if s.IsHierarchical() {
		s.display = s.tree.Flatten(s.expanded)
	} else {
		s.display = s.rows.Rows()
	}
	s.totals = s.calc.CalculateTotals(s.rows.Rows())
}

// TableID returns the identity configuration is keyed by.
func (s *TablePartService) TableID() string { return s.tableID }

// Columns returns the immutable column schema.
func (s *TablePartService) Columns() []models.TableColumn { return s.columns }

// Display returns the rows in current display order, hierarchy and
// expansion applied.
func (s *TablePartService) Display() []*models.Row { return s.display }

// Totals returns the column aggregates from the last recomputation.
func (s *TablePartService) Totals() map[string]models.TotalResult { return s.totals }

// Metrics returns the calculation engine's rolling counters.
func (s *TablePartService) Metrics() models.CalculationMetrics { return s.calc.Metrics() }

// Commands exposes the command service for host rendering.
func (s *TablePartService) Commands() *CommandService { return s.commands }

// Keyboard exposes the shortcut dispatcher the host feeds key events to.
func (s *TablePartService) Keyboard() *keyboard.Dispatcher { return s.keys }

// Holder exposes the configuration holder.
func (s *TablePartService) Holder() *config.Holder { return s.holder }

// IsHierarchical reports whether any row points at a parent.
func (s *TablePartService) IsHierarchical() bool {
	for _, row := range s.rows.Rows() {
		if row.ParentID != "" || row.IsGroup {
			return true
		}
	}
	return false
}

// IsExpanded reports the expansion state of one row.
func (s *TablePartService) IsExpanded(rowID string) bool { return s.expanded[rowID] }

// Node resolves a row's position in the derived tree.
func (s *TablePartService) Node(rowID string) (*engine.RowNode, bool) {
	return s.tree.Node(rowID)
}

// BuildContext snapshots the current table state for a command. Selection
// indices refer to the display order.
func (s *TablePartService) BuildContext(selection []int) *models.CommandContext {
	selected := make(map[int]bool, len(selection))
	for _, i := range selection {
		if i >= 0 && i < len(s.display) {
			selected[i] = true
		}
	}
	return &models.CommandContext{
		SelectedRows:       selected,
		TableData:          s.display,
		IsFirstRowSelected: selected[0],
		IsLastRowSelected:  len(s.display) > 0 && selected[len(s.display)-1],
	}
}

// EditCell applies one cell edit and runs the dependent calculations. Edits
// are strictly sequential: the cascade of edit N always sees the row state
// edit N left behind. Non-numeric input to a numeric column is coerced to 0
// rather than failing the edit.
func (s *TablePartService) EditCell(displayIndex int, columnID string, value interface{}) models.CalculationResult {
	if displayIndex < 0 || displayIndex >= len(s.display) {
		return models.CalculationResult{Success: false, Message: fmt.Sprintf("row index %d out of range", displayIndex)}
	}
	col, ok := s.colByID[columnID]
	if !ok {
		return models.CalculationResult{Success: false, Message: fmt.Sprintf("unknown column '%s'", columnID)}
	}
	if !col.Editable {
		return models.CalculationResult{Success: false, Message: fmt.Sprintf("column '%s' is not editable", columnID)}
	}

	row := s.display[displayIndex]
	if col.Type.IsNumeric() {
		row.SetField(columnID, helpers.ToNumber(value))
	} else {
		row.SetField(columnID, value)
	}

	result := models.CalculationResult{Success: true}
	if s.holder.Current().AutoCalculationEnabled {
		result = s.calc.CalculateField(row, columnID)
	}
	s.totals = s.calc.CalculateTotals(s.rows.Rows())
	return result
}

// Recalculate reruns every on-change rule for every data row, then totals.
// Hosts call it after bulk mutations like imports.
func (s *TablePartService) Recalculate() {
	for _, row := range s.rows.Rows() {
		if row.IsGroup {
			continue
		}
		for _, rule := range s.calc.Rules() {
			if !rule.Enabled || !rule.TriggerOnChange || len(rule.SourceColumns) == 0 {
				continue
			}
			s.calc.CalculateField(row, rule.SourceColumns[0])
		}
	}
	s.refresh()
}

// AddRow appends an empty line and reports its display index.
func (s *TablePartService) AddRow(ctx *models.CommandContext) models.CommandResult {
	fields := make(map[string]interface{}, len(s.columns))
	for _, col := range s.columns {
		if col.Type.IsNumeric() {
			fields[col.ColumnID] = 0.0
		}
	}
	row := s.rows.Append(fields)
	s.refresh()

	index := s.displayIndexOf(row.RowID)
	return models.CommandResult{
		Success:         true,
		AffectedRows:    []int{index},
		RefreshRequired: true,
	}
}

// DeleteRows removes the selected lines.
func (s *TablePartService) DeleteRows(ctx *models.CommandContext) models.CommandResult {
	flat := s.flatIndices(ctx.SelectedIndices())
	removed := s.rows.RemoveAt(flat)
	if len(removed) == 0 {
		return models.CommandResult{Success: false, Message: "nothing to delete"}
	}
	s.refresh()
	return models.CommandResult{
		Success:         true,
		Message:         fmt.Sprintf("deleted %d rows", len(removed)),
		RefreshRequired: true,
	}
}

// CopyRows stashes deep copies of the selected lines on the service's
// clipboard, in display order.
func (s *TablePartService) CopyRows(ctx *models.CommandContext) models.CommandResult {
	indices := ctx.SelectedIndices()
	clipboard := make([]*models.Row, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(s.display) {
			clipboard = append(clipboard, s.display[i].Clone())
		}
	}
	if len(clipboard) == 0 {
		return models.CommandResult{Success: false, Message: "nothing to copy"}
	}
	s.clipboard = clipboard
	return models.CommandResult{
		Success: true,
		Message: fmt.Sprintf("copied %d rows", len(clipboard)),
	}
}

// PasteRows inserts the clipboard after the selection (or at the end) as
// fresh root-level rows with new identities.
func (s *TablePartService) PasteRows(ctx *models.CommandContext) models.CommandResult {
	if len(s.clipboard) == 0 {
		return models.CommandResult{Success: false, Message: "clipboard is empty"}
	}

	insertAt := s.rows.Len()
	if indices := ctx.SelectedIndices(); len(indices) > 0 {
		flat := s.flatIndices(indices)
		if len(flat) > 0 {
			insertAt = flat[len(flat)-1] + 1
		}
	}

	var affected []int
	for offset, copied := range s.clipboard {
		pasted := copied.Clone()
		pasted.RowID = ""
		pasted.ParentID = ""
		if err := s.rows.AdoptRowAt(insertAt+offset, pasted); err != nil {
			return models.CommandResult{Success: false, Message: err.Error()}
		}
	}
	s.refresh()
	for offset := range s.clipboard {
		affected = append(affected, insertAt+offset)
	}
	return models.CommandResult{
		Success:         true,
		Message:         fmt.Sprintf("pasted %d rows", len(s.clipboard)),
		AffectedRows:    affected,
		RefreshRequired: true,
	}
}

// MoveRowsUp swaps the selected lines with their upper neighbors and remaps
// the selection onto the moved lines.
func (s *TablePartService) MoveRowsUp(ctx *models.CommandContext) models.CommandResult {
	return s.moveRows(ctx, true)
}

// MoveRowsDown is the mirror of MoveRowsUp.
func (s *TablePartService) MoveRowsDown(ctx *models.CommandContext) models.CommandResult {
	return s.moveRows(ctx, false)
}

func (s *TablePartService) moveRows(ctx *models.CommandContext, up bool) models.CommandResult {
	if !s.holder.Current().DragDropEnabled {
		return models.CommandResult{Success: false, Message: "row reordering is disabled for this table"}
	}
	flat := s.flatIndices(ctx.SelectedIndices())

	var remapped []int
	var moved bool
	if up {
		remapped, moved = s.rows.MoveUp(flat)
	} else {
		remapped, moved = s.rows.MoveDown(flat)
	}
	if !moved {
		return models.CommandResult{Success: false, Message: "selection cannot move further"}
	}

	movedIDs := make([]string, 0, len(remapped))
	for _, i := range remapped {
		if row, ok := s.rows.At(i); ok {
			movedIDs = append(movedIDs, row.RowID)
		}
	}

	s.refresh()

	// Selection tracks the moved rows in the rebuilt display order.
	var affected []int
	for _, id := range movedIDs {
		if di := s.displayIndexOf(id); di >= 0 {
			affected = append(affected, di)
		}
	}
	return models.CommandResult{
		Success:         true,
		AffectedRows:    affected,
		RefreshRequired: true,
	}
}

// ExportRows writes the table to an xlsx file in the export directory.
func (s *TablePartService) ExportRows(ctx *models.CommandContext) models.CommandResult {
	args := settings.GetSettings()
	fileName := fmt.Sprintf("%s_%s.xlsx", s.tableID, time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(args.ExportDir, fileName)

	if err := exchange.WriteFile(path, s.rows.Rows(), s.columns, s.totals); err != nil {
		s.logger.Errorf("Export of table '%s' failed: %v", s.tableID, err)
		return models.CommandResult{Success: false, Message: fmt.Sprintf("export failed: %v", err)}
	}
	return models.CommandResult{
		Success: true,
		Message: fmt.Sprintf("exported %d rows to %s", s.rows.Len(), path),
	}
}

// PrintTable writes a plain-text rendering of the table to the export
// directory. Real print surfaces belong to the host; this is the portable
// fallback.
func (s *TablePartService) PrintTable(ctx *models.CommandContext) models.CommandResult {
	args := settings.GetSettings()
	fileName := fmt.Sprintf("%s_%s.txt", s.tableID, time.Now().Format("2006-01-02_15-04-05"))
	path := filepath.Join(args.ExportDir, fileName)

	var b strings.Builder
	for _, col := range s.columns {
		fmt.Fprintf(&b, "%-20s", col.Name)
	}
	b.WriteString("\n")
	for _, row := range s.display {
		for _, col := range s.columns {
			value := row.Field(col.ColumnID)
			if value == nil {
				value = ""
			}
			fmt.Fprintf(&b, "%-20v", value)
		}
		b.WriteString("\n")
	}
	if len(s.totals) > 0 {
		for _, col := range s.columns {
			cell := ""
			if total, ok := s.totals[col.ColumnID]; ok {
				cell = total.Formatted
			}
			fmt.Fprintf(&b, "%-20s", cell)
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		s.logger.Errorf("Print of table '%s' failed: %v", s.tableID, err)
		return models.CommandResult{Success: false, Message: fmt.Sprintf("print failed: %v", err)}
	}
	return models.CommandResult{
		Success: true,
		Message: fmt.Sprintf("printed table to %s", path),
	}
}

// ImportRows reconciles parsed rows against the table under the merge
// policy, recalculates and reports the summary.
func (s *TablePartService) ImportRows(parsed []*models.Row, policy models.MergePolicy) models.ImportResult {
	result := s.rows.ImportRows(parsed, policy, s.keyColumn)
	s.Recalculate()
	return result
}

// SetImportSource installs the loader the import command pulls rows from.
// Hosts that drive imports through their own file dialogs leave it unset
// and call BeginImport themselves.
func (s *TablePartService) SetImportSource(load RowLoader, policy models.MergePolicy) {
	s.importLoad = load
	s.importPolicy = policy
}

// OpenImport runs the configured import source through the task machinery
// and applies its outcome.
func (s *TablePartService) OpenImport(ctx *models.CommandContext) models.CommandResult {
	if s.importLoad == nil {
		return models.CommandResult{Success: false, Message: "no import source configured"}
	}

	task := s.BeginImport(s.importLoad, s.importPolicy)
	result, err := s.CompleteImport(task, <-task.Outcome())
	if err != nil {
		s.logger.Errorf("Import into table '%s' failed: %v", s.tableID, err)
		return models.CommandResult{Success: false, Message: fmt.Sprintf("import failed: %v", err)}
	}
	return models.CommandResult{
		Success: true,
		Message: fmt.Sprintf("import: %d added, %d updated, %d skipped, %d marked, %d errors",
			result.Added, result.Updated, result.Skipped, result.MarkedForDeletion, len(result.Errors)),
		RefreshRequired: true,
	}
}

// Reparent points a row at a new parent, rejecting cycles, and rebuilds the
// display.
func (s *TablePartService) Reparent(rowID, newParentID string) error {
	if err := s.rows.Reparent(rowID, newParentID); err != nil {
		return err
	}
	s.refresh()
	return nil
}

// Expand opens a hierarchy node.
func (s *TablePartService) Expand(rowID string) {
	s.expanded[rowID] = true
	s.refresh()
}

// Collapse closes a hierarchy node.
func (s *TablePartService) Collapse(rowID string) {
	delete(s.expanded, rowID)
	s.refresh()
}

func (s *TablePartService) setExpandedFromSelection(selection []int, expand bool) models.CommandResult {
	if len(selection) == 0 {
		return models.CommandResult{Success: false, Message: "no row selected"}
	}
	i := selection[0]
	if i < 0 || i >= len(s.display) {
		return models.CommandResult{Success: false, Message: "selection out of range"}
	}
	rowID := s.display[i].RowID
	if expand {
		s.Expand(rowID)
	} else {
		s.Collapse(rowID)
	}
	return models.CommandResult{Success: true, RefreshRequired: true}
}

// flatIndices maps display indices onto indices in the flat row list.
func (s *TablePartService) flatIndices(displayIndices []int) []int {
	var flat []int
	for _, i := range displayIndices {
		if i < 0 || i >= len(s.display) {
			continue
		}
		if idx, ok := s.rows.IndexOf(s.display[i].RowID); ok {
			flat = append(flat, idx)
		}
	}
	return flat
}

func (s *TablePartService) displayIndexOf(rowID string) int {
	for i, row := range s.display {
		if row.RowID == rowID {
			return i
		}
	}
	return -1
}
