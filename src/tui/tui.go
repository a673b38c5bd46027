package tui

import (
	"fmt"
	"sort"
	"strings"

	"tabledit/src/directors"
	"tabledit/src/helpers"
	"tabledit/src/keyboard"
	"tabledit/src/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// styles
var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("4")).Foreground(lipgloss.Color("15"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	totalStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type mode int

const (
	modeNormal mode = iota
	modeEdit
)

// Model hosts one table part service in a terminal. All table semantics live
// in the service; the model only tracks cursor, selection and the edit
// buffer, and feeds key events through the shortcut dispatcher.
type Model struct {
	service *directors.TablePartService
	title   string

	width  int
	height int

	cursor   int
	colIdx   int
	selected map[int]bool
	scrollY  int

	mode    mode
	editBuf string

	status string
}

func NewModel(service *directors.TablePartService, title string) Model {
	// Navigation actions are the host's to bind; the result's affected rows
	// carry the cursor target back through applyResult.
	service.Keyboard().RegisterActionHandler(models.ActionGoToFirst,
		func(ctx keyboard.ShortcutContext) models.CommandResult {
			if len(service.Display()) == 0 {
				return models.CommandResult{Success: false}
			}
			return models.CommandResult{Success: true, AffectedRows: []int{0}, RefreshRequired: true}
		})
	service.Keyboard().RegisterActionHandler(models.ActionGoToLast,
		func(ctx keyboard.ShortcutContext) models.CommandResult {
			n := len(service.Display())
			if n == 0 {
				return models.CommandResult{Success: false}
			}
			return models.CommandResult{Success: true, AffectedRows: []int{n - 1}, RefreshRequired: true}
		})

	// No reference catalogs are attached in this host; the chord still
	// answers instead of dying in the dispatcher.
	service.Keyboard().RegisterActionHandler(models.ActionOpenRefSelector,
		func(ctx keyboard.ShortcutContext) models.CommandResult {
			return models.CommandResult{Success: false, Message: "no reference list is bound to this table"}
		})

	return Model{
		service:  service,
		title:    title,
		selected: make(map[int]bool),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if m.mode == modeEdit {
			return m.updateEdit(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

// selection returns the display indices a command applies to: the toggled
// rows, or the cursor row when nothing is toggled.
func (m Model) selection() []int {
	if len(m.selected) == 0 {
		if len(m.service.Display()) == 0 {
			return nil
		}
		return []int{m.cursor}
	}
	out := make([]int, 0, len(m.selected))
	for i := range m.selected {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// dispatch pushes the interaction snapshot and offers the key to the
// shortcut dispatcher. Unconsumed keys fall back to the caller.
func (m *Model) dispatch(msg tea.KeyMsg) bool {
	chord, err := keyboard.ParseChord(msg.String())
	if err != nil {
		return false
	}
	m.service.Keyboard().PushContext(keyboard.ShortcutContext{
		Selection:      m.selection(),
		IsEditing:      m.mode == modeEdit,
		IsHierarchical: m.service.IsHierarchical(),
	})
	consumed, result := m.service.Keyboard().Dispatch(chord)
	if !consumed {
		return false
	}
	m.applyResult(result)
	return true
}

func (m *Model) applyResult(result models.CommandResult) {
	m.status = result.Message
	if !result.Success && result.Message == "" {
		m.status = "command failed"
	}
	if result.RefreshRequired {
		m.selected = make(map[int]bool)
		if len(result.AffectedRows) > 0 {
			m.cursor = result.AffectedRows[0]
			for _, i := range result.AffectedRows {
				m.selected[i] = true
			}
		}
		m.clampCursor()
	}
}

func (m *Model) clampCursor() {
	n := len(m.service.Display())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	cols := m.service.Columns()
	if m.colIdx >= len(cols) {
		m.colIdx = len(cols) - 1
	}
	if m.colIdx < 0 {
		m.colIdx = 0
	}
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dispatch(msg) {
		return m, nil
	}

	display := m.service.Display()
	switch msg.String() {
	case "q", "ctrl+q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(display)-1 {
			m.cursor++
		}
	case "left", "h":
		if m.colIdx > 0 {
			m.colIdx--
		}
	case "right", "l":
		if m.colIdx < len(m.service.Columns())-1 {
			m.colIdx++
		}
	case "home":
		m.cursor = 0
	case "end":
		if len(display) > 0 {
			m.cursor = len(display) - 1
		}
	case " ":
		if len(display) > 0 {
			if m.selected[m.cursor] {
				delete(m.selected, m.cursor)
			} else {
				m.selected[m.cursor] = true
			}
		}
	case "enter":
		if len(display) > 0 {
			col := m.service.Columns()[m.colIdx]
			if !col.Editable {
				m.status = fmt.Sprintf("column '%s' is not editable", col.Name)
				return m, nil
			}
			m.mode = modeEdit
			m.editBuf = formatCell(display[m.cursor], col)
		}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.runVisibleCommand(int(msg.String()[0] - '1'))
	}
	return m, nil
}

// runVisibleCommand executes the nth command on the bar, matching the
// numbering the bar renders.
func (m *Model) runVisibleCommand(n int) {
	visible := m.service.Commands().VisibleCommands()
	if n < 0 || n >= len(visible) {
		return
	}
	def := visible[n]
	ctx := m.service.BuildContext(m.selection())
	if !m.service.Commands().Availability(def.CommandID, ctx) {
		m.status = fmt.Sprintf("'%s' is not available for the current selection", def.Name)
		return
	}
	m.applyResult(m.service.Commands().Execute(def.CommandID, ctx))
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The dispatcher sees the editing context first, so table shortcuts
	// stay suppressed while the cell editor is open.
	switch msg.String() {
	case "enter":
		col := m.service.Columns()[m.colIdx]
		result := m.service.EditCell(m.cursor, col.ColumnID, m.editBuf)
		if result.Success {
			m.status = fmt.Sprintf("recalculated in %.1fms", result.ExecutionTimeMs)
		} else {
			m.status = result.Message
		}
		m.mode = modeNormal
		m.editBuf = ""
	case "esc":
		m.mode = modeNormal
		m.editBuf = ""
		m.status = "edit cancelled"
	case "backspace":
		if len(m.editBuf) > 0 {
			m.editBuf = m.editBuf[:len(m.editBuf)-1]
		}
	default:
		if len(msg.String()) == 1 || msg.String() == " " {
			m.editBuf += msg.String()
		}
	}
	return m, nil
}

// --- View ---

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(" " + m.title))
	b.WriteString("\n")
	b.WriteString(m.viewCommandBar())
	b.WriteString("\n")
	b.WriteString(m.viewTable())
	b.WriteString(m.viewStatus())
	return b.String()
}

func (m Model) viewCommandBar() string {
	ctx := m.service.BuildContext(m.selection())
	var parts []string
	for i, def := range m.service.Commands().VisibleCommands() {
		label := fmt.Sprintf("%d:%s", i+1, def.Name)
		if m.service.Commands().Availability(def.CommandID, ctx) {
			parts = append(parts, label)
		} else {
			parts = append(parts, dimStyle.Render(label))
		}
	}
	return " " + strings.Join(parts, "  ")
}

func (m Model) viewTable() string {
	var b strings.Builder
	columns := m.service.Columns()
	display := m.service.Display()
	widths := m.colWidths()

	// header
	b.WriteString("   ")
	for ci, col := range columns {
		b.WriteString(headerStyle.Render(fmt.Sprintf(" %-*s ", widths[ci], truncate(col.Name, widths[ci]))))
	}
	b.WriteString("\n")

	dataHeight := m.height - 7
	if dataHeight < 1 {
		dataHeight = 1
	}
	if m.cursor < m.scrollY {
		m.scrollY = m.cursor
	}
	if m.cursor >= m.scrollY+dataHeight {
		m.scrollY = m.cursor - dataHeight + 1
	}

	end := m.scrollY + dataHeight
	if end > len(display) {
		end = len(display)
	}
	for ri := m.scrollY; ri < end; ri++ {
		row := display[ri]

		marker := "  "
		if m.selected[ri] {
			marker = selectedStyle.Render("* ")
		}
		b.WriteString(" " + marker)

		for ci, col := range columns {
			var text string
			if m.mode == modeEdit && ri == m.cursor && ci == m.colIdx {
				text = m.editBuf + "_"
			} else {
				text = formatCell(row, col)
				if ci == 0 {
					text = hierarchyPrefix(m.service, row) + text
				}
			}

			cell := fmt.Sprintf(" %s ", alignCell(text, col, widths[ci]))
			switch {
			case ri == m.cursor && ci == m.colIdx:
				b.WriteString(cursorStyle.Render(cell))
			case row.MarkedForDeletion:
				b.WriteString(dimStyle.Render(cell))
			default:
				b.WriteString(cell)
			}
		}
		b.WriteString("\n")
	}

	// totals
	totals := m.service.Totals()
	if len(totals) > 0 {
		b.WriteString(" " + dimStyle.Render("──"))
		for ci, col := range columns {
			text := ""
			if total, ok := totals[col.ColumnID]; ok {
				text = total.Formatted
			}
			b.WriteString(totalStyle.Render(fmt.Sprintf(" %s ", alignCell(text, col, widths[ci]))))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewStatus() string {
	var b strings.Builder

	metrics := m.service.Metrics()
	info := fmt.Sprintf(" row %d/%d  calc %.1fms  totals %.1fms  errors %d  %.1fMB",
		m.cursor+1, len(m.service.Display()),
		metrics.IndividualCalculationTimeMs, metrics.TotalCalculationTimeMs,
		metrics.ErrorCount, metrics.MemoryUsageMb)
	b.WriteString(statusStyle.Render(info))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(errorStyle.Render(" " + m.status))
		b.WriteString("\n")
	}

	help := " jk move  space select  enter edit  ins/del rows  ctrl+shift+↑↓ reorder  q quit"
	b.WriteString(dimStyle.Render(help))
	return b.String()
}

func (m Model) colWidths() []int {
	columns := m.service.Columns()
	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col.Name)
		if col.Width > 0 && col.Width > widths[i] {
			widths[i] = col.Width
		}
		if widths[i] < 6 {
			widths[i] = 6
		}
		if widths[i] > 30 {
			widths[i] = 30
		}
	}
	return widths
}

// hierarchyPrefix indents nested rows and marks group rows with their
// expansion state.
func hierarchyPrefix(service *directors.TablePartService, row *models.Row) string {
	if !service.IsHierarchical() {
		return ""
	}
	depth := 0
	if node, ok := service.Node(row.RowID); ok {
		depth = node.Depth
	}
	prefix := strings.Repeat("  ", depth)
	if row.IsGroup {
		if service.IsExpanded(row.RowID) {
			return prefix + "▾ "
		}
		return prefix + "▸ "
	}
	return prefix
}

func formatCell(row *models.Row, col models.TableColumn) string {
	value := row.Field(col.ColumnID)
	if value == nil {
		return ""
	}
	switch col.Type {
	case models.ColumnCurrency:
		return "$" + helpers.FormatNumber(helpers.ToNumber(value), 2)
	case models.ColumnNumber:
		return helpers.FormatNumber(helpers.ToNumber(value), 2)
	default:
		return fmt.Sprintf("%v", value)
	}
}

func alignCell(s string, col models.TableColumn, width int) string {
	s = truncate(s, width)
	if col.Type.IsNumeric() {
		return fmt.Sprintf("%*s", width, s)
	}
	return fmt.Sprintf("%-*s", width, s)
}

func truncate(s string, width int) string {
	if len(s) > width {
		return s[:width-1] + "."
	}
	return s
}

// Run drives the model to completion on the controlling terminal.
func Run(service *directors.TablePartService, title string) error {
	p := tea.NewProgram(NewModel(service, title), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
