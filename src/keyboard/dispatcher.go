package keyboard

import (
	"fmt"
	"sort"
	"strings"

	"tabledit/src/config"
	"tabledit/src/models"

	"go.uber.org/zap"
)

// Modifier is a bitmask of held modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModShift
	ModAlt
)

// Chord is one dispatchable key unit: a key plus its modifier bitmask.
type Chord struct {
	Key  string
	Mods Modifier
}

func (c Chord) String() string {
	var parts []string
	if c.Mods&ModCtrl != 0 {
		parts = append(parts, "ctrl")
	}
	if c.Mods&ModShift != 0 {
		parts = append(parts, "shift")
	}
	if c.Mods&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	parts = append(parts, c.Key)
	return strings.Join(parts, "+")
}

// ParseChord reads a chord written as "ctrl+shift+up". The key is the last
// segment; segment order for modifiers does not matter.
func ParseChord(s string) (Chord, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Chord{}, fmt.Errorf("empty chord %q", s)
	}
	chord := Chord{Key: parts[len(parts)-1]}
	for _, p := range parts[:len(parts)-1] {
		switch p {
		case "ctrl":
			chord.Mods |= ModCtrl
		case "shift":
			chord.Mods |= ModShift
		case "alt":
			chord.Mods |= ModAlt
		default:
			return Chord{}, fmt.Errorf("unknown modifier %q in chord %q", p, s)
		}
	}
	return chord, nil
}

// ShortcutContext is the interaction snapshot the host pushes before each
// dispatch. The dispatcher never polls UI state, so it can never read stale
// focus information.
type ShortcutContext struct {
	Selection      []int
	IsEditing      bool
	IsHierarchical bool
}

// ActionHandler runs a shortcut action against the pushed context.
type ActionHandler func(ctx ShortcutContext) models.CommandResult

// Dispatcher maps chords to actions and actions to handlers. One dispatcher
// serves one table part; the host feeds it key events from a single listener
// at the table container.
type Dispatcher struct {
	table    map[Chord]models.ShortcutAction
	handlers map[models.ShortcutAction]ActionHandler
	ctx      ShortcutContext
	holder   *config.Holder
	logger   *zap.SugaredLogger
}

// defaultChordTable is the fixed public shortcut contract. Hosts change it
// only through OverrideChord, never by editing the table.
func defaultChordTable() map[Chord]models.ShortcutAction {
	return map[Chord]models.ShortcutAction{
		{Key: "insert"}:                             models.ActionAddRow,
		{Key: "delete"}:                             models.ActionDeleteRow,
		{Key: "c", Mods: ModCtrl}:                   models.ActionCopyRows,
		{Key: "v", Mods: ModCtrl}:                   models.ActionPasteRows,
		{Key: "up", Mods: ModCtrl | ModShift}:       models.ActionMoveRowUp,
		{Key: "down", Mods: ModCtrl | ModShift}:     models.ActionMoveRowDown,
		{Key: "right", Mods: ModCtrl}:               models.ActionExpandNode,
		{Key: "left", Mods: ModCtrl}:                models.ActionCollapseNode,
		{Key: "f4"}:                                 models.ActionOpenRefSelector,
		{Key: "home", Mods: ModCtrl}:                models.ActionGoToFirst,
		{Key: "end", Mods: ModCtrl}:                 models.ActionGoToLast,
		{Key: "enter"}:                              models.ActionConfirmEdit,
		{Key: "esc"}:                                models.ActionCancelEdit,
	}
}

func NewDispatcher(holder *config.Holder, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		table:    defaultChordTable(),
		handlers: make(map[models.ShortcutAction]ActionHandler),
		holder:   holder,
		logger:   logger,
	}
}

// RegisterActionHandler binds the handler for an action. Exactly one handler
// is bound per action: a later registration replaces the earlier one, which
// is how hosts swap in mode-specific behavior.
func (d *Dispatcher) RegisterActionHandler(action models.ShortcutAction, handler ActionHandler) {
	if handler == nil {
		delete(d.handlers, action)
		return
	}
	d.handlers[action] = handler
}

// PushContext records the interaction snapshot consulted by the next
// dispatches.
func (d *Dispatcher) PushContext(ctx ShortcutContext) {
	d.ctx = ctx
}

// Context returns the most recently pushed snapshot.
func (d *Dispatcher) Context() ShortcutContext {
	return d.ctx
}

// OverrideChord rebinds a chord to a different action. This is the explicit
// override mechanism: the default table itself is part of the engine's
// public contract.
func (d *Dispatcher) OverrideChord(chord Chord, action models.ShortcutAction) {
	d.table[chord] = action
}

// Lookup resolves a chord without dispatching it.
func (d *Dispatcher) Lookup(chord Chord) (models.ShortcutAction, bool) {
	action, ok := d.table[chord]
	return action, ok
}

// Chords returns the bound chords for an action, sorted, for help surfaces.
func (d *Dispatcher) Chords(action models.ShortcutAction) []string {
	var out []string
	for chord, a := range d.table {
		if a == action {
			out = append(out, chord.String())
		}
	}
	sort.Strings(out)
	return out
}

// Dispatch resolves the chord against the current context and runs the bound
// handler. It reports whether the key event was consumed.
//
// While the context says a cell editor is open, everything except the
// confirm/cancel pair falls through so typing is never intercepted.
// Hierarchy actions stay registered but inert on flat tables.
func (d *Dispatcher) Dispatch(chord Chord) (bool, models.CommandResult) {
	if !d.holder.Current().KeyboardShortcutsEnabled {
		return false, models.CommandResult{}
	}

	action, ok := d.table[chord]
	if !ok {
		return false, models.CommandResult{}
	}

	if d.ctx.IsEditing && action != models.ActionConfirmEdit && action != models.ActionCancelEdit {
		return false, models.CommandResult{}
	}

	if action.IsHierarchical() && !d.ctx.IsHierarchical {
		return false, models.CommandResult{}
	}

	handler, ok := d.handlers[action]
	if !ok {
		return false, models.CommandResult{}
	}

	if d.logger != nil {
		d.logger.Debugf("Dispatching %s as %s", chord, action)
	}
	return true, handler(d.ctx)
}

// Reset drops every handler and the pushed context. Hosts call this when the
// table part closes.
func (d *Dispatcher) Reset() {
	d.handlers = make(map[models.ShortcutAction]ActionHandler)
	d.ctx = ShortcutContext{}
}
