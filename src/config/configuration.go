package config

import (
	"fmt"
	"sync"

	"tabledit/src/models"

	"go.uber.org/zap"
)

const (
	// DefaultCalculationTimeoutMs is the soft budget for one field
	// recalculation pass.
	DefaultCalculationTimeoutMs = 100

	// DefaultTotalCalculationTimeoutMs is the soft budget for one totals pass.
	DefaultTotalCalculationTimeoutMs = 200
)

// TablePartConfiguration is the per-table, per-user persisted set of visible
// commands and feature toggles. Pure data: the engines re-read it through a
// Holder on every operation instead of caching copies.
type TablePartConfiguration struct {
	TableID      string `bson:"table_id"`
	DocumentType string `bson:"document_type"`

	AvailableCommands []models.CommandDefinition `bson:"available_commands"`
	VisibleCommands   []string                   `bson:"visible_commands"`

	KeyboardShortcutsEnabled bool `bson:"keyboard_shortcuts_enabled"`
	AutoCalculationEnabled   bool `bson:"auto_calculation_enabled"`
	DragDropEnabled          bool `bson:"drag_drop_enabled"`

	CalculationTimeoutMs      int `bson:"calculation_timeout_ms"`
	TotalCalculationTimeoutMs int `bson:"total_calculation_timeout_ms"`
}

// DefaultConfiguration returns a configuration with every toggle on and the
// default calculation budgets.
func DefaultConfiguration(tableID, documentType string) *TablePartConfiguration {
	return &TablePartConfiguration{
		TableID:                   tableID,
		DocumentType:              documentType,
		KeyboardShortcutsEnabled:  true,
		AutoCalculationEnabled:    true,
		DragDropEnabled:           true,
		CalculationTimeoutMs:      DefaultCalculationTimeoutMs,
		TotalCalculationTimeoutMs: DefaultTotalCalculationTimeoutMs,
	}
}

// Validate checks the structural invariants: visible commands must be a
// subset of the available commands and the budgets must be positive.
func (c *TablePartConfiguration) Validate() error {
	if c.TableID == "" {
		return fmt.Errorf("configuration has no table id")
	}
	if c.CalculationTimeoutMs <= 0 {
		return fmt.Errorf("calculation timeout must be positive, got %d", c.CalculationTimeoutMs)
	}
	if c.TotalCalculationTimeoutMs <= 0 {
		return fmt.Errorf("total calculation timeout must be positive, got %d", c.TotalCalculationTimeoutMs)
	}
	available := make(map[string]bool, len(c.AvailableCommands))
	for _, def := range c.AvailableCommands {
		available[def.CommandID] = true
	}
	for _, id := range c.VisibleCommands {
		if !available[id] {
			return fmt.Errorf("visible command %q is not among the available commands", id)
		}
	}
	return nil
}

// IsCommandVisible reports whether the command belongs on the primary
// command bar. Visibility is independent of availability: a hidden command
// stays invocable through its shortcut as long as it is registered.
func (c *TablePartConfiguration) IsCommandVisible(commandID string) bool {
	for _, id := range c.VisibleCommands {
		if id == commandID {
			return true
		}
	}
	return false
}

// HasCommand reports whether the command is declared available at all.
func (c *TablePartConfiguration) HasCommand(commandID string) bool {
	for _, def := range c.AvailableCommands {
		if def.CommandID == commandID {
			return true
		}
	}
	return false
}

// ChangeListener is notified after the holder swaps in a new configuration.
type ChangeListener func(cfg *TablePartConfiguration)

// Holder owns the current configuration of one table part and fans out
// change notifications to the engines wired to it.
type Holder struct {
	mu        sync.RWMutex
	current   *TablePartConfiguration
	listeners []ChangeListener
	logger    *zap.SugaredLogger
}

func NewHolder(cfg *TablePartConfiguration, logger *zap.SugaredLogger) (*Holder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid table part configuration: %w", err)
	}
	return &Holder{current: cfg, logger: logger}, nil
}

// Current returns the live configuration. Callers must not mutate it;
// changes go through Update so listeners fire.
func (h *Holder) Current() *TablePartConfiguration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Update validates and swaps in a new configuration, then notifies the
// registered listeners in registration order.
func (h *Holder) Update(cfg *TablePartConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid table part configuration: %w", err)
	}

	h.mu.Lock()
	h.current = cfg
	listeners := make([]ChangeListener, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, l := range listeners {
		l(cfg)
	}

	if h.logger != nil {
		h.logger.Infof("Configuration for table '%s' updated", cfg.TableID)
	}
	return nil
}

// OnChange registers a listener for configuration swaps.
func (h *Holder) OnChange(l ChangeListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}
