package config

import (
	"testing"

	"tabledit/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultConfiguration(t *testing.T) {
	cfg := DefaultConfiguration("t1", "estimate")

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.KeyboardShortcutsEnabled)
	assert.True(t, cfg.AutoCalculationEnabled)
	assert.Equal(t, DefaultCalculationTimeoutMs, cfg.CalculationTimeoutMs)
	assert.Equal(t, DefaultTotalCalculationTimeoutMs, cfg.TotalCalculationTimeoutMs)
}

func TestValidateRejectsBadConfigurations(t *testing.T) {
	cfg := DefaultConfiguration("", "estimate")
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfiguration("t1", "estimate")
	cfg.CalculationTimeoutMs = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfiguration("t1", "estimate")
	cfg.TotalCalculationTimeoutMs = -5
	assert.Error(t, cfg.Validate())

	// Visible commands must be declared available.
	cfg = DefaultConfiguration("t1", "estimate")
	cfg.VisibleCommands = []string{"add_row"}
	assert.Error(t, cfg.Validate())

	cfg.AvailableCommands = []models.CommandDefinition{{CommandID: "add_row"}}
	assert.NoError(t, cfg.Validate())
}

func TestCommandVisibility(t *testing.T) {
	cfg := DefaultConfiguration("t1", "estimate")
	cfg.AvailableCommands = []models.CommandDefinition{
		{CommandID: "add_row"}, {CommandID: "export_rows"},
	}
	cfg.VisibleCommands = []string{"add_row"}

	assert.True(t, cfg.HasCommand("export_rows"))
	assert.False(t, cfg.HasCommand("print_table"))
	assert.True(t, cfg.IsCommandVisible("add_row"))
	assert.False(t, cfg.IsCommandVisible("export_rows"))
}

func TestHolderRejectsInvalidConfiguration(t *testing.T) {
	_, err := NewHolder(DefaultConfiguration("", ""), zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestHolderUpdateNotifiesListeners(t *testing.T) {
	holder, err := NewHolder(DefaultConfiguration("t1", "estimate"), zap.NewNop().Sugar())
	require.NoError(t, err)

	var seen []int
	holder.OnChange(func(cfg *TablePartConfiguration) {
		seen = append(seen, cfg.CalculationTimeoutMs)
	})

	next := DefaultConfiguration("t1", "estimate")
	next.CalculationTimeoutMs = 250
	require.NoError(t, holder.Update(next))

	assert.Equal(t, []int{250}, seen)
	assert.Equal(t, 250, holder.Current().CalculationTimeoutMs)

	// A rejected update leaves the current configuration and fires nothing.
	bad := DefaultConfiguration("t1", "estimate")
	bad.CalculationTimeoutMs = 0
	assert.Error(t, holder.Update(bad))
	assert.Equal(t, []int{250}, seen)
	assert.Equal(t, 250, holder.Current().CalculationTimeoutMs)
}
