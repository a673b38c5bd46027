package directors

import "tabledit/src/models"

// Capability interfaces let arbitrary hosts expose the standard table
// operations without the command service depending on host types. A host
// implements the interfaces it supports; RegisterHostCommands checks each
// one at registration time. No reflection, no naming-convention scanning.

type RowAdder interface {
	AddRow(ctx *models.CommandContext) models.CommandResult
}

type RowDeleter interface {
	DeleteRows(ctx *models.CommandContext) models.CommandResult
}

type RowMover interface {
	MoveRowsUp(ctx *models.CommandContext) models.CommandResult
	MoveRowsDown(ctx *models.CommandContext) models.CommandResult
}

type RowCopier interface {
	CopyRows(ctx *models.CommandContext) models.CommandResult
	PasteRows(ctx *models.CommandContext) models.CommandResult
}

type RowExporter interface {
	ExportRows(ctx *models.CommandContext) models.CommandResult
}

type RowImporter interface {
	OpenImport(ctx *models.CommandContext) models.CommandResult
}

type TablePrinter interface {
	PrintTable(ctx *models.CommandContext) models.CommandResult
}

// Standard command ids.
const (
	CommandAddRow      = "add_row"
	CommandDeleteRow   = "delete_row"
	CommandCopyRows    = "copy_rows"
	CommandPasteRows   = "paste_rows"
	CommandMoveRowUp   = "move_row_up"
	CommandMoveRowDown = "move_row_down"
	CommandImport      = "import_rows"
	CommandExport      = "export_rows"
	CommandPrint       = "print_table"
)

// StandardDefinitions returns the fixed metadata of the standard commands.
func StandardDefinitions() map[string]models.CommandDefinition {
	return map[string]models.CommandDefinition{
		CommandAddRow: {
			CommandID:    CommandAddRow,
			Name:         "Add row",
			Icon:         "plus",
			Tooltip:      "Append a new line",
			Shortcut:     "insert",
			Availability: models.AvailabilityAlways,
			IsStandard:   true,
		},
		CommandDeleteRow: {
			CommandID:    CommandDeleteRow,
			Name:         "Delete rows",
			Icon:         "trash",
			Tooltip:      "Delete the selected lines",
			Shortcut:     "delete",
			Availability: models.AvailabilityRequiresSelection,
			IsStandard:   true,
		},
		CommandCopyRows: {
			CommandID:    CommandCopyRows,
			Name:         "Copy rows",
			Icon:         "copy",
			Tooltip:      "Copy the selected lines",
			Shortcut:     "ctrl+c",
			Availability: models.AvailabilityRequiresSelection,
			IsStandard:   true,
		},
		CommandPasteRows: {
			CommandID:    CommandPasteRows,
			Name:         "Paste rows",
			Icon:         "paste",
			Tooltip:      "Paste copied lines after the selection",
			Shortcut:     "ctrl+v",
			Availability: models.AvailabilityAlways,
			IsStandard:   true,
		},
		CommandMoveRowUp: {
			CommandID:    CommandMoveRowUp,
			Name:         "Move up",
			Icon:         "arrow-up",
			Tooltip:      "Move the selected lines up",
			Shortcut:     "ctrl+shift+up",
			Availability: models.AvailabilityRequiresFirstNotSelected,
			IsStandard:   true,
		},
		CommandMoveRowDown: {
			CommandID:    CommandMoveRowDown,
			Name:         "Move down",
			Icon:         "arrow-down",
			Tooltip:      "Move the selected lines down",
			Shortcut:     "ctrl+shift+down",
			Availability: models.AvailabilityRequiresLastNotSelected,
			IsStandard:   true,
		},
		CommandImport: {
			CommandID:    CommandImport,
			Name:         "Import",
			Icon:         "upload",
			Tooltip:      "Load lines from a file",
			Availability: models.AvailabilityAlways,
			IsStandard:   true,
		},
		CommandExport: {
			CommandID:    CommandExport,
			Name:         "Export",
			Icon:         "download",
			Tooltip:      "Export the table to a file",
			Availability: models.AvailabilityRequiresRows,
			IsStandard:   true,
		},
		CommandPrint: {
			CommandID:    CommandPrint,
			Name:         "Print",
			Icon:         "printer",
			Tooltip:      "Print the table part",
			Availability: models.AvailabilityRequiresRows,
			IsStandard:   true,
		},
	}
}

// RegisterHostCommands probes the host for each capability interface and
// registers the standard commands it satisfies. It returns the ids that got
// registered, so hosts can see which capabilities were picked up.
func (s *CommandService) RegisterHostCommands(host interface{}) []string {
	defs := StandardDefinitions()
	var registered []string

	register := func(id string, handler CommandHandler) {
		if err := s.RegisterCommand(defs[id], handler); err == nil {
			registered = append(registered, id)
		}
	}

	if adder, ok := host.(RowAdder); ok {
		register(CommandAddRow, adder.AddRow)
	}
	if deleter, ok := host.(RowDeleter); ok {
		register(CommandDeleteRow, deleter.DeleteRows)
	}
	if copier, ok := host.(RowCopier); ok {
		register(CommandCopyRows, copier.CopyRows)
		register(CommandPasteRows, copier.PasteRows)
	}
	if mover, ok := host.(RowMover); ok {
		register(CommandMoveRowUp, mover.MoveRowsUp)
		register(CommandMoveRowDown, mover.MoveRowsDown)
	}
	if importer, ok := host.(RowImporter); ok {
		register(CommandImport, importer.OpenImport)
	}
	if exporter, ok := host.(RowExporter); ok {
		register(CommandExport, exporter.ExportRows)
	}
	if printer, ok := host.(TablePrinter); ok {
		register(CommandPrint, printer.PrintTable)
	}

	return registered
}
