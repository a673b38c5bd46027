package directors

import (
	"fmt"

	"tabledit/src/config"
	"tabledit/src/models"
	"tabledit/src/settings"

	"go.uber.org/zap"
)

// CommandHandler executes one command against a context snapshot.
type CommandHandler func(ctx *models.CommandContext) models.CommandResult

type registeredCommand struct {
	def     models.CommandDefinition
	handler CommandHandler
}

// CommandService is the command registry and manager of one table part.
// Availability is computed fresh from the context on every call; nothing
// here is cached between renders.
type CommandService struct {
	order    []string
	commands map[string]*registeredCommand
	holder   *config.Holder
	logger   *zap.SugaredLogger
}

func NewCommandService(holder *config.Holder, logger *zap.SugaredLogger) *CommandService {
	return &CommandService{
		commands: make(map[string]*registeredCommand),
		holder:   holder,
		logger:   logger,
	}
}

// RegisterCommand attaches declarative metadata to a handler. Registering an
// id again replaces the earlier handler but keeps its position in the
// command order.
func (s *CommandService) RegisterCommand(def models.CommandDefinition, handler CommandHandler) error {
	if def.CommandID == "" {
		return fmt.Errorf("command definition has no id")
	}
	if handler == nil {
		return fmt.Errorf("command '%s' has no handler", def.CommandID)
	}
	if def.Availability == "" {
		def.Availability = models.AvailabilityAlways
	}

	if _, exists := s.commands[def.CommandID]; !exists {
		s.order = append(s.order, def.CommandID)
	}
	s.commands[def.CommandID] = &registeredCommand{def: def, handler: handler}

	args := settings.GetSettings()
	if args.Debug {
		s.logger.Infof("Registered command '%s' (%s)", def.CommandID, def.Availability)
	}
	return nil
}

// Unregister removes a command entirely.
func (s *CommandService) Unregister(commandID string) {
	if _, exists := s.commands[commandID]; !exists {
		return
	}
	delete(s.commands, commandID)
	for i, id := range s.order {
		if id == commandID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Definitions returns every registered command in registration order.
func (s *CommandService) Definitions() []models.CommandDefinition {
	out := make([]models.CommandDefinition, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.commands[id].def)
	}
	return out
}

// Definition returns the metadata for one command.
func (s *CommandService) Definition(commandID string) (models.CommandDefinition, bool) {
	cmd, ok := s.commands[commandID]
	if !ok {
		return models.CommandDefinition{}, false
	}
	return cmd.def, true
}

// Availability reports whether the command may run against the context. It
// is a pure function of the availability enum and the snapshot.
func (s *CommandService) Availability(commandID string, ctx *models.CommandContext) bool {
	cmd, ok := s.commands[commandID]
	if !ok {
		return false
	}
	return availabilityAllows(cmd.def.Availability, ctx)
}

func availabilityAllows(availability models.CommandAvailability, ctx *models.CommandContext) bool {
	switch availability {
	case models.AvailabilityAlways:
		return true
	case models.AvailabilityRequiresSelection:
		return ctx.SelectionCount() > 0
	case models.AvailabilityRequiresRows:
		return len(ctx.TableData) > 0
	case models.AvailabilityRequiresFirstNotSelected:
		return ctx.SelectionCount() > 0 && !ctx.IsFirstRowSelected
	case models.AvailabilityRequiresLastNotSelected:
		return ctx.SelectionCount() > 0 && !ctx.IsLastRowSelected
	default:
		return false
	}
}

// Execute looks up the handler, re-checks availability against the given
// context and runs it. An unknown or unavailable command resolves to a
// failed no-op result; a handler panic is recovered into one. Execute never
// raises.
func (s *CommandService) Execute(commandID string, ctx *models.CommandContext) (result models.CommandResult) {
	cmd, ok := s.commands[commandID]
	if !ok {
		return models.CommandResult{
			Success: false,
			Message: fmt.Sprintf("command '%s' is not registered", commandID),
		}
	}

	if !availabilityAllows(cmd.def.Availability, ctx) {
		return models.CommandResult{
			Success: false,
			Message: fmt.Sprintf("command '%s' is not available for the current selection", commandID),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Command '%s' panicked: %v", commandID, r)
			result = models.CommandResult{
				Success: false,
				Message: fmt.Sprintf("command '%s' failed: %v", commandID, r),
			}
		}
	}()

	return cmd.handler(ctx)
}

// VisibleCommands returns the registered commands the configuration places
// on the primary command bar, in registration order. Visibility is
// independent of availability; the host renders unavailable ones disabled.
func (s *CommandService) VisibleCommands() []models.CommandDefinition {
	cfg := s.holder.Current()
	var out []models.CommandDefinition
	for _, id := range s.order {
		if cfg.IsCommandVisible(id) {
			out = append(out, s.commands[id].def)
		}
	}
	return out
}

// OverflowCommands returns registered commands the configuration keeps off
// the bar. They stay invocable by shortcut.
func (s *CommandService) OverflowCommands() []models.CommandDefinition {
	cfg := s.holder.Current()
	var out []models.CommandDefinition
	for _, id := range s.order {
		if !cfg.IsCommandVisible(id) {
			out = append(out, s.commands[id].def)
		}
	}
	return out
}
