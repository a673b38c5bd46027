package directors

import (
	"fmt"
	"sync"

	"tabledit/src/config"
	"tabledit/src/models"

	"go.uber.org/zap"
)

// TablePartSpec is everything the host supplies when a document section
// opens. The host owns the lifetime of the slices; the service builds its
// own derived state from them.
type TablePartSpec struct {
	TableID      string
	DocumentType string
	Columns      []models.TableColumn
	Rows         []*models.Row
	Rules        []*models.CalculationRule
	TotalRules   []*models.TotalCalculationRule

	// KeyColumn is the column imports match on; empty means first column.
	KeyColumn string
}

// ServiceManager tracks the open table part services of one document view
// and wires each one to its persisted configuration.
type ServiceManager struct {
	mu     sync.RWMutex
	store  config.ConfigStore
	open   map[string]*TablePartService
	logger *zap.SugaredLogger
}

func NewServiceManager(store config.ConfigStore, logger *zap.SugaredLogger) *ServiceManager {
	return &ServiceManager{
		store:  store,
		open:   make(map[string]*TablePartService),
		logger: logger,
	}
}

// Open builds the service for one table part, loading the user's persisted
// configuration or falling back to defaults with the full standard command
// set available.
func (m *ServiceManager) Open(spec TablePartSpec, user string) (*TablePartService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.open[spec.TableID]; exists {
		return nil, fmt.Errorf("table '%s' is already open", spec.TableID)
	}

	cfg, err := m.store.Load(spec.TableID, user)
	if err != nil {
		m.logger.Warnf("Could not load configuration for table '%s': %v, using defaults", spec.TableID, err)
		cfg = nil
	}
	if cfg == nil {
		cfg = defaultTableConfiguration(spec.TableID, spec.DocumentType)
	}

	holder, err := config.NewHolder(cfg, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build configuration holder for table '%s': %w", spec.TableID, err)
	}

	service, err := NewTablePartService(spec.TableID, spec.Columns, spec.Rows,
		spec.Rules, spec.TotalRules, holder, m.logger)
	if err != nil {
		return nil, err
	}
	if spec.KeyColumn != "" {
		if err := service.SetImportKeyColumn(spec.KeyColumn); err != nil {
			return nil, err
		}
	}

	m.open[spec.TableID] = service
	m.logger.Infof("Opened table part '%s' (%s) with %d rows", spec.TableID, spec.DocumentType, len(spec.Rows))
	return service, nil
}

// Get returns an open service by table id.
func (m *ServiceManager) Get(tableID string) (*TablePartService, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	service, ok := m.open[tableID]
	return service, ok
}

// Close persists the table's configuration, releases the dispatcher and
// forgets the service. Rows are the host's to save; nothing else survives
// the close.
func (m *ServiceManager) Close(tableID, user string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	service, ok := m.open[tableID]
	if !ok {
		return fmt.Errorf("table '%s' is not open", tableID)
	}

	if err := m.store.Save(tableID, user, service.Holder().Current()); err != nil {
		m.logger.Warnf("Could not persist configuration for table '%s': %v", tableID, err)
	}

	service.Keyboard().Reset()
	delete(m.open, tableID)
	return nil
}

// defaultTableConfiguration makes every standard command available and puts
// the common row operations on the bar; import, export and print live in the
// overflow until the user promotes them.
func defaultTableConfiguration(tableID, documentType string) *config.TablePartConfiguration {
	cfg := config.DefaultConfiguration(tableID, documentType)

	defs := StandardDefinitions()
	ordered := []string{
		CommandAddRow, CommandDeleteRow, CommandCopyRows, CommandPasteRows,
		CommandMoveRowUp, CommandMoveRowDown, CommandImport, CommandExport, CommandPrint,
	}
	for _, id := range ordered {
		cfg.AvailableCommands = append(cfg.AvailableCommands, defs[id])
	}
	cfg.VisibleCommands = []string{
		CommandAddRow, CommandDeleteRow, CommandMoveRowUp, CommandMoveRowDown,
	}
	return cfg
}
