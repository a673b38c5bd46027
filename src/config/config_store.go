package config

import (
	"fmt"
	"os"
	"path/filepath"

	"tabledit/src/helpers"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// ConfigStore persists table part configurations keyed by table id and user.
// This is the only state the engine expects an external store to keep; rows
// and trees are rebuilt every time a document section opens.
type ConfigStore interface {
	Load(tableID, user string) (*TablePartConfiguration, error)
	Save(tableID, user string, cfg *TablePartConfiguration) error
	Remove(tableID, user string) error
}

// ConfigStorageEngine stores one bson file per (table, user) pair under the
// data directory.
type ConfigStorageEngine struct {
	DataDirectory string
	registry      *FileRegistry
	logger        *zap.SugaredLogger
}

func NewConfigStore(dataDir string, logger *zap.SugaredLogger) (*ConfigStorageEngine, error) {
	store := &ConfigStorageEngine{
		DataDirectory: dataDir,
		registry:      NewFileRegistry(logger),
		logger:        logger,
	}

	// Ensure the data directory exists
	if err := os.MkdirAll(store.DataDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", store.DataDirectory, err)
	}

	return store, nil
}

func configKey(tableID, user string) string {
	return tableID + "/" + user
}

func (s *ConfigStorageEngine) configFilePath(tableID, user string) string {
	return filepath.Join(s.DataDirectory, fmt.Sprintf("%s_%s.cfg", tableID, user))
}

// Load reads the persisted configuration for the table and user. A missing
// file is not an error: the caller gets defaults for the table.
func (s *ConfigStorageEngine) Load(tableID, user string) (*TablePartConfiguration, error) {
	filePath := s.configFilePath(tableID, user)
	if !helpers.FileExists(filePath, s.logger) {
		return nil, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading configuration file %s: %w", filePath, err)
	}

	var cfg TablePartConfiguration
	if err := bson.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error decoding configuration file %s: %w", filePath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("persisted configuration for table '%s' is invalid: %w", tableID, err)
	}

	s.registry.Register(configKey(tableID, user), filePath)
	return &cfg, nil
}

// Save validates and writes the configuration for the table and user.
func (s *ConfigStorageEngine) Save(tableID, user string, cfg *TablePartConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid configuration: %w", err)
	}

	data, err := bson.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding configuration for table '%s': %w", tableID, err)
	}

	filePath := s.configFilePath(tableID, user)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("error writing configuration file %s: %w", filePath, err)
	}

	key := configKey(tableID, user)
	if _, ok := s.registry.Lookup(key); ok {
		s.registry.Touch(key)
	} else {
		s.registry.Register(key, filePath)
	}
	return nil
}

// Remove deletes the persisted configuration, if any.
func (s *ConfigStorageEngine) Remove(tableID, user string) error {
	filePath := s.configFilePath(tableID, user)
	if !helpers.FileExists(filePath, s.logger) {
		return nil
	}
	if err := helpers.DeleteDataFile(filePath); err != nil {
		return fmt.Errorf("error removing configuration file %s: %w", filePath, err)
	}
	_ = s.registry.Remove(configKey(tableID, user))
	return nil
}
