package settings

import "sync"

type Arguments struct {
	// The file path where per-table configuration files live
	DataDir string

	// Directory for log files (empty: stdout only)
	LogDir string

	// Directory export files are written to
	ExportDir string

	// User name the persisted table configurations are keyed by
	User string

	// Strongly verbose logging
	Verbose bool

	Debug bool

	Version string
}

var (
	instance *Arguments
	once     sync.Once
)

// GetSettings returns the global settings instance, creating it with
// defaults on first use. main overwrites the fields from command-line flags
// before anything else reads them.
func GetSettings() *Arguments {
	once.Do(func() {
		instance = &Arguments{
			DataDir:   "./datafiles",
			ExportDir: "./exports",
			User:      "default",
			Version:   "0.1.0",
		}
	})
	return instance
}
