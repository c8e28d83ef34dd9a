package commands

import (
	"github.com/Joseda-hg/lazygtd/internal/config"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string

	// DataDirSet reports that --data-dir was given explicitly, which then
	// wins over db_path from the config file.
	DataDirSet bool
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	path, err := config.DefaultConfigPath()
	if err != nil {
		return "lazygtd.yaml"
	}
	return path
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dir, err := config.DefaultDataDir()
	if err != nil {
		return "."
	}
	return dir
}
