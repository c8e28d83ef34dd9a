package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath string     `yaml:"db_path"`
	User   string     `yaml:"user"`
	Web    WebConfig  `yaml:"web"`
	Chat   ChatConfig `yaml:"chat"`
	Sync   SyncConfig `yaml:"sync"`
}

type WebConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ChatConfig describes the AI CLI the chat panel shells out to. Args may
// contain the {{prompt}} placeholder; without it the prompt is appended.
type ChatConfig struct {
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout"`
	History int           `yaml:"history"`
}

type SyncConfig struct {
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

func Default() Config {
	return Config{
		User: os.Getenv("USER"),
		Web:  WebConfig{Port: 8080},
		Chat: ChatConfig{
			Command: "claude",
			Args:    []string{"-p", "{{prompt}}", "--output-format", "stream-json", "--verbose"},
			Timeout: 2 * time.Minute,
			History: 20,
		},
		Sync: SyncConfig{ReconnectDelay: 2 * time.Second},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/lazygtd/config.yaml.
func DefaultConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "lazygtd", "config.yaml"), nil
}

// DefaultDataDir returns $XDG_DATA_HOME/lazygtd.
func DefaultDataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "lazygtd"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		errs = append(errs, fmt.Errorf("web.port %d out of range", c.Web.Port))
	}
	if strings.TrimSpace(c.Chat.Command) == "" {
		errs = append(errs, errors.New("chat.command is required"))
	}
	if c.Chat.Timeout <= 0 {
		errs = append(errs, errors.New("chat.timeout must be positive"))
	}
	if c.Chat.History < 0 {
		errs = append(errs, errors.New("chat.history must not be negative"))
	}
	if c.Sync.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("sync.reconnect_delay must be positive"))
	}
	return errors.Join(errs...)
}
