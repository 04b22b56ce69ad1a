package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file
const (
	EnvPlayerService = "AUDICORD_PLAYER_SERVICE"
	EnvClientID      = "AUDICORD_CLIENT_ID"
	EnvLogLevel      = "AUDICORD_LOG_LEVEL"
	EnvSocketPath    = "AUDICORD_SOCKET"
	EnvHTTPPort      = "AUDICORD_HTTP_PORT"
	EnvCallTimeout   = "AUDICORD_CALL_TIMEOUT"
)

// Manager loads and saves the YAML config file
type Manager interface {
	Load() (Config, error)
	LoadFile() (Config, error)
	Save(Config) error
	Exists() bool
	Path() string
}

// FileManager implements Manager on a single YAML file
type FileManager struct {
	path   string
	getenv func(string) string
}

// NewFileManager creates a manager for the file at path
func NewFileManager(path string) *FileManager {
	return &FileManager{path: path, getenv: os.Getenv}
}

// Path returns the config file location
func (m *FileManager) Path() string {
	return m.path
}

// Load reads the configuration with priority defaults -> file -> env.
// A missing or empty file is created with the defaults.
func (m *FileManager) Load() (Config, error) {
	cfg, err := m.LoadFile()
	if err != nil {
		return cfg, err
	}
	if err := m.applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile reads defaults -> file without environment overrides. Use it
// when the result is written back to disk.
func (m *FileManager) LoadFile() (Config, error) {
	cfg := Default()

	if m.path == "" {
		return cfg, fmt.Errorf("config file path not set")
	}

	data, err := os.ReadFile(m.path)
	switch {
	case os.IsNotExist(err) || (err == nil && len(data) == 0):
		if err := m.Save(cfg); err != nil {
			return cfg, fmt.Errorf("failed to save default config: %w", err)
		}
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Default(), fmt.Errorf("failed to parse config file %s: %w", m.path, err)
		}
	}
	return cfg, nil
}

func (m *FileManager) applyEnv(cfg *Config) error {
	if v := m.getenv(EnvPlayerService); v != "" {
		cfg.Player.Service = v
	}
	if v := m.getenv(EnvClientID); v != "" {
		cfg.Discord.ClientID = v
	}
	if v := m.getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := m.getenv(EnvSocketPath); v != "" {
		cfg.Control.SocketPath = v
	}
	if v := m.getenv(EnvHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHTTPPort, v, err)
		}
		cfg.HTTP.Port = port
		cfg.HTTP.Enabled = true
	}
	if v := m.getenv(EnvCallTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCallTimeout, v, err)
		}
		cfg.Player.CallTimeout = d
	}
	return nil
}

// Save writes the configuration to disk
func (m *FileManager) Save(cfg Config) error {
	if m.path == "" {
		return fmt.Errorf("config file path not set")
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(m.path, yamlData, 0644)
}

// Exists checks if a non-empty configuration file is present
func (m *FileManager) Exists() bool {
	info, err := os.Stat(m.path)
	return err == nil && info.Size() > 0
}
