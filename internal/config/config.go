package config

import (
	"fmt"
	"time"
)

const (
	// DefaultPlayerService is the MPRIS bus name of Audacious
	DefaultPlayerService = "org.mpris.MediaPlayer2.audacious"

	// DefaultClientID is the Discord application that owns the presence text
	DefaultClientID = "1048886631823843368"

	DefaultCallTimeout = 5 * time.Second
	DefaultHTTPPort    = 10233
)

// PlayerConfig selects the MPRIS player to follow
type PlayerConfig struct {
	Service     string        `yaml:"service"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// DiscordConfig configures the Rich Presence client
type DiscordConfig struct {
	ClientID string `yaml:"client_id"`
}

// LogConfig configures the application logger
type LogConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

// ControlConfig configures the daemon control socket
type ControlConfig struct {
	// SocketPath may contain $HOME or $XDG_RUNTIME_DIR
	SocketPath string `yaml:"socket_path"`
}

// HTTPConfig configures the optional local status server
type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// HistoryConfig configures the play history store
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Config represents the main configuration
type Config struct {
	Player  PlayerConfig  `yaml:"player"`
	Discord DiscordConfig `yaml:"discord"`
	Log     LogConfig     `yaml:"log"`
	Control ControlConfig `yaml:"control"`
	HTTP    HTTPConfig    `yaml:"http"`
	History HistoryConfig `yaml:"history"`
}

// Default returns the configuration used when no file exists
func Default() Config {
	return Config{
		Player: PlayerConfig{
			Service:     DefaultPlayerService,
			CallTimeout: DefaultCallTimeout,
		},
		Discord: DiscordConfig{
			ClientID: DefaultClientID,
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
		Control: ControlConfig{
			SocketPath: DefaultSocketPath,
		},
		HTTP: HTTPConfig{
			Enabled: false,
			Port:    DefaultHTTPPort,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// Validate checks values that would otherwise fail deep inside a component
func (c Config) Validate() error {
	if c.Player.Service == "" {
		return fmt.Errorf("player.service must not be empty")
	}
	if c.Player.CallTimeout <= 0 {
		return fmt.Errorf("player.call_timeout must be positive, got %s", c.Player.CallTimeout)
	}
	if c.Discord.ClientID == "" {
		return fmt.Errorf("discord.client_id must not be empty")
	}
	for _, r := range c.Discord.ClientID {
		if r < '0' || r > '9' {
			return fmt.Errorf("discord.client_id must be numeric, got %q", c.Discord.ClientID)
		}
	}
	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	return nil
}
