// Package cli wires the application dependencies shared by the commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/shaharia-lab/audicord/internal/config"
	"github.com/shaharia-lab/audicord/internal/filesystem"
	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/shaharia-lab/audicord/internal/theme"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.AppConfig
	Settings      config.Config
	ConfigManager config.Manager
	Filesystem    *filesystem.Filesystem
	Paths         map[filesystem.PathType]string
	Logger        logger.Logger
	ThemeMgr      *theme.Manager

	// ConfigErr is set when the config file could not be parsed; Settings
	// then holds the defaults.
	ConfigErr error
}

// InitOptions contains options for initialization
type InitOptions struct {
	Version string
	Commit  string
	Date    string
	Theme   theme.Theme

	// Console receives console log output when enabled; nil means stdout
	Console io.Writer
}

// NewContainer creates and initializes all application dependencies. The
// logger starts file-only; commands that run in the foreground call
// EnableConsoleLogging.
func NewContainer(opts InitOptions) (*Container, error) {
	if opts.Version == "" {
		return nil, fmt.Errorf("version is required")
	}

	c := &Container{
		Config: config.NewDefaultConfig(config.WithVersion(config.Version{
			Version: opts.Version,
			Commit:  opts.Commit,
			Date:    opts.Date,
		})),
		ThemeMgr: theme.NewManager(opts.Theme),
	}

	c.Filesystem = filesystem.NewAppFilesystem(c.Config)

	var err error
	c.Paths, err = c.Filesystem.EnsureAllPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to ensure all application paths: %w", err)
	}

	c.ConfigManager = config.NewFileManager(c.Paths[filesystem.ConfigFilePath])
	c.Settings, c.ConfigErr = c.ConfigManager.Load()

	c.Logger, err = c.buildLogger(false, opts.Console)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if c.ConfigErr != nil {
		c.Logger.Warn("Config file is invalid, using defaults", map[string]interface{}{
			"path":          c.ConfigManager.Path(),
			logger.ErrorKey: c.ConfigErr,
		})
	}

	return c, nil
}

// EnableConsoleLogging replaces the logger with one that also writes to the
// console, unless log.console is off in the config.
func (c *Container) EnableConsoleLogging(console io.Writer) error {
	if !c.Settings.Log.Console {
		return nil
	}
	l, err := c.buildLogger(true, console)
	if err != nil {
		return err
	}
	_ = c.Logger.Sync()
	c.Logger = l
	return nil
}

func (c *Container) buildLogger(useConsole bool, console io.Writer) (logger.Logger, error) {
	if console == nil {
		console = os.Stdout
	}
	return logger.NewZapLogger(logger.Config{
		LogLevel:   logger.LogLevel(c.Settings.Log.Level),
		FilePath:   c.Paths[filesystem.LogsFilePath],
		UseConsole: useConsole,
		Console:    console,
	})
}

// SocketPath is the resolved control socket path
func (c *Container) SocketPath() string {
	return config.ResolveSocketPath(c.Settings.Control.SocketPath)
}

// Theme returns the active theme
func (c *Container) Theme() theme.Theme {
	return c.ThemeMgr.GetCurrentTheme()
}
