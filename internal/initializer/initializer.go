// Package initializer runs the interactive configuration wizard.
package initializer

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/shaharia-lab/audicord/internal/config"
	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/shaharia-lab/audicord/internal/theme"
)

// AskFunc asks a single question; survey.AskOne in production
type AskFunc func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error

// Initializer handles the interactive setup process
type Initializer struct {
	Config       config.Config
	IsUpdateMode bool

	configManager config.Manager
	log           logger.Logger
	theme         theme.Theme
	ask           AskFunc
}

// NewInitializer creates a new initializer with default dependencies
func NewInitializer(log logger.Logger, t theme.Theme, configManager config.Manager) *Initializer {
	return &Initializer{
		log:           logger.OrDiscard(log),
		theme:         t,
		configManager: configManager,
		ask:           survey.AskOne,
	}
}

// WithAsker replaces the prompt function
func (i *Initializer) WithAsker(ask AskFunc) *Initializer {
	i.ask = ask
	return i
}

// Run walks through every section, validates the result and saves it
func (i *Initializer) Run() error {
	i.IsUpdateMode = i.configManager.Exists()
	i.Config = config.Default()

	if i.IsUpdateMode {
		cfg, err := i.configManager.LoadFile()
		if err != nil {
			i.log.Warn("Existing configuration could not be loaded, starting from defaults", map[string]interface{}{logger.ErrorKey: err})
		} else {
			i.Config = cfg
		}
		i.theme.Primary().Println("Configuration Update Mode")
		i.theme.Warning().Println("Press Enter to keep current values, or provide new ones.")
	} else {
		i.theme.Primary().Println("Initial Configuration")
		i.theme.Info().Println("You can always change the configuration later with 'audicord init'.")
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"player", i.ConfigurePlayer},
		{"discord", i.ConfigureDiscord},
		{"logging", i.ConfigureLogging},
		{"history", i.ConfigureHistory},
		{"http", i.ConfigureHTTP},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("error configuring %s: %w", step.name, err)
		}
	}

	if err := i.Config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := i.configManager.Save(i.Config); err != nil {
		return fmt.Errorf("error saving configuration: %w", err)
	}

	i.log.Info("Configuration saved", map[string]interface{}{"path": i.configManager.Path()})
	i.theme.Success().Println("\nConfiguration updated successfully!")
	return nil
}

// IsInterrupt reports whether err comes from the user pressing Ctrl+C
func IsInterrupt(err error) bool {
	return errors.Is(err, errInterrupt)
}
