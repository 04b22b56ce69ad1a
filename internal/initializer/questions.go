package initializer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/shaharia-lab/audicord/internal/logger"
)

const mprisPrefix = "org.mpris.MediaPlayer2."

var errInterrupt = terminal.InterruptErr

var logLevels = []string{
	string(logger.DebugLevel),
	string(logger.InfoLevel),
	string(logger.WarnLevel),
	string(logger.ErrorLevel),
}

// ConfigurePlayer asks for the MPRIS bus name of the player
func (i *Initializer) ConfigurePlayer() error {
	i.theme.Info().Println("\nPlayer")

	var service string
	err := i.ask(&survey.Input{
		Message: "MPRIS service name of the player:",
		Default: i.Config.Player.Service,
		Help:    "Audacious registers org.mpris.MediaPlayer2.audacious on the session bus.",
	}, &service, survey.WithValidator(survey.Required), survey.WithValidator(validateService))
	if err != nil {
		return err
	}

	i.Config.Player.Service = strings.TrimSpace(service)
	return nil
}

// ConfigureDiscord asks for the Discord application id
func (i *Initializer) ConfigureDiscord() error {
	i.theme.Info().Println("\nDiscord")

	var clientID string
	err := i.ask(&survey.Input{
		Message: "Discord application (client) ID:",
		Default: i.Config.Discord.ClientID,
		Help:    "The application name is shown as the activity title.",
	}, &clientID, survey.WithValidator(survey.Required), survey.WithValidator(validateNumeric))
	if err != nil {
		return err
	}

	i.Config.Discord.ClientID = strings.TrimSpace(clientID)
	return nil
}

// ConfigureLogging asks for the log level and console output
func (i *Initializer) ConfigureLogging() error {
	i.theme.Info().Println("\nLogging")

	level := i.Config.Log.Level
	if !logger.ValidLevel(level) {
		level = string(logger.DefaultLogLevel)
	}

	var selected string
	if err := i.ask(&survey.Select{
		Message: "Log level:",
		Options: logLevels,
		Default: level,
	}, &selected); err != nil {
		return err
	}

	console := i.Config.Log.Console
	if err := i.ask(&survey.Confirm{
		Message: "Print logs to the terminal when running in the foreground?",
		Default: console,
	}, &console); err != nil {
		return err
	}

	i.Config.Log.Level = selected
	i.Config.Log.Console = console
	return nil
}

// ConfigureHistory asks whether plays are recorded
func (i *Initializer) ConfigureHistory() error {
	enabled := i.Config.History.Enabled
	if err := i.ask(&survey.Confirm{
		Message: "Keep a local history of played tracks?",
		Default: enabled,
	}, &enabled); err != nil {
		return err
	}
	i.Config.History.Enabled = enabled
	return nil
}

// ConfigureHTTP asks whether to serve the local status API and on which port
func (i *Initializer) ConfigureHTTP() error {
	enabled := i.Config.HTTP.Enabled
	if err := i.ask(&survey.Confirm{
		Message: "Serve the now-playing status over HTTP on localhost?",
		Default: enabled,
	}, &enabled); err != nil {
		return err
	}
	i.Config.HTTP.Enabled = enabled
	if !enabled {
		return nil
	}

	var port string
	if err := i.ask(&survey.Input{
		Message: "HTTP port:",
		Default: strconv.Itoa(i.Config.HTTP.Port),
	}, &port, survey.WithValidator(survey.Required), survey.WithValidator(validatePort)); err != nil {
		return err
	}

	n, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	i.Config.HTTP.Port = n
	return nil
}

func validateService(ans interface{}) error {
	s, _ := ans.(string)
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, mprisPrefix) || len(s) == len(mprisPrefix) {
		return fmt.Errorf("service name must start with %s followed by the player name", mprisPrefix)
	}
	return nil
}

func validateNumeric(ans interface{}) error {
	s, _ := ans.(string)
	if _, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64); err != nil {
		return fmt.Errorf("client ID must be a number")
	}
	return nil
}

func validatePort(ans interface{}) error {
	s, _ := ans.(string)
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
