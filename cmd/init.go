package cmd

import (
	"fmt"

	"github.com/shaharia-lab/audicord/internal/cli"
	"github.com/shaharia-lab/audicord/internal/initializer"
	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/spf13/cobra"
)

// NewInitCmd creates an interactive init command
func NewInitCmd(c *cli.Container) *cobra.Command {
	cmd := &cobra.Command{
		Version: c.Config.Version.VersionText(),
		Use:     "init",
		Short:   "Configure Audicord with a guided setup",
		Long:    `Start an interactive wizard that writes the Audicord configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Logger.Info("Starting initialization", nil)
			t := c.Theme()

			if err := initializer.NewInitializer(c.Logger, t, c.ConfigManager).Run(); err != nil {
				if initializer.IsInterrupt(err) {
					t.Warning().Println("\nInitialization cancelled, nothing was saved.")
					return nil
				}
				c.Logger.Error("Initialization failed", map[string]interface{}{logger.ErrorKey: err})
				t.Error().Println(fmt.Sprintf("Initialization failed: %v", err))
				return err
			}

			c.Logger.Info("Initialization complete", nil)
			t.Info().Println("\nRun 'audicord start' to start in the background.")
			t.Info().Println("Restart a running Audicord ('audicord stop' then 'audicord start') to apply the changes.")
			return nil
		},
	}

	return cmd
}
