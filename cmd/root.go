package cmd

import (
	"fmt"

	"github.com/shaharia-lab/audicord/internal/cli"
	"github.com/shaharia-lab/audicord/internal/daemon"
	"github.com/shaharia-lab/audicord/internal/theme"
	"github.com/spf13/cobra"
)

// NewRootCmd creates and returns the root command
func NewRootCmd(c *cli.Container) *cobra.Command {
	rootCmd := &cobra.Command{
		Version: c.Config.Version.VersionText(),
		Use:     "audicord",
		Short:   "Show what Audacious is playing on your Discord profile",
		Long: `Audicord follows Audacious over D-Bus (MPRIS) and mirrors the current
track into Discord Rich Presence.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := c.Theme()
			theme.DisplayBanner(t, c.Config)
			fmt.Println("")

			if !c.ConfigManager.Exists() {
				t.Warning().Println("Run 'audicord init' to set up Audicord.")
			}
			if daemon.IsRunning(c.SocketPath(), c.Logger) {
				t.Success().Println("Audicord is running. Use 'audicord status' to see what is playing.")
			} else {
				t.Info().Println("Run 'audicord start' to start in the background, or 'audicord run' to stay in the foreground.")
			}
			return nil
		},
	}

	return rootCmd
}
