package cmd

import (
	"fmt"
	"os"

	"github.com/shaharia-lab/audicord/internal/cli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates a config command
func NewConfigCmd(c *cli.Container) *cobra.Command {
	cfgCmd := &cobra.Command{
		Version: c.Config.Version.VersionText(),
		Use:     "config",
		Short:   "Manage Audicord configuration",
		Long:    `Commands to view your Audicord configuration.`,
	}

	cfgCmd.AddCommand(NewConfigPreviewCmd(c), NewConfigPathCmd(c))
	return cfgCmd
}

// NewConfigPreviewCmd creates a command to preview the config file
func NewConfigPreviewCmd(c *cli.Container) *cobra.Command {
	var effective bool

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview the current configuration file",
		Long: `Display the content of your Audicord configuration file. With --effective,
show the settings after environment overrides are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := c.Theme()
			configPath := c.ConfigManager.Path()
			out := cmd.OutOrStdout()

			var data []byte
			var err error
			if effective {
				data, err = yaml.Marshal(c.Settings)
			} else {
				data, err = os.ReadFile(configPath)
			}
			if err != nil {
				t.Error().Printf("Error reading config file: %v\n", err)
				return err
			}

			t.Primary().Println("\nConfiguration File")
			t.Subtle().Printf("Located at: %s\n\n", configPath)
			fmt.Fprintln(out, string(data))

			if c.ConfigErr != nil {
				t.Warning().Printf("The file is invalid and defaults are in use: %v\n", c.ConfigErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&effective, "effective", false, "Show settings after environment overrides")
	return cmd
}

// NewConfigPathCmd prints where the configuration lives
func NewConfigPathCmd(c *cli.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), c.ConfigManager.Path())
		},
	}
}
