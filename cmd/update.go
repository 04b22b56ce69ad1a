package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/shaharia-lab/audicord/internal/cli"
	"github.com/shaharia-lab/audicord/internal/config"
	"github.com/shaharia-lab/audicord/internal/theme"
	"github.com/spf13/cobra"
)

// NewUpdateCmd creates a new update command
func NewUpdateCmd(c *cli.Container) *cobra.Command {
	var yes bool

	updateCmd := &cobra.Command{
		Version: c.Config.Version.VersionText(),
		Use:     "update",
		Short:   "Check for updates and update Audicord",
		Long:    "Check for updates and if a new version is available, download and install it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(c.Theme(), c.Config.Repository, c.Config.Version.Version, yes)
		},
	}

	updateCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Install without asking")
	return updateCmd
}

func runUpdate(t theme.Theme, repository config.Repository, currentAppVersion string, yes bool) error {
	slug := fmt.Sprintf("%s/%s", repository.Owner, repository.Repo)
	t.Info().Printf("Checking for updates for %s... [Current version: %s]\n", slug, currentAppVersion)

	latest, found, err := selfupdate.DetectLatest(slug)
	if err != nil {
		return fmt.Errorf("error detecting version: %w", err)
	}

	if !found || latest == nil {
		t.Warning().Println("No releases found")
		return nil
	}

	if !isNewer(latest.Version, currentAppVersion) {
		t.Success().Printf("Current version (%s) is the latest\n", currentAppVersion)
		return nil
	}

	t.Primary().Printf("New version available: %s (current: %s)\n", latest.Version, currentAppVersion)
	if notes := strings.TrimSpace(latest.ReleaseNotes); notes != "" {
		t.Subtle().Printf("Release notes:\n%s\n", notes)
	}

	if !yes {
		confirm := false
		if err := survey.AskOne(&survey.Confirm{Message: "Do you want to update?", Default: true}, &confirm); err != nil {
			return err
		}
		if !confirm {
			t.Warning().Println("Update cancelled")
			return nil
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("could not locate executable path: %w", err)
	}

	t.Info().Println("Downloading and installing update...")
	if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
		return fmt.Errorf("error updating binary: %w", err)
	}

	t.Success().Printf("Successfully updated to version %s\n", latest.Version)
	t.Info().Println("Restart a running Audicord to use the new version.")
	return nil
}

// isNewer reports whether latest is ahead of current. A current version that
// is not semver, such as a development build, is always behind.
func isNewer(latest semver.Version, current string) bool {
	cur, err := semver.ParseTolerant(current)
	if err != nil {
		return true
	}
	return latest.GT(cur)
}
