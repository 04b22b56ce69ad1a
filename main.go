package main

import (
	"fmt"
	"os"

	"github.com/shaharia-lab/audicord/cmd"
	"github.com/shaharia-lab/audicord/internal/cli"
	"github.com/shaharia-lab/audicord/internal/logger"
)

var version = "0.0.1"
var commit = "none"
var date = "unknown"

func main() {
	container, err := cli.NewContainer(cli.InitOptions{
		Version: version,
		Commit:  commit,
		Date:    date,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during initialization: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cmd.NewRootCmd(container)
	rootCmd.AddCommand(
		cmd.NewInitCmd(container),
		cmd.NewConfigCmd(container),
		cmd.NewRunCmd(container),
		cmd.NewStartCmd(container),
		cmd.NewStopCmd(container),
		cmd.NewStatusCmd(container),
		cmd.NewNowCmd(container),
		cmd.NewHistoryCmd(container),
		cmd.NewUpdateCmd(container),
	)

	if err := rootCmd.Execute(); err != nil {
		// run may have swapped the logger, so read it from the container
		container.Logger.Error("Audicord exited with error", map[string]interface{}{logger.ErrorKey: err})
		_ = container.Logger.Sync()
		os.Exit(1)
	}
	_ = container.Logger.Sync()
}
