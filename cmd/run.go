package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/shaharia-lab/audicord/internal/cli"
	"github.com/shaharia-lab/audicord/internal/filesystem"
	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/shaharia-lab/audicord/internal/service"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the command that runs the bridge in this process
func NewRunCmd(c *cli.Container) *cobra.Command {
	var daemonMode bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run Audicord in the foreground",
		Long: `Run the player watcher and the Discord bridge in this process until
interrupted. In the foreground, pressing Enter stops it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.ConfigErr != nil {
				return fmt.Errorf("config file %s is invalid: %w", c.ConfigManager.Path(), c.ConfigErr)
			}

			if !daemonMode {
				if err := c.EnableConsoleLogging(cmd.OutOrStdout()); err != nil {
					return fmt.Errorf("failed to enable console logging: %w", err)
				}
			}
			defer c.Logger.Sync()

			svc, err := service.New(service.Options{
				Settings:    c.Settings,
				SocketPath:  c.SocketPath(),
				HistoryPath: c.Paths[filesystem.HistoryDBPath],
				Logger:      c.Logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !daemonMode && isatty.IsTerminal(os.Stdin.Fd()) {
				var cancel context.CancelFunc
				ctx, cancel = stopOnEnter(ctx, os.Stdin)
				defer cancel()
				c.Theme().Subtle().Println("Press Enter to stop.")
			}

			if err := svc.Run(ctx); err != nil {
				c.Logger.Error("Audicord exited with error", map[string]interface{}{logger.ErrorKey: err})
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&daemonMode, "daemon", "d", false, "Run detached from a terminal (used by 'audicord start')")
	return cmd
}

// stopOnEnter cancels the returned context when a line is read from r
func stopOnEnter(ctx context.Context, r io.Reader) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		_, _ = bufio.NewReader(r).ReadString('\n')
		cancel()
	}()
	return ctx, cancel
}
