package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shaharia-lab/audicord/internal/cli"
	"github.com/shaharia-lab/audicord/internal/daemon"
	"github.com/shaharia-lab/audicord/internal/filesystem"
	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/shaharia-lab/audicord/internal/presence"
	"github.com/spf13/cobra"
)

const (
	startTimeout = 10 * time.Second
	stopTimeout  = 10 * time.Second
	pollInterval = 100 * time.Millisecond
)

// NewStartCmd starts Audicord as a background process
func NewStartCmd(c *cli.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start Audicord in the background",
		Long:  `Start a detached Audicord process that keeps running after the terminal closes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := c.Theme()
			socketPath := c.SocketPath()

			if daemon.IsRunning(socketPath, c.Logger) {
				t.Info().Println("Audicord is already running")
				return nil
			}

			pid, err := daemon.StartBackground("run", "--daemon")
			if err != nil {
				c.Logger.Error("Failed to start background process", map[string]interface{}{logger.ErrorKey: err})
				t.Error().Printf("Failed to start Audicord: %v\n", err)
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), startTimeout)
			defer cancel()
			if err := daemon.WaitUntilRunning(ctx, socketPath, pollInterval); err != nil {
				t.Error().Printf("Audicord (PID %d) did not come up, see %s\n", pid, c.Paths[filesystem.LogsFilePath])
				return err
			}

			c.Logger.Info("Started in background", map[string]interface{}{"pid": pid, "socket": socketPath})
			t.Success().Printf("Audicord started in the background (PID: %d). Listening on %s\n", pid, socketPath)
			return nil
		},
	}
}

// NewStopCmd asks a running Audicord to shut down
func NewStopCmd(c *cli.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running Audicord",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := c.Theme()
			socketPath := c.SocketPath()

			if !daemon.IsRunning(socketPath, c.Logger) {
				t.Warning().Println("Audicord is not running")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), stopTimeout)
			defer cancel()

			resp, err := daemon.NewSocketClient(socketPath).Execute(ctx, "STOP", nil)
			if err != nil {
				return fmt.Errorf("failed to send stop command: %w", err)
			}
			t.Info().Println(resp)

			if err := waitUntilStopped(ctx, socketPath); err != nil {
				return err
			}
			t.Success().Println("Audicord stopped")
			return nil
		},
	}
}

// NewStatusCmd shows the state of the running Audicord
func NewStatusCmd(c *cli.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether Audicord is running and what it shows on Discord",
		RunE: func(cmd *cobra.Command, args []string) error {
			socketPath := c.SocketPath()
			out := cmd.OutOrStdout()

			if !daemon.IsRunning(socketPath, c.Logger) {
				renderStatus(out, false, "", nil)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			client := daemon.NewSocketClient(socketPath)
			control, err := client.Execute(ctx, "STATUS", nil)
			if err != nil {
				return fmt.Errorf("failed to query status: %w", err)
			}
			snap, err := fetchSnapshot(ctx, client)
			if err != nil {
				return err
			}

			renderStatus(out, true, control, &snap)
			return nil
		},
	}
}

// NewNowCmd prints the current snapshot as JSON
func NewNowCmd(c *cli.Container) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "now",
		Short: "Print what Audicord currently shows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			resp, err := daemon.NewSocketClient(c.SocketPath()).Execute(ctx, "NOW", nil)
			if err != nil {
				if isConnectionError(err) {
					return daemon.ErrNotRunning
				}
				return err
			}

			if short {
				var snap presence.Snapshot
				if err := json.Unmarshal([]byte(resp), &snap); err != nil {
					return fmt.Errorf("invalid NOW reply: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), snap.Line())
				return nil
			}

			var buf bytes.Buffer
			if err := json.Indent(&buf, []byte(resp), "", "  "); err != nil {
				return fmt.Errorf("invalid NOW reply: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print a single line instead of JSON")
	return cmd
}

func fetchSnapshot(ctx context.Context, client *daemon.Client) (presence.Snapshot, error) {
	var snap presence.Snapshot
	resp, err := client.Execute(ctx, "NOW", nil)
	if err != nil {
		return snap, fmt.Errorf("failed to query now playing: %w", err)
	}
	if err := json.Unmarshal([]byte(resp), &snap); err != nil {
		return snap, fmt.Errorf("invalid NOW reply: %w", err)
	}
	return snap, nil
}

func waitUntilStopped(ctx context.Context, socketPath string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for daemon.IsRunning(socketPath, nil) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("audicord did not stop in time: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

func renderStatus(w io.Writer, running bool, control string, snap *presence.Snapshot) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Component", "Status", "Details"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgCyanColor},
	)

	green := []tablewriter.Colors{{}, {tablewriter.Bold, tablewriter.FgGreenColor}, {}}
	red := []tablewriter.Colors{{}, {tablewriter.Bold, tablewriter.FgRedColor}, {}}
	yellow := []tablewriter.Colors{{}, {tablewriter.Bold, tablewriter.FgYellowColor}, {}}

	if !running {
		table.Rich([]string{"Audicord", "Not running", "-"}, red)
		table.Render()
		return
	}

	table.Rich([]string{"Audicord", "Running", strings.ReplaceAll(control, "\n", ", ")}, green)

	playerColor := yellow
	if snap.Status == "Playing" {
		playerColor = green
	}
	details := "-"
	if snap.Track != nil {
		details = snap.Track.String()
	}
	table.Rich([]string{"Player", snap.Status, details}, playerColor)
	table.Append([]string{"Since", snap.Since.Local().Format(time.DateTime), fmt.Sprintf("%d updates", snap.Updates)})

	if snap.LastError != "" {
		table.Rich([]string{"Discord", "Error", snap.LastError}, red)
	} else {
		table.Rich([]string{"Discord", "OK", "-"}, green)
	}
	table.Render()
}

// isConnectionError reports whether err means nothing listens on the socket
func isConnectionError(err error) bool {
	return !errors.Is(err, daemon.ErrCommandFailed) && strings.Contains(err.Error(), "failed to connect")
}
