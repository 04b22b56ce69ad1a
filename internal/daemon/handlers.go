package daemon

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// CommandFunc handles one control command. The returned text may span
// several lines.
type CommandFunc func(ctx context.Context, args []string) (response string, err error)

// DefaultPingHandler is a simple ping handler that responds with "PONG".
func DefaultPingHandler(ctx context.Context, args []string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("ping cancelled: %w", ctx.Err())
	default:
		return "PONG", nil
	}
}

// MakeDefaultStatusHandler reports connections, registered commands and uptime.
func MakeDefaultStatusHandler(d *Daemon) CommandFunc {
	return func(ctx context.Context, args []string) (string, error) {
		d.connMu.RLock()
		connCount := len(d.connections)
		d.connMu.RUnlock()

		d.cmdMu.RLock()
		cmdNames := make([]string, 0, len(d.commands))
		for name := range d.commands {
			cmdNames = append(cmdNames, name)
		}
		d.cmdMu.RUnlock()

		sort.Strings(cmdNames)

		uptime := time.Duration(0)
		if !d.startedAt.IsZero() {
			uptime = time.Since(d.startedAt).Truncate(time.Second)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("status cancelled: %w", ctx.Err())
		default:
			return fmt.Sprintf(
				"Connections: %d active (Limit: %d)\nCommands: %d registered (%s)\nUptime: %s",
				connCount,
				d.config.MaxConnections,
				len(cmdNames),
				strings.Join(cmdNames, ", "),
				uptime,
			), nil
		}
	}
}

// MakeDefaultStopHandler acknowledges STOP. The connection handler stops the
// daemon once the reply has been written.
func MakeDefaultStopHandler(d *Daemon) CommandFunc {
	return func(ctx context.Context, args []string) (string, error) {
		d.logger.Info("STOP received on control socket", nil)
		return "Daemon stop initiated.", nil
	}
}
