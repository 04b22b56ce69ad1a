package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/shaharia-lab/audicord/internal/logger"
)

// ErrNotRunning is returned by commands that need a running daemon
var ErrNotRunning = errors.New("audicord is not running")

// IsRunning checks whether a daemon answers on socketPath. A socket file
// nobody listens on is removed.
func IsRunning(socketPath string, log logger.Logger) bool {
	log = logger.OrDiscard(log)

	if _, err := os.Stat(socketPath); errors.Is(err, os.ErrNotExist) {
		log.Debug("Daemon socket file does not exist", map[string]interface{}{"path": socketPath})
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := NewClient(&UnixSocketProvider{SocketPath: socketPath, Timeout: 500 * time.Millisecond}, time.Second, time.Second)
	err := client.Ping(ctx)
	if err == nil {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if rmErr := os.Remove(socketPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Warn("Failed to remove stale socket file", map[string]interface{}{"path": socketPath, logger.ErrorKey: rmErr})
		} else {
			log.Debug("Removed stale socket file", map[string]interface{}{"path": socketPath})
		}
		return false
	}

	log.Warn("Daemon not responding to PING", map[string]interface{}{logger.ErrorKey: err})
	return false
}

// WaitUntilRunning polls socketPath until the daemon answers or ctx ends
func WaitUntilRunning(ctx context.Context, socketPath string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if IsRunning(socketPath, nil) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("daemon did not come up on %s: %w", socketPath, ctx.Err())
		case <-ticker.C:
		}
	}
}
