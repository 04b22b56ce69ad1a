package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrCommandFailed wraps an ERROR reply from the daemon
var ErrCommandFailed = errors.New("daemon command failed")

// ConnectionProvider defines an interface for creating connections to the daemon
type ConnectionProvider interface {
	Connect(ctx context.Context) (net.Conn, error)
}

// UnixSocketProvider provides connections to a Unix socket
type UnixSocketProvider struct {
	SocketPath string
	Timeout    time.Duration
}

func (p *UnixSocketProvider) Connect(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: p.Timeout}
	return d.DialContext(ctx, "unix", p.SocketPath)
}

// Client sends single commands to a running daemon
type Client struct {
	Provider     ConnectionProvider
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewClient(provider ConnectionProvider, readTimeout, writeTimeout time.Duration) *Client {
	return &Client{
		Provider:     provider,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}

// NewSocketClient creates a client for the daemon listening on socketPath
func NewSocketClient(socketPath string) *Client {
	return NewClient(&UnixSocketProvider{SocketPath: socketPath, Timeout: 2 * time.Second}, 5*time.Second, 2*time.Second)
}

// Execute sends cmd with args and returns the reply without its "OK: "
// prefix. An "ERROR: " reply is returned as an ErrCommandFailed error.
func (c *Client) Execute(ctx context.Context, cmd string, args []string) (string, error) {
	conn, err := c.Provider.Connect(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if c.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.WriteTimeout)); err != nil {
			return "", fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	line := strings.TrimSpace(strings.Join(append([]string{cmd}, args...), " "))
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}

	if c.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(c.ReadTimeout)); err != nil {
			return "", fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	response, err := readResponse(bufio.NewReader(conn))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case strings.HasPrefix(response, "ERROR:"):
		return "", fmt.Errorf("%w: %s", ErrCommandFailed, strings.TrimSpace(strings.TrimPrefix(response, "ERROR:")))
	case strings.HasPrefix(response, "TIMEOUT:"):
		return "", fmt.Errorf("%w: %s", ErrCommandFailed, response)
	}
	return strings.TrimPrefix(response, "OK: "), nil
}

// Ping reports whether the daemon answers PING
func (c *Client) Ping(ctx context.Context) error {
	response, err := c.Execute(ctx, "PING", nil)
	if err != nil {
		return err
	}
	if response != "PONG" {
		return fmt.Errorf("unexpected response: %s", response)
	}
	return nil
}

// readResponse collects lines up to the end marker. A connection closed
// after some output still yields that output.
func readResponse(r *bufio.Reader) (string, error) {
	var lines []string
	for {
		line, err := r.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if err == nil && trimmed == EndMarker {
			return strings.Join(lines, "\n"), nil
		}
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
		if err != nil {
			if len(lines) > 0 {
				return strings.Join(lines, "\n"), nil
			}
			return "", err
		}
	}
}
