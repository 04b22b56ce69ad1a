package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/shaharia-lab/audicord/internal/media"
)

var (
	// ErrNoSocket is returned when no discord-ipc-N socket accepts a connection
	ErrNoSocket = errors.New("discord IPC socket not found")

	// ErrClosedByPeer is returned when Discord sends a CLOSE frame
	ErrClosedByPeer = errors.New("discord closed the IPC connection")
)

const (
	DefaultTimeout = 5 * time.Second
	maxSocketIndex = 10
)

// Presence is what the bridge needs from a Rich Presence backend
type Presence interface {
	SetActivity(ctx context.Context, activity media.Activity) error
	ClearActivity(ctx context.Context) error
	Close() error
}

// Dialer opens the IPC socket at path
type Dialer func(ctx context.Context, path string) (net.Conn, error)

// Config holds the IPC client settings
type Config struct {
	ClientID string
	// Timeout bounds each request when ctx carries no deadline
	Timeout time.Duration
	Logger  logger.Logger
}

// Client is a lazily connecting IPC client. A failed request drops the
// connection and the next call dials again.
type Client struct {
	cfg    Config
	pid    int
	dial   Dialer
	getenv func(string) string
	nonce  func() string
	log    logger.Logger

	mu   sync.Mutex
	conn net.Conn
}

var _ Presence = (*Client)(nil)

// NewClient creates a client for the given Discord application
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg: cfg,
		pid: os.Getpid(),
		dial: func(ctx context.Context, path string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
		getenv: os.Getenv,
		nonce:  func() string { return uuid.New().String() },
		log:    logger.OrDiscard(cfg.Logger).WithField("component", "discord"),
	}
}

// SetActivity shows the activity on the user's profile
func (c *Client) SetActivity(ctx context.Context, activity media.Activity) error {
	return c.send(ctx, toPayload(activity))
}

// ClearActivity removes any activity set by this client
func (c *Client) ClearActivity(ctx context.Context) error {
	return c.send(ctx, nil)
}

// Connected reports whether a handshaken connection is open
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close sends a CLOSE frame if connected and releases the socket
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = writeFrame(c.conn, OpClose, handshake{V: protocolVersion, ClientID: c.cfg.ClientID})
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) send(ctx context.Context, activity *activityPayload) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return err
		}
	}

	cmd := command{
		Cmd:   cmdSetActivity,
		Args:  setActivityArgs{PID: c.pid, Activity: activity},
		Nonce: c.nonce(),
	}
	if err := c.roundTrip(ctx, cmd); err != nil {
		var rejected *RejectedError
		if !errors.As(err, &rejected) {
			c.dropLocked()
		}
		return err
	}
	return nil
}

// RejectedError carries an ERROR event returned for a command
type RejectedError struct {
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("discord rejected command (code %d): %s", e.Code, e.Message)
}

func (c *Client) roundTrip(ctx context.Context, cmd command) error {
	conn := c.conn
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	if err := writeFrame(conn, OpFrame, cmd); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		op, body, err := readFrame(conn)
		if err != nil {
			return err
		}

		switch op {
		case OpPing:
			if err := writeRawFrame(conn, OpPong, body); err != nil {
				return err
			}
			continue
		case OpClose:
			return ErrClosedByPeer
		case OpFrame:
		default:
			c.log.Debug("Ignoring unexpected frame", map[string]interface{}{"opcode": op.String()})
			continue
		}

		var resp response
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if resp.Nonce != cmd.Nonce {
			c.log.Debug("Skipping frame for another request", map[string]interface{}{"evt": resp.Evt, "cmd": resp.Cmd})
			continue
		}
		if resp.Evt == evtError {
			var data errorData
			_ = json.Unmarshal(resp.Data, &data)
			return &RejectedError{Code: data.Code, Message: data.Message}
		}
		return nil
	}
}

// connect tries each candidate socket and performs the handshake on the first
// one that accepts.
func (c *Client) connect(ctx context.Context) error {
	var lastErr error
	for _, path := range SocketCandidates(c.getenv) {
		conn, err := c.dial(ctx, path)
		if err != nil {
			lastErr = err
			continue
		}

		if err := c.handshake(ctx, conn); err != nil {
			conn.Close()
			c.log.Warn("Discord handshake failed", map[string]interface{}{"path": path, logger.ErrorKey: err})
			lastErr = err
			continue
		}

		c.log.Info("Connected to Discord", map[string]interface{}{"path": path})
		c.conn = conn
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrNoSocket, lastErr)
	}
	return ErrNoSocket
}

func (c *Client) handshake(ctx context.Context, conn net.Conn) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	if err := writeFrame(conn, OpHandshake, handshake{V: protocolVersion, ClientID: c.cfg.ClientID}); err != nil {
		return err
	}

	op, body, err := readFrame(conn)
	if err != nil {
		return err
	}
	if op == OpClose {
		var data errorData
		_ = json.Unmarshal(body, &data)
		return fmt.Errorf("%w: %s", ErrClosedByPeer, data.Message)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("failed to decode handshake reply: %w", err)
	}
	if op != OpFrame || resp.Evt != evtReady {
		return fmt.Errorf("unexpected handshake reply %s/%q", op, resp.Evt)
	}
	return nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// SocketCandidates lists the socket paths Discord may listen on, in the order
// they are tried.
func SocketCandidates(getenv func(string) string) []string {
	base := "/tmp"
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := getenv(key); v != "" {
			base = v
			break
		}
	}

	dirs := []string{
		base,
		filepath.Join(base, "app", "com.discordapp.Discord"),
		filepath.Join(base, "snap.discord"),
	}

	paths := make([]string, 0, len(dirs)*maxSocketIndex)
	for _, dir := range dirs {
		for i := 0; i < maxSocketIndex; i++ {
			paths = append(paths, filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i)))
		}
	}
	return paths
}
