// Package daemon implements the line based control socket of a running
// audicord process and the client used by the CLI to talk to it.
package daemon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/shaharia-lab/audicord/internal/logger"
)

// EndMarker terminates every response written on the socket
const EndMarker = "END"

type Config struct {
	SocketPath         string
	ShutdownTimeout    time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CommandExecTimeout time.Duration
	// MaxConnections limits concurrent clients; zero means unlimited
	MaxConnections int
	Logger         logger.Logger
}

type Daemon struct {
	config      Config
	listener    net.Listener
	stopOnce    sync.Once
	stopChan    chan struct{}
	stopped     chan struct{}
	wg          sync.WaitGroup
	connections map[net.Conn]struct{}
	connMu      sync.RWMutex
	commands    map[string]CommandFunc
	cmdMu       sync.RWMutex
	startedAt   time.Time
	logger      logger.Logger
}

func NewDaemon(cfg Config) *Daemon {
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.CommandExecTimeout == 0 {
		cfg.CommandExecTimeout = 5 * time.Second
	}

	d := &Daemon{
		config:      cfg,
		stopChan:    make(chan struct{}),
		stopped:     make(chan struct{}),
		connections: make(map[net.Conn]struct{}),
		commands:    make(map[string]CommandFunc),
		logger:      cfg.Logger.WithField("component", "control"),
	}

	d.RegisterCommand("PING", DefaultPingHandler)
	d.RegisterCommand("STATUS", MakeDefaultStatusHandler(d))
	d.RegisterCommand("STOP", MakeDefaultStopHandler(d))
	return d
}

func (d *Daemon) RegisterCommand(name string, handler CommandFunc) {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()
	upperName := strings.ToUpper(name)
	if _, exists := d.commands[upperName]; exists {
		d.logger.Debug("Overwriting existing command handler", map[string]interface{}{"command": upperName})
	}
	d.commands[upperName] = handler
}

// SocketPath returns the path the daemon listens on
func (d *Daemon) SocketPath() string {
	return d.config.SocketPath
}

// Done is closed once Stop has begun, whether triggered by STOP or the owner
func (d *Daemon) Done() <-chan struct{} {
	return d.stopChan
}

// Start binds the socket and serves clients in the background
func (d *Daemon) Start() error {
	select {
	case <-d.stopChan:
		return errors.New("daemon is stopped or stopping")
	default:
	}

	if err := os.MkdirAll(filepath.Dir(d.config.SocketPath), 0700); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	if err := os.RemoveAll(d.config.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove existing socket %s: %w", d.config.SocketPath, err)
	}

	listener, err := net.Listen("unix", d.config.SocketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", d.config.SocketPath, err)
	}

	if err := os.Chmod(d.config.SocketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions for %s: %w", d.config.SocketPath, err)
	}

	d.listener = listener
	d.startedAt = time.Now()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.acceptConnections()
	}()

	d.logger.Info("Control socket listening", map[string]interface{}{"path": d.config.SocketPath})
	return nil
}

// Stop closes the listener and all clients, waits for handlers up to
// ShutdownTimeout and removes the socket file. Safe to call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Debug("Stopping control socket", nil)
		close(d.stopChan)

		if d.listener != nil {
			if err := d.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				d.logger.Warn("Error closing listener", map[string]interface{}{logger.ErrorKey: err})
			}
		}

		d.closeConnections()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), d.config.ShutdownTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-shutdownCtx.Done():
			d.logger.Warn("Shutdown timeout exceeded waiting for control clients", nil)
		}

		if d.listener != nil {
			if err := os.RemoveAll(d.config.SocketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				d.logger.Warn("Failed to remove socket file", map[string]interface{}{"path": d.config.SocketPath, logger.ErrorKey: err})
			}
		}

		d.logger.Info("Control socket stopped", nil)
		close(d.stopped)
	})
}

// Wait blocks until Stop has finished
func (d *Daemon) Wait() {
	<-d.stopped
}

func (d *Daemon) closeConnections() {
	d.connMu.Lock()
	conns := make([]net.Conn, 0, len(d.connections))
	for conn := range d.connections {
		conns = append(conns, conn)
	}
	d.connections = make(map[net.Conn]struct{})
	d.connMu.Unlock()

	for _, c := range conns {
		_ = c.SetDeadline(time.Now())
		c.Close()
	}
}

func (d *Daemon) acceptConnections() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.stopChan:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			d.logger.Error("Control socket accept error", map[string]interface{}{logger.ErrorKey: err})
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if !d.track(conn) {
			continue
		}

		d.wg.Add(1)
		go func(c net.Conn) {
			defer d.wg.Done()
			d.handleConnection(c)
		}(conn)
	}
}

// track registers conn, rejecting it when stopping or over the limit
func (d *Daemon) track(conn net.Conn) bool {
	select {
	case <-d.stopChan:
		conn.Close()
		return false
	default:
	}

	d.connMu.Lock()
	over := d.config.MaxConnections > 0 && len(d.connections) >= d.config.MaxConnections
	if !over {
		d.connections[conn] = struct{}{}
	}
	d.connMu.Unlock()

	if over {
		d.logger.Warn("Rejecting control client, connection limit reached", map[string]interface{}{"limit": d.config.MaxConnections})
		_ = d.writeResponse(conn, "ERROR: too many connections")
		conn.Close()
		return false
	}
	return true
}

func (d *Daemon) untrack(conn net.Conn) {
	conn.Close()
	d.connMu.Lock()
	delete(d.connections, conn)
	d.connMu.Unlock()
}

func (d *Daemon) handleConnection(conn net.Conn) {
	defer d.untrack(conn)
	reader := bufio.NewReader(conn)

	for {
		select {
		case <-d.stopChan:
			return
		default:
		}

		if d.config.ReadTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(d.config.ReadTimeout)); err != nil {
				return
			}
		}

		commandLine, err := reader.ReadString('\n')
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				_ = d.writeResponse(conn, "TIMEOUT: no command received within timeout")
				return
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				d.logger.Debug("Error reading from control client", map[string]interface{}{logger.ErrorKey: err})
			}
			return
		}

		commandLine = strings.TrimSpace(commandLine)
		if commandLine == "" {
			continue
		}

		parts := strings.Fields(commandLine)
		commandName := strings.ToUpper(parts[0])
		response := d.execute(commandName, parts[1:])

		if err := d.writeResponse(conn, response); err != nil {
			return
		}
		if commandName == "STOP" && strings.HasPrefix(response, "OK:") {
			go d.Stop()
			return
		}
	}
}

// execute runs a command and formats its response line(s)
func (d *Daemon) execute(commandName string, args []string) string {
	d.cmdMu.RLock()
	handler, found := d.commands[commandName]
	d.cmdMu.RUnlock()

	if !found {
		d.logger.Debug("Unknown control command", map[string]interface{}{"command": sanitize(commandName)})
		return "ERROR: unknown command"
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.config.CommandExecTimeout)
	defer cancel()

	type result struct {
		response string
		err      error
	}
	// buffered so a handler finishing after the deadline does not block forever
	done := make(chan result, 1)
	go func() {
		response, err := handler(ctx, args)
		done <- result{response, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}

	if errors.Is(r.err, context.DeadlineExceeded) {
		d.logger.Warn("Control command timed out", map[string]interface{}{"command": commandName, "timeout": d.config.CommandExecTimeout.String()})
		return fmt.Sprintf("TIMEOUT: command '%s' timed out after %v", commandName, d.config.CommandExecTimeout)
	}
	response, err := r.response, r.err
	if err != nil {
		d.logger.Warn("Control command failed", map[string]interface{}{"command": commandName, logger.ErrorKey: err})
		return fmt.Sprintf("ERROR: %v", err)
	}

	d.logger.Debug("Control command executed", map[string]interface{}{"command": commandName, "args": sanitize(strings.Join(args, " "))})
	if commandName == "PING" || strings.HasPrefix(response, "OK:") {
		return response
	}
	return "OK: " + response
}

func (d *Daemon) writeResponse(conn net.Conn, response string) error {
	if d.config.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(d.config.WriteTimeout))
		defer conn.SetWriteDeadline(time.Time{})
	}

	response = strings.TrimRight(response, "\n")
	if _, err := io.WriteString(conn, response+"\n"+EndMarker+"\n"); err != nil {
		d.logger.Debug("Failed to write control response", map[string]interface{}{logger.ErrorKey: err})
		return err
	}
	return nil
}

// sanitize replaces non-printable characters so client input is safe to log
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			return r
		}
		return '?'
	}, s)
}
