// Package service runs the bridge between the player and Discord together
// with its control socket and optional HTTP status server.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/shaharia-lab/audicord/internal/config"
	"github.com/shaharia-lab/audicord/internal/daemon"
	"github.com/shaharia-lab/audicord/internal/discord"
	"github.com/shaharia-lab/audicord/internal/history"
	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/shaharia-lab/audicord/internal/media"
	"github.com/shaharia-lab/audicord/internal/mpris"
	"github.com/shaharia-lab/audicord/internal/presence"
	"github.com/shaharia-lab/audicord/internal/webserver"
	"golang.org/x/sync/errgroup"
)

// updateBuffer is the capacity of the channel between watcher and bridge
const updateBuffer = 25

// ErrAlreadyRunning is returned when another instance owns the control socket
var ErrAlreadyRunning = errors.New("audicord is already running")

// Source produces player updates until ctx ends; mpris.Watcher implements it
type Source interface {
	Run(ctx context.Context, out chan<- media.Update) error
}

// Options configures a Service. Source and Presence default to the D-Bus
// watcher and the Discord IPC client.
type Options struct {
	Settings    config.Config
	SocketPath  string
	HistoryPath string
	Logger      logger.Logger

	Source   Source
	Presence discord.Presence
}

// Service owns every long running component of a bridge process
type Service struct {
	opts     Options
	log      logger.Logger
	state    *presence.State
	control  *daemon.Daemon
	source   Source
	presence discord.Presence

	// set while Run is active
	store *history.Store
	webMu sync.Mutex
	web   *webserver.WebServer
}

// New builds a service without starting anything
func New(opts Options) (*Service, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.SocketPath == "" {
		return nil, fmt.Errorf("control socket path is required")
	}
	if opts.Settings.History.Enabled && opts.HistoryPath == "" {
		return nil, fmt.Errorf("history is enabled but no database path is set")
	}

	log := logger.OrDiscard(opts.Logger)
	s := &Service{
		opts:     opts,
		log:      log,
		state:    presence.NewState(),
		source:   opts.Source,
		presence: opts.Presence,
	}

	if s.source == nil {
		s.source = mpris.NewWatcher(mpris.Config{
			Service:     opts.Settings.Player.Service,
			CallTimeout: opts.Settings.Player.CallTimeout,
			Logger:      log,
		})
	}
	if s.presence == nil {
		s.presence = discord.NewClient(discord.Config{
			ClientID: opts.Settings.Discord.ClientID,
			Logger:   log,
		})
	}

	s.control = daemon.NewDaemon(daemon.Config{
		SocketPath:     opts.SocketPath,
		MaxConnections: 10,
		Logger:         log,
	})
	s.control.RegisterCommand("NOW", NowCommand(s.state))
	return s, nil
}

// State returns the shared presence state
func (s *Service) State() *presence.State {
	return s.state
}

// Control returns the control socket daemon
func (s *Service) Control() *daemon.Daemon {
	return s.control
}

// HTTPAddr returns the bound HTTP address, or "" when the server is off
func (s *Service) HTTPAddr() string {
	s.webMu.Lock()
	defer s.webMu.Unlock()
	if s.web == nil {
		return ""
	}
	return s.web.Addr
}

// Run starts all components and blocks until ctx is cancelled, a STOP
// command arrives or the player source fails. Only a source failure is
// returned as an error. A Service runs once.
func (s *Service) Run(ctx context.Context) error {
	if daemon.IsRunning(s.opts.SocketPath, s.log) {
		return fmt.Errorf("%w (socket %s)", ErrAlreadyRunning, s.opts.SocketPath)
	}

	var recorder presence.Recorder
	if s.opts.Settings.History.Enabled {
		store, err := history.Open(s.opts.HistoryPath)
		if err != nil {
			return err
		}
		s.store = store
		recorder = store
		defer s.closeStore()
	}

	defer func() {
		if err := s.presence.Close(); err != nil {
			s.log.Warn("Failed to close Discord connection", map[string]interface{}{logger.ErrorKey: err})
		}
	}()

	if s.opts.Settings.HTTP.Enabled {
		if err := s.startHTTP(); err != nil {
			return err
		}
		defer s.stopHTTP()
	}

	if err := s.control.Start(); err != nil {
		return fmt.Errorf("failed to start control socket: %w", err)
	}
	defer s.control.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := presence.NewBridge(s.presence, recorder, s.state, s.log)
	updates := make(chan media.Update, updateBuffer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(updates)
		if err := s.source.Run(gctx, updates); err != nil {
			return fmt.Errorf("player watcher stopped: %w", err)
		}
		// a source that returns on its own ends the process too
		cancel()
		return nil
	})
	g.Go(func() error {
		return bridge.Run(gctx, updates)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.control.Done():
			s.log.Info("Stop requested over control socket", nil)
			cancel()
		}
		return nil
	})

	s.log.Info("Audicord running", map[string]interface{}{
		"player": s.opts.Settings.Player.Service,
		"socket": s.opts.SocketPath,
	})

	err := g.Wait()
	s.log.Info("Audicord stopping", nil)
	return err
}

func (s *Service) startHTTP() error {
	ws := webserver.NewWebServer(s.opts.Settings.HTTP.Port, s.log)
	handler := &webserver.StatusHandler{State: s.state}
	if s.store != nil {
		handler.History = s.store
	}
	handler.Register(ws)

	if err := ws.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	s.webMu.Lock()
	s.web = ws
	s.webMu.Unlock()
	return nil
}

func (s *Service) stopHTTP() {
	s.webMu.Lock()
	ws := s.web
	s.web = nil
	s.webMu.Unlock()

	if err := ws.Stop(); err != nil {
		s.log.Warn("HTTP server shutdown failed", map[string]interface{}{logger.ErrorKey: err})
	}
}

func (s *Service) closeStore() {
	if err := s.store.Close(); err != nil {
		s.log.Warn("Failed to close history database", map[string]interface{}{logger.ErrorKey: err})
	}
	s.store = nil
}

// NowCommand answers NOW with the current snapshot as one line of JSON
func NowCommand(state *presence.State) daemon.CommandFunc {
	return func(ctx context.Context, args []string) (string, error) {
		data, err := json.Marshal(state.Snapshot())
		if err != nil {
			return "", fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return string(data), nil
	}
}
