package mpris

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/shaharia-lab/audicord/internal/media"
)

// ErrConnectionLost is returned by Run when the session bus goes away
var ErrConnectionLost = errors.New("lost connection to D-Bus")

// Config selects the player to follow
type Config struct {
	// Service is the player's well-known bus name
	Service     string
	CallTimeout time.Duration
	Logger      logger.Logger
}

// Watcher turns player signals into media.Update values
type Watcher struct {
	cfg     Config
	log     logger.Logger
	connect func() (*dbus.Conn, error)
}

// NewWatcher creates a watcher on the session bus
func NewWatcher(cfg Config) *Watcher {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	return &Watcher{
		cfg:     cfg,
		log:     logger.OrDiscard(cfg.Logger).WithField("component", "mpris"),
		connect: func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() },
	}
}

// Run emits an update for the current state, then one per relevant signal,
// until ctx is cancelled or the bus connection drops.
func (w *Watcher) Run(ctx context.Context, out chan<- media.Update) error {
	conn, err := w.connect()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	defer conn.Close()
	w.log.Debug("Connected to session bus", nil)

	propsMatch := []dbus.MatchOption{
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(PropertiesInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	}
	ownerMatch := []dbus.MatchOption{
		dbus.WithMatchSender(busName),
		dbus.WithMatchObjectPath(busPath),
		dbus.WithMatchInterface(busName),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, w.cfg.Service),
	}

	if err := conn.AddMatchSignal(propsMatch...); err != nil {
		return fmt.Errorf("failed to subscribe to PropertiesChanged: %w", err)
	}
	defer conn.RemoveMatchSignal(propsMatch...)

	if err := conn.AddMatchSignal(ownerMatch...); err != nil {
		return fmt.Errorf("failed to subscribe to NameOwnerChanged: %w", err)
	}
	defer conn.RemoveMatchSignal(ownerMatch...)

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	l := &loop{
		service: w.cfg.Service,
		reader:  NewPlayer(conn.Object(w.cfg.Service, ObjectPath), w.cfg.CallTimeout, w.log),
		owner:   w.resolveOwner(ctx, conn),
		out:     out,
		log:     w.log,
	}
	w.log.Info("Watching player", map[string]interface{}{"service": w.cfg.Service, "owner": l.owner})

	return l.run(ctx, signals)
}

// resolveOwner returns the unique name currently holding the player's bus
// name, or "" when the player is not running.
func (w *Watcher) resolveOwner(ctx context.Context, conn *dbus.Conn) string {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.CallTimeout)
	defer cancel()

	var owner string
	err := conn.BusObject().CallWithContext(ctx, getNameOwner, 0, w.cfg.Service).Store(&owner)
	if err != nil {
		w.log.Debug("Player has no owner yet", map[string]interface{}{logger.ErrorKey: err})
		return ""
	}
	return owner
}

// loop holds the per-connection state of a Run
type loop struct {
	service string
	reader  PlayerReader
	owner   string
	out     chan<- media.Update
	log     logger.Logger
}

func (l *loop) run(ctx context.Context, signals <-chan *dbus.Signal) error {
	if err := l.refresh(ctx); err != nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			l.log.Debug("Watcher stopped", nil)
			return nil
		case sig, ok := <-signals:
			if !ok {
				return ErrConnectionLost
			}
			if err := l.handle(ctx, sig); err != nil {
				return nil
			}
		}
	}
}

// handle processes one signal. It only returns an error when ctx is done.
func (l *loop) handle(ctx context.Context, sig *dbus.Signal) error {
	switch sig.Name {
	case nameOwnerChanged:
		name, newOwner, ok := parseOwnerChange(sig.Body)
		if !ok || name != l.service {
			return nil
		}
		l.owner = newOwner
		if newOwner == "" {
			l.log.Info("Player left the bus", map[string]interface{}{"service": l.service})
			return l.emit(ctx, media.NewUpdate(nil, media.Closed))
		}
		l.log.Info("Player joined the bus", map[string]interface{}{"service": l.service, "owner": newOwner})
		return l.refresh(ctx)

	case propertiesChanged:
		if sig.Path != ObjectPath {
			return nil
		}
		if l.owner == "" || sig.Sender != l.owner {
			l.log.Debug("Ignoring signal from another player", map[string]interface{}{"sender": sig.Sender})
			return nil
		}
		if len(sig.Body) > 0 {
			if iface, ok := sig.Body[0].(string); ok && iface != PlayerInterface {
				return nil
			}
		}
		return l.refresh(ctx)
	}
	return nil
}

// refresh re-reads the player and emits what it finds. A metadata read
// failure while playing emits nothing.
func (l *loop) refresh(ctx context.Context) error {
	l.log.Debug("Reading playback status", nil)
	status := l.reader.PlaybackStatus(ctx)

	if !status.Active() {
		l.log.Info("Not playing", map[string]interface{}{"status": status.String()})
		return l.emit(ctx, media.NewUpdate(nil, status))
	}

	info, err := l.reader.Metadata(ctx)
	if err != nil {
		l.log.Warn("Failed to read metadata", map[string]interface{}{logger.ErrorKey: err})
		return ctx.Err()
	}

	l.log.Info(info.String(), map[string]interface{}{"status": status.String()})
	return l.emit(ctx, media.NewUpdate(&info, status))
}

func (l *loop) emit(ctx context.Context, u media.Update) error {
	select {
	case l.out <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseOwnerChange(body []interface{}) (name, newOwner string, ok bool) {
	if len(body) != 3 {
		return "", "", false
	}
	name, ok1 := body[0].(string)
	newOwner, ok2 := body[2].(string)
	return name, newOwner, ok1 && ok2
}
