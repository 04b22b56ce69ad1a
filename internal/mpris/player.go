// Package mpris follows a single MPRIS media player on the D-Bus session bus.
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

const (
	ObjectPath          dbus.ObjectPath = "/org/mpris/MediaPlayer2"
	PlayerInterface                     = "org.mpris.MediaPlayer2.Player"
	PropertiesInterface                 = "org.freedesktop.DBus.Properties"

	propertiesGet     = PropertiesInterface + ".Get"
	propertiesChanged = PropertiesInterface + ".PropertiesChanged"

	busName          = "org.freedesktop.DBus"
	busPath          = "/org/freedesktop/DBus"
	nameOwnerChanged = busName + ".NameOwnerChanged"
	getNameOwner     = busName + ".GetNameOwner"
)

// PlayerReader reads the properties the bridge cares about
type PlayerReader interface {
	PlaybackStatus(ctx context.Context) media.PlaybackStatus
	Metadata(ctx context.Context) (media.MediaInfo, error)
}

// Player reads MPRIS properties from one bus object
type Player struct {
	obj     dbus.BusObject
	timeout time.Duration
	log     logger.Logger
}

var _ PlayerReader = (*Player)(nil)

// NewPlayer wraps the player object; every call is bounded by timeout
func NewPlayer(obj dbus.BusObject, timeout time.Duration, log logger.Logger) *Player {
	return &Player{obj: obj, timeout: timeout, log: logger.OrDiscard(log)}
}

func (p *Player) property(ctx context.Context, name string) (dbus.Variant, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var v dbus.Variant
	err := p.obj.CallWithContext(ctx, propertiesGet, 0, PlayerInterface, name).Store(&v)
	return v, err
}

// PlaybackStatus returns Closed when the player cannot be reached or reports
// a value outside the MPRIS set.
func (p *Player) PlaybackStatus(ctx context.Context) media.PlaybackStatus {
	v, err := p.property(ctx, "PlaybackStatus")
	if err != nil {
		p.log.Debug("PlaybackStatus unavailable", map[string]interface{}{logger.ErrorKey: err})
		return media.Closed
	}

	s, ok := v.Value().(string)
	if !ok {
		p.log.Warn("PlaybackStatus has unexpected type", map[string]interface{}{"signature": v.Signature().String()})
		return media.Closed
	}

	status, err := media.ParsePlayback(&s)
	if err != nil {
		p.log.Warn("Unknown playback status", map[string]interface{}{logger.ErrorKey: err})
	}
	return status
}

// Metadata reads and parses the current track's metadata
func (p *Player) Metadata(ctx context.Context) (media.MediaInfo, error) {
	v, err := p.property(ctx, "Metadata")
	if err != nil {
		return media.MediaInfo{}, fmt.Errorf("dbus error: %w", err)
	}

	raw, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return media.MediaInfo{}, errors.New("metadata is not a dictionary")
	}
	return media.ParseMetadata(unwrapVariants(raw))
}

func unwrapVariants(in map[string]dbus.Variant) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v.Value()
	}
	return out
}
