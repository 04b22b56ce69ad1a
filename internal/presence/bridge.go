// Package presence mirrors player updates into Discord Rich Presence.
package presence

import (
	"context"
	"time"

	"github.com/shaharia-lab/audicord/internal/discord"
	"github.com/shaharia-lab/audicord/internal/logger"
	"github.com/shaharia-lab/audicord/internal/media"
)

const clearTimeout = 2 * time.Second

// Recorder stores plays; history.Store implements it
type Recorder interface {
	Record(ctx context.Context, info media.MediaInfo, at time.Time) (bool, error)
}

// Bridge consumes updates and drives the presence backend
type Bridge struct {
	presence discord.Presence
	history  Recorder
	state    *State
	log      logger.Logger
}

// NewBridge creates a bridge. history may be nil to disable recording.
func NewBridge(p discord.Presence, history Recorder, state *State, log logger.Logger) *Bridge {
	if state == nil {
		state = NewState()
	}
	return &Bridge{
		presence: p,
		history:  history,
		state:    state,
		log:      logger.OrDiscard(log).WithField("component", "presence"),
	}
}

func (b *Bridge) State() *State {
	return b.state
}

// Run applies updates until in is closed or ctx is cancelled, then clears
// the activity.
func (b *Bridge) Run(ctx context.Context, in <-chan media.Update) error {
	defer b.clearOnExit()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-in:
			if !ok {
				return nil
			}
			b.apply(ctx, u)
		}
	}
}

func (b *Bridge) apply(ctx context.Context, u media.Update) {
	b.state.Set(u)

	if u.Info == nil || u.Status != media.Playing {
		err := b.presence.ClearActivity(ctx)
		b.state.SetError(err)
		if err != nil {
			b.log.Error("Failed to clear activity", map[string]interface{}{logger.ErrorKey: err})
			return
		}
		b.log.Debug("Activity cleared", map[string]interface{}{"status": u.Status.String()})
		return
	}

	activity := media.NewActivity(*u.Info)
	err := b.presence.SetActivity(ctx, activity)
	b.state.SetError(err)
	if err != nil {
		b.log.Error("Failed to set activity", map[string]interface{}{logger.ErrorKey: err, "details": activity.Details})
	} else {
		b.log.Debug("Activity set", map[string]interface{}{"details": activity.Details, "state": activity.State})
	}

	if b.history == nil {
		return
	}
	added, err := b.history.Record(ctx, *u.Info, u.At)
	if err != nil {
		b.log.Warn("Failed to record play", map[string]interface{}{logger.ErrorKey: err})
		return
	}
	if added {
		b.log.Debug("Play recorded", map[string]interface{}{"track": u.Info.String()})
	}
}

func (b *Bridge) clearOnExit() {
	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()

	if err := b.presence.ClearActivity(ctx); err != nil {
		b.log.Debug("Failed to clear activity on exit", map[string]interface{}{logger.ErrorKey: err})
	}
}
