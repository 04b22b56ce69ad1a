package presence

import (
	"fmt"
	"sync"
	"time"

	"github.com/shaharia-lab/audicord/internal/media"
)

// Snapshot is a point-in-time copy of the bridge state
type Snapshot struct {
	Status    string           `json:"status"`
	Track     *media.MediaInfo `json:"track,omitempty"`
	Since     time.Time        `json:"since"`
	Updates   int              `json:"updates"`
	LastError string           `json:"last_error,omitempty"`
}

// Line renders the snapshot as a single line for the control socket
func (s Snapshot) Line() string {
	if s.Track == nil {
		return s.Status
	}
	return fmt.Sprintf("%s: %s", s.Status, s.Track.String())
}

// State is shared between the bridge, the control socket and the HTTP server
type State struct {
	mu       sync.RWMutex
	status   media.PlaybackStatus
	track    *media.MediaInfo
	since    time.Time
	updates  int
	lastErr  error
	observed bool
}

func NewState() *State {
	return &State{status: media.Closed, since: time.Now()}
}

// Set stores the latest update. since only moves when status or track change.
func (s *State) Set(u media.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var track *media.MediaInfo
	if u.Info != nil {
		info := *u.Info
		track = &info
	}

	if !s.observed || s.status != u.Status || !sameTrack(s.track, track) {
		s.since = u.At
	}
	s.status = u.Status
	s.track = track
	s.updates++
	s.observed = true
}

// SetError records the outcome of the last Discord call; nil clears it
func (s *State) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Status:  s.status.String(),
		Since:   s.since,
		Updates: s.updates,
	}
	if s.track != nil {
		info := *s.track
		snap.Track = &info
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

func sameTrack(a, b *media.MediaInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
