package media

import "fmt"

// PlaybackStatus mirrors the MPRIS PlaybackStatus property, plus Closed for a
// player that is not on the bus at all.
type PlaybackStatus int

const (
	Stopped PlaybackStatus = iota
	Playing
	Paused
	Closed
)

func (s PlaybackStatus) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Closed"
	}
}

// Active reports whether the player has a track loaded
func (s PlaybackStatus) Active() bool {
	return s == Playing || s == Paused
}

// ParsePlayback maps a PlaybackStatus property value. A nil value means the
// property could not be read and yields Closed.
func ParsePlayback(value *string) (PlaybackStatus, error) {
	if value == nil {
		return Closed, nil
	}

	switch *value {
	case "Paused":
		return Paused, nil
	case "Playing":
		return Playing, nil
	case "Stopped":
		return Stopped, nil
	default:
		return Closed, fmt.Errorf("%w: %q", ErrUnknownStatus, *value)
	}
}
