package media

import "fmt"

// Activity is the text shown under the user's Discord profile
type Activity struct {
	Details string
	// State is empty when the track has no album
	State string
}

// NewActivity builds the presence text for a playing track
func NewActivity(mi MediaInfo) Activity {
	activity := Activity{
		Details: fmt.Sprintf("Playing %s - %s", mi.Artist, mi.Title),
	}
	if mi.Album != "" {
		activity.State = fmt.Sprintf("From %s", mi.Album)
	}
	return activity
}
