// Package media holds the player-agnostic track and playback types shared by
// the D-Bus watcher and the Discord bridge.
package media

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Metadata keys read from the MPRIS Metadata property
const (
	KeyTitle  = "xesam:title"
	KeyAlbum  = "xesam:album"
	KeyArtist = "xesam:artist"
)

var (
	// ErrNoTrackData is returned when the player reports none of title, album or artist
	ErrNoTrackData = errors.New("no track data returned")

	// ErrUnknownStatus is returned for a PlaybackStatus value outside the MPRIS set
	ErrUnknownStatus = errors.New("unknown playback status")
)

// MediaInfo describes the track currently loaded in the player
type MediaInfo struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
}

// String renders the track as "artist - title on album"
func (m MediaInfo) String() string {
	on := ""
	if m.Album != "" {
		on = " on "
	}
	return fmt.Sprintf("%s - %s%s%s", m.Artist, m.Title, on, m.Album)
}

// Equal reports whether two infos describe the same track
func (m MediaInfo) Equal(other MediaInfo) bool {
	return m.Title == other.Title && m.Artist == other.Artist && m.Album == other.Album
}

// ParseMetadata extracts a MediaInfo from an already unwrapped Metadata map.
// Values of the wrong type are treated as missing.
func ParseMetadata(md map[string]any) (MediaInfo, error) {
	title, hasTitle := md[KeyTitle].(string)
	album, hasAlbum := md[KeyAlbum].(string)
	artists, hasArtist := md[KeyArtist].([]string)

	if !hasTitle && !hasAlbum && !hasArtist {
		return MediaInfo{}, ErrNoTrackData
	}

	return MediaInfo{
		Title:  title,
		Album:  album,
		Artist: strings.Join(artists, " & "),
	}, nil
}

// Update is a single observation of the player
type Update struct {
	// Info is nil when the player is not playing or paused
	Info   *MediaInfo
	Status PlaybackStatus
	At     time.Time
}

// NewUpdate stamps an update with the current time
func NewUpdate(info *MediaInfo, status PlaybackStatus) Update {
	return Update{Info: info, Status: status, At: time.Now()}
}
