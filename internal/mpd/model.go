package mpd

import (
	"fmt"

	gompd "github.com/fhs/gompd/v2/mpd"
)

// PlaybackState is the player state reported by the daemon's "state" field.
type PlaybackState string

const (
	StatePlay  PlaybackState = "play"
	StateStop  PlaybackState = "stop"
	StatePause PlaybackState = "pause"
)

// ParsePlaybackState maps a raw "state" value onto a known PlaybackState.
func ParsePlaybackState(s string) (PlaybackState, error) {
	switch PlaybackState(s) {
	case StatePlay, StateStop, StatePause:
		return PlaybackState(s), nil
	}
	return "", fmt.Errorf("unknown playback state %q", s)
}

// State is an immutable snapshot of everything the bridge knows about the player.
// TrackInfo and StatusInfo are nil until the first matching record arrives.
type State struct {
	Playback   PlaybackState
	Volume     int
	TrackInfo  gompd.Attrs
	StatusInfo gompd.Attrs
}

func initialState() *State {
	return &State{Playback: StateStop}
}
