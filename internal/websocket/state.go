package websocket

import (
	"encoding/json"

	gompd "github.com/fhs/gompd/v2/mpd"

	"skidoodle/mpd-ws/internal/mpd"
)

// Keys of the client-facing notifications. Every message carries exactly one.
const (
	keyState       = "state"
	keyVolume      = "volume"
	keyCurrentSong = "currentsong"
	keyStatus      = "status"
)

func newNotification(key string, value any) ([]byte, error) {
	return json.Marshal(map[string]any{key: value})
}

func stateMessage(ps mpd.PlaybackState) ([]byte, error) {
	return newNotification(keyState, ps)
}

func volumeMessage(vol int) ([]byte, error) {
	return newNotification(keyVolume, vol)
}

func currentSongMessage(track gompd.Attrs) ([]byte, error) {
	return newNotification(keyCurrentSong, attrsOrEmpty(track))
}

func statusMessage(status gompd.Attrs) ([]byte, error) {
	return newNotification(keyStatus, attrsOrEmpty(status))
}

// snapshotMessages renders the priming sequence for a new client:
// state, volume, current song, status.
func snapshotMessages(st mpd.State) ([][]byte, error) {
	builders := []func() ([]byte, error){
		func() ([]byte, error) { return stateMessage(st.Playback) },
		func() ([]byte, error) { return volumeMessage(st.Volume) },
		func() ([]byte, error) { return currentSongMessage(st.TrackInfo) },
		func() ([]byte, error) { return statusMessage(st.StatusInfo) },
	}

	msgs := make([][]byte, 0, len(builders))
	for _, build := range builders {
		msg, err := build()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// attrsOrEmpty keeps "not yet known" serialized as {} rather than null.
func attrsOrEmpty(a gompd.Attrs) gompd.Attrs {
	if a == nil {
		return gompd.Attrs{}
	}
	return a
}
