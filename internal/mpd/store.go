package mpd

import (
	"maps"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	gompd "github.com/fhs/gompd/v2/mpd"
	log "github.com/sirupsen/logrus"
)

const (
	fieldState   = "state"
	fieldVolume  = "volume"
	fieldTrackID = "Id"
)

// Store holds the current player State and notifies subscribers when a
// tracked value changes. Apply must only be called from one goroutine; reads
// through Snapshot are safe from anywhere.
type Store struct {
	state  atomic.Pointer[State]
	open   atomic.Bool
	closed atomic.Bool

	mu            sync.RWMutex
	onState       []func(PlaybackState)
	onVolume      []func(int)
	onCurrentSong []func(gompd.Attrs)
	onStatus      []func(gompd.Attrs)
	onOpened      []func()
	onClosed      []func(error)
}

// NewStore creates a Store in the initial stopped state with volume 0.
func NewStore() *Store {
	s := &Store{}
	s.state.Store(initialState())
	return s
}

// Snapshot returns the current state. The maps it carries must not be modified.
func (s *Store) Snapshot() State {
	return *s.state.Load()
}

// IsOpen reports whether the upstream session has greeted and not yet closed.
func (s *Store) IsOpen() bool {
	return s.open.Load()
}

// OnState registers fn to run whenever the playback state changes.
func (s *Store) OnState(fn func(PlaybackState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = append(s.onState, fn)
}

// OnVolume registers fn to run whenever the volume changes.
func (s *Store) OnVolume(fn func(int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onVolume = append(s.onVolume, fn)
}

// OnCurrentSong registers fn to run whenever the current track info changes.
func (s *Store) OnCurrentSong(fn func(gompd.Attrs)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCurrentSong = append(s.onCurrentSong, fn)
}

// OnStatus registers fn to run whenever the status map changes.
func (s *Store) OnStatus(fn func(gompd.Attrs)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = append(s.onStatus, fn)
}

// OnSessionOpened registers fn to run when the daemon greets the session.
func (s *Store) OnSessionOpened(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpened = append(s.onOpened, fn)
}

// OnSessionClosed registers fn to run once when the upstream transport is lost.
func (s *Store) OnSessionClosed(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClosed = append(s.onClosed, fn)
}

// Open marks the session as greeted.
func (s *Store) Open() {
	s.open.Store(true)

	s.mu.RLock()
	fns := s.onOpened
	s.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// Close marks the session as gone. Only the first call notifies subscribers.
func (s *Store) Close(err error) {
	s.open.Store(false)
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.mu.RLock()
	fns := s.onClosed
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(err)
	}
}

// Apply parses a record body into fields and updates the tracked state.
// The new State is published before any subscriber runs, and notifications
// fire in the order their lines appeared, followed by current song and status.
func (s *Store) Apply(body string) {
	prev := s.state.Load()
	next := *prev
	fields := make(gompd.Attrs)

	var notify []func()
	for _, line := range strings.Split(body, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		fields[key] = value

		switch key {
		case fieldState:
			ps, err := ParsePlaybackState(value)
			if err != nil {
				log.WithField("value", value).Warn("ignoring unrecognized playback state")
				continue
			}
			if ps != next.Playback {
				next.Playback = ps
				notify = append(notify, func() { s.emitState(ps) })
			}
		case fieldVolume:
			vol, err := strconv.Atoi(value)
			if err != nil {
				log.WithField("value", value).Warn("ignoring non-numeric volume")
				continue
			}
			if vol != next.Volume {
				next.Volume = vol
				notify = append(notify, func() { s.emitVolume(vol) })
			}
		}
	}

	if _, ok := fields[fieldTrackID]; ok {
		track := maps.Clone(fields)
		if !maps.Equal(track, next.TrackInfo) {
			notify = append(notify, func() { s.emitCurrentSong(track) })
		}
		next.TrackInfo = track
	}
	if _, ok := fields[fieldVolume]; ok {
		status := maps.Clone(fields)
		if !maps.Equal(status, next.StatusInfo) {
			notify = append(notify, func() { s.emitStatus(status) })
		}
		next.StatusInfo = status
	}

	s.state.Store(&next)
	for _, fn := range notify {
		fn()
	}
}

func (s *Store) emitState(ps PlaybackState) {
	s.mu.RLock()
	fns := s.onState
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ps)
	}
}

func (s *Store) emitVolume(vol int) {
	s.mu.RLock()
	fns := s.onVolume
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(vol)
	}
}

func (s *Store) emitCurrentSong(track gompd.Attrs) {
	s.mu.RLock()
	fns := s.onCurrentSong
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(track)
	}
}

func (s *Store) emitStatus(status gompd.Attrs) {
	s.mu.RLock()
	fns := s.onStatus
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(status)
	}
}
