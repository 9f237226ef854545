package mpd

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	cmdIdle        = "idle"
	cmdNoIdle      = "noidle"
	cmdStatus      = "status"
	cmdCurrentSong = "currentsong"
	cmdNext        = "next"
	cmdPrevious    = "previous"
	cmdPause       = "pause"
	cmdSetVol      = "setvol"
	cmdStop        = "stop"
)

// Sequencer issues commands to a session parked in "idle". Every command is
// wrapped as noidle / command / idle and written in a single Write call, so
// the daemon is always listening again once the command completes.
type Sequencer struct {
	w  io.Writer
	mu sync.Mutex
	// doubleSetVol sends setvol twice per SetVolume call.
	doubleSetVol bool
}

// NewSequencer creates a Sequencer writing to w.
func NewSequencer(w io.Writer, doubleSetVol bool) *Sequencer {
	return &Sequencer{w: w, doubleSetVol: doubleSetVol}
}

// Idle re-enters the long-poll listen without interrupting anything.
func (s *Sequencer) Idle() error {
	return s.write(cmdIdle + "\n")
}

// Next advances to the next track.
func (s *Sequencer) Next() error {
	return s.bracket(cmdNext)
}

// Previous goes back to the previous track.
func (s *Sequencer) Previous() error {
	return s.bracket(cmdPrevious)
}

// Pause pauses (1) or resumes (0) playback. Other values are passed through
// and refused by the daemon with an ACK.
func (s *Sequencer) Pause(mode int) error {
	return s.bracket(fmt.Sprintf("%s %d", cmdPause, mode))
}

// SetVolume sets the mixer volume. The value is passed through unchecked;
// the daemon answers out-of-range values with an ACK.
func (s *Sequencer) SetVolume(volume int) error {
	cmd := fmt.Sprintf("%s %d", cmdSetVol, volume)
	if s.doubleSetVol {
		return s.bracket(cmd, cmd)
	}
	return s.bracket(cmd)
}

// Status requests the full player status.
func (s *Sequencer) Status() error {
	return s.bracket(cmdStatus)
}

// CurrentSong requests the metadata of the loaded track.
func (s *Sequencer) CurrentSong() error {
	return s.bracket(cmdCurrentSong)
}

// Stop stops playback.
func (s *Sequencer) Stop() error {
	return s.bracket(cmdStop)
}

// Refresh requests status followed by the current track.
func (s *Sequencer) Refresh() error {
	if err := s.Status(); err != nil {
		return err
	}
	return s.CurrentSong()
}

func (s *Sequencer) bracket(cmds ...string) error {
	var b strings.Builder
	b.WriteString(cmdNoIdle)
	b.WriteByte('\n')
	for _, c := range cmds {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	b.WriteString(cmdIdle)
	b.WriteByte('\n')
	return s.write(b.String())
}

func (s *Sequencer) write(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.w, msg); err != nil {
		return fmt.Errorf("write %q: %w", strings.TrimSpace(msg), err)
	}
	return nil
}
