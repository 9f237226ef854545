package mpd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	changedPrefix = "changed:"
	readBufSize   = 4096
)

// ErrSessionClosed is returned once the daemon has closed the connection.
var ErrSessionClosed = errors.New("mpd session closed")

// Options tunes an upstream session.
type Options struct {
	// DoubleSetVol issues setvol twice per volume change.
	DoubleSetVol bool
	// DialTimeout bounds connection establishment. Zero means no timeout.
	DialTimeout time.Duration
}

// Session is the single connection to the daemon. It frames the inbound
// stream, feeds records to the Store and keeps the daemon parked in idle.
type Session struct {
	conn      net.Conn
	framer    Framer
	store     *Store
	seq       *Sequencer
	closeOnce sync.Once
}

// Dial connects to the daemon at addr and returns a session ready to Run.
func Dial(ctx context.Context, addr string, store *Store, opts Options) (*Session, error) {
	d := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial mpd at %s: %w", addr, err)
	}
	return NewSession(conn, store, opts), nil
}

// NewSession wraps an established connection. The daemon's greeting
// triggers the initial status and current song refresh.
func NewSession(conn net.Conn, store *Store, opts Options) *Session {
	s := &Session{
		conn:  conn,
		store: store,
		seq:   NewSequencer(conn, opts.DoubleSetVol),
	}
	store.OnSessionOpened(s.refresh)
	return s
}

// Sequencer returns the command writer bound to this session.
func (s *Session) Sequencer() *Sequencer {
	return s.seq
}

// Run reads from the daemon until the transport fails or ctx is cancelled.
// Records are handled strictly in arrival order on the calling goroutine.
// A nil error means ctx ended the session.
func (s *Session) Run(ctx context.Context) error {
	logger := log.WithField("remoteAddr", s.conn.RemoteAddr())
	logger.Info("mpd session started")
	defer logger.Info("mpd session stopped")

	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	buf := make([]byte, readBufSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			for _, rec := range s.framer.Feed(buf[:n]) {
				s.handle(rec)
			}
		}
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			s.store.Close(nil)
			return nil
		}
		if errors.Is(err, io.EOF) {
			err = ErrSessionClosed
		}
		s.store.Close(err)
		return fmt.Errorf("read from mpd: %w", err)
	}
}

// Close shuts the transport down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := s.conn.Close(); err != nil {
			log.WithError(err).Debug("error while closing mpd connection")
		}
	})
}

func (s *Session) handle(rec Record) {
	switch rec.Kind {
	case RecordGreeting:
		log.WithField("version", rec.Detail).Info("mpd greeted session")
		s.store.Open()
	case RecordFailure:
		ack := ParseAck(rec.Detail)
		log.WithFields(log.Fields{
			"code":    int(ack.Code),
			"index":   ack.CommandListIndex,
			"command": ack.CommandName,
			"reason":  ack.Message,
		}).Warn("mpd command failed")
		if err := s.seq.Idle(); err != nil {
			log.WithError(err).Error("failed to resume idle")
		}
	default:
		s.store.Apply(rec.Body)
		if strings.HasPrefix(rec.Body, changedPrefix) {
			s.refresh()
		}
	}
}

func (s *Session) refresh() {
	if err := s.seq.Refresh(); err != nil {
		log.WithError(err).Error("failed to request status refresh")
	}
}
