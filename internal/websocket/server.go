package websocket

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"skidoodle/mpd-ws/internal/mpd"
)

const shutdownTimeout = 10 * time.Second

// upstream is what the server needs from the state store.
type upstream interface {
	snapshotter
	IsOpen() bool
}

// Options configures a Server.
type Options struct {
	Addr              string
	AllowedOrigins    []string
	KeepaliveInterval time.Duration
}

// Server is the main application orchestrator.
type Server struct {
	addr       string
	httpServer *http.Server
	upstream   upstream
	hub        *Hub
	keepalive  *Keepalive
	dispatcher *Dispatcher
	upgrader   websocket.Upgrader
}

// NewServer creates a new, fully configured WebSocket server. Store changes
// are fanned out to clients and client requests are sent through cmd.
func NewServer(opts Options, store *mpd.Store, cmd Commander) *Server {
	hub := NewHub(store)
	hub.Subscribe(store)

	s := &Server{
		addr:       opts.Addr,
		upstream:   store,
		hub:        hub,
		keepalive:  NewKeepalive(opts.KeepaliveInterval),
		dispatcher: NewDispatcher(cmd),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return s
}

// originChecker allows every origin when the list is empty.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}

// Handler returns the HTTP routes served by the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			s.handleWebsocket(w, r)
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Upgrade", "websocket")
		w.Header().Set("Connection", "Upgrade")
		w.WriteHeader(http.StatusUpgradeRequired)
		if _, err := w.Write([]byte("426 Upgrade Required")); err != nil {
			log.WithError(err).Warn("failed to write upgrade required response")
		}
	})
	return mux
}

// Start runs the hub and the keepalive monitor until ctx is done. The
// returned WaitGroup completes once both have stopped.
func (s *Server) Start(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()

	go func() {
		defer wg.Done()
		s.keepalive.Run(ctx)
	}()

	return &wg
}

// Run starts the server and its components.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg := s.Start(ctx)

	go func() {
		<-ctx.Done()
		log.Info("shutdown signal received, stopping http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("http server shutdown error")
		}
	}()

	log.WithField("addr", s.addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	wg.Wait()

	return nil
}
