package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"skidoodle/mpd-ws/internal/config"
	"skidoodle/mpd-ws/internal/mpd"
	"skidoodle/mpd-ws/internal/websocket"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()

	if err != nil {
		log.WithError(err).Error("application stopped")
		os.Exit(1)
	}
	log.Info("application shut down gracefully")
}

func logSessionClosed(err error) {
	if err != nil {
		log.WithError(err).Error("mpd session lost")
		return
	}
	log.Info("mpd session closed")
}

func setupLogging(cfg *config.Config) {
	log.SetOutput(os.Stdout)
	log.SetLevel(cfg.Level())
	if cfg.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// run bridges the daemon and the websocket clients until ctx is cancelled or
// either side fails. Losing the daemon is fatal: there is no reconnect.
func run(ctx context.Context, cfg *config.Config) error {
	store := mpd.NewStore()
	store.OnSessionClosed(logSessionClosed)

	session, err := mpd.Dial(ctx, cfg.MPDAddr(), store, mpd.Options{
		DoubleSetVol: cfg.MPD.DoubleSetVol,
		DialTimeout:  cfg.MPD.DialTimeout,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	server := websocket.NewServer(websocket.Options{
		Addr:              ":" + cfg.ServerPort,
		AllowedOrigins:    cfg.AllowedOrigins,
		KeepaliveInterval: cfg.Keepalive,
	}, store, session.Sequencer())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 2)
	go func() { errc <- server.Run(ctx) }()
	go func() { errc <- session.Run(ctx) }()

	first := <-errc
	cancel()
	second := <-errc

	if first != nil {
		return first
	}
	return second
}
