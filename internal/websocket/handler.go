package websocket

import (
	"net/http"

	log "github.com/sirupsen/logrus"
)

// handleWebsocket upgrades the request and runs the client's pumps.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		log.WithError(err).WithField("origin", r.Header.Get("Origin")).Warn("websocket upgrade failed")
		return
	}

	client := newClient(s.hub, s.keepalive, s.dispatcher, conn)
	log.WithFields(log.Fields{"conn": client.id, "remoteAddr": conn.RemoteAddr()}).Debug("client connected")

	s.keepalive.Track(client)
	s.hub.Register(client)

	go client.writePump()
	client.readPump()
}

// healthHandler responds to Docker health checks. It fails once the
// upstream session is gone, since the process can no longer do its job.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	status, body := http.StatusOK, "OK"
	if !s.upstream.IsOpen() {
		status, body = http.StatusServiceUnavailable, "mpd session closed"
	}

	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		log.WithError(err).Warn("failed to write health check response")
	}
}
