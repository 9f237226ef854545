package websocket

import (
	"context"

	gompd "github.com/fhs/gompd/v2/mpd"
	log "github.com/sirupsen/logrus"

	"skidoodle/mpd-ws/internal/mpd"
)

// snapshotter is the read side of the state store.
type snapshotter interface {
	Snapshot() mpd.State
}

// Hub manages the set of active clients and broadcasts messages.
// All membership changes and broadcasts run on the Run goroutine, so a
// broadcast pass never overlaps a registration or an eviction.
type Hub struct {
	clients    map[*Client]struct{}
	source     snapshotter
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a new Hub priming new clients from source.
func NewHub(source snapshotter) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		source:     source,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
	}
}

// Subscribe forwards every change reported by store to all clients.
func (h *Hub) Subscribe(store *mpd.Store) {
	store.OnState(func(ps mpd.PlaybackState) { h.publish(stateMessage(ps)) })
	store.OnVolume(func(vol int) { h.publish(volumeMessage(vol)) })
	store.OnCurrentSong(func(track gompd.Attrs) { h.publish(currentSongMessage(track)) })
	store.OnStatus(func(status gompd.Attrs) { h.publish(statusMessage(status)) })
}

// Run starts the hub's event loop. It must be run in a separate goroutine.
func (h *Hub) Run(ctx context.Context) {
	log.Info("hub started")
	defer log.Info("hub stopped")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAllConnections()
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			log.WithFields(log.Fields{"conn": client.id, "clients": len(h.clients)}).Debug("client registered")
			h.prime(client)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				log.WithFields(log.Fields{"conn": client.id, "clients": len(h.clients)}).Debug("client unregistered")
			}
		case msg := <-h.broadcast:
			h.broadcastMessage(msg)
		}
	}
}

// Register adds a client. It receives the current snapshot before any later broadcast.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a client. Unknown clients are ignored.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends msg to every ready client. It returns once the hub has
// queued msg for all of them.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func (h *Hub) publish(msg []byte, err error) {
	if err != nil {
		log.WithError(err).Error("failed to encode notification")
		return
	}
	h.Broadcast(msg)
}

func (h *Hub) prime(c *Client) {
	msgs, err := snapshotMessages(h.source.Snapshot())
	if err != nil {
		log.WithError(err).Error("failed to encode snapshot")
		return
	}
	for _, msg := range msgs {
		if !c.trySend(msg) {
			log.WithField("conn", c.id).Debug("client not ready for snapshot")
			return
		}
	}
}

// broadcastMessage queues msg on every client; clients that are closed or
// backed up are skipped.
func (h *Hub) broadcastMessage(msg []byte) {
	for client := range h.clients {
		if !client.trySend(msg) {
			log.WithField("conn", client.id).Debug("skipping client that is not ready")
		}
	}
}

// closeAllConnections closes all active client connections during shutdown.
func (h *Hub) closeAllConnections() {
	for client := range h.clients {
		client.closeConn()
	}
	clear(h.clients)
}
