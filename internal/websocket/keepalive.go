package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultKeepaliveInterval is the probe period used when none is configured.
const DefaultKeepaliveInterval = 30 * time.Second

// Peer is a connection the Keepalive can probe and evict.
type Peer interface {
	ID() uuid.UUID
	Ping() error
	Close()
}

// Keepalive evicts connections that miss a probe. Each tick, a peer that
// has not answered the previous ping is closed; every other peer has its
// liveness flag cleared and is pinged again.
type Keepalive struct {
	interval time.Duration

	mu    sync.Mutex
	peers map[uuid.UUID]Peer
	alive map[uuid.UUID]bool
}

// NewKeepalive creates a Keepalive probing every interval.
func NewKeepalive(interval time.Duration) *Keepalive {
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	return &Keepalive{
		interval: interval,
		peers:    make(map[uuid.UUID]Peer),
		alive:    make(map[uuid.UUID]bool),
	}
}

// Track starts probing p. New peers count as alive until they miss a probe.
func (k *Keepalive) Track(p Peer) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.peers[p.ID()] = p
	k.alive[p.ID()] = true
}

// Untrack stops probing the peer with the given id.
func (k *Keepalive) Untrack(id uuid.UUID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.peers, id)
	delete(k.alive, id)
}

// Ack marks the peer as alive. It is called when a pong arrives.
func (k *Keepalive) Ack(id uuid.UUID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.alive[id]; ok {
		k.alive[id] = true
	}
}

// Len returns the number of tracked peers.
func (k *Keepalive) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.peers)
}

// Run starts the probe loop. It must be run in a separate goroutine.
func (k *Keepalive) Run(ctx context.Context) {
	log.WithField("interval", k.interval).Info("keepalive started")
	defer log.Info("keepalive stopped")

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.Sweep()
		}
	}
}

// Sweep runs a single probe round.
func (k *Keepalive) Sweep() {
	var evict, probe []Peer

	k.mu.Lock()
	for id, p := range k.peers {
		if !k.alive[id] {
			evict = append(evict, p)
			delete(k.peers, id)
			delete(k.alive, id)
			continue
		}
		k.alive[id] = false
		probe = append(probe, p)
	}
	k.mu.Unlock()

	for _, p := range evict {
		log.WithField("conn", p.ID()).Debug("evicting unresponsive client")
		p.Close()
	}
	for _, p := range probe {
		if err := p.Ping(); err != nil {
			log.WithError(err).WithField("conn", p.ID()).Debug("failed to send ping")
		}
	}
}
