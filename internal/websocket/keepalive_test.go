package websocket

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

type fakePeer struct {
	id     uuid.UUID
	mu     sync.Mutex
	pings  int
	closed bool
}

func newFakePeer() *fakePeer {
	return &fakePeer{id: uuid.New()}
}

func (p *fakePeer) ID() uuid.UUID { return p.id }

func (p *fakePeer) Ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pings++
	return nil
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func TestKeepalive_SilentPeerEvicted(t *testing.T) {
	k := NewKeepalive(0)
	p := newFakePeer()
	k.Track(p)

	k.Sweep()
	if p.isClosed() {
		t.Fatal("new peer must survive the first sweep")
	}
	if p.pings != 1 {
		t.Fatalf("expected one ping, got %d", p.pings)
	}

	k.Sweep()
	if !p.isClosed() {
		t.Fatal("peer that missed a probe must be evicted")
	}
	if k.Len() != 0 {
		t.Errorf("expected no tracked peers, got %d", k.Len())
	}

	k.Sweep()
	if p.pings != 1 {
		t.Errorf("evicted peer must not be probed again, got %d pings", p.pings)
	}
}

func TestKeepalive_ResponsivePeerKept(t *testing.T) {
	k := NewKeepalive(0)
	p := newFakePeer()
	k.Track(p)

	for i := 0; i < 10; i++ {
		k.Sweep()
		k.Ack(p.ID())
	}

	if p.isClosed() {
		t.Fatal("peer that answers every probe must never be evicted")
	}
	if p.pings != 10 {
		t.Errorf("expected 10 pings, got %d", p.pings)
	}
}

func TestKeepalive_MixedPeers(t *testing.T) {
	k := NewKeepalive(0)
	live, dead := newFakePeer(), newFakePeer()
	k.Track(live)
	k.Track(dead)

	k.Sweep()
	k.Ack(live.ID())
	k.Sweep()

	if live.isClosed() {
		t.Error("responsive peer was evicted")
	}
	if !dead.isClosed() {
		t.Error("silent peer was kept")
	}
	if k.Len() != 1 {
		t.Errorf("expected 1 tracked peer, got %d", k.Len())
	}
}

func TestKeepalive_UntrackAndUnknownAck(t *testing.T) {
	k := NewKeepalive(0)
	p := newFakePeer()
	k.Track(p)
	k.Untrack(p.ID())

	k.Ack(p.ID())
	k.Ack(uuid.New())
	if k.Len() != 0 {
		t.Fatalf("ack must not start tracking, got %d peers", k.Len())
	}

	k.Sweep()
	if p.pings != 0 || p.isClosed() {
		t.Error("untracked peer must be left alone")
	}
}

func TestNewKeepalive_DefaultInterval(t *testing.T) {
	if k := NewKeepalive(-1); k.interval != DefaultKeepaliveInterval {
		t.Errorf("expected default interval, got %v", k.interval)
	}
}
