// Package sessiontest drives several coordinators over an in-memory network
// so session behavior can be tested through exported APIs only.
package sessiontest

import (
	"fmt"
	"testing"

	"gatherandgrow/internal/session"
	"gatherandgrow/internal/sim/tuning"
	"gatherandgrow/internal/transport/loopback"
)

const HostID uint64 = 1

// Harness owns one host and any number of peers. Pump ticks the host first,
// then peers in join order, so a host send in round N is seen by peers in N.
type Harness struct {
	T    *testing.T
	Net  *loopback.Network
	Tune tuning.Tuning
	Host *session.Coordinator

	peers  []*session.Coordinator
	events map[uint64]*Recorder
}

func NewHarness(t *testing.T, tune tuning.Tuning) *Harness {
	t.Helper()
	h := &Harness{
		T:      t,
		Net:    loopback.NewNetwork(),
		Tune:   tune,
		events: map[uint64]*Recorder{},
	}
	h.Host = h.newCoordinator(HostID, "host")
	if err := h.Host.HostStart(); err != nil {
		t.Fatalf("HostStart: %v", err)
	}
	return h
}

func (h *Harness) newCoordinator(id uint64, name string) *session.Coordinator {
	c := session.New(session.Config{LocalID: id, LocalName: name, Tuning: h.Tune}, h.Net.Join(id))
	rec := &Recorder{}
	c.SetEventLogger(rec)
	h.events[id] = rec
	return c
}

// Join connects a new peer and pumps until the lobby handshake settles.
func (h *Harness) Join(id uint64, name string) *session.Coordinator {
	h.T.Helper()
	c := h.newCoordinator(id, name)
	if err := c.Connect(HostID); err != nil {
		h.T.Fatalf("Connect(%d): %v", id, err)
	}
	h.peers = append(h.peers, c)
	h.Pump(2)
	return c
}

func (h *Harness) Peers() []*session.Coordinator { return h.peers }

func (h *Harness) Peer(id uint64) *session.Coordinator {
	for _, p := range h.peers {
		if p.LocalID() == id {
			return p
		}
	}
	h.T.Fatalf("no peer %d", id)
	return nil
}

// Events returns what coordinator id has logged so far.
func (h *Harness) Events(id uint64) *Recorder { return h.events[id] }

func (h *Harness) Dt() float32 { return h.Tune.TickSeconds() }

// Pump runs n rounds at the configured tick rate.
func (h *Harness) Pump(n int) {
	for i := 0; i < n; i++ {
		h.Host.OnTick(h.Dt())
		for _, p := range h.peers {
			p.OnTick(h.Dt())
		}
	}
}

// PumpUntil runs rounds until cond holds or max rounds pass.
func (h *Harness) PumpUntil(max int, cond func() bool) bool {
	for i := 0; i < max; i++ {
		if cond() {
			return true
		}
		h.Pump(1)
	}
	return cond()
}

// Start begins the match on the host and delivers the first snapshot.
func (h *Harness) Start(seed int64) {
	h.T.Helper()
	if err := h.Host.StartGame(seed); err != nil {
		h.T.Fatalf("StartGame: %v", err)
	}
	h.Pump(1)
	for _, p := range h.peers {
		if p.Phase() != session.PhasePlaying {
			h.T.Fatalf("peer %d phase=%s after start", p.LocalID(), p.Phase())
		}
	}
}

// Recorder is an in-memory session.EventLogger.
type Recorder struct {
	Events []session.Event
}

func (r *Recorder) WriteEvent(e session.Event) error {
	r.Events = append(r.Events, e)
	return nil
}

func (r *Recorder) Count(kind string) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) String() string { return fmt.Sprintf("%+v", r.Events) }
