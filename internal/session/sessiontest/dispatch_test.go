package sessiontest

import (
	"encoding/json"
	"math"
	"testing"

	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/session"
	"gatherandgrow/internal/sim/tuning"
	"gatherandgrow/internal/sim/world"
	"gatherandgrow/internal/transport"
)

func TestDispatch_NonFiniteMoveRejected(t *testing.T) {
	h := NewHarness(t, tuning.Defaults())
	a := h.Join(2, "a")

	raw := h.Net.Join(9)
	_ = raw.Send(HostID, protocol.Encode(protocol.PlayerJoined{PlayerID: 9, Name: "raw"}), protocol.Reliable)
	h.Pump(1)
	if h.Host.World().Player(9) == nil {
		t.Fatalf("raw endpoint did not join")
	}
	h.Start(1)

	before := h.Host.World().Player(9).Pos
	rejected := h.Host.Stats().Rejected
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	for _, m := range []protocol.PlayerMove{
		{PlayerID: 9, X: nan, Y: nan},
		{PlayerID: 9, X: 10, Y: inf},
		{PlayerID: 9, X: -inf, Y: 10},
	} {
		_ = raw.Send(HostID, protocol.Encode(m), protocol.Unreliable)
	}
	h.Pump(2)

	if got := h.Host.World().Player(9).Pos; got != before {
		t.Fatalf("host pos=%+v want %+v", got, before)
	}
	if got := h.Host.Stats().Rejected - rejected; got != 3 {
		t.Fatalf("rejected=%d want 3", got)
	}
	if p := a.World().Player(9); p == nil || !p.Pos.Finite() {
		t.Fatalf("peer copy of player 9: %+v", p)
	}
	if _, err := json.Marshal(h.Host.View()); err != nil {
		t.Fatalf("marshal host view: %v", err)
	}

	// A local submit with a bad position is dropped before it reaches the wire.
	local := a.World().Player(2).Pos
	a.SubmitMove(world.Vec2{X: nan, Y: 0})
	h.Pump(2)
	if got := a.World().Player(2).Pos; got != local {
		t.Fatalf("peer local pos=%+v want %+v", got, local)
	}
	if a.Stats().Rejected != 1 {
		t.Fatalf("peer rejected=%d want 1", a.Stats().Rejected)
	}
	if _, err := json.Marshal(a.View()); err != nil {
		t.Fatalf("marshal peer view: %v", err)
	}
}

// refillTransport pushes one more packet for every packet polled, the way a
// busy I/O goroutine keeps the inbox non-empty.
type refillTransport struct {
	q      *transport.Queue
	refill int
}

func (r *refillTransport) Send(uint64, []byte, protocol.Delivery) error { return nil }

func (r *refillTransport) Poll() (transport.Packet, bool, error) {
	p, ok, err := r.q.Pop()
	if ok && r.refill > 0 {
		r.refill--
		r.q.Push(transport.Packet{From: 7, Data: []byte{0xff}})
	}
	return p, ok, err
}

func (r *refillTransport) Pending() int { return r.q.Len() }

func TestDispatch_DrainBoundedPerTick(t *testing.T) {
	tr := &refillTransport{q: transport.NewQueue(), refill: 100}
	for i := 0; i < 3; i++ {
		tr.q.Push(transport.Packet{From: 7, Data: []byte{0xff}})
	}
	c := session.New(session.Config{LocalID: HostID, Tuning: tuning.Defaults()}, tr)
	if err := c.HostStart(); err != nil {
		t.Fatalf("HostStart: %v", err)
	}

	c.OnTick(0.016)
	if got := c.Stats().Malformed; got != 4 {
		t.Fatalf("malformed after one tick=%d want 4", got)
	}
	if tr.Pending() != 3 {
		t.Fatalf("pending=%d want 3", tr.Pending())
	}

	c.OnTick(0.016)
	if got := c.Stats().Malformed; got != 8 {
		t.Fatalf("malformed after two ticks=%d want 8", got)
	}
}

func TestDispatch_HostIgnoresBroadcastKindsFromPeers(t *testing.T) {
	h := NewHarness(t, tuning.Defaults())
	a := h.Join(2, "a")
	h.Start(1)

	raw := h.Net.Join(9)
	_ = raw.Send(HostID, protocol.Encode(protocol.PlayerJoined{PlayerID: 9, Name: "raw"}), protocol.Reliable)
	h.Pump(1)

	_ = raw.Send(HostID, protocol.Encode(protocol.ToolUpgraded{PlayerID: 9, Tool: protocol.ToolAxe, Level: 3}), protocol.Reliable)
	_ = raw.Send(HostID, protocol.Encode(protocol.GameWon{WinnerID: 9}), protocol.Reliable)
	h.Pump(2)

	if h.Host.Phase() != session.PhasePlaying || a.Phase() != session.PhasePlaying {
		t.Fatalf("phase host=%s peer=%s", h.Host.Phase(), a.Phase())
	}
	if _, won := h.Host.WinnerID(); won {
		t.Fatalf("host accepted a forged win")
	}
	if p := h.Host.World().Player(9); p == nil || p.Tools[protocol.ToolAxe] != world.MinToolLevel {
		t.Fatalf("host applied a forged upgrade: %+v", p)
	}
}
