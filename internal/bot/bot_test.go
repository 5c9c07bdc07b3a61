package bot

import (
	"testing"

	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/session"
	"gatherandgrow/internal/session/sessiontest"
	"gatherandgrow/internal/sim/tuning"
	"gatherandgrow/internal/sim/world"
)

func smallTuning() tuning.Tuning {
	t := tuning.Defaults()
	t.MapWidth, t.MapHeight = 800, 800
	t.SpawnMargin = 60
	t.PlayerSpeed = 400
	t.GatherSeconds = [3]float32{0.3, 0.2, 0.2}
	t.NodeCounts = [3]int{12, 10, 8}
	t.RespawnSeconds = 2
	return t
}

func TestBots_PlayMatchToVictory(t *testing.T) {
	tune := smallTuning()
	h := sessiontest.NewHarness(t, tune)
	peer := h.Join(2, "peer")
	bots := []*Bot{New(h.Host, 1, nil), New(peer, 2, nil)}
	h.Start(11)

	dt := h.Dt()
	maxTicks := tune.TickRateHz * 600
	for i := 0; i < maxTicks && h.Host.Phase() == session.PhasePlaying; i++ {
		for _, b := range bots {
			b.Tick(dt)
		}
		h.Pump(1)
	}

	winner, ok := h.Host.WinnerID()
	if !ok {
		p1, p2 := h.Host.World().Player(1), h.Host.World().Player(2)
		t.Fatalf("no winner after %d ticks: host tools=%v inv=%v, peer tools=%v inv=%v",
			maxTicks, p1.Tools, p1.Inventory, p2.Tools, p2.Inventory)
	}
	if !h.Host.World().Player(winner).HasAllMaxTools() {
		t.Fatalf("winner %d lacks max tools", winner)
	}
	h.Host.World().CheckInvariants()

	h.Pump(2)
	if id, ok := peer.WinnerID(); !ok || id != winner || peer.Phase() != session.PhaseVictory {
		t.Fatalf("peer winner=%d,%v phase=%s", id, ok, peer.Phase())
	}
	if bots[0].Upgrades() == 0 && bots[1].Upgrades() == 0 {
		t.Fatalf("no upgrades requested")
	}
}

func TestBot_IdleOutsidePlay(t *testing.T) {
	h := sessiontest.NewHarness(t, smallTuning())
	peer := h.Join(2, "peer")
	b := New(peer, 1, nil)

	before := peer.Stats().Sent
	for i := 0; i < 30; i++ {
		b.Tick(h.Dt())
		h.Pump(1)
	}
	if got := peer.Stats().Sent; got != before {
		t.Fatalf("bot sent %d messages in the lobby", got-before)
	}
}

func TestNextTool(t *testing.T) {
	p := &world.Player{Tools: [3]int{2, 1, 3}}
	if tool, ok := nextTool(p); !ok || tool != protocol.ToolPickaxe {
		t.Fatalf("got %s,%v", tool, ok)
	}
	p.Tools = [3]int{3, 3, 3}
	if _, ok := nextTool(p); ok {
		t.Fatalf("all max tools should have no next tool")
	}
	p.Tools = [3]int{2, 2, 2}
	if tool, _ := nextTool(p); tool != protocol.ToolAxe {
		t.Fatalf("tie should pick lowest index, got %s", tool)
	}
}

func TestPickTarget_PrefersNeededResource(t *testing.T) {
	tune := smallTuning()
	w := world.New(tune)
	w.GenerateWorld(5)
	me, _ := w.AddPlayer(1, "me", world.PaletteColor(0))
	// Axe 1->2 needs wood and iron; give all the wood.
	me.Inventory = [3]int{100, 0, 0}

	b := New(nil, 1, nil)
	for i := 0; i < 20; i++ {
		id := b.pickTarget(w, me)
		if n := w.Node(id); n == nil || n.Type != protocol.ResourceIron {
			t.Fatalf("picked node %d (%+v), want iron", id, n)
		}
	}
}
