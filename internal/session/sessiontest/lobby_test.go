package sessiontest

import (
	"reflect"
	"testing"

	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/session"
	"gatherandgrow/internal/sim/tuning"
	"gatherandgrow/internal/sim/world"
)

func TestLobby_JoinAnnouncesRosterBothWays(t *testing.T) {
	h := NewHarness(t, tuning.Defaults())
	a := h.Join(2, "a")
	b := h.Join(3, "b")

	hw := h.Host.World()
	if hw.PlayerCount() != 3 {
		t.Fatalf("host players=%d", hw.PlayerCount())
	}
	for i, id := range []uint64{1, 2, 3} {
		p := hw.Player(id)
		if p == nil || p.Color != world.Palette[i] {
			t.Fatalf("host player %d: %+v", id, p)
		}
	}
	if got := h.Host.Roster(); !reflect.DeepEqual(got, []uint64{2, 3}) {
		t.Fatalf("host roster=%v", got)
	}

	// Each peer learns about everyone except itself until the first snapshot.
	if a.World().Player(1) == nil || a.World().Player(3) == nil || a.World().Player(2) != nil {
		t.Fatalf("peer a players=%d", a.World().PlayerCount())
	}
	if b.World().Player(1) == nil || b.World().Player(2) == nil || b.World().Player(3) != nil {
		t.Fatalf("peer b players=%d", b.World().PlayerCount())
	}
	if a.World().Player(3).Color != world.Palette[2] || b.World().Player(2).Color != world.Palette[1] {
		t.Fatalf("colors not propagated")
	}
	if a.Phase() != session.PhaseInLobby || a.IsHost() {
		t.Fatalf("peer a phase=%s host=%v", a.Phase(), a.IsHost())
	}
	if h.Events(HostID).Count(session.EventJoin) != 3 {
		t.Fatalf("host join events: %s", h.Events(HostID))
	}
}

func TestLobby_DuplicateJoinDoesNotDuplicatePlayer(t *testing.T) {
	h := NewHarness(t, tuning.Defaults())
	raw := h.Net.Join(5)
	join := protocol.Encode(protocol.PlayerJoined{PlayerID: 5, Name: "twice"})
	_ = raw.Send(HostID, join, protocol.Reliable)
	_ = raw.Send(HostID, join, protocol.Reliable)
	h.Pump(1)

	if h.Host.World().PlayerCount() != 2 || len(h.Host.Roster()) != 1 {
		t.Fatalf("players=%d roster=%v", h.Host.World().PlayerCount(), h.Host.Roster())
	}
	// The roster (just the host) is sent once per join.
	if raw.Pending() != 2 {
		t.Fatalf("raw pending=%d want 2", raw.Pending())
	}
}

func TestLobby_HostTrustsSenderID(t *testing.T) {
	h := NewHarness(t, tuning.Defaults())
	raw := h.Net.Join(5)
	_ = raw.Send(HostID, protocol.Encode(protocol.PlayerJoined{PlayerID: 77, Name: "liar"}), protocol.Reliable)
	h.Pump(1)

	if h.Host.World().Player(77) != nil || h.Host.World().Player(5) == nil {
		t.Fatalf("host used claimed id")
	}
}

func TestLobby_ColorSlotReusedAfterLeave(t *testing.T) {
	h := NewHarness(t, tuning.Defaults())
	a := h.Join(2, "a")
	h.Join(3, "b")
	a.Leave()
	h.Pump(2)
	if h.Host.World().Player(2) != nil {
		t.Fatalf("leaver still present")
	}

	h.Join(4, "c")
	if got := h.Host.World().Player(4).Color; got != world.Palette[1] {
		t.Fatalf("new player color=%+v want red", got)
	}
}

func TestLobby_SessionFull(t *testing.T) {
	tune := tuning.Defaults()
	tune.MaxPlayers = 2
	h := NewHarness(t, tune)
	h.Join(2, "a")
	h.Join(3, "b")
	if h.Host.World().PlayerCount() != 2 || h.Host.World().Player(3) != nil {
		t.Fatalf("session accepted past max players")
	}
	if h.Host.Stats().Rejected == 0 {
		t.Fatalf("expected rejection to be counted")
	}
}

func TestLobby_WrongPhaseAndRoleErrors(t *testing.T) {
	h := NewHarness(t, tuning.Defaults())
	a := h.Join(2, "a")

	if err := h.Host.HostStart(); err == nil {
		t.Fatalf("HostStart twice accepted")
	}
	if err := a.StartGame(1); err == nil {
		t.Fatalf("peer StartGame accepted")
	}
	h.Start(1)
	if err := h.Host.StartGame(2); err == nil {
		t.Fatalf("StartGame while playing accepted")
	}
	if err := a.Connect(HostID); err == nil {
		t.Fatalf("Connect while playing accepted")
	}
}
