package world

import (
	"reflect"
	"testing"

	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/sim/tuning"
)

func TestSnapshot_ExportApplyConverges(t *testing.T) {
	host := New(tuning.Defaults())
	host.GenerateWorld(7)
	a, _ := host.AddPlayer(1, "host", Palette[0])
	b, _ := host.AddPlayer(2, "peer", Palette[1])
	a.Inventory = [3]int{4, 2, 1}
	b.Tools = [3]int{2, 1, 3}
	b.Pos = Vec2{10, 20}
	b.Gathering = &GatherState{NodeID: 3, Progress: 0.25}
	host.nodes[3].Remaining = 0
	host.nodes[3].RespawnTimer = 12

	peer := New(tuning.Defaults())
	peer.ApplyFullSnapshot(host.ExportSnapshot(), 99)

	if !reflect.DeepEqual(peer.ExportSnapshot(), host.ExportSnapshot()) {
		t.Fatalf("peer did not converge to host state")
	}
}

func TestSnapshot_NeverOverwritesLocalPosition(t *testing.T) {
	peer := New(tuning.Defaults())
	local, _ := peer.AddPlayer(2, "me", Palette[1])
	local.Pos = Vec2{777, 888}

	ws := protocol.WorldState{Players: []protocol.PlayerState{
		{ID: 1, Name: "host", X: 1, Y: 1, Tools: [3]int32{1, 1, 1}, GatherNodeID: -1},
		{ID: 2, Name: "me", X: 5, Y: 6, Inventory: [3]int32{9, 0, 0}, Tools: [3]int32{2, 1, 1}, GatherNodeID: -1},
	}}
	peer.ApplyFullSnapshot(ws, 2)

	p := peer.Player(2)
	if p.Pos != (Vec2{777, 888}) {
		t.Fatalf("local position overwritten: %+v", p.Pos)
	}
	if p.Inventory[0] != 9 || p.Tools[0] != 2 {
		t.Fatalf("non-position fields not applied: %+v", p)
	}
	if peer.Player(1).Pos != (Vec2{1, 1}) {
		t.Fatalf("remote position not applied")
	}
}

func TestSnapshot_NewLocalPlayerTakesSnapshotPosition(t *testing.T) {
	peer := New(tuning.Defaults())
	ws := protocol.WorldState{Players: []protocol.PlayerState{
		{ID: 2, Name: "me", X: 1400, Y: 1600, Tools: [3]int32{1, 1, 1}, GatherNodeID: -1},
	}}
	peer.ApplyFullSnapshot(ws, 2)
	if got := peer.Player(2).Pos; got != (Vec2{1400, 1600}) {
		t.Fatalf("pos=%+v", got)
	}
}

func TestSnapshot_ResizesNodesAndRemovesMissingPlayers(t *testing.T) {
	peer := New(tuning.Defaults())
	peer.GenerateWorld(1)
	peer.AddPlayer(1, "host", Palette[0])
	peer.AddPlayer(3, "gone", Palette[2])

	ws := protocol.WorldState{
		Nodes: []protocol.NodeState{
			{ID: 0, Type: protocol.ResourceIron, X: 1, Y: 2, Remaining: 3, Max: 6},
			{ID: 1, Type: protocol.ResourceGold, X: 3, Y: 4, Remaining: 4, Max: 4},
		},
		Players: []protocol.PlayerState{{ID: 1, Name: "host", Tools: [3]int32{1, 1, 1}, GatherNodeID: -1}},
	}
	peer.ApplyFullSnapshot(ws, 2)
	if peer.NodeCount() != 2 || peer.Node(0).Type != protocol.ResourceIron || peer.Node(1).Remaining != 4 {
		t.Fatalf("nodes not replaced: %+v", peer.Nodes())
	}
	if peer.Player(3) != nil || peer.PlayerCount() != 1 {
		t.Fatalf("missing player not removed")
	}

	// Growing back past the previous capacity.
	grow := protocol.WorldState{Nodes: make([]protocol.NodeState, 100)}
	for i := range grow.Nodes {
		grow.Nodes[i] = protocol.NodeState{ID: int32(i), Remaining: 1, Max: 1}
	}
	peer.ApplyFullSnapshot(grow, 2)
	if peer.NodeCount() != 100 || peer.PlayerCount() != 0 {
		t.Fatalf("nodes=%d players=%d", peer.NodeCount(), peer.PlayerCount())
	}
}

func TestSnapshot_OutOfOrderJoinsDoNotDuplicate(t *testing.T) {
	peer := New(tuning.Defaults())
	peer.UpsertPlayer(4, "late", Palette[1])
	peer.ApplyFullSnapshot(protocol.WorldState{Players: []protocol.PlayerState{
		{ID: 4, Name: "late", Tools: [3]int32{1, 1, 1}, GatherNodeID: -1},
	}}, 2)
	peer.UpsertPlayer(4, "late", Palette[1])
	if peer.PlayerCount() != 1 {
		t.Fatalf("players=%d", peer.PlayerCount())
	}
}
