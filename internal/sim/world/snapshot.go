package world

import "gatherandgrow/internal/protocol"

// ExportSnapshot builds the full-state broadcast message. Players appear in join order.
func (w *World) ExportSnapshot() protocol.WorldState {
	var ws protocol.WorldState
	if len(w.nodes) > 0 {
		ws.Nodes = make([]protocol.NodeState, len(w.nodes))
	}
	for i, n := range w.nodes {
		ws.Nodes[i] = protocol.NodeState{
			ID:           int32(n.ID),
			Type:         n.Type,
			X:            n.Pos.X,
			Y:            n.Pos.Y,
			Remaining:    int32(n.Remaining),
			Max:          int32(n.Max),
			RespawnTimer: n.RespawnTimer,
		}
	}
	if len(w.order) > 0 {
		ws.Players = make([]protocol.PlayerState, 0, len(w.order))
	}
	for _, id := range w.order {
		p := w.players[id]
		ps := protocol.PlayerState{
			ID:           p.ID,
			Name:         p.Name,
			X:            p.Pos.X,
			Y:            p.Pos.Y,
			Color:        p.Color.RGBA(),
			GatherNodeID: -1,
		}
		for i := range p.Inventory {
			ps.Inventory[i] = int32(p.Inventory[i])
		}
		for i := range p.Tools {
			ps.Tools[i] = int32(p.Tools[i])
		}
		if p.Gathering != nil {
			ps.Gathering = true
			ps.GatherNodeID = int32(p.Gathering.NodeID)
			ps.GatherProgress = p.Gathering.Progress
		}
		ws.Players = append(ws.Players, ps)
	}
	return ws
}

// ApplyFullSnapshot makes the world mirror ws. The node list is replaced
// wholesale, players are upserted and anyone absent from ws is removed. An
// already-known local player keeps its locally predicted position.
func (w *World) ApplyFullSnapshot(ws protocol.WorldState, localID uint64) {
	if cap(w.nodes) >= len(ws.Nodes) {
		w.nodes = w.nodes[:len(ws.Nodes)]
	} else {
		w.nodes = make([]ResourceNode, len(ws.Nodes))
	}
	for i, n := range ws.Nodes {
		w.nodes[i] = ResourceNode{
			ID:           int(n.ID),
			Type:         n.Type,
			Pos:          Vec2{X: n.X, Y: n.Y},
			Remaining:    int(n.Remaining),
			Max:          int(n.Max),
			RespawnTimer: n.RespawnTimer,
		}
	}

	seen := make(map[uint64]struct{}, len(ws.Players))
	order := make([]uint64, 0, len(ws.Players))
	for _, ps := range ws.Players {
		if _, dup := seen[ps.ID]; dup {
			continue
		}
		seen[ps.ID] = struct{}{}
		order = append(order, ps.ID)

		p := w.players[ps.ID]
		keepPos := p != nil && ps.ID == localID
		if p == nil {
			p = newPlayer(ps.ID, ps.Name, ColorFromRGBA(ps.Color))
			w.players[ps.ID] = p
		}
		p.Name = ps.Name
		p.Color = ColorFromRGBA(ps.Color)
		if !keepPos {
			p.Pos = Vec2{X: ps.X, Y: ps.Y}
		}
		for i := range p.Inventory {
			p.Inventory[i] = int(ps.Inventory[i])
		}
		for i := range p.Tools {
			p.Tools[i] = int(ps.Tools[i])
		}
		if ps.Gathering {
			p.Gathering = &GatherState{NodeID: int(ps.GatherNodeID), Progress: ps.GatherProgress}
		} else {
			p.Gathering = nil
		}
	}
	for id := range w.players {
		if _, ok := seen[id]; !ok {
			delete(w.players, id)
		}
	}
	w.order = order
}
