package session

import (
	"gatherandgrow/internal/observerproto"
	"gatherandgrow/internal/persistence/snapshot"
)

// SetSnapshotSink makes the host offer a match snapshot at game start and at
// victory. Sends never block; a full channel drops the snapshot.
func (c *Coordinator) SetSnapshotSink(ch chan<- snapshot.MatchV1) { c.snapshots = ch }

func (c *Coordinator) exportMatch() {
	if c.snapshots == nil || !c.isHost {
		return
	}
	select {
	case c.snapshots <- c.ExportMatch():
	default:
		c.log.Printf("snapshot sink full; dropped tick %d", c.tick)
	}
}

// ExportMatch captures the current world as a persistable snapshot.
func (c *Coordinator) ExportMatch() snapshot.MatchV1 {
	t := c.cfg.Tuning
	snap := snapshot.MatchV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			MatchID: c.matchID,
			Tick:    c.tick,
			Phase:   c.phase.String(),
		},
		Seed:     c.seed,
		HostID:   c.hostID,
		WinnerID: c.winnerID,
		Tuning: snapshot.TuningV1{
			MapWidth:        t.MapWidth,
			MapHeight:       t.MapHeight,
			GatherRange:     t.GatherRange,
			GatherTolerance: t.GatherTolerance,
			GatherSeconds:   t.GatherSeconds,
			ToolMultipliers: t.ToolMultipliers,
			RespawnSeconds:  t.RespawnSeconds,
		},
	}
	for _, n := range c.world.Nodes() {
		snap.Nodes = append(snap.Nodes, snapshot.NodeV1{
			ID:           n.ID,
			Type:         uint8(n.Type),
			Pos:          [2]float32{n.Pos.X, n.Pos.Y},
			Remaining:    n.Remaining,
			Max:          n.Max,
			RespawnTimer: n.RespawnTimer,
		})
	}
	for _, p := range c.world.Players() {
		pv := snapshot.PlayerV1{
			ID:           p.ID,
			Name:         p.Name,
			Pos:          [2]float32{p.Pos.X, p.Pos.Y},
			Color:        p.Color.RGBA(),
			Inventory:    p.Inventory,
			Tools:        p.Tools,
			GatherNodeID: -1,
		}
		if p.Gathering != nil {
			pv.GatherNodeID = p.Gathering.NodeID
			pv.GatherProgress = p.Gathering.Progress
		}
		snap.Players = append(snap.Players, pv)
	}
	return snap
}

// View builds the presentation read model published on the observer feed.
func (c *Coordinator) View() observerproto.StateMsg {
	t := c.cfg.Tuning
	v := observerproto.StateMsg{
		Type:            "STATE",
		ProtocolVersion: observerproto.Version,
		Tick:            c.tick,
		Phase:           c.phase.String(),
		IsHost:          c.isHost,
		LocalID:         c.cfg.LocalID,
		MatchID:         c.matchID,
		WinnerID:        c.winnerID,
		VictoryTimer:    c.victoryTimer,
		Disconnected:    c.faulted,
		Reason:          c.faultReason,
		Map:             observerproto.MapInfo{Width: t.MapWidth, Height: t.MapHeight},
		Nodes:           make([]observerproto.NodeState, 0, c.world.NodeCount()),
		Players:         make([]observerproto.PlayerState, 0, c.world.PlayerCount()),
	}
	for _, n := range c.world.Nodes() {
		v.Nodes = append(v.Nodes, observerproto.NodeState{
			ID:           n.ID,
			Type:         n.Type.String(),
			Pos:          [2]float32{n.Pos.X, n.Pos.Y},
			Remaining:    n.Remaining,
			Max:          n.Max,
			RespawnTimer: n.RespawnTimer,
		})
	}
	for _, p := range c.world.Players() {
		ps := observerproto.PlayerState{
			ID:           p.ID,
			Name:         p.Name,
			Pos:          [2]float32{p.Pos.X, p.Pos.Y},
			Color:        p.Color.RGBA(),
			Inventory:    p.Inventory,
			Tools:        p.Tools,
			GatherNodeID: -1,
		}
		if p.Gathering != nil {
			ps.Gathering = true
			ps.GatherNodeID = p.Gathering.NodeID
			ps.GatherProgress = p.Gathering.Progress
		}
		v.Players = append(v.Players, ps)
	}
	return v
}
