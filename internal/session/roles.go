package session

import (
	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/sim/world"
)

// role holds the behavior that differs between host and peer.
type role interface {
	handle(c *Coordinator, from uint64, m protocol.Message)
	dropped(c *Coordinator, id uint64)
	submitMove(c *Coordinator, pos world.Vec2)
	submitGather(c *Coordinator, nodeID int)
	submitUpgrade(c *Coordinator, tool protocol.ToolType)
	leave(c *Coordinator)
}

// hostRole validates requests and owns all authoritative mutation. The
// transport sender id is trusted over any id claimed inside a message.
type hostRole struct{}

func (hostRole) handle(c *Coordinator, from uint64, m protocol.Message) {
	switch m := m.(type) {
	case protocol.PlayerJoined:
		c.hostJoin(from, m.Name)
	case protocol.PlayerLeft:
		c.hostRemove(from, "left")
	case protocol.PlayerMove:
		p := c.world.Player(from)
		if p == nil {
			c.reject(from, "move from unknown player")
			return
		}
		pos := world.Vec2{X: m.X, Y: m.Y}
		if !pos.Finite() {
			c.reject(from, "move: non-finite position")
			return
		}
		lo, hi := c.world.Bounds()
		p.Pos = pos.Clamp(lo, hi)
		p.ClearGather()
	case protocol.GatherRequest:
		c.hostGather(from, int(m.NodeID))
	case protocol.ToolUpgradeRequest:
		c.hostUpgrade(from, m.Tool)
	case protocol.GatherResult:
		// Reserved.
	case protocol.WorldState, protocol.ToolUpgraded, protocol.GameWon:
		// Host-originated kinds; the host already holds the state they carry.
	}
}

func (hostRole) dropped(c *Coordinator, id uint64) {
	c.hostRemove(id, "dropped")
}

func (hostRole) submitMove(*Coordinator, world.Vec2) {}

func (hostRole) submitGather(c *Coordinator, nodeID int) {
	c.hostGather(c.cfg.LocalID, nodeID)
}

func (hostRole) submitUpgrade(c *Coordinator, tool protocol.ToolType) {
	c.hostUpgrade(c.cfg.LocalID, tool)
}

func (hostRole) leave(c *Coordinator) {
	c.broadcast(protocol.PlayerLeft{PlayerID: c.cfg.LocalID})
}

func (c *Coordinator) hostJoin(from uint64, name string) {
	if from == c.cfg.LocalID {
		return
	}
	if existing := c.world.Player(from); existing != nil {
		// Repeated join: re-send the roster so the peer can catch up.
		c.addPeer(from)
		c.sendRosterTo(from)
		return
	}
	if c.world.PlayerCount() >= c.cfg.Tuning.MaxPlayers {
		c.reject(from, "session full")
		return
	}

	idx := c.nextColorIndex()
	c.addPeer(from)
	c.world.AddPlayer(from, name, world.PaletteColor(idx))
	c.log.Printf("player %d (%s) joined, color=%d", from, name, idx)
	c.emit(Event{Kind: EventJoin, PlayerID: from, Name: name})

	c.broadcastExcept(protocol.PlayerJoined{PlayerID: from, Name: name, ColorIndex: int32(idx)}, from)
	c.sendRosterTo(from)
}

// sendRosterTo announces every other player to id, one message each.
func (c *Coordinator) sendRosterTo(id uint64) {
	for _, p := range c.world.Players() {
		if p.ID == id {
			continue
		}
		msg := protocol.PlayerJoined{PlayerID: p.ID, Name: p.Name, ColorIndex: int32(world.PaletteIndex(p.Color))}
		if !c.send(id, msg) {
			return
		}
	}
}

func (c *Coordinator) hostRemove(id uint64, reason string) {
	had := c.world.RemovePlayer(id)
	wasPeer := c.hasPeer(id)
	c.removePeer(id)
	if !had && !wasPeer {
		return
	}
	c.log.Printf("player %d %s", id, reason)
	c.emit(Event{Kind: EventLeave, PlayerID: id, Reason: reason})
	c.broadcast(protocol.PlayerLeft{PlayerID: id})
}

func (c *Coordinator) hostGather(from uint64, nodeID int) {
	if c.phase != PhasePlaying {
		c.reject(from, "gather outside play")
		return
	}
	if !c.world.BeginGather(from, nodeID) {
		c.reject(from, "gather")
	}
}

func (c *Coordinator) hostUpgrade(from uint64, tool protocol.ToolType) {
	if c.phase != PhasePlaying {
		c.reject(from, "upgrade outside play")
		return
	}
	lvl, ok := c.world.TryUpgrade(from, tool)
	if !ok {
		c.reject(from, "upgrade "+tool.String())
		return
	}
	c.log.Printf("player %d upgraded %s to %d", from, tool, lvl)
	c.emit(Event{Kind: EventUpgrade, PlayerID: from, Tool: tool.String(), Level: lvl})
	c.broadcast(protocol.ToolUpgraded{PlayerID: from, Tool: tool, Level: int32(lvl)})
}

// peerRole mirrors the host. Only packets from the host are accepted.
type peerRole struct{}

func (peerRole) handle(c *Coordinator, from uint64, m protocol.Message) {
	if from != c.hostID {
		c.reject(from, "message from non-host peer")
		return
	}
	switch m := m.(type) {
	case protocol.PlayerJoined:
		c.world.UpsertPlayer(m.PlayerID, m.Name, world.PaletteColor(int(m.ColorIndex)))
		c.addPeer(m.PlayerID)
	case protocol.PlayerLeft:
		if m.PlayerID == c.hostID {
			c.fault("host left the session")
			return
		}
		c.world.RemovePlayer(m.PlayerID)
		c.removePeer(m.PlayerID)
	case protocol.PlayerMove:
		if m.PlayerID == c.cfg.LocalID {
			return
		}
		if p := c.world.Player(m.PlayerID); p != nil {
			p.Pos = world.Vec2{X: m.X, Y: m.Y}
		}
	case protocol.WorldState:
		c.world.ApplyFullSnapshot(m, c.cfg.LocalID)
		if c.phase == PhaseInLobby {
			c.phase = PhasePlaying
			c.log.Printf("first snapshot from host %d, playing", c.hostID)
		}
	case protocol.ToolUpgraded:
		if !c.world.SetToolLevel(m.PlayerID, m.Tool, int(m.Level)) {
			c.reject(from, "tool level")
		}
	case protocol.GameWon:
		c.declareWinner(m.WinnerID)
	case protocol.GatherRequest, protocol.ToolUpgradeRequest:
		// Host-only requests.
	case protocol.GatherResult:
		// Reserved.
	}
}

func (peerRole) dropped(c *Coordinator, id uint64) {
	if id == c.hostID {
		c.fault("host disconnected")
		return
	}
	c.world.RemovePlayer(id)
	c.removePeer(id)
}

func (peerRole) submitMove(c *Coordinator, pos world.Vec2) {
	c.send(c.hostID, protocol.PlayerMove{PlayerID: c.cfg.LocalID, X: pos.X, Y: pos.Y})
}

func (peerRole) submitGather(c *Coordinator, nodeID int) {
	c.send(c.hostID, protocol.GatherRequest{PlayerID: c.cfg.LocalID, NodeID: int32(nodeID)})
}

func (peerRole) submitUpgrade(c *Coordinator, tool protocol.ToolType) {
	c.send(c.hostID, protocol.ToolUpgradeRequest{PlayerID: c.cfg.LocalID, Tool: tool})
}

func (peerRole) leave(c *Coordinator) {
	c.send(c.hostID, protocol.PlayerLeft{PlayerID: c.cfg.LocalID})
}
