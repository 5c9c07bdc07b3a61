package session

import (
	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/sim/world"
)

// SubmitMove applies the local player's new position immediately (clamped
// to the map) and drops any gather in progress. Non-hosts also send the move
// to the host on the unreliable channel.
func (c *Coordinator) SubmitMove(pos world.Vec2) {
	if c.role == nil || (c.phase != PhaseInLobby && c.phase != PhasePlaying) {
		return
	}
	if !pos.Finite() {
		c.reject(c.cfg.LocalID, "move: non-finite position")
		return
	}
	lo, hi := c.world.Bounds()
	pos = pos.Clamp(lo, hi)
	if p := c.world.Player(c.cfg.LocalID); p != nil {
		p.Pos = pos
		p.ClearGather()
	}
	c.role.submitMove(c, pos)
}

// SubmitGatherRequest asks to start gathering node id. Results are observed
// through later snapshots.
func (c *Coordinator) SubmitGatherRequest(nodeID int) {
	if c.role == nil || c.phase != PhasePlaying {
		return
	}
	c.role.submitGather(c, nodeID)
}

// SubmitUpgradeRequest asks to raise tool by one level.
func (c *Coordinator) SubmitUpgradeRequest(tool protocol.ToolType) {
	if c.role == nil || c.phase != PhasePlaying || !tool.Valid() {
		return
	}
	c.role.submitUpgrade(c, tool)
}
