package world

import (
	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/sim/tuning"
)

// UpgradeCost returns the price of raising tool from level to level+1.
// ok is false when the tool is already at max level.
func (w *World) UpgradeCost(tool ToolType, level int) (tuning.Cost, bool) {
	if !tool.Valid() || level < MinToolLevel || level >= MaxToolLevel {
		return tuning.Cost{}, false
	}
	return w.tune.UpgradeCosts[tool][level-1], true
}

// CanAfford reports whether p could buy the next level of tool.
func (w *World) CanAfford(p *Player, tool ToolType) bool {
	if p == nil || !tool.Valid() {
		return false
	}
	cost, ok := w.UpgradeCost(tool, p.Tools[tool])
	if !ok {
		return false
	}
	amounts := cost.Amounts()
	for r := 0; r < protocol.ResourceTypeCount; r++ {
		if p.Inventory[r] < amounts[r] {
			return false
		}
	}
	return true
}

// TryUpgrade spends the cost and raises the tool one level.
func (w *World) TryUpgrade(playerID uint64, tool ToolType) (newLevel int, ok bool) {
	p := w.players[playerID]
	if !w.CanAfford(p, tool) {
		return 0, false
	}
	cost, _ := w.UpgradeCost(tool, p.Tools[tool])
	amounts := cost.Amounts()
	for r := range amounts {
		p.Inventory[r] -= amounts[r]
	}
	p.Tools[tool]++
	w.checkInvariants()
	return p.Tools[tool], true
}

// SetToolLevel applies an announced upgrade. Levels outside [1,3] and unknown
// players are rejected.
func (w *World) SetToolLevel(playerID uint64, tool ToolType, level int) bool {
	p := w.players[playerID]
	if p == nil || !tool.Valid() || level < MinToolLevel || level > MaxToolLevel {
		return false
	}
	p.Tools[tool] = level
	return true
}
