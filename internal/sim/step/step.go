// Package step advances the authoritative world by one host tick.
package step

import (
	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/sim/tuning"
	"gatherandgrow/internal/sim/world"
)

// minGatherSeconds guards against a zero or negative configured gather time.
const minGatherSeconds = 0.1

// Gathered records one unit awarded during a tick.
type Gathered struct {
	PlayerID uint64
	NodeID   int
	Resource protocol.ResourceType
	Depleted bool
}

type Result struct {
	Gathered  []Gathered
	Respawned []int

	// Won is set when a player reached max level on every tool this tick.
	Won    bool
	Winner uint64
}

// GatherTime is the seconds needed to gather one unit of res with a tool at level.
func GatherTime(t tuning.Tuning, res protocol.ResourceType, level int) float32 {
	if level < world.MinToolLevel {
		level = world.MinToolLevel
	}
	if level > world.MaxToolLevel {
		level = world.MaxToolLevel
	}
	secs := t.GatherSeconds[res] * t.ToolMultipliers[level-1]
	if secs <= 0 {
		return minGatherSeconds
	}
	return secs
}

// Step runs gathering, then respawns, then the win check. It does not touch
// the session phase; the caller reacts to Result.Won.
func Step(w *world.World, dt float32) Result {
	var res Result
	t := w.Tuning()

	for _, p := range w.Players() {
		g := p.Gathering
		if g == nil {
			continue
		}
		if !w.CanGather(p, g.NodeID) {
			p.ClearGather()
			continue
		}
		n := w.Node(g.NodeID)
		g.Progress += dt / GatherTime(t, n.Type, p.ToolLevel(world.ToolFor(n.Type)))
		if g.Progress < 1 {
			continue
		}

		g.Progress = 0
		n.Remaining--
		p.Inventory[n.Type]++
		ev := Gathered{PlayerID: p.ID, NodeID: n.ID, Resource: n.Type}
		if n.IsDepleted() {
			n.RespawnTimer = t.RespawnSeconds
			p.ClearGather()
			ev.Depleted = true
		}
		res.Gathered = append(res.Gathered, ev)
	}

	nodes := w.Nodes()
	for i := range nodes {
		n := &nodes[i]
		if !n.IsDepleted() || n.RespawnTimer <= 0 {
			continue
		}
		n.RespawnTimer -= dt
		if n.RespawnTimer <= 0 {
			n.RespawnTimer = 0
			n.Remaining = n.Max
			res.Respawned = append(res.Respawned, n.ID)
		}
	}
	w.CheckInvariants()

	res.Winner, res.Won = w.Winner()
	return res
}
