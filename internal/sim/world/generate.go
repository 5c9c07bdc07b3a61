package world

import (
	"math/rand"

	"gatherandgrow/internal/protocol"
)

// GenerateWorld replaces all nodes with a fresh deterministic layout: wood,
// then iron, then gold, ids sequential from 0, positions uniform inside the
// margin-inset map.
func (w *World) GenerateWorld(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	t := w.tune

	total := 0
	for _, n := range t.NodeCounts {
		total += n
	}
	w.nodes = make([]ResourceNode, 0, total)

	spanX := t.MapWidth - 2*t.SpawnMargin
	spanY := t.MapHeight - 2*t.SpawnMargin
	for r := protocol.ResourceType(0); r < protocol.ResourceTypeCount; r++ {
		amount := t.NodeAmounts[r]
		for i := 0; i < t.NodeCounts[r]; i++ {
			w.nodes = append(w.nodes, ResourceNode{
				ID:        len(w.nodes),
				Type:      r,
				Pos:       Vec2{X: t.SpawnMargin + rng.Float32()*spanX, Y: t.SpawnMargin + rng.Float32()*spanY},
				Remaining: amount,
				Max:       amount,
			})
		}
	}
	for _, p := range w.players {
		p.ClearGather()
	}
	w.checkInvariants()
}
