package world

// checkInvariants is compiled to a no-op unless built with -tags gagdebug.
func (w *World) checkInvariants() {
	if !debugAssertions {
		return
	}
	for i := range w.nodes {
		n := &w.nodes[i]
		invariant(n.ID == i, "node %d stored at index %d", n.ID, i)
		invariant(n.Remaining >= 0 && n.Remaining <= n.Max, "node %d remaining %d outside [0,%d]", i, n.Remaining, n.Max)
		invariant(n.RespawnTimer >= 0, "node %d negative respawn timer %v", i, n.RespawnTimer)
	}
	invariant(len(w.order) == len(w.players), "order has %d ids, map has %d", len(w.order), len(w.players))
	for _, id := range w.order {
		p := w.players[id]
		invariant(p != nil, "player %d in order but not in map", id)
		for r, v := range p.Inventory {
			invariant(v >= 0, "player %d inventory[%d]=%d", id, r, v)
		}
		for t, lvl := range p.Tools {
			invariant(lvl >= MinToolLevel && lvl <= MaxToolLevel, "player %d tool[%d]=%d", id, t, lvl)
		}
		if p.Gathering != nil {
			invariant(p.Gathering.Progress >= 0 && p.Gathering.Progress < 1, "player %d gather progress %v", id, p.Gathering.Progress)
		}
	}
}

// CheckInvariants lets the step run the same assertions after mutating nodes.
func (w *World) CheckInvariants() { w.checkInvariants() }
