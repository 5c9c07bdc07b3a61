package world

// FindNearestGatherable returns the id of the closest non-depleted node whose
// distance from pos is at most maxRange. Ties go to the lowest id.
func (w *World) FindNearestGatherable(pos Vec2, maxRange float32) (int, bool) {
	best, bestDist := -1, float32(0)
	for i := range w.nodes {
		n := &w.nodes[i]
		if n.IsDepleted() {
			continue
		}
		d := n.Pos.Dist(pos)
		if d > maxRange {
			continue
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best >= 0
}

// GatherReach is the distance at which an ongoing or requested gather is still valid.
func (w *World) GatherReach() float32 {
	return w.tune.GatherRange + w.tune.GatherTolerance
}

// CanGather reports whether player p may work on node id right now.
func (w *World) CanGather(p *Player, id int) bool {
	n := w.Node(id)
	if p == nil || n == nil || n.IsDepleted() {
		return false
	}
	return p.Pos.Dist(n.Pos) <= w.GatherReach()
}

// BeginGather validates and starts a gather with zero progress. It returns
// false without touching state when the request is rejected.
func (w *World) BeginGather(playerID uint64, nodeID int) bool {
	p := w.players[playerID]
	if !w.CanGather(p, nodeID) {
		return false
	}
	p.Gathering = &GatherState{NodeID: nodeID}
	return true
}
