package world

import (
	"gatherandgrow/internal/sim/tuning"
)

// World is the shared game state: resource nodes indexed by id and players
// keyed by peer id, remembered in join order. It is not safe for concurrent use.
type World struct {
	tune tuning.Tuning

	nodes   []ResourceNode
	players map[uint64]*Player
	order   []uint64
}

func New(t tuning.Tuning) *World {
	return &World{
		tune:    t,
		players: map[uint64]*Player{},
	}
}

func (w *World) Tuning() tuning.Tuning { return w.tune }

// Reset drops every node and player.
func (w *World) Reset() {
	w.nodes = nil
	w.players = map[uint64]*Player{}
	w.order = nil
}

func (w *World) NodeCount() int { return len(w.nodes) }

// Node returns the node with the given id, or nil when out of range.
func (w *World) Node(id int) *ResourceNode {
	if id < 0 || id >= len(w.nodes) {
		return nil
	}
	return &w.nodes[id]
}

// Nodes returns the node slice. Callers must not retain it across mutations.
func (w *World) Nodes() []ResourceNode { return w.nodes }

func (w *World) Player(id uint64) *Player { return w.players[id] }

func (w *World) PlayerCount() int { return len(w.order) }

// Players returns players in join order.
func (w *World) Players() []*Player {
	out := make([]*Player, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.players[id])
	}
	return out
}

// AddPlayer inserts a new player at the map center. When the id is already
// present the existing record is returned unchanged with added=false.
func (w *World) AddPlayer(id uint64, name string, c Color) (p *Player, added bool) {
	if p := w.players[id]; p != nil {
		return p, false
	}
	p = newPlayer(id, name, c)
	p.Pos = w.Center()
	w.players[id] = p
	w.order = append(w.order, id)
	w.checkInvariants()
	return p, true
}

// UpsertPlayer adds the player or refreshes name and color of an existing one.
func (w *World) UpsertPlayer(id uint64, name string, c Color) *Player {
	p, added := w.AddPlayer(id, name, c)
	if !added {
		p.Name = name
		p.Color = c
	}
	return p
}

func (w *World) RemovePlayer(id uint64) bool {
	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	for i, pid := range w.order {
		if pid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.checkInvariants()
	return true
}

func (w *World) Center() Vec2 {
	return Vec2{X: w.tune.MapWidth / 2, Y: w.tune.MapHeight / 2}
}

// SpawnPoint returns the start position for the i-th player in join order:
// the four diagonal offsets around the center, wrapping.
func (w *World) SpawnPoint(i int) Vec2 {
	c, d := w.Center(), w.tune.SpawnOffset
	offsets := [4]Vec2{{-d, -d}, {d, -d}, {-d, d}, {d, d}}
	return c.Add(offsets[i%len(offsets)])
}

// Bounds returns the rectangle a player center may occupy.
func (w *World) Bounds() (lo, hi Vec2) {
	r := w.tune.PlayerRadius
	return Vec2{X: r, Y: r}, Vec2{X: w.tune.MapWidth - r, Y: w.tune.MapHeight - r}
}

// Winner returns the first player in join order holding every tool at max level.
func (w *World) Winner() (uint64, bool) {
	for _, id := range w.order {
		if w.players[id].HasAllMaxTools() {
			return id, true
		}
	}
	return 0, false
}
