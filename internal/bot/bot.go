// Package bot is a headless autoplayer: it walks to useful nodes, gathers,
// and buys tool upgrades through the same Submit* calls a human client uses.
package bot

import (
	"io"
	"log"
	"math/rand"
	"sort"

	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/session"
	"gatherandgrow/internal/sim/world"
)

// requestCooldown spaces out reliable requests while waiting for the host's
// answer to show up in a snapshot.
const requestCooldown = 0.25

type Bot struct {
	c   *session.Coordinator
	log *log.Logger
	rng *rand.Rand

	target   int
	cooldown float32
	upgrades int
}

func New(c *session.Coordinator, seed int64, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Bot{c: c, log: logger, rng: rand.New(rand.NewSource(seed)), target: -1}
}

// Upgrades counts upgrade requests sent.
func (b *Bot) Upgrades() int { return b.upgrades }

// Tick plays one frame. Call it on the session goroutine before OnTick.
func (b *Bot) Tick(dt float32) {
	if b.c.Phase() != session.PhasePlaying {
		b.target = -1
		b.cooldown = 0
		return
	}
	w := b.c.World()
	me := w.Player(b.c.LocalID())
	if me == nil || me.HasAllMaxTools() {
		return
	}
	if b.cooldown > 0 {
		b.cooldown -= dt
	}

	if tool, ok := nextTool(me); ok && b.cooldown <= 0 && w.CanAfford(me, tool) {
		b.log.Printf("upgrade %s to %d", tool, me.ToolLevel(tool)+1)
		b.c.SubmitUpgradeRequest(tool)
		b.upgrades++
		b.cooldown = requestCooldown
		return
	}
	if me.Gathering != nil {
		return
	}

	n := w.Node(b.target)
	if n == nil || n.IsDepleted() {
		b.target = b.pickTarget(w, me)
		if n = w.Node(b.target); n == nil {
			return
		}
	}

	if w.CanGather(me, n.ID) {
		if b.cooldown <= 0 {
			// Re-announce the position in case the last move was lost.
			b.c.SubmitMove(me.Pos)
			b.c.SubmitGatherRequest(n.ID)
			b.cooldown = requestCooldown
		}
		return
	}

	step := w.Tuning().PlayerSpeed * dt
	d := n.Pos.Sub(me.Pos)
	if dist := d.Len(); dist <= step {
		b.c.SubmitMove(n.Pos)
	} else {
		b.c.SubmitMove(me.Pos.Add(d.Scale(step / dist)))
	}
}

// nextTool is the lowest-level tool below max, lowest index first.
func nextTool(p *world.Player) (protocol.ToolType, bool) {
	best, ok := protocol.ToolType(0), false
	for t := protocol.ToolType(0); int(t) < protocol.ToolTypeCount; t++ {
		if p.ToolLevel(t) >= world.MaxToolLevel {
			continue
		}
		if !ok || p.ToolLevel(t) < p.ToolLevel(best) {
			best, ok = t, true
		}
	}
	return best, ok
}

// pickTarget chooses among the few nearest live nodes of a resource the next
// upgrade still lacks, falling back to any live node.
func (b *Bot) pickTarget(w *world.World, me *world.Player) int {
	var need [protocol.ResourceTypeCount]bool
	needAny := false
	if tool, ok := nextTool(me); ok {
		if cost, ok := w.UpgradeCost(tool, me.ToolLevel(tool)); ok {
			for r, amt := range cost.Amounts() {
				if me.Inventory[r] < amt {
					need[r] = true
					needAny = true
				}
			}
		}
	}

	type cand struct {
		id   int
		dist float32
	}
	var cs []cand
	for _, n := range w.Nodes() {
		if n.IsDepleted() || (needAny && !need[n.Type]) {
			continue
		}
		cs = append(cs, cand{id: n.ID, dist: n.Pos.Dist(me.Pos)})
	}
	if len(cs) == 0 {
		if id, ok := w.FindNearestGatherable(me.Pos, w.Tuning().MapWidth+w.Tuning().MapHeight); ok {
			return id
		}
		return -1
	}
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].dist != cs[j].dist {
			return cs[i].dist < cs[j].dist
		}
		return cs[i].id < cs[j].id
	})
	k := 3
	if len(cs) < k {
		k = len(cs)
	}
	return cs[b.rng.Intn(k)].id
}
