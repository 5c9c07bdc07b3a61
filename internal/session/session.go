// Package session coordinates one host-authoritative match: the peer roster,
// inbound dispatch, and on the host the fixed-rate simulation and broadcast.
//
// A Coordinator is driven by a single goroutine calling OnTick and the Submit*
// methods. Only the Transport is shared with I/O goroutines.
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gatherandgrow/internal/persistence/snapshot"
	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/sim/step"
	"gatherandgrow/internal/sim/tuning"
	"gatherandgrow/internal/sim/world"
	"gatherandgrow/internal/transport"
)

var (
	ErrNotHost    = errors.New("session: not the host")
	ErrWrongPhase = errors.New("session: not allowed in current phase")
	ErrBadPeerID  = errors.New("session: invalid peer id")
)

type Config struct {
	LocalID   uint64
	LocalName string
	Tuning    tuning.Tuning
	// Logger receives diagnostics; nil discards them.
	Logger *log.Logger
}

// Stats are cumulative counters since New.
type Stats struct {
	Ticks     uint64
	Received  uint64
	Sent      uint64
	Malformed uint64
	Rejected  uint64
	Faults    uint64
}

type Coordinator struct {
	cfg Config
	log *log.Logger
	tr  transport.Transport
	now func() time.Time

	world  *world.World
	phase  Phase
	isHost bool
	role   role
	hostID uint64

	// roster holds connected remote peer ids in join order.
	roster []uint64

	winnerID     uint64
	hasWinner    bool
	victoryTimer float32
	bcast        *step.BroadcastTimer

	tick    uint64
	matchID string
	seed    int64

	faulted     bool
	faultReason string

	events         EventLogger
	eventErrLogged bool
	snapshots      chan<- snapshot.MatchV1
	stats          Stats
}

func New(cfg Config, tr transport.Transport) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.LocalName == "" {
		cfg.LocalName = fmt.Sprintf("player-%d", cfg.LocalID%10000)
	}
	return &Coordinator{
		cfg:   cfg,
		log:   logger,
		tr:    tr,
		now:   time.Now,
		world: world.New(cfg.Tuning),
		bcast: step.NewBroadcastTimer(cfg.Tuning.BroadcastInterval()),
	}
}

func (c *Coordinator) LocalID() uint64 { return c.cfg.LocalID }
func (c *Coordinator) Phase() Phase     { return c.phase }
func (c *Coordinator) IsHost() bool     { return c.isHost }
func (c *Coordinator) Tick() uint64     { return c.tick }
func (c *Coordinator) MatchID() string  { return c.matchID }
func (c *Coordinator) Stats() Stats     { return c.stats }

// HostID is the host's peer id, or the local id when hosting.
func (c *Coordinator) HostID() uint64 { return c.hostID }

// World exposes the synchronized state for rendering. Callers must treat it
// as read-only and must not use it concurrently with OnTick.
func (c *Coordinator) World() *world.World { return c.world }

func (c *Coordinator) WinnerID() (uint64, bool) { return c.winnerID, c.hasWinner }

func (c *Coordinator) VictoryTimer() float32 { return c.victoryTimer }

// Fault reports whether the last session ended in a transport failure.
func (c *Coordinator) Fault() (bool, string) { return c.faulted, c.faultReason }

// Roster returns connected remote peer ids in join order.
func (c *Coordinator) Roster() []uint64 {
	return append([]uint64(nil), c.roster...)
}

// OnTick drains inbound packets in arrival order, then on the host advances
// the simulation and broadcast timer by dt seconds.
func (c *Coordinator) OnTick(dt float32) {
	if c.role == nil {
		return
	}
	c.tick++
	c.stats.Ticks++

	c.drain()
	if c.role == nil {
		return
	}

	switch c.phase {
	case PhaseVictory:
		c.victoryTimer += dt
	case PhasePlaying:
		if c.isHost {
			c.simulate(dt)
		}
	}
}

// drain handles what was queued when it started, plus one extra poll so a
// failed link reports its error in the same tick. Anything else that arrives
// meanwhile waits for the next tick.
func (c *Coordinator) drain() {
	for budget := c.tr.Pending() + 1; budget > 0 && c.role != nil; budget-- {
		pkt, ok, err := c.tr.Poll()
		if err != nil {
			c.fault(fmt.Sprintf("receive: %v", err))
			return
		}
		if !ok {
			return
		}
		if pkt.Dropped {
			c.role.dropped(c, pkt.From)
			continue
		}
		c.stats.Received++
		m, err := protocol.Decode(pkt.Data)
		if err != nil {
			c.stats.Malformed++
			c.log.Printf("[%s] drop from %d: %v", protocol.ErrMalformedMessage, pkt.From, err)
			continue
		}
		c.role.handle(c, pkt.From, m)
	}
}

func (c *Coordinator) simulate(dt float32) {
	res := step.Step(c.world, dt)
	for _, g := range res.Gathered {
		c.emit(Event{Kind: EventGather, PlayerID: g.PlayerID, NodeID: g.NodeID, Resource: g.Resource.String()})
	}
	if res.Won {
		c.declareWinner(res.Winner)
		c.broadcast(protocol.GameWon{WinnerID: res.Winner})
		return
	}
	if c.bcast.Advance(dt) {
		c.broadcast(c.world.ExportSnapshot())
	}
}

// declareWinner records the first winner and enters Victory. Later calls keep
// the original winner but still restart the victory timer.
func (c *Coordinator) declareWinner(id uint64) {
	first := !c.hasWinner
	if first {
		c.winnerID = id
		c.hasWinner = true
	}
	c.phase = PhaseVictory
	c.victoryTimer = 0
	if first {
		c.log.Printf("match %s won by %d at tick %d", c.matchID, id, c.tick)
		c.emit(Event{Kind: EventWin, PlayerID: id})
		c.exportMatch()
	}
}

// reject counts a request that failed validation. Rejections never reach the requester.
func (c *Coordinator) reject(from uint64, what string) {
	c.stats.Rejected++
	c.emit(Event{Kind: EventReject, PlayerID: from, Code: protocol.ErrValidationRejected, Reason: what})
}

// send delivers m to one peer. It returns false after turning a transport
// error into a session fault.
func (c *Coordinator) send(to uint64, m protocol.Message) bool {
	return c.sendRaw(to, protocol.Encode(m), protocol.DeliveryFor(m.Kind()))
}

func (c *Coordinator) sendRaw(to uint64, b []byte, d protocol.Delivery) bool {
	if c.role == nil {
		return false
	}
	if err := c.tr.Send(to, b, d); err != nil {
		c.fault(fmt.Sprintf("send to %d: %v", to, err))
		return false
	}
	c.stats.Sent++
	return true
}

// broadcast sends m to every roster peer.
func (c *Coordinator) broadcast(m protocol.Message) {
	c.broadcastExcept(m, 0)
}

func (c *Coordinator) broadcastExcept(m protocol.Message, except uint64) {
	b := protocol.Encode(m)
	d := protocol.DeliveryFor(m.Kind())
	for _, id := range c.Roster() {
		if id == except {
			continue
		}
		if !c.sendRaw(id, b, d) {
			return
		}
	}
}

func (c *Coordinator) hasPeer(id uint64) bool {
	for _, p := range c.roster {
		if p == id {
			return true
		}
	}
	return false
}

func (c *Coordinator) addPeer(id uint64) {
	if id == 0 || id == c.cfg.LocalID || c.hasPeer(id) {
		return
	}
	c.roster = append(c.roster, id)
}

func (c *Coordinator) removePeer(id uint64) {
	for i, p := range c.roster {
		if p == id {
			c.roster = append(c.roster[:i], c.roster[i+1:]...)
			return
		}
	}
}

// fault handles any transport failure: the session is torn down to the main
// menu and the reason is kept for Fault.
func (c *Coordinator) fault(reason string) {
	c.stats.Faults++
	c.log.Printf("[%s] %s; resetting session", protocol.ErrTransportFault, reason)
	c.emit(Event{Kind: EventFault, Code: protocol.ErrTransportFault, Reason: reason})
	c.reset()
	c.faulted = true
	c.faultReason = reason
}

// reset returns to the main menu and forgets everything about the session.
func (c *Coordinator) reset() {
	c.role = nil
	c.isHost = false
	c.hostID = 0
	c.phase = PhaseMainMenu
	c.roster = nil
	c.world.Reset()
	c.winnerID, c.hasWinner = 0, false
	c.victoryTimer = 0
	c.bcast.Reset()
	c.matchID = ""
	c.seed = 0
}
