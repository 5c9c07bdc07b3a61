package session

import (
	"fmt"

	"github.com/google/uuid"

	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/sim/world"
)

// HostStart opens a lobby with the local player as host.
func (c *Coordinator) HostStart() error {
	if c.phase != PhaseMainMenu {
		return fmt.Errorf("host start in %s: %w", c.phase, ErrWrongPhase)
	}
	if c.cfg.LocalID == 0 {
		return ErrBadPeerID
	}
	c.reset()
	c.faulted, c.faultReason = false, ""
	c.isHost = true
	c.hostID = c.cfg.LocalID
	c.role = hostRole{}
	c.world.AddPlayer(c.cfg.LocalID, c.cfg.LocalName, world.PaletteColor(c.nextColorIndex()))
	c.phase = PhaseInLobby
	c.log.Printf("hosting as %d (%s)", c.cfg.LocalID, c.cfg.LocalName)
	c.emit(Event{Kind: EventJoin, PlayerID: c.cfg.LocalID, Name: c.cfg.LocalName})
	return nil
}

// Connect joins the lobby hosted by hostID. The local player appears in the
// world once the host announces it or sends the first full snapshot.
func (c *Coordinator) Connect(hostID uint64) error {
	if c.phase != PhaseMainMenu {
		return fmt.Errorf("connect in %s: %w", c.phase, ErrWrongPhase)
	}
	if c.cfg.LocalID == 0 || hostID == 0 || hostID == c.cfg.LocalID {
		return ErrBadPeerID
	}
	c.reset()
	c.faulted, c.faultReason = false, ""
	c.isHost = false
	c.hostID = hostID
	c.role = peerRole{}
	c.addPeer(hostID)
	c.phase = PhaseInLobby

	c.log.Printf("joining host %d as %d (%s)", hostID, c.cfg.LocalID, c.cfg.LocalName)
	if !c.send(hostID, protocol.PlayerJoined{PlayerID: c.cfg.LocalID, Name: c.cfg.LocalName}) {
		return fmt.Errorf("connect to %d: %s", hostID, c.faultReason)
	}
	return nil
}

// StartGame generates the world from seed, places players on the spawn ring
// in join order and broadcasts the first snapshot. Host only, from the lobby.
func (c *Coordinator) StartGame(seed int64) error {
	if !c.isHost {
		return ErrNotHost
	}
	if c.phase != PhaseInLobby {
		return fmt.Errorf("start game in %s: %w", c.phase, ErrWrongPhase)
	}

	c.matchID = uuid.NewString()
	c.seed = seed
	c.world.GenerateWorld(seed)
	for i, p := range c.world.Players() {
		p.Pos = c.world.SpawnPoint(i)
		p.ClearGather()
	}
	c.phase = PhasePlaying
	c.bcast.Reset()

	c.log.Printf("match %s started: seed=%d players=%d nodes=%d", c.matchID, seed, c.world.PlayerCount(), c.world.NodeCount())
	c.emit(Event{Kind: EventStart, Seed: seed})
	c.exportMatch()
	c.broadcast(c.world.ExportSnapshot())
	return nil
}

// Leave ends participation voluntarily: peers are told and the coordinator
// returns to the main menu without raising the fault flag.
func (c *Coordinator) Leave() {
	if c.role == nil {
		return
	}
	c.role.leave(c)
	if c.role == nil {
		// The goodbye send itself faulted.
		return
	}
	c.log.Printf("left session")
	c.emit(Event{Kind: EventLeave, PlayerID: c.cfg.LocalID, Reason: "left"})
	c.reset()
}

// nextColorIndex picks the lowest palette slot not used by a current player,
// wrapping by player count once every slot is taken.
func (c *Coordinator) nextColorIndex() int {
	var used [len(world.Palette)]bool
	for _, p := range c.world.Players() {
		used[world.PaletteIndex(p.Color)] = true
	}
	for i, u := range used {
		if !u {
			return i
		}
	}
	return c.world.PlayerCount() % len(world.Palette)
}
