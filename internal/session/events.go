package session

import (
	"time"
)

// Event kinds in the structured session stream.
const (
	EventJoin    = "JOIN"
	EventLeave   = "LEAVE"
	EventStart   = "START"
	EventGather  = "GATHER"
	EventUpgrade = "UPGRADE"
	EventWin     = "WIN"
	EventFault   = "FAULT"
	EventReject  = "REJECT"
)

// Event is one line of the structured session log. Fields that do not apply
// to a kind are left zero.
type Event struct {
	Tick    uint64 `json:"tick"`
	UnixMS  int64  `json:"ts_ms"`
	Kind    string `json:"kind"`
	MatchID string `json:"match_id,omitempty"`

	PlayerID uint64 `json:"player_id,omitempty"`
	Name     string `json:"name,omitempty"`

	NodeID   int    `json:"node_id,omitempty"`
	Resource string `json:"resource,omitempty"`
	Tool     string `json:"tool,omitempty"`
	Level    int    `json:"level,omitempty"`
	Seed     int64  `json:"seed,omitempty"`

	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// EventLogger receives session events on the session goroutine. It must not block.
type EventLogger interface {
	WriteEvent(Event) error
}

func (c *Coordinator) emit(e Event) {
	if c.events == nil {
		return
	}
	e.Tick = c.tick
	e.UnixMS = c.now().UnixMilli()
	if e.MatchID == "" {
		e.MatchID = c.matchID
	}
	if err := c.events.WriteEvent(e); err != nil && !c.eventErrLogged {
		c.eventErrLogged = true
		c.log.Printf("event logger: %v", err)
	}
}

// SetEventLogger installs l; nil disables the stream.
func (c *Coordinator) SetEventLogger(l EventLogger) { c.events = l }

// SetClock overrides time.Now for event timestamps.
func (c *Coordinator) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}
