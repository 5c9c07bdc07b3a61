package observerproto

// Version is the observer feed version (independent of the binary peer protocol).
const Version = "0.1"

// Client -> Server. Optional first message; MaxHz caps the push rate.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	MaxHz           int    `json:"max_hz,omitempty"`
}

// Server -> Client. A full read model of one coordinator, pushed on change.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Phase        string  `json:"phase"`
	IsHost       bool    `json:"is_host"`
	LocalID      uint64  `json:"local_id"`
	MatchID      string  `json:"match_id,omitempty"`
	WinnerID     uint64  `json:"winner_id,omitempty"`
	VictoryTimer float32 `json:"victory_timer,omitempty"`

	Disconnected bool   `json:"disconnected,omitempty"`
	Reason       string `json:"reason,omitempty"`

	Map     MapInfo       `json:"map"`
	Nodes   []NodeState   `json:"nodes"`
	Players []PlayerState `json:"players"`
}

type MapInfo struct {
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

type NodeState struct {
	ID           int        `json:"id"`
	Type         string     `json:"type"`
	Pos          [2]float32 `json:"pos"`
	Remaining    int        `json:"remaining"`
	Max          int        `json:"max"`
	RespawnTimer float32    `json:"respawn_timer,omitempty"`
}

type PlayerState struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Pos       [2]float32 `json:"pos"`
	Color     [4]uint8   `json:"color"`
	Inventory [3]int     `json:"inventory"`
	Tools     [3]int     `json:"tools"`

	Gathering      bool    `json:"gathering"`
	GatherNodeID   int     `json:"gather_node_id"`
	GatherProgress float32 `json:"gather_progress"`
}
