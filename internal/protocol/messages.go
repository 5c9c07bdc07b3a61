package protocol

// Message is any of the nine wire messages.
type Message interface {
	Kind() Kind
}

type PlayerJoined struct {
	PlayerID   uint64
	Name       string
	ColorIndex int32
}

type PlayerLeft struct {
	PlayerID uint64
}

type PlayerMove struct {
	PlayerID uint64
	X, Y     float32
}

type GatherRequest struct {
	PlayerID uint64
	NodeID   int32
}

// GatherResult is reserved: it has a wire layout but receivers ignore it.
type GatherResult struct {
	PlayerID uint64
	NodeID   int32
	Resource ResourceType
	Amount   int32
}

// WorldState is the full authoritative snapshot broadcast by the host.
type WorldState struct {
	Nodes   []NodeState
	Players []PlayerState
}

type NodeState struct {
	ID           int32
	Type         ResourceType
	X, Y         float32
	Remaining    int32
	Max          int32
	RespawnTimer float32
}

type PlayerState struct {
	ID    uint64
	Name  string
	X, Y  float32
	Color [4]uint8 // RGBA

	Inventory [ResourceTypeCount]int32
	Tools     [ToolTypeCount]int32

	Gathering      bool
	GatherNodeID   int32 // -1 when not gathering
	GatherProgress float32
}

type ToolUpgradeRequest struct {
	PlayerID uint64
	Tool     ToolType
}

type ToolUpgraded struct {
	PlayerID uint64
	Tool     ToolType
	Level    int32
}

type GameWon struct {
	WinnerID uint64
}

func (PlayerJoined) Kind() Kind       { return KindPlayerJoined }
func (PlayerLeft) Kind() Kind         { return KindPlayerLeft }
func (PlayerMove) Kind() Kind         { return KindPlayerMove }
func (GatherRequest) Kind() Kind      { return KindGatherRequest }
func (GatherResult) Kind() Kind       { return KindGatherResult }
func (WorldState) Kind() Kind         { return KindWorldState }
func (ToolUpgradeRequest) Kind() Kind { return KindToolUpgradeRequest }
func (ToolUpgraded) Kind() Kind       { return KindToolUpgraded }
func (GameWon) Kind() Kind            { return KindGameWon }
