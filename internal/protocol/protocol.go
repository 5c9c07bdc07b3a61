package protocol

import "fmt"

// Kind is the leading type tag of every wire message.
type Kind uint8

// Message kinds. The numeric values are part of the wire format.
const (
	KindPlayerJoined Kind = iota
	KindPlayerLeft
	KindPlayerMove
	KindGatherRequest
	KindGatherResult
	KindWorldState
	KindToolUpgradeRequest
	KindToolUpgraded
	KindGameWon

	kindCount
)

var kindNames = [...]string{
	KindPlayerJoined:       "PlayerJoined",
	KindPlayerLeft:         "PlayerLeft",
	KindPlayerMove:         "PlayerMove",
	KindGatherRequest:      "GatherRequest",
	KindGatherResult:       "GatherResult",
	KindWorldState:         "WorldState",
	KindToolUpgradeRequest: "ToolUpgradeRequest",
	KindToolUpgraded:       "ToolUpgraded",
	KindGameWon:            "GameWon",
}

func (k Kind) Valid() bool { return k < kindCount }

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Delivery selects the transport reliability class for a send.
type Delivery uint8

const (
	// Reliable is ordered per sender and never dropped by a healthy transport.
	Reliable Delivery = iota
	// Unreliable may be dropped or reordered; used only where staleness self-corrects.
	Unreliable
)

func (d Delivery) String() string {
	switch d {
	case Reliable:
		return "reliable"
	case Unreliable:
		return "unreliable"
	}
	return fmt.Sprintf("Delivery(%d)", uint8(d))
}

// DeliveryFor returns the class a message kind travels on. Only moves are unreliable.
func DeliveryFor(k Kind) Delivery {
	if k == KindPlayerMove {
		return Unreliable
	}
	return Reliable
}

// ResourceType is the wire enum for gatherable resources (Wood, Iron, Gold order).
type ResourceType uint8

const (
	ResourceWood ResourceType = iota
	ResourceIron
	ResourceGold
)

// ResourceTypeCount is the number of resource kinds.
const ResourceTypeCount = 3

func (r ResourceType) Valid() bool { return r < ResourceTypeCount }

func (r ResourceType) String() string {
	switch r {
	case ResourceWood:
		return "WOOD"
	case ResourceIron:
		return "IRON"
	case ResourceGold:
		return "GOLD"
	}
	return fmt.Sprintf("ResourceType(%d)", uint8(r))
}

// ToolType is the wire enum for upgradeable tools (Axe, Pickaxe, GoldPick order).
type ToolType uint8

const (
	ToolAxe ToolType = iota
	ToolPickaxe
	ToolGoldPick
)

// ToolTypeCount is the number of tool kinds.
const ToolTypeCount = 3

func (t ToolType) Valid() bool { return t < ToolTypeCount }

func (t ToolType) String() string {
	switch t {
	case ToolAxe:
		return "AXE"
	case ToolPickaxe:
		return "PICKAXE"
	case ToolGoldPick:
		return "GOLD_PICK"
	}
	return fmt.Sprintf("ToolType(%d)", uint8(t))
}
