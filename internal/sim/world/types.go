package world

import (
	"math"

	"gatherandgrow/internal/protocol"
)

type (
	ResourceType = protocol.ResourceType
	ToolType     = protocol.ToolType
)

const (
	MinToolLevel = 1
	MaxToolLevel = 3
)

type Vec2 struct {
	X float32
	Y float32
}

func (v Vec2) Add(o Vec2) Vec2        { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2        { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(s float32) Vec2   { return Vec2{X: v.X * s, Y: v.Y * s} }
func (v Vec2) Len() float32           { return float32(math.Hypot(float64(v.X), float64(v.Y))) }
func (v Vec2) Dist(o Vec2) float32    { return v.Sub(o).Len() }
func (v Vec2) Clamp(lo, hi Vec2) Vec2 { return Vec2{X: clampf(v.X, lo.X, hi.X), Y: clampf(v.Y, lo.Y, hi.Y)} }

// Finite reports whether both coordinates are real numbers.
func (v Vec2) Finite() bool { return finite(v.X) && finite(v.Y) }

func finite(f float32) bool {
	d := float64(f)
	return !math.IsNaN(d) && !math.IsInf(d, 0)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type Color struct {
	R, G, B, A uint8
}

func ColorFromRGBA(c [4]uint8) Color { return Color{R: c[0], G: c[1], B: c[2], A: c[3]} }
func (c Color) RGBA() [4]uint8      { return [4]uint8{c.R, c.G, c.B, c.A} }

// Palette is assigned to players in join order.
var Palette = [4]Color{
	{R: 0, G: 121, B: 241, A: 255},  // blue
	{R: 230, G: 41, B: 55, A: 255},  // red
	{R: 0, G: 200, B: 0, A: 255},    // green
	{R: 160, G: 32, B: 240, A: 255}, // purple
}

// PaletteColor wraps out-of-range indices onto the palette.
func PaletteColor(i int) Color {
	n := len(Palette)
	return Palette[((i%n)+n)%n]
}

// PaletteIndex returns the palette slot of c, or 0 for a color not in the palette.
func PaletteIndex(c Color) int {
	for i, p := range Palette {
		if p == c {
			return i
		}
	}
	return 0
}

type ResourceNode struct {
	ID           int
	Type         ResourceType
	Pos          Vec2
	Remaining    int
	Max          int
	RespawnTimer float32
}

func (n *ResourceNode) IsDepleted() bool { return n.Remaining == 0 }

type GatherState struct {
	NodeID   int
	Progress float32
}

type Player struct {
	ID        uint64
	Name      string
	Pos       Vec2
	Color     Color
	Inventory [protocol.ResourceTypeCount]int
	Tools     [protocol.ToolTypeCount]int

	// Gathering is nil when the player is idle.
	Gathering *GatherState
}

func newPlayer(id uint64, name string, c Color) *Player {
	p := &Player{ID: id, Name: name, Color: c}
	for i := range p.Tools {
		p.Tools[i] = MinToolLevel
	}
	return p
}

func (p *Player) ClearGather() { p.Gathering = nil }

func (p *Player) ToolLevel(t ToolType) int { return p.Tools[t] }

// HasAllMaxTools reports the win condition.
func (p *Player) HasAllMaxTools() bool {
	for _, lvl := range p.Tools {
		if lvl < MaxToolLevel {
			return false
		}
	}
	return true
}

// ToolFor maps a resource to the tool whose level speeds up gathering it.
func ToolFor(r ResourceType) ToolType {
	switch r {
	case protocol.ResourceIron:
		return protocol.ToolPickaxe
	case protocol.ResourceGold:
		return protocol.ToolGoldPick
	default:
		return protocol.ToolAxe
	}
}
