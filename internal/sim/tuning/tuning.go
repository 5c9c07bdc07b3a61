package tuning

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Tuning holds every gameplay constant shared by host and peers. Resource and
// tool arrays are indexed by protocol.ResourceType / protocol.ToolType.
type Tuning struct {
	TickRateHz      int `yaml:"tick_rate_hz"`
	BroadcastRateHz int `yaml:"broadcast_rate_hz"`
	MaxPlayers      int `yaml:"max_players"`

	MapWidth    float32 `yaml:"map_width"`
	MapHeight   float32 `yaml:"map_height"`
	SpawnMargin float32 `yaml:"spawn_margin"`
	SpawnOffset float32 `yaml:"spawn_offset"`

	PlayerSpeed  float32 `yaml:"player_speed"`
	PlayerRadius float32 `yaml:"player_radius"`

	GatherRange     float32    `yaml:"gather_range"`
	GatherTolerance float32    `yaml:"gather_tolerance"`
	GatherSeconds   [3]float32 `yaml:"gather_seconds"`
	ToolMultipliers [3]float32 `yaml:"tool_multipliers"`

	NodeCounts     [3]int  `yaml:"node_counts"`
	NodeAmounts    [3]int  `yaml:"node_amounts"`
	RespawnSeconds float32 `yaml:"respawn_seconds"`

	// UpgradeCosts[tool][level-1] is the price of going from level to level+1.
	UpgradeCosts [3][2]Cost `yaml:"upgrade_costs"`
}

// Cost is an inventory amount indexed by resource type.
type Cost struct {
	Wood int `yaml:"wood" json:"wood"`
	Iron int `yaml:"iron" json:"iron"`
	Gold int `yaml:"gold" json:"gold"`
}

func (c Cost) Amounts() [3]int { return [3]int{c.Wood, c.Iron, c.Gold} }

func Defaults() Tuning {
	return Tuning{
		TickRateHz:      60,
		BroadcastRateHz: 20,
		MaxPlayers:      4,

		MapWidth:    3000,
		MapHeight:   3000,
		SpawnMargin: 100,
		SpawnOffset: 100,

		PlayerSpeed:  200,
		PlayerRadius: 16,

		GatherRange:     50,
		GatherTolerance: 10,
		GatherSeconds:   [3]float32{3.0, 1.5, 0.75},
		ToolMultipliers: [3]float32{1.0, 0.7, 0.4},

		NodeCounts:     [3]int{30, 25, 15},
		NodeAmounts:    [3]int{8, 6, 4},
		RespawnSeconds: 30,

		UpgradeCosts: [3][2]Cost{
			{{Wood: 10, Iron: 5}, {Wood: 20, Iron: 10, Gold: 5}},
			{{Wood: 10, Iron: 5}, {Wood: 15, Iron: 15, Gold: 5}},
			{{Wood: 10, Iron: 10}, {Wood: 20, Iron: 15, Gold: 10}},
		},
	}
}

// BroadcastInterval is the full-state broadcast period in seconds.
func (t Tuning) BroadcastInterval() float32 {
	return 1 / float32(t.BroadcastRateHz)
}

func (t Tuning) TickSeconds() float32 {
	return 1 / float32(t.TickRateHz)
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0")
	case t.BroadcastRateHz <= 0:
		return fmt.Errorf("broadcast_rate_hz must be > 0")
	case t.MaxPlayers <= 0:
		return fmt.Errorf("max_players must be > 0")
	case t.MapWidth <= 2*t.SpawnMargin || t.MapHeight <= 2*t.SpawnMargin:
		return fmt.Errorf("map %gx%g too small for spawn_margin %g", t.MapWidth, t.MapHeight, t.SpawnMargin)
	case t.GatherRange <= 0 || t.GatherTolerance < 0:
		return fmt.Errorf("gather_range must be > 0 and gather_tolerance >= 0")
	case t.RespawnSeconds <= 0:
		return fmt.Errorf("respawn_seconds must be > 0")
	}
	for i := 0; i < 3; i++ {
		if t.GatherSeconds[i] <= 0 {
			return fmt.Errorf("gather_seconds[%d] must be > 0", i)
		}
		if t.ToolMultipliers[i] <= 0 {
			return fmt.Errorf("tool_multipliers[%d] must be > 0", i)
		}
		if t.NodeCounts[i] < 0 {
			return fmt.Errorf("node_counts[%d] must be >= 0", i)
		}
		if t.NodeAmounts[i] <= 0 {
			return fmt.Errorf("node_amounts[%d] must be > 0", i)
		}
		for lvl, c := range t.UpgradeCosts[i] {
			if c.Wood < 0 || c.Iron < 0 || c.Gold < 0 {
				return fmt.Errorf("upgrade_costs[%d][%d] must be non-negative", i, lvl)
			}
		}
	}
	return nil
}

//go:embed tuning.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("tuning.schema.json", schemaJSON)

// Load overlays a YAML file on Defaults. Unknown keys and wrongly-typed values
// are rejected by the embedded schema before decoding.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := checkSchema(raw); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func checkSchema(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	// Round-trip through JSON so the validator sees float64 numbers and string keys.
	js, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.NewDecoder(bytes.NewReader(js)).Decode(&v); err != nil {
		return err
	}
	return schema.Validate(v)
}
