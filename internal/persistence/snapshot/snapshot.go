package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

// Header is written as a JSON line ahead of the gob body so tools can identify
// a file without decoding it.
type Header struct {
	Version int    `json:"version"`
	MatchID string `json:"match_id"`
	Tick    uint64 `json:"tick"`
	Phase   string `json:"phase"`
}

// MatchV1 is a point-in-time copy of a hosted match.
type MatchV1 struct {
	Header Header `json:"header"`

	Seed     int64  `json:"seed"`
	HostID   uint64 `json:"host_id"`
	WinnerID uint64 `json:"winner_id,omitempty"`

	Tuning  TuningV1   `json:"tuning"`
	Nodes   []NodeV1   `json:"nodes"`
	Players []PlayerV1 `json:"players"`
}

// TuningV1 captures the constants that shape a replay of the match.
type TuningV1 struct {
	MapWidth        float32    `json:"map_width"`
	MapHeight       float32    `json:"map_height"`
	GatherRange     float32    `json:"gather_range"`
	GatherTolerance float32    `json:"gather_tolerance"`
	GatherSeconds   [3]float32 `json:"gather_seconds"`
	ToolMultipliers [3]float32 `json:"tool_multipliers"`
	RespawnSeconds  float32    `json:"respawn_seconds"`
}

type NodeV1 struct {
	ID           int        `json:"id"`
	Type         uint8      `json:"type"`
	Pos          [2]float32 `json:"pos"`
	Remaining    int        `json:"remaining"`
	Max          int        `json:"max"`
	RespawnTimer float32    `json:"respawn_timer"`
}

type PlayerV1 struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Pos       [2]float32 `json:"pos"`
	Color     [4]uint8   `json:"color"`
	Inventory [3]int     `json:"inventory"`
	Tools     [3]int     `json:"tools"`

	GatherNodeID   int     `json:"gather_node_id"`
	GatherProgress float32 `json:"gather_progress,omitempty"`
}

// FileName is the conventional name for a snapshot taken at tick.
func FileName(tick uint64) string {
	return fmt.Sprintf("%d.snap.zst", tick)
}

func WriteSnapshot(path string, snap MatchV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// ReadHeader decodes only the leading JSON line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (MatchV1, error) {
	var snap MatchV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}
