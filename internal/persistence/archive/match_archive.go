// Package archive keeps the final snapshot of every finished match apart from
// the working snapshot directory.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gatherandgrow/internal/persistence/snapshot"
)

type MatchMeta struct {
	MatchID   string   `json:"match_id"`
	WinnerID  uint64   `json:"winner_id"`
	EndTick   uint64   `json:"end_tick"`
	Seed      int64    `json:"seed"`
	HostID    uint64   `json:"host_id"`
	Players   []string `json:"players"`
	Snapshot  string   `json:"snapshot"`
	CreatedAt string   `json:"created_at"`
}

// ArchiveMatchSnapshot copies a victory snapshot into dataDir/archives/<match id>/
// with a meta.json beside it. Snapshots of unfinished matches are skipped.
func ArchiveMatchSnapshot(dataDir, snapshotPath string, snap snapshot.MatchV1) (archivedPath string, archived bool, err error) {
	if snap.WinnerID == 0 || snap.Header.MatchID == "" {
		return "", false, nil
	}

	archiveDir := filepath.Join(dataDir, "archives", snap.Header.MatchID)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := MatchMeta{
		MatchID:   snap.Header.MatchID,
		WinnerID:  snap.WinnerID,
		EndTick:   snap.Header.Tick,
		Seed:      snap.Seed,
		HostID:    snap.HostID,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	for _, p := range snap.Players {
		meta.Players = append(meta.Players, fmt.Sprintf("%d:%s", p.ID, p.Name))
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dst, true, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return dst, true, err
	}
	return dst, true, nil
}

// ReadMeta loads the meta.json of an archived match.
func ReadMeta(dataDir, matchID string) (MatchMeta, error) {
	var m MatchMeta
	b, err := os.ReadFile(filepath.Join(dataDir, "archives", matchID, "meta.json"))
	if err != nil {
		return m, err
	}
	err = json.Unmarshal(b, &m)
	return m, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
