package indexdb

import (
	"context"
	"database/sql"
	"fmt"
)

// MatchRow is one indexed match. WinnerID is zero while unfinished.
type MatchRow struct {
	MatchID   string `json:"match_id"`
	Seed      int64  `json:"seed"`
	StartTick uint64 `json:"start_tick"`
	StartedMS int64  `json:"started_ms"`
	WinnerID  uint64 `json:"winner_id,omitempty"`
	EndTick   uint64 `json:"end_tick,omitempty"`
	EndedMS   int64  `json:"ended_ms,omitempty"`
}

type EventRow struct {
	Seq      int64  `json:"seq"`
	MatchID  string `json:"match_id"`
	Tick     uint64 `json:"tick"`
	UnixMS   int64  `json:"ts_ms"`
	Kind     string `json:"kind"`
	PlayerID uint64 `json:"player_id"`
	RawJSON  string `json:"raw_json"`
}

// EventFilter narrows Events; zero fields match everything.
type EventFilter struct {
	MatchID  string
	Kind     string
	PlayerID uint64
	Limit    int
}

// Open opens an existing index read-only for tools.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}
	return db, nil
}

// Matches lists matches newest first.
func Matches(ctx context.Context, db *sql.DB, limit int) ([]MatchRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `SELECT match_id,seed,start_tick,started_ms,
		COALESCE(winner_id,0),COALESCE(end_tick,0),COALESCE(ended_ms,0)
		FROM matches ORDER BY started_ms DESC, match_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchRow
	for rows.Next() {
		var (
			m                  MatchRow
			start, winner, end int64
		)
		if err := rows.Scan(&m.MatchID, &m.Seed, &start, &m.StartedMS, &winner, &end, &m.EndedMS); err != nil {
			return nil, err
		}
		m.StartTick, m.WinnerID, m.EndTick = uint64(start), uint64(winner), uint64(end)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Events lists events in write order.
func Events(ctx context.Context, db *sql.DB, f EventFilter) ([]EventRow, error) {
	if f.Limit <= 0 {
		f.Limit = 500
	}
	q := `SELECT seq,match_id,tick,ts_ms,kind,player_id,raw_json FROM events WHERE 1=1`
	var args []any
	if f.MatchID != "" {
		q += ` AND match_id=?`
		args = append(args, f.MatchID)
	}
	if f.Kind != "" {
		q += ` AND kind=?`
		args = append(args, f.Kind)
	}
	if f.PlayerID != 0 {
		q += ` AND player_id=?`
		args = append(args, int64(f.PlayerID))
	}
	q += ` ORDER BY seq LIMIT ?`
	args = append(args, f.Limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var (
			e            EventRow
			tick, player int64
		)
		if err := rows.Scan(&e.Seq, &e.MatchID, &tick, &e.UnixMS, &e.Kind, &player, &e.RawJSON); err != nil {
			return nil, err
		}
		e.Tick, e.PlayerID = uint64(tick), uint64(player)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SnapshotPaths lists recorded snapshot files for a match in tick order.
func SnapshotPaths(ctx context.Context, db *sql.DB, matchID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT path FROM snapshots WHERE match_id=? ORDER BY tick`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
