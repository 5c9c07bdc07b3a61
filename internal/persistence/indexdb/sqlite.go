package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"gatherandgrow/internal/persistence/snapshot"
	"gatherandgrow/internal/session"
	"gatherandgrow/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index over the event stream and the
// snapshot files. Writes are queued to a single goroutine and dropped when the
// queue is full; the JSONL logs remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropEvents    atomic.Uint64
	dropSnapshots atomic.Uint64
}

var _ session.EventLogger = (*SQLiteIndex)(nil)

type reqKind int

const (
	reqEvent reqKind = iota + 1
	reqSnapshot
)

type req struct {
	kind reqKind

	event    session.Event
	snapshot snapshotRow
}

type snapshotRow struct {
	MatchID  string
	Tick     uint64
	Path     string
	Phase    string
	Seed     int64
	WinnerID uint64
	Players  int
	Nodes    int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 16384),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			start_tick INTEGER NOT NULL,
			started_ms INTEGER NOT NULL,
			winner_id INTEGER,
			end_tick INTEGER,
			ended_ms INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			ts_ms INTEGER NOT NULL,
			kind TEXT NOT NULL,
			player_id INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_match_tick ON events(match_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_events_player ON events(player_id, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			match_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			phase TEXT NOT NULL,
			seed INTEGER NOT NULL,
			winner_id INTEGER NOT NULL,
			players INTEGER NOT NULL,
			nodes INTEGER NOT NULL,
			PRIMARY KEY (match_id, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Stats reports queue pressure for /metrics.
type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropEvents    uint64
	DropSnapshots uint64
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropEvents:    s.dropEvents.Load(),
		DropSnapshots: s.dropSnapshots.Load(),
	}
}

// WriteEvent implements session.EventLogger. It never blocks.
func (s *SQLiteIndex) WriteEvent(e session.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
		s.dropEvents.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.MatchV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		MatchID:  snap.Header.MatchID,
		Tick:     snap.Header.Tick,
		Path:     path,
		Phase:    snap.Header.Phase,
		Seed:     snap.Seed,
		WinnerID: snap.WinnerID,
		Players:  len(snap.Players),
		Nodes:    len(snap.Nodes),
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshots.Add(1)
	}
}

// UpsertTuning stores the tuning in effect and its digest in meta.
func (s *SQLiteIndex) UpsertTuning(t tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, kv := range [][2]string{
		{"schema_version", "1"},
		{"tuning_json", string(b)},
		{"tuning_digest", hex.EncodeToString(sum[:])},
	} {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertEvent, _ := s.db.Prepare(`INSERT INTO events(match_id,tick,ts_ms,kind,player_id,raw_json) VALUES(?,?,?,?,?,?)`)
	insertMatch, _ := s.db.Prepare(`INSERT OR REPLACE INTO matches(match_id,seed,start_tick,started_ms) VALUES(?,?,?,?)`)
	finishMatch, _ := s.db.Prepare(`UPDATE matches SET winner_id=?, end_tick=?, ended_ms=? WHERE match_id=? AND winner_id IS NULL`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(match_id,tick,path,phase,seed,winner_id,players,nodes) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertEvent, insertMatch, finishMatch, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqEvent:
			e := r.event
			raw, _ := json.Marshal(e)
			if !exec(insertEvent, e.MatchID, int64(e.Tick), e.UnixMS, e.Kind, int64(e.PlayerID), string(raw)) {
				continue
			}
			switch {
			case e.Kind == session.EventStart && e.MatchID != "":
				exec(insertMatch, e.MatchID, e.Seed, int64(e.Tick), e.UnixMS)
			case e.Kind == session.EventWin && e.MatchID != "":
				exec(finishMatch, int64(e.PlayerID), int64(e.Tick), e.UnixMS, e.MatchID)
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, sn.MatchID, int64(sn.Tick), sn.Path, sn.Phase, sn.Seed, int64(sn.WinnerID), sn.Players, sn.Nodes)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
