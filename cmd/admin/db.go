package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gatherandgrow/internal/persistence/indexdb"
)

func openIndex(dataDir, dbPath string) *sql.DB {
	path := strings.TrimSpace(dbPath)
	if path == "" {
		path = filepath.Join(dataDir, "index", "matches.sqlite")
	}
	db, err := indexdb.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return db
}

func matchesCmd(args []string) {
	fs := flag.NewFlagSet("matches", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	withSnaps := fs.Bool("snapshots", false, "also list snapshot files per match")
	_ = fs.Parse(args)

	db := openIndex(*dataDir, *dbPath)
	defer db.Close()
	ctx := context.Background()

	rows, err := indexdb.Matches(ctx, db, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, m := range rows {
		if !*withSnaps {
			_ = enc.Encode(m)
			continue
		}
		paths, err := indexdb.SnapshotPaths(ctx, db, m.MatchID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query snapshots:", err)
			os.Exit(1)
		}
		_ = enc.Encode(struct {
			indexdb.MatchRow
			Snapshots []string `json:"snapshots"`
		}{m, paths})
	}
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	matchID := fs.String("match", "", "match id filter")
	kind := fs.String("kind", "", "event kind filter")
	playerID := fs.Uint64("player", 0, "player id filter")
	limit := fs.Int("limit", 200, "result limit")
	_ = fs.Parse(args)

	db := openIndex(*dataDir, *dbPath)
	defer db.Close()

	rows, err := indexdb.Events(context.Background(), db, indexdb.EventFilter{
		MatchID:  *matchID,
		Kind:     strings.ToUpper(strings.TrimSpace(*kind)),
		PlayerID: *playerID,
		Limit:    *limit,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	for _, e := range rows {
		fmt.Println(e.RawJSON)
	}
}
