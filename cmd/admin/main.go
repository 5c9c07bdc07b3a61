package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gatherandgrow/internal/persistence/archive"
	persistlog "gatherandgrow/internal/persistence/log"
	"gatherandgrow/internal/persistence/snapshot"
	"gatherandgrow/internal/session"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "matches":
			matchesCmd(os.Args[2:])
			return
		case "events":
			eventsCmd(os.Args[2:])
			return
		case "log":
			logCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "archives":
			archivesCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints match directories that hold snapshots.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "matches"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

// archivesCmd prints the meta.json of every archived (finished) match.
func archivesCmd(args []string) {
	fs := flag.NewFlagSet("archives", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "archives"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := archive.ReadMeta(*dataDir, e.Name())
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", e.Name(), err)
			continue
		}
		_ = enc.Encode(meta)
	}
}

// logCmd streams events from the compressed JSONL logs, optionally filtered.
func logCmd(args []string) {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	matchID := fs.String("match", "", "match id filter")
	kind := fs.String("kind", "", "event kind filter (JOIN, GATHER, WIN, ...)")
	playerID := fs.Uint64("player", 0, "player id filter")
	_ = fs.Parse(args)

	enc := json.NewEncoder(os.Stdout)
	err := persistlog.ReadEvents(*dataDir, func(e session.Event) error {
		if !eventMatches(e, *matchID, strings.ToUpper(*kind), *playerID) {
			return nil
		}
		return enc.Encode(e)
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "read events:", err)
		os.Exit(1)
	}
}

func eventMatches(e session.Event, matchID, kind string, playerID uint64) bool {
	if matchID != "" && e.MatchID != matchID {
		return false
	}
	if kind != "" && e.Kind != kind {
		return false
	}
	if playerID != 0 && e.PlayerID != playerID {
		return false
	}
	return true
}

// snapshotCmd summarizes a snapshot file, or prints it in full with -json.
func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	matchID := fs.String("match", "", "match id (uses its latest snapshot)")
	path := fs.String("path", "", "snapshot path (overrides -match)")
	full := fs.Bool("json", false, "print the whole snapshot as JSON")
	headerOnly := fs.Bool("header", false, "decode only the header line")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		if strings.TrimSpace(*matchID) == "" {
			fmt.Fprintln(os.Stderr, "missing -path or -match")
			os.Exit(2)
		}
		p = latestSnapshot(filepath.Join(*dataDir, "matches", *matchID))
		if p == "" {
			fmt.Fprintln(os.Stderr, "no snapshot found for match", *matchID)
			os.Exit(2)
		}
	}

	if *headerOnly {
		h, err := snapshot.ReadHeader(p)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read header:", err)
			os.Exit(1)
		}
		_ = json.NewEncoder(os.Stdout).Encode(h)
		return
	}

	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	if *full {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(snap)
		return
	}
	for _, line := range summarize(snap) {
		fmt.Println(line)
	}
}

func summarize(s snapshot.MatchV1) []string {
	out := []string{
		fmt.Sprintf("match=%s tick=%d phase=%s seed=%d host=%d", s.Header.MatchID, s.Header.Tick, s.Header.Phase, s.Seed, s.HostID),
	}
	if s.WinnerID != 0 {
		out = append(out, fmt.Sprintf("winner=%d", s.WinnerID))
	}
	var live, depleted [3]int
	for _, n := range s.Nodes {
		if int(n.Type) >= len(live) {
			continue
		}
		if n.Remaining == 0 {
			depleted[n.Type]++
		} else {
			live[n.Type]++
		}
	}
	out = append(out, fmt.Sprintf("nodes=%d wood=%d/%d iron=%d/%d gold=%d/%d (live/depleted)",
		len(s.Nodes), live[0], depleted[0], live[1], depleted[1], live[2], depleted[2]))
	for _, p := range s.Players {
		out = append(out, fmt.Sprintf("player %d %q pos=(%.0f,%.0f) inv=%v tools=%v", p.ID, p.Name, p.Pos[0], p.Pos[1], p.Inventory, p.Tools))
	}
	return out
}

// latestSnapshot returns the highest-tick snapshot in dir, or "".
func latestSnapshot(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	type cand struct {
		tick uint64
		path string
	}
	var cs []cand
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		cs = append(cs, cand{tick: tick, path: filepath.Join(dir, name)})
	}
	if len(cs) == 0 {
		return ""
	}
	sort.Slice(cs, func(i, j int) bool { return cs[i].tick > cs[j].tick })
	return cs[0].path
}
