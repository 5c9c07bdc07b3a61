package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gatherandgrow/internal/persistence/snapshot"
	"gatherandgrow/internal/session"
)

func TestLatestSnapshot(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"5.snap.zst", "120.snap.zst", "99.snap.zst", "junk.snap.zst", "7.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := latestSnapshot(dir); got != filepath.Join(dir, "120.snap.zst") {
		t.Fatalf("latest=%q", got)
	}
	if got := latestSnapshot(filepath.Join(dir, "missing")); got != "" {
		t.Fatalf("missing dir gave %q", got)
	}
}

func TestEventMatches(t *testing.T) {
	e := session.Event{MatchID: "m", Kind: session.EventGather, PlayerID: 4}
	cases := []struct {
		match, kind string
		player      uint64
		want        bool
	}{
		{"", "", 0, true},
		{"m", "GATHER", 4, true},
		{"x", "", 0, false},
		{"", "WIN", 0, false},
		{"", "", 5, false},
	}
	for _, c := range cases {
		if got := eventMatches(e, c.match, c.kind, c.player); got != c.want {
			t.Fatalf("%+v: got %v", c, got)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := snapshot.MatchV1{
		Header:   snapshot.Header{MatchID: "m", Tick: 9, Phase: "VICTORY"},
		WinnerID: 2,
		Nodes: []snapshot.NodeV1{
			{Type: 0, Remaining: 3, Max: 8},
			{Type: 0, Remaining: 0, Max: 8},
			{Type: 2, Remaining: 4, Max: 4},
		},
		Players: []snapshot.PlayerV1{{ID: 2, Name: "a", Tools: [3]int{3, 3, 3}}},
	}
	out := strings.Join(summarize(s), "\n")
	for _, want := range []string{"match=m tick=9 phase=VICTORY", "winner=2", "wood=1/1 iron=0/0 gold=1/0", `player 2 "a"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}
