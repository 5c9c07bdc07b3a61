package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestDefaultsValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if got := Defaults().BroadcastInterval(); got != 0.05 {
		t.Fatalf("broadcast interval=%v", got)
	}
}

func TestLoad_RepoConfigMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("configs/tuning.yaml drifted from Defaults:\n got=%+v\nwant=%+v", got, Defaults())
	}
}

func TestLoad_PartialOverlay(t *testing.T) {
	got, err := Load(writeFile(t, "gather_range: 80\nnode_counts: [1, 2, 3]\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.GatherRange != 80 || got.NodeCounts != [3]int{1, 2, 3} {
		t.Fatalf("overlay not applied: %+v", got)
	}
	if got.RespawnSeconds != Defaults().RespawnSeconds {
		t.Fatalf("unrelated field changed: %v", got.RespawnSeconds)
	}
}

func TestLoad_EmptyFileIsDefaults(t *testing.T) {
	got, err := Load(writeFile(t, ""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("expected defaults")
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":     "no_such_knob: 1\n",
		"wrong type":      "gather_range: far\n",
		"short array":     "gather_seconds: [1, 2]\n",
		"negative cost":   "upgrade_costs:\n  - [{wood: -1}, {}]\n  - [{}, {}]\n  - [{}, {}]\n",
		"zero tick":       "tick_rate_hz: 0\n",
		"margin too wide": "map_width: 150\nspawn_margin: 100\n",
	}
	for name, body := range cases {
		if _, err := Load(writeFile(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		} else if !strings.Contains(err.Error(), "tuning.yaml") {
			t.Fatalf("%s: error not wrapped: %v", name, err)
		}
	}
}
