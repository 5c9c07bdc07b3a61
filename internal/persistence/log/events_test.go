package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gatherandgrow/internal/session"
)

func TestWriter_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	s := Stream{Dir: dir, Prefix: "x"}
	w := NewWriter(s)
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := s.Files()
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	want := []string{
		filepath.Join(dir, "x-2026-03-01-10.jsonl.zst"),
		filepath.Join(dir, "x-2026-03-01-11.jsonl.zst"),
	}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("files=%v want %v", files, want)
	}
	for i, p := range files {
		var lines []string
		if err := ReadJSONL(p, func(b []byte) error { lines = append(lines, string(b)); return nil }); err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		if len(lines) != 1 || lines[0] != []string{`{"n":1}`, `{"n":2}`}[i] {
			t.Fatalf("%s lines=%v", p, lines)
		}
	}
}

func TestWriter_ReopenAppends(t *testing.T) {
	dir := t.TempDir()
	fixed := func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	for i := 0; i < 2; i++ {
		w := NewWriter(Stream{Dir: dir, Prefix: "x"})
		w.now = fixed
		if err := w.Write(i); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	var n int
	err := ReadJSONL(filepath.Join(dir, "x-2026-03-01-10.jsonl.zst"), func([]byte) error { n++; return nil })
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}

func TestEventLogger_ReadBack(t *testing.T) {
	dir := t.TempDir()
	l := NewEventLogger(dir)
	in := []session.Event{
		{Tick: 1, Kind: session.EventJoin, PlayerID: 7, Name: "ada"},
		{Tick: 90, Kind: session.EventGather, PlayerID: 7, NodeID: 3, Resource: "IRON"},
		{Tick: 400, Kind: session.EventWin, PlayerID: 7, MatchID: "m"},
	}
	for _, e := range in {
		if err := l.WriteEvent(e); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	var got []session.Event
	if err := ReadEvents(dir, func(e session.Event) error { got = append(got, e); return nil }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != len(in) {
		t.Fatalf("got %d events", len(got))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("event %d: got %+v want %+v", i, got[i], in[i])
		}
	}
}

func TestStream_EachAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	s := Stream{Dir: dir, Prefix: "x"}
	w := NewWriter(s)
	now := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	for i := 0; i < 3; i++ {
		if err := w.Write(i); err != nil {
			t.Fatalf("write: %v", err)
		}
		now = now.Add(time.Hour)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Closing twice is harmless.
	if err := w.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	var got []string
	if err := s.Each(func(b []byte) error { got = append(got, string(b)); return nil }); err != nil {
		t.Fatalf("each: %v", err)
	}
	if strings.Join(got, ",") != "0,1,2" {
		t.Fatalf("lines=%v", got)
	}
}

func TestReadEvents_MissingDir(t *testing.T) {
	called := false
	err := ReadEvents(filepath.Join(t.TempDir(), "nope"), func(session.Event) error { called = true; return nil })
	if err != nil || called {
		t.Fatalf("err=%v called=%v", err, called)
	}
}

func TestStream_FilesIgnoresOtherNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"events-2026-01-01-00.jsonl.zst", "audit-2026-01-01-00.jsonl.zst", "events.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := Stream{Dir: dir, Prefix: "events"}.Files()
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
}
