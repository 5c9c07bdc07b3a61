// Package log persists session events as hourly zstd-compressed JSON lines
// and reads them back for offline inspection.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"gatherandgrow/internal/session"
)

const (
	hourLayout = "2006-01-02-15"
	suffix     = ".jsonl.zst"
)

// Stream names a rotated log: files <Prefix>-YYYY-MM-DD-HH.jsonl.zst in Dir.
type Stream struct {
	Dir    string
	Prefix string
}

func eventStream(dataDir string) Stream {
	return Stream{Dir: filepath.Join(dataDir, "events"), Prefix: "events"}
}

func (s Stream) path(hour string) string {
	return filepath.Join(s.Dir, s.Prefix+"-"+hour+suffix)
}

// Files lists the stream's files oldest first. A missing directory is empty.
func (s Stream) Files() ([]string, error) {
	ents, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, s.Prefix+"-") && strings.HasSuffix(name, suffix) {
			out = append(out, filepath.Join(s.Dir, name))
		}
	}
	sort.Strings(out) // hour stamps sort lexically
	return out, nil
}

// Each calls fn for every non-empty line across all files in order.
func (s Stream) Each(fn func(line []byte) error) error {
	files, err := s.Files()
	if err != nil {
		return err
	}
	for _, p := range files {
		if err := ReadJSONL(p, fn); err != nil {
			return err
		}
	}
	return nil
}

// ReadJSONL calls fn for each line of one compressed file. A frame cut short
// by a crashed writer ends the scan quietly after the complete lines.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// segment is one open hourly file.
type segment struct {
	hour string
	f    *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer
}

func openSegment(path, hour string) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{hour: hour, f: f, enc: enc, buf: bufio.NewWriterSize(enc, 32*1024)}, nil
}

// appendLine writes line plus a newline and flushes a complete zstd block so
// a tailing reader sees it.
func (s *segment) appendLine(line []byte) error {
	if _, err := s.buf.Write(line); err != nil {
		return err
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.enc.Flush()
}

func (s *segment) close() error {
	_ = s.buf.Flush()
	err := s.enc.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Writer appends JSON values to a Stream, starting a new file each UTC hour.
// It is safe for concurrent use.
type Writer struct {
	stream Stream
	now    func() time.Time

	mu  sync.Mutex
	cur *segment
}

func NewWriter(s Stream) *Writer {
	return &Writer{stream: s, now: time.Now}
}

func (w *Writer) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	hour := w.now().UTC().Format(hourLayout)
	if w.cur == nil || w.cur.hour != hour {
		if err := w.closeLocked(); err != nil {
			return err
		}
		if w.cur, err = openSegment(w.stream.path(hour), hour); err != nil {
			return err
		}
	}
	return w.cur.appendLine(b)
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) closeLocked() error {
	if w.cur == nil {
		return nil
	}
	err := w.cur.close()
	w.cur = nil
	return err
}

// EventLogger records session events under dataDir/events.
type EventLogger struct{ w *Writer }

var _ session.EventLogger = (*EventLogger)(nil)

func NewEventLogger(dataDir string) *EventLogger {
	return &EventLogger{w: NewWriter(eventStream(dataDir))}
}

func (l *EventLogger) WriteEvent(e session.Event) error { return l.w.Write(e) }
func (l *EventLogger) Close() error                     { return l.w.Close() }

// ReadEvents streams every event under dataDir/events in write order.
func ReadEvents(dataDir string, fn func(session.Event) error) error {
	return eventStream(dataDir).Each(func(line []byte) error {
		var e session.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		return fn(e)
	})
}
