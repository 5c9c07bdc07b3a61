package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gatherandgrow/internal/persistence/indexdb"
	"gatherandgrow/internal/persistence/snapshot"
	"gatherandgrow/internal/session"
	"gatherandgrow/internal/sim/tuning"
)

type runtimeIndex interface {
	session.EventLogger
	Close() error
	UpsertTuning(tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.MatchV1)
	Stats() indexdb.Stats
}

func indexPath(dataDir string) string {
	return filepath.Join(dataDir, "index", "matches.sqlite")
}

func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("GAG_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(indexPath(dataDir))
	default:
		return nil, fmt.Errorf("unsupported GAG_INDEX_BACKEND: %s", backend)
	}
}

// multiEventLogger fans session events out to the JSONL log and the index.
// Either side may be nil.
type multiEventLogger struct {
	a session.EventLogger
	b session.EventLogger
}

func (m multiEventLogger) WriteEvent(e session.Event) error {
	var err error
	if m.a != nil {
		err = m.a.WriteEvent(e)
	}
	if m.b != nil {
		if err2 := m.b.WriteEvent(e); err == nil {
			err = err2
		}
	}
	return err
}
