package main

import (
	"fmt"
	"io"
	"sync"

	"gatherandgrow/internal/persistence/indexdb"
	"gatherandgrow/internal/session"
)

type serverMetrics struct {
	Tick    uint64
	Phase   string
	Players int
	Stats   session.Stats
	StepMS  float64

	Peers     int
	Observers int
	HasIndex  bool
	Index     indexdb.Stats
}

// metricsBox hands the loop's latest numbers to the HTTP goroutines.
type metricsBox struct {
	mu sync.Mutex
	m  serverMetrics
}

func (b *metricsBox) store(m serverMetrics) {
	b.mu.Lock()
	b.m = m
	b.mu.Unlock()
}

func (b *metricsBox) load() serverMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.m
}

var phases = []string{"MAIN_MENU", "IN_LOBBY", "PLAYING", "VICTORY"}

// writeMetrics renders the minimal Prometheus exposition format.
func writeMetrics(w io.Writer, m serverMetrics) {
	fmt.Fprintf(w, "# HELP gag_session_tick Coordinator tick count.\n")
	fmt.Fprintf(w, "# TYPE gag_session_tick counter\n")
	fmt.Fprintf(w, "gag_session_tick %d\n", m.Tick)
	fmt.Fprintf(w, "# HELP gag_session_phase Current phase (1 for the active one).\n")
	fmt.Fprintf(w, "# TYPE gag_session_phase gauge\n")
	for _, p := range phases {
		v := 0
		if p == m.Phase {
			v = 1
		}
		fmt.Fprintf(w, "gag_session_phase{phase=%q} %d\n", p, v)
	}
	fmt.Fprintf(w, "# HELP gag_session_players Players in the world.\n")
	fmt.Fprintf(w, "# TYPE gag_session_players gauge\n")
	fmt.Fprintf(w, "gag_session_players %d\n", m.Players)
	fmt.Fprintf(w, "# HELP gag_transport_peers Connected peer links.\n")
	fmt.Fprintf(w, "# TYPE gag_transport_peers gauge\n")
	fmt.Fprintf(w, "gag_transport_peers %d\n", m.Peers)
	fmt.Fprintf(w, "# HELP gag_observer_subscribers Connected observer feeds.\n")
	fmt.Fprintf(w, "# TYPE gag_observer_subscribers gauge\n")
	fmt.Fprintf(w, "gag_observer_subscribers %d\n", m.Observers)
	fmt.Fprintf(w, "# HELP gag_session_messages_total Session message counters.\n")
	fmt.Fprintf(w, "# TYPE gag_session_messages_total counter\n")
	fmt.Fprintf(w, "gag_session_messages_total{kind=%q} %d\n", "received", m.Stats.Received)
	fmt.Fprintf(w, "gag_session_messages_total{kind=%q} %d\n", "sent", m.Stats.Sent)
	fmt.Fprintf(w, "gag_session_messages_total{kind=%q} %d\n", "malformed", m.Stats.Malformed)
	fmt.Fprintf(w, "gag_session_messages_total{kind=%q} %d\n", "rejected", m.Stats.Rejected)
	fmt.Fprintf(w, "# HELP gag_session_faults_total Transport faults.\n")
	fmt.Fprintf(w, "# TYPE gag_session_faults_total counter\n")
	fmt.Fprintf(w, "gag_session_faults_total %d\n", m.Stats.Faults)
	fmt.Fprintf(w, "# HELP gag_session_step_ms Last tick duration in milliseconds.\n")
	fmt.Fprintf(w, "# TYPE gag_session_step_ms gauge\n")
	fmt.Fprintf(w, "gag_session_step_ms %.3f\n", m.StepMS)
	if !m.HasIndex {
		return
	}
	fmt.Fprintf(w, "# HELP gag_index_queue_depth Index writer backlog.\n")
	fmt.Fprintf(w, "# TYPE gag_index_queue_depth gauge\n")
	fmt.Fprintf(w, "gag_index_queue_depth %d\n", m.Index.QueueDepth)
	fmt.Fprintf(w, "# HELP gag_index_dropped_total Index writes dropped under backpressure.\n")
	fmt.Fprintf(w, "# TYPE gag_index_dropped_total counter\n")
	fmt.Fprintf(w, "gag_index_dropped_total{kind=%q} %d\n", "event", m.Index.DropEvents)
	fmt.Fprintf(w, "gag_index_dropped_total{kind=%q} %d\n", "snapshot", m.Index.DropSnapshots)
}
