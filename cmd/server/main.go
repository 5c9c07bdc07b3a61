package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"gatherandgrow/internal/bot"
	"gatherandgrow/internal/persistence/archive"
	persistlog "gatherandgrow/internal/persistence/log"
	"gatherandgrow/internal/persistence/snapshot"
	"gatherandgrow/internal/session"
	"gatherandgrow/internal/sim/tuning"
	"gatherandgrow/internal/transport/observer"
	"gatherandgrow/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":7777", "http listen address")
		peerID     = flag.Uint64("id", 0, "host peer id (0 picks a random id)")
		name       = flag.String("name", "host", "host player name")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml (missing file uses defaults)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		seed       = flag.Int64("seed", 0, "world seed (0 derives one from the clock)")
		minPlayers = flag.Int("min_players", 2, "start the match once this many players are in the lobby (0 disables auto-start)")
		autoplay   = flag.Bool("autoplay", false, "let a bot play the host's character")
		linger     = flag.Duration("linger", 0, "exit this long after a victory (0 keeps serving)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite match index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	if err := applyEnv(flag.CommandLine, "GAG_"); err != nil {
		logger.Fatalf("env: %v", err)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	id := *peerID
	if id == 0 {
		id = randomPeerID()
	}
	matchSeed := *seed
	if matchSeed == 0 {
		matchSeed = time.Now().UnixNano()
	}

	ctx, cancel := signalContext()
	defer cancel()

	host := ws.NewHost(id, ws.HostConfig{MaxPeers: tune.MaxPlayers - 1}, logger)
	coord := session.New(session.Config{LocalID: id, LocalName: *name, Tuning: tune, Logger: logger}, host)

	eventLog := persistlog.NewEventLogger(*dataDir)
	defer eventLog.Close()

	idx, err := openRuntimeIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
		coord.SetEventLogger(multiEventLogger{a: eventLog, b: idx})
	} else {
		coord.SetEventLogger(eventLog)
	}

	// Snapshot writer.
	snapCh := make(chan snapshot.MatchV1, 4)
	coord.SetSnapshotSink(snapCh)
	var snapWG sync.WaitGroup
	snapWG.Add(1)
	go func() {
		defer snapWG.Done()
		for snap := range snapCh {
			path := filepath.Join(*dataDir, "matches", snap.Header.MatchID, snapshot.FileName(snap.Header.Tick))
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.Printf("snapshot write: %v", err)
				continue
			}
			if idx != nil {
				idx.RecordSnapshot(path, snap)
			}
			if archived, ok, err := archive.ArchiveMatchSnapshot(*dataDir, path, snap); err != nil {
				logger.Printf("archive match snapshot: %v", err)
			} else if ok {
				logger.Printf("archived %s", archived)
			}
		}
	}()

	obs := observer.NewServer(logger)
	var metrics metricsBox

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		m := metrics.load()
		m.Peers = host.PeerCount()
		m.Observers = obs.Subscribers()
		if idx != nil {
			m.Index = idx.Stats()
			m.HasIndex = true
		}
		writeMetrics(rw, m)
	})
	mux.HandleFunc("/v1/peer", host.Handler())
	mux.HandleFunc("/v1/state", obs.StateHandler())
	mux.HandleFunc("/v1/observe", obs.WSHandler())
	if envBool("GAG_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatalf("listen: %v", err)
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Printf("serve: %v", err)
			cancel()
		}
	}()
	logger.Printf("listening on %s as peer %d", ln.Addr(), id)

	if err := coord.HostStart(); err != nil {
		logger.Fatalf("host start: %v", err)
	}
	var autoBot *bot.Bot
	if *autoplay {
		autoBot = bot.New(coord, matchSeed, logger)
	}

	runLoop(ctx, loopConfig{
		coord:      coord,
		bot:        autoBot,
		obs:        obs,
		metrics:    &metrics,
		tune:       tune,
		seed:       matchSeed,
		minPlayers: *minPlayers,
		linger:     *linger,
		logger:     logger,
	})

	coord.Leave()
	close(snapCh)
	snapWG.Wait()

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	_ = host.Close()
	logger.Printf("stopped: %s", formatStats(coord.Stats()))
}

type loopConfig struct {
	coord      *session.Coordinator
	bot        *bot.Bot
	obs        *observer.Server
	metrics    *metricsBox
	tune       tuning.Tuning
	seed       int64
	minPlayers int
	linger     time.Duration
	logger     *log.Logger
}

// runLoop owns the coordinator until ctx ends or the linger after a victory
// runs out.
func runLoop(ctx context.Context, cfg loopConfig) {
	c := cfg.coord
	dt := cfg.tune.TickSeconds()
	ticker := time.NewTicker(time.Second / time.Duration(cfg.tune.TickRateHz))
	defer ticker.Stop()

	publishEvery := uint64(cfg.tune.TickRateHz / cfg.tune.BroadcastRateHz)
	if publishEvery == 0 {
		publishEvery = 1
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		start := time.Now()
		if cfg.bot != nil {
			cfg.bot.Tick(dt)
		}
		c.OnTick(dt)

		switch c.Phase() {
		case session.PhaseInLobby:
			if cfg.minPlayers > 0 && c.World().PlayerCount() >= cfg.minPlayers {
				if err := c.StartGame(cfg.seed); err != nil {
					cfg.logger.Printf("start game: %v", err)
				}
			}
		case session.PhaseVictory:
			if cfg.linger > 0 && time.Duration(float64(c.VictoryTimer())*float64(time.Second)) >= cfg.linger {
				cfg.logger.Printf("victory linger elapsed; shutting down")
				return
			}
		case session.PhaseMainMenu:
			if faulted, reason := c.Fault(); faulted {
				cfg.logger.Printf("session fault: %s", reason)
				return
			}
		}

		if c.Tick()%publishEvery == 0 {
			cfg.obs.Publish(c.View())
		}
		cfg.metrics.store(serverMetrics{
			Tick:    c.Tick(),
			Phase:   c.Phase().String(),
			Players: c.World().PlayerCount(),
			Stats:   c.Stats(),
			StepMS:  float64(time.Since(start).Microseconds()) / 1000,
		})
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// randomPeerID draws a nonzero id from a random uuid.
func randomPeerID() uint64 {
	u := uuid.New()
	if id := binary.LittleEndian.Uint64(u[:8]); id != 0 {
		return id
	}
	return 1
}

func formatStats(s session.Stats) string {
	return strings.Join([]string{
		fmt.Sprintf("ticks=%d", s.Ticks),
		fmt.Sprintf("received=%d", s.Received),
		fmt.Sprintf("sent=%d", s.Sent),
		fmt.Sprintf("malformed=%d", s.Malformed),
		fmt.Sprintf("rejected=%d", s.Rejected),
		fmt.Sprintf("faults=%d", s.Faults),
	}, " ")
}
