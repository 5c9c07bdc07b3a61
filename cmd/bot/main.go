package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"

	"gatherandgrow/internal/bot"
	"gatherandgrow/internal/session"
	"gatherandgrow/internal/sim/tuning"
	"gatherandgrow/internal/transport/ws"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:7777/v1/peer", "host ws url")
		name       = flag.String("name", "bot", "player name")
		peerID     = flag.Uint64("id", 0, "peer id (0 picks a random id)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml; must match the host's")
		seed       = flag.Int64("seed", 0, "bot decision seed (0 derives one from the id)")
		linger     = flag.Duration("linger", 3*time.Second, "exit this long after the match is won")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = tuning.Defaults()
	}

	id := *peerID
	if id == 0 {
		u := uuid.New()
		id = binary.LittleEndian.Uint64(u[:8]) | 1
	}
	botSeed := *seed
	if botSeed == 0 {
		botSeed = int64(id)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	dialCtx, cancelDial := context.WithTimeout(ctx, 10*time.Second)
	peer, err := ws.Dial(dialCtx, *url, id, logger)
	cancelDial()
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer peer.Close()

	c := session.New(session.Config{LocalID: id, LocalName: *name, Tuning: tune, Logger: logger}, peer)
	if err := c.Connect(peer.HostID()); err != nil {
		logger.Fatalf("connect: %v", err)
	}
	logger.Printf("joined host %d as %d (%s)", peer.HostID(), id, *name)
	b := bot.New(c, botSeed, logger)

	dt := tune.TickSeconds()
	ticker := time.NewTicker(time.Second / time.Duration(tune.TickRateHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.Leave()
			return
		case <-ticker.C:
		}
		b.Tick(dt)
		c.OnTick(dt)

		switch c.Phase() {
		case session.PhaseMainMenu:
			_, reason := c.Fault()
			logger.Printf("session ended: %s", reason)
			return
		case session.PhaseVictory:
			if time.Duration(float64(c.VictoryTimer())*float64(time.Second)) >= *linger {
				winner, _ := c.WinnerID()
				logger.Printf("match over, winner=%d (me=%v)", winner, winner == id)
				c.Leave()
				return
			}
		}
	}
}
