// Package ws carries session traffic over gorilla/websocket. The host accepts
// peer connections on an HTTP handler; peers dial the host. All messages are
// binary frames holding one encoded protocol message.
package ws

import (
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/transport"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
	pingInterval     = 20 * time.Second
)

type HostConfig struct {
	// MaxPeers caps concurrent remote peers (the host itself excluded).
	MaxPeers int
	// MaxFrameBytes bounds a single inbound frame.
	MaxFrameBytes int64
	// FramesPerSecond and Burst rate-limit inbound frames per peer; excess frames are dropped.
	FramesPerSecond float64
	Burst           int
	// SendQueue is the per-peer outbound buffer in frames.
	SendQueue int
}

func (c *HostConfig) normalize() {
	if c.MaxPeers <= 0 {
		c.MaxPeers = 3
	}
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = 1 << 20
	}
	if c.FramesPerSecond <= 0 {
		c.FramesPerSecond = 240
	}
	if c.Burst <= 0 {
		c.Burst = 480
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 256
	}
}

// Host is the listening side of the session transport.
type Host struct {
	id  uint64
	cfg HostConfig
	log *log.Logger

	upgrader websocket.Upgrader
	q        *transport.Queue

	mu     sync.Mutex
	peers  map[uint64]*peerConn
	closed bool
}

var _ transport.Transport = (*Host)(nil)

type peerConn struct {
	id   uint64
	conn *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (p *peerConn) kill() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

func NewHost(localID uint64, cfg HostConfig, logger *log.Logger) *Host {
	cfg.normalize()
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Host{
		id:  localID,
		cfg: cfg,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		q:     transport.NewQueue(),
		peers: map[uint64]*peerConn{},
	}
}

func (h *Host) ID() uint64 { return h.id }

// PeerCount reports currently connected remote peers.
func (h *Host) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *Host) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetReadLimit(h.cfg.MaxFrameBytes)

		p := h.handshake(conn)
		if p == nil {
			return
		}
		defer h.unregister(p)

		go h.writeLoop(p)

		lim := rate.NewLimiter(rate.Limit(h.cfg.FramesPerSecond), h.cfg.Burst)
		dropped := 0
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			if !lim.Allow() {
				dropped++
				if dropped == 1 || dropped%100 == 0 {
					h.log.Printf("peer %d: inbound rate limit, dropped=%d", p.id, dropped)
				}
				continue
			}
			h.q.Push(transport.Packet{From: p.id, Data: msg})
		}
	}
}

func (h *Host) handshake(conn *websocket.Conn) *peerConn {
	reject := func(reason string) *peerConn {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
		return nil
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	mt, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}
	if mt != websocket.BinaryMessage {
		return reject("expected hello")
	}
	id, err := decodeHello(msg)
	if err != nil {
		return reject("bad hello")
	}
	if id == h.id {
		return reject("peer id collides with host")
	}

	p := &peerConn{
		id:   id,
		conn: conn,
		out:  make(chan []byte, h.cfg.SendQueue),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	switch {
	case h.closed:
		h.mu.Unlock()
		return reject("host closed")
	case h.peers[id] != nil:
		h.mu.Unlock()
		return reject("duplicate peer id")
	case len(h.peers) >= h.cfg.MaxPeers:
		h.mu.Unlock()
		return reject("session full")
	}
	h.peers[id] = p
	h.mu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, encodeHello(h.id)); err != nil {
		h.mu.Lock()
		delete(h.peers, id)
		h.mu.Unlock()
		return nil
	}
	h.log.Printf("peer %d connected from %s", id, conn.RemoteAddr())
	return p
}

func (h *Host) writeLoop(p *peerConn) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ping.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				p.kill()
				return
			}
		case b := <-p.out:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := p.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				p.kill()
				return
			}
		}
	}
}

// unregister runs when a peer's reader exits and reports the drop to the session.
func (h *Host) unregister(p *peerConn) {
	p.kill()
	h.mu.Lock()
	cur := h.peers[p.id]
	if cur == p {
		delete(h.peers, p.id)
	}
	closed := h.closed
	h.mu.Unlock()
	if cur == p && !closed {
		h.log.Printf("peer %d disconnected", p.id)
		h.q.Push(transport.Packet{From: p.id, Dropped: true})
	}
}

// Send queues b for peer to. A full queue drops unreliable frames and
// disconnects the peer for reliable ones, since ordering can no longer be kept.
func (h *Host) Send(to uint64, b []byte, d protocol.Delivery) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return transport.ErrClosed
	}
	p := h.peers[to]
	h.mu.Unlock()
	if p == nil {
		return nil
	}

	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case <-p.done:
	case p.out <- cp:
	default:
		if d == protocol.Reliable {
			h.log.Printf("peer %d: send queue full, disconnecting", to)
			p.kill()
		}
	}
	return nil
}

func (h *Host) Poll() (transport.Packet, bool, error) { return h.q.Pop() }
func (h *Host) Pending() int                           { return h.q.Len() }

// Close disconnects every peer. Later sends and polls fail with transport.ErrClosed.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	peers := make([]*peerConn, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.peers = map[uint64]*peerConn{}
	h.mu.Unlock()

	for _, p := range peers {
		_ = p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "host closed"), time.Now().Add(time.Second))
		p.kill()
	}
	h.q.Fail(transport.ErrClosed)
	return nil
}
