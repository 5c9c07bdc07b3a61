package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/transport"
)

// Peer is the dialing side. It only has a link to the host; sends addressed
// to anyone else are discarded.
type Peer struct {
	id     uint64
	hostID uint64
	conn   *websocket.Conn
	log    *log.Logger

	q    *transport.Queue
	out  chan []byte
	done chan struct{}
	once sync.Once
}

var _ transport.Transport = (*Peer)(nil)

// Dial connects to a host handler at url and performs the hello exchange.
func Dial(ctx context.Context, url string, localID uint64, logger *log.Logger) (*Peer, error) {
	if localID == 0 {
		return nil, errors.New("ws: local id must be non-zero")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	d := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws: dial %s: %w", url, err)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, encodeHello(localID)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ws: hello: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ws: hello ack: %w", err)
	}
	hostID, err := decodeHello(msg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	p := &Peer{
		id:     localID,
		hostID: hostID,
		conn:   conn,
		log:    logger,
		q:      transport.NewQueue(),
		out:    make(chan []byte, 256),
		done:   make(chan struct{}),
	}
	go p.readLoop()
	go p.writeLoop()
	return p, nil
}

func (p *Peer) HostID() uint64 { return p.hostID }

func (p *Peer) fail(err error) {
	p.q.Fail(err)
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

func (p *Peer) readLoop() {
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		_ = p.conn.SetReadDeadline(time.Now().Add(readTimeout))
		mt, msg, err := p.conn.ReadMessage()
		if err != nil {
			p.fail(fmt.Errorf("ws: read: %w", err))
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		p.q.Push(transport.Packet{From: p.hostID, Data: msg})
	}
}

func (p *Peer) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ping.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				p.fail(fmt.Errorf("ws: ping: %w", err))
				return
			}
		case b := <-p.out:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := p.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
				p.fail(fmt.Errorf("ws: write: %w", err))
				return
			}
		}
	}
}

func (p *Peer) Send(to uint64, b []byte, d protocol.Delivery) error {
	if err := p.q.Err(); err != nil {
		return err
	}
	if to != p.hostID {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case p.out <- cp:
		return nil
	default:
	}
	if d == protocol.Unreliable {
		return nil
	}
	err := errors.New("ws: send queue full")
	p.fail(err)
	return err
}

func (p *Peer) Poll() (transport.Packet, bool, error) { return p.q.Pop() }
func (p *Peer) Pending() int                           { return p.q.Len() }

func (p *Peer) Close() error {
	p.q.Fail(transport.ErrClosed)
	_ = p.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	p.fail(transport.ErrClosed)
	return nil
}
