// Package loopback is an in-process Transport used by tests and local
// multi-peer runs. It can drop unreliable sends and inject link failures.
package loopback

import (
	"fmt"
	"sync"

	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/transport"
)

// LossFunc decides whether an unreliable send from -> to is lost.
type LossFunc func(from, to uint64) bool

type Network struct {
	mu        sync.Mutex
	endpoints map[uint64]*Endpoint
	loss      LossFunc
}

func NewNetwork() *Network {
	return &Network{endpoints: map[uint64]*Endpoint{}}
}

// SetLoss installs f for unreliable sends; nil delivers everything.
func (n *Network) SetLoss(f LossFunc) {
	n.mu.Lock()
	n.loss = f
	n.mu.Unlock()
}

// Join attaches a new endpoint. Joining an id twice returns the existing endpoint.
func (n *Network) Join(id uint64) *Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ep := n.endpoints[id]; ep != nil {
		return ep
	}
	ep := &Endpoint{net: n, id: id, q: transport.NewQueue()}
	n.endpoints[id] = ep
	return ep
}

// Drop detaches id. Every remaining endpoint receives a Dropped packet for it
// and the dropped endpoint itself fails with transport.ErrClosed.
func (n *Network) Drop(id uint64) {
	n.mu.Lock()
	ep := n.endpoints[id]
	delete(n.endpoints, id)
	others := make([]*Endpoint, 0, len(n.endpoints))
	for _, o := range n.endpoints {
		others = append(others, o)
	}
	n.mu.Unlock()

	if ep == nil {
		return
	}
	ep.q.Fail(transport.ErrClosed)
	for _, o := range others {
		o.q.Push(transport.Packet{From: id, Dropped: true})
	}
}

// Fail makes every later Send from id return err and its Poll return err
// once drained.
func (n *Network) Fail(id uint64, err error) {
	n.mu.Lock()
	ep := n.endpoints[id]
	n.mu.Unlock()
	if ep == nil {
		return
	}
	ep.mu.Lock()
	ep.sendErr = err
	ep.mu.Unlock()
	ep.q.Fail(err)
}

func (n *Network) deliver(from, to uint64, b []byte, d protocol.Delivery) {
	n.mu.Lock()
	dst := n.endpoints[to]
	lossy := d == protocol.Unreliable && n.loss != nil && n.loss(from, to)
	n.mu.Unlock()
	if dst == nil || lossy {
		return
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	dst.q.Push(transport.Packet{From: from, Data: cp})
}

// Endpoint is one peer's view of the network.
type Endpoint struct {
	net *Network
	id  uint64
	q   *transport.Queue

	mu      sync.Mutex
	sendErr error
}

var _ transport.Transport = (*Endpoint)(nil)

func (e *Endpoint) ID() uint64 { return e.id }

func (e *Endpoint) Send(to uint64, b []byte, d protocol.Delivery) error {
	e.mu.Lock()
	err := e.sendErr
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("loopback send %d->%d: %w", e.id, to, err)
	}
	if qerr := e.q.Err(); qerr != nil {
		return fmt.Errorf("loopback send %d->%d: %w", e.id, to, qerr)
	}
	e.net.deliver(e.id, to, b, d)
	return nil
}

func (e *Endpoint) Poll() (transport.Packet, bool, error) { return e.q.Pop() }

// Pending reports queued inbound packets.
func (e *Endpoint) Pending() int { return e.q.Len() }
