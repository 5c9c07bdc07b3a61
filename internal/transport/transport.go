// Package transport defines the byte-level link between session peers.
package transport

import (
	"errors"
	"sync"

	"gatherandgrow/internal/protocol"
)

// ErrClosed is returned by a transport after Close or after its link went away.
var ErrClosed = errors.New("transport closed")

// Packet is one inbound buffer. Dropped packets carry no data and announce that
// the link to From is gone.
type Packet struct {
	From    uint64
	Data    []byte
	Dropped bool
}

// Transport sends opaque buffers to peers and hands received ones to the
// session loop. Send and Poll never block; implementations must be safe for
// use from the session goroutine while their own I/O goroutines run.
type Transport interface {
	// Send queues b for peer to. A non-nil error is a fatal link failure;
	// sending to an unknown or already-dropped peer is not an error.
	Send(to uint64, b []byte, d protocol.Delivery) error
	// Poll returns the next packet, ok=false when none is queued, or an error
	// once the link has failed and every queued packet was delivered.
	Poll() (p Packet, ok bool, err error)
	// Pending reports how many packets are queued for Poll right now.
	Pending() int
}

// Queue is the hand-off between I/O goroutines and the session loop.
type Queue struct {
	mu   sync.Mutex
	pkts []Packet
	err  error
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Push(p Packet) {
	q.mu.Lock()
	if q.err == nil {
		q.pkts = append(q.pkts, p)
	}
	q.mu.Unlock()
}

// Fail records the first link error. Packets pushed afterwards are discarded.
func (q *Queue) Fail(err error) {
	if err == nil {
		return
	}
	q.mu.Lock()
	if q.err == nil {
		q.err = err
	}
	q.mu.Unlock()
}

func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Pop implements Transport.Poll.
func (q *Queue) Pop() (Packet, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pkts) > 0 {
		p := q.pkts[0]
		q.pkts[0] = Packet{}
		q.pkts = q.pkts[1:]
		return p, true, nil
	}
	if q.err != nil {
		return Packet{}, false, q.err
	}
	return Packet{}, false, nil
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pkts)
}
