package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gatherandgrow/internal/protocol"
	"gatherandgrow/internal/transport"
)

func startHost(t *testing.T, cfg HostConfig) (*Host, string) {
	t.Helper()
	h := NewHost(100, cfg, nil)
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(func() {
		_ = h.Close()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// waitPacket polls until a packet arrives or the deadline passes.
func waitPacket(t *testing.T, tr transport.Transport) transport.Packet {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		p, ok, err := tr.Poll()
		if err != nil {
			t.Fatalf("poll: %v", err)
		}
		if ok {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for packet")
	return transport.Packet{}
}

func TestHello(t *testing.T) {
	id, err := decodeHello(encodeHello(42))
	if err != nil || id != 42 {
		t.Fatalf("hello round trip: %d %v", id, err)
	}
	for _, bad := range [][]byte{nil, []byte("GAG1"), encodeHello(0), append([]byte("XXXX"), make([]byte, 8)...)} {
		if _, err := decodeHello(bad); !errors.Is(err, errBadHello) {
			t.Fatalf("accepted bad hello % x", bad)
		}
	}
}

func TestHostPeer_Exchange(t *testing.T) {
	h, url := startHost(t, HostConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p, err := Dial(ctx, url, 7, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer p.Close()
	if p.HostID() != 100 {
		t.Fatalf("host id=%d", p.HostID())
	}

	msg := protocol.Encode(protocol.PlayerJoined{PlayerID: 7, Name: "bot"})
	if err := p.Send(p.HostID(), msg, protocol.Reliable); err != nil {
		t.Fatalf("peer send: %v", err)
	}
	got := waitPacket(t, h)
	if got.From != 7 || string(got.Data) != string(msg) {
		t.Fatalf("host got %+v", got)
	}

	reply := protocol.Encode(protocol.GameWon{WinnerID: 7})
	if err := h.Send(7, reply, protocol.Reliable); err != nil {
		t.Fatalf("host send: %v", err)
	}
	got = waitPacket(t, p)
	if got.From != 100 || string(got.Data) != string(reply) {
		t.Fatalf("peer got %+v", got)
	}

	// Unknown destinations are not errors.
	if err := h.Send(999, reply, protocol.Reliable); err != nil {
		t.Fatalf("send to unknown: %v", err)
	}
}

func TestHost_RejectsDuplicateAndSelfIDs(t *testing.T) {
	_, url := startHost(t, HostConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p, err := Dial(ctx, url, 7, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer p.Close()

	if _, err := Dial(ctx, url, 7, nil); err == nil {
		t.Fatalf("duplicate id accepted")
	}
	if _, err := Dial(ctx, url, 100, nil); err == nil {
		t.Fatalf("host id accepted")
	}
}

func TestHost_SessionFull(t *testing.T) {
	_, url := startHost(t, HostConfig{MaxPeers: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p, err := Dial(ctx, url, 1, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer p.Close()
	if _, err := Dial(ctx, url, 2, nil); err == nil {
		t.Fatalf("second peer accepted past MaxPeers")
	}
}

func TestHost_ReportsDroppedPeer(t *testing.T) {
	h, url := startHost(t, HostConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p, err := Dial(ctx, url, 5, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = p.Close()

	got := waitPacket(t, h)
	if !got.Dropped || got.From != 5 {
		t.Fatalf("expected drop of 5, got %+v", got)
	}
	if _, _, err := p.Poll(); !errors.Is(err, transport.ErrClosed) {
		t.Fatalf("closed peer poll err=%v", err)
	}
}

func TestPeer_HostCloseIsFault(t *testing.T) {
	h, url := startHost(t, HostConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	p, err := Dial(ctx, url, 5, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = h.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, _, err := p.Poll(); err != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("peer never observed host close")
}

func TestHost_RejectsNonHelloFirstFrame(t *testing.T) {
	_, url := startHost(t, HostConfig{})
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.WriteMessage(websocket.TextMessage, []byte("hi"))
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}
