package observer

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gatherandgrow/internal/observerproto"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/state", s.StateHandler())
	mux.HandleFunc("/v1/observe", s.WSHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return s, ts
}

func dialObserve(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/observe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) observerproto.StateMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m observerproto.StateMsg
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

func TestObserve_SendsLatestThenUpdates(t *testing.T) {
	s, ts := newTestServer(t)
	s.Publish(observerproto.StateMsg{Type: "STATE", ProtocolVersion: observerproto.Version, Tick: 1, Phase: "IN_LOBBY"})

	conn := dialObserve(t, ts)
	if err := conn.WriteJSON(observerproto.SubscribeMsg{Type: "SUBSCRIBE", ProtocolVersion: observerproto.Version, MaxHz: 60}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if m := readState(t, conn); m.Tick != 1 || m.Phase != "IN_LOBBY" {
		t.Fatalf("first state %+v", m)
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.Subscribers() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Publish(observerproto.StateMsg{Type: "STATE", ProtocolVersion: observerproto.Version, Tick: 2, Phase: "PLAYING"})
	if m := readState(t, conn); m.Tick != 2 || m.Phase != "PLAYING" {
		t.Fatalf("second state %+v", m)
	}
}

func TestObserve_RejectsBadSubscribe(t *testing.T) {
	_, ts := newTestServer(t)
	conn := dialObserve(t, ts)
	if err := conn.WriteJSON(observerproto.SubscribeMsg{Type: "HELLO", ProtocolVersion: observerproto.Version}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestStateHandler(t *testing.T) {
	s, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/v1/state")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status before publish=%d", resp.StatusCode)
	}

	s.Publish(observerproto.StateMsg{Type: "STATE", ProtocolVersion: observerproto.Version, Tick: 9})
	resp, err = http.Get(ts.URL + "/v1/state")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	var m observerproto.StateMsg
	if err := json.Unmarshal(b, &m); err != nil || m.Tick != 9 {
		t.Fatalf("state=%s err=%v", b, err)
	}
}

func TestOffer_KeepsNewest(t *testing.T) {
	ch := make(chan []byte, 1)
	offer(ch, []byte("a"))
	offer(ch, []byte("b"))
	if got := string(<-ch); got != "b" {
		t.Fatalf("got %q", got)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:5000":  false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("%s: got %v want %v", addr, got, want)
		}
	}
}
