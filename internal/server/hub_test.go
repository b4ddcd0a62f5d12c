package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/publish"
	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, s *Server) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, ts
}

func readSnapshot(t *testing.T, conn *websocket.Conn) publish.Snapshot {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var snap publish.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return snap
}

func waitClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", h.Clients(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_GreetsWithCurrentSnapshot(t *testing.T) {
	s, pub := createTestServer(t, "")
	pub.Publish("-.-. --.-", "CQ")

	conn, _ := dialHub(t, s)

	snap := readSnapshot(t, conn)
	if snap.Message != "CQ" || snap.Raw != "-.-. --.-" {
		t.Errorf("greeting = %+v", snap)
	}
}

func TestHub_DeliverPushesToClients(t *testing.T) {
	s, pub := createTestServer(t, "")
	conn, _ := dialHub(t, s)
	readSnapshot(t, conn)
	waitClients(t, s.Hub(), 1)

	pub.Publish("-.. .", "DE")
	if err := s.Hub().Deliver(context.Background(), pub.Snapshot()); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	snap := readSnapshot(t, conn)
	if snap.Message != "DE" || snap.Cycle != 1 {
		t.Errorf("pushed = %+v", snap)
	}
}

func TestHub_ThroughFanout(t *testing.T) {
	s, pub := createTestServer(t, "")
	conn, _ := dialHub(t, s)
	readSnapshot(t, conn)
	waitClients(t, s.Hub(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := publish.NewFanout(pub.Updates(), nil)
	f.Add(s.Hub())
	go f.Run(ctx)

	pub.Publish(".", "E")
	if snap := readSnapshot(t, conn); snap.Message != "E" {
		t.Errorf("pushed = %+v", snap)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	s, _ := createTestServer(t, "")
	conn, _ := dialHub(t, s)
	readSnapshot(t, conn)
	waitClients(t, s.Hub(), 1)

	conn.Close()
	waitClients(t, s.Hub(), 0)
}

func TestHub_SlowClientKeepsNewest(t *testing.T) {
	h := NewHub(publish.New(), nil)
	c := &client{send: make(chan publish.Snapshot, clientBuffer)}
	h.clients[c] = struct{}{}

	for i := 1; i <= clientBuffer+3; i++ {
		_ = h.Deliver(context.Background(), publish.Snapshot{Cycle: uint64(i)})
	}

	var last publish.Snapshot
	for len(c.send) > 0 {
		last = <-c.send
	}
	if last.Cycle != clientBuffer+3 {
		t.Errorf("last queued cycle = %d, want %d", last.Cycle, clientBuffer+3)
	}
}

func TestHub_CloseRefusesClients(t *testing.T) {
	s, _ := createTestServer(t, "")
	conn, _ := dialHub(t, s)
	readSnapshot(t, conn)
	waitClients(t, s.Hub(), 1)

	s.Hub().Close()
	if got := s.Hub().Clients(); got != 0 {
		t.Errorf("Clients() after Close = %d, want 0", got)
	}
	if err := s.Hub().Deliver(context.Background(), publish.Snapshot{}); err != nil {
		t.Errorf("Deliver() after Close error = %v", err)
	}
	if name := s.Hub().Name(); name != "websocket" {
		t.Errorf("Name() = %q", name)
	}
}
