// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voiceeq/pkg/utils"
)

// sizedPayload reports the size it was laid out for.
type sizedPayload struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (p sizedPayload) SizedFor(w, h int) any {
	return sizedPayload{Name: p.Name, Width: w, Height: h}
}

func newTestServer(t *testing.T) (*WebSocketTransport, *httptest.Server) {
	t.Helper()
	wst := NewWebSocketTransport("")
	srv := httptest.NewServer(wst.Handler())
	t.Cleanup(func() {
		wst.Close()
		srv.Close()
	})
	return wst, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readPayload(t *testing.T, conn *websocket.Conn) sizedPayload {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var p sizedPayload
	if err := conn.ReadJSON(&p); err != nil {
		t.Fatalf("read: %v", err)
	}
	return p
}

// readUntil reads payloads until match accepts one. A broadcast queued
// before the client connected may arrive ahead of the one wanted.
func readUntil(t *testing.T, conn *websocket.Conn, match func(sizedPayload) bool) sizedPayload {
	t.Helper()
	for range 4 {
		if p := readPayload(t, conn); match(p) {
			return p
		}
	}
	t.Fatal("expected payload never arrived")
	return sizedPayload{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	wst, srv := newTestServer(t)
	a := dial(t, srv)
	b := dial(t, srv)
	waitFor(t, func() bool { return wst.Clients() == 2 })

	if err := wst.Send(sizedPayload{Name: "chart", Width: 800, Height: 300}); err != nil {
		t.Fatal(err)
	}
	for _, conn := range []*websocket.Conn{a, b} {
		if p := readPayload(t, conn); p.Name != "chart" || p.Width != 800 {
			t.Errorf("got %+v", p)
		}
	}
}

func TestWebSocketLateJoinerGetsLatest(t *testing.T) {
	wst, srv := newTestServer(t)
	wst.Send(sizedPayload{Name: "first", Width: 800, Height: 300})
	wst.Send(sizedPayload{Name: "second", Width: 800, Height: 300})

	conn := dial(t, srv)
	readUntil(t, conn, func(p sizedPayload) bool { return p.Name == "second" })
}

func TestWebSocketResize(t *testing.T) {
	wst, srv := newTestServer(t)
	wst.Send(sizedPayload{Name: "chart", Width: 800, Height: 300})

	conn := dial(t, srv)
	readPayload(t, conn) // latest on connect

	if err := conn.WriteJSON(ClientMessage{Type: "resize", Width: 320, Height: 200}); err != nil {
		t.Fatal(err)
	}
	readUntil(t, conn, func(p sizedPayload) bool { return p.Width == 320 && p.Height == 200 })

	// Later broadcasts keep the client's size.
	wst.Send(sizedPayload{Name: "next", Width: 800, Height: 300})
	if p := readUntil(t, conn, func(p sizedPayload) bool { return p.Name == "next" }); p.Width != 320 {
		t.Errorf("broadcast after resize got %+v", p)
	}
}

func TestWebSocketResizeBurstKeepsFinalSize(t *testing.T) {
	wst, srv := newTestServer(t)
	wst.Send(sizedPayload{Name: "chart", Width: 800, Height: 300})

	conn := dial(t, srv)
	readPayload(t, conn)

	for w := 101; w <= 120; w++ {
		if err := conn.WriteJSON(ClientMessage{Type: "resize", Width: w, Height: 50}); err != nil {
			t.Fatal(err)
		}
	}

	// Resizes past the burst are answered once, with the last size.
	var p sizedPayload
	for i := 0; i < 20 && p.Width != 120; i++ {
		p = readPayload(t, conn)
	}
	if p.Width != 120 || p.Height != 50 {
		t.Fatalf("final resize answered with %+v", p)
	}

	wst.Send(sizedPayload{Name: "after-drag", Width: 800, Height: 300})
	if p := readUntil(t, conn, func(p sizedPayload) bool { return p.Name == "after-drag" }); p.Width != 120 {
		t.Errorf("broadcast after drag laid out for %dx%d, want 120x50", p.Width, p.Height)
	}
}

func TestWebSocketDisconnect(t *testing.T) {
	wst, srv := newTestServer(t)
	conn := dial(t, srv)
	waitFor(t, func() bool { return wst.Clients() == 1 })

	conn.Close()
	waitFor(t, func() bool { return wst.Clients() == 0 })
}

func TestLatestEndpoint(t *testing.T) {
	wst, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/latest")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status before any payload = %d", resp.StatusCode)
	}

	wst.Send(sizedPayload{Name: "chart", Width: 10, Height: 20})
	resp, err = http.Get(srv.URL + "/latest")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var p sizedPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Name != "chart" {
		t.Errorf("latest = %+v", p)
	}
}

func TestWebSocketCloseIdempotent(t *testing.T) {
	wst := NewWebSocketTransport("")
	if err := wst.Close(); err != nil {
		t.Fatal(err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

type failingTransport struct{ err error }

func (f failingTransport) Send(any) error { return f.err }
func (f failingTransport) Close() error   { return f.err }

func TestMultiFanout(t *testing.T) {
	a, b := &utils.MockTransport{}, &utils.MockTransport{}
	boom := errors.New("boom")
	m := Multi{a, failingTransport{boom}, b, NewLoggingTransport()}

	if err := m.Send("payload"); !errors.Is(err, boom) {
		t.Errorf("Send error = %v, want boom", err)
	}
	if a.Last() != "payload" || b.Last() != "payload" {
		t.Error("payload not delivered past a failing transport")
	}

	if err := m.Close(); !errors.Is(err, boom) {
		t.Errorf("Close error = %v", err)
	}
	if !a.Closed || !b.Closed {
		t.Error("transports not closed")
	}
}

func TestLoggingTransportCounts(t *testing.T) {
	lt := NewLoggingTransport()
	lt.Send(sizedPayload{Name: "x"})
	lt.Send(struct{ A int }{1})
	if lt.Sent() != 2 {
		t.Errorf("Sent = %d, want 2", lt.Sent())
	}
}
