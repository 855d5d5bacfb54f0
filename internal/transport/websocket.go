// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	applog "voiceeq/internal/log"
)

const (
	writeWait      = 5 * time.Second
	broadcastQueue = 16
	// A resize refused by the limiter is answered once the drag settles.
	resizeSettle = 200 * time.Millisecond
)

// ClientMessage is what a display may send back. Only "resize" is
// understood; it reports the client's chart surface in pixels.
type ClientMessage struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type wsClient struct {
	id      uuid.UUID
	conn    *websocket.Conn
	limiter *rate.Limiter

	writeMu sync.Mutex // gorilla allows one concurrent writer
	sizeMu        sync.Mutex
	width         int
	height        int
	resendPending bool
}

func (c *wsClient) size() (int, int) {
	c.sizeMu.Lock()
	defer c.sizeMu.Unlock()
	return c.width, c.height
}

func (c *wsClient) setSize(w, h int) {
	c.sizeMu.Lock()
	c.width, c.height = w, h
	c.sizeMu.Unlock()
}

// payloadFor picks the client-sized variant of data when the client has
// reported a surface.
func (c *wsClient) payloadFor(data any) any {
	if s, ok := data.(Sizer); ok {
		if w, h := c.size(); w > 0 && h > 0 {
			return s.SizedFor(w, h)
		}
	}
	return data
}

func (c *wsClient) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// WebSocketTransport serves chart payloads to browser displays on /ws.
// New clients immediately receive the latest payload. A client that sends
// a resize message gets its own re-laid-out copy of every payload.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[uuid.UUID]*wsClient
	clientsMu sync.Mutex
	broadcast chan any
	server    *http.Server
	done      chan struct{}
	closeOnce sync.Once

	latestMu sync.RWMutex
	latest   any
}

// NewWebSocketTransport creates the transport. With a non-empty addr it
// also starts listening; with an empty one the caller mounts Handler.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local displays only
			},
		},
		clients:   make(map[uuid.UUID]*wsClient),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
	}

	go wst.handleBroadcasts()
	if addr != "" {
		wst.start()
	}
	return wst
}

// Handler returns the transport's HTTP routes.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	mux.HandleFunc("/latest", wst.handleLatest)
	return mux
}

func (wst *WebSocketTransport) start() {
	wst.server = &http.Server{
		Addr:              wst.addr,
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		applog.Infof("WebSocketTransport: Starting WebSocket server on %s", wst.addr)
		if err := wst.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
}

func (wst *WebSocketTransport) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest := wst.Latest()
	if latest == nil {
		http.Error(w, "no chart yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(latest); err != nil {
		applog.Warnf("WebSocketTransport: Error encoding latest payload: %v", err)
	}
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	c := &wsClient{
		id:      uuid.New(),
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}

	wst.clientsMu.Lock()
	wst.clients[c.id] = c
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client %s connected, total: %d", c.id, total)

	if latest := wst.Latest(); latest != nil {
		if err := c.writeJSON(latest); err != nil {
			wst.drop(c, err)
			return
		}
	}

	go wst.readLoop(c)
}

// readLoop handles resize messages until the client goes away.
func (wst *WebSocketTransport) readLoop(c *wsClient) {
	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			wst.drop(c, nil)
			return
		}
		if msg.Type != "resize" {
			applog.Debugf("WebSocketTransport: Client %s sent unknown message %q", c.id, msg.Type)
			continue
		}

		c.setSize(msg.Width, msg.Height)
		applog.Debugf("WebSocketTransport: Client %s resized to %dx%d", c.id, msg.Width, msg.Height)
		if !c.limiter.Allow() {
			wst.scheduleResend(c)
			continue
		}
		if err := wst.sendLatest(c); err != nil {
			wst.drop(c, err)
			return
		}
	}
}

// sendLatest re-sends the latest payload laid out for c's current size.
func (wst *WebSocketTransport) sendLatest(c *wsClient) error {
	latest := wst.Latest()
	if latest == nil {
		return nil
	}
	return c.writeJSON(c.payloadFor(latest))
}

// scheduleResend queues one trailing sendLatest for c. Further resizes
// before it fires only update the size it will use.
func (wst *WebSocketTransport) scheduleResend(c *wsClient) {
	c.sizeMu.Lock()
	defer c.sizeMu.Unlock()
	if c.resendPending {
		return
	}
	c.resendPending = true

	time.AfterFunc(resizeSettle, func() {
		c.sizeMu.Lock()
		c.resendPending = false
		c.sizeMu.Unlock()

		select {
		case <-wst.done:
			return
		default:
		}
		if err := wst.sendLatest(c); err != nil {
			wst.drop(c, err)
		}
	})
}

func (wst *WebSocketTransport) drop(c *wsClient, err error) {
	wst.clientsMu.Lock()
	_, present := wst.clients[c.id]
	delete(wst.clients, c.id)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	c.conn.Close()
	if !present {
		return
	}
	if err != nil {
		applog.Warnf("WebSocketTransport: Error sending to client %s: %v", c.id, err)
	}
	applog.Infof("WebSocketTransport: Client %s disconnected, total: %d", c.id, total)
}

func (wst *WebSocketTransport) snapshotClients() []*wsClient {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	out := make([]*wsClient, 0, len(wst.clients))
	for _, c := range wst.clients {
		out = append(out, c)
	}
	return out
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			for _, c := range wst.snapshotClients() {
				if err := c.writeJSON(c.payloadFor(data)); err != nil {
					wst.drop(c, err)
				}
			}
		}
	}
}

// Send records data as the latest payload and queues it for every client.
// When the queue is full the payload is still kept as the latest.
func (wst *WebSocketTransport) Send(data any) error {
	wst.latestMu.Lock()
	wst.latest = data
	wst.latestMu.Unlock()

	select {
	case wst.broadcast <- data:
	default:
		applog.Warnf("WebSocketTransport: Broadcast queue full, dropping payload")
	}
	return nil
}

// Latest returns the most recently sent payload, or nil.
func (wst *WebSocketTransport) Latest() any {
	wst.latestMu.RLock()
	defer wst.latestMu.RUnlock()
	return wst.latest
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Debugf("WebSocketTransport: Closing server")
		close(wst.done)

		wst.clientsMu.Lock()
		for id, c := range wst.clients {
			c.conn.Close()
			delete(wst.clients, id)
		}
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
