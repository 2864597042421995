package scheduler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	clientBuffer   = 64
	broadcastQueue = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RefreshHub fans refresh events out to dashboard websocket clients.
// A client that connects late first receives the most recent event of
// every cycle, so it can render current state without waiting for a tick.
type RefreshHub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
	latest  map[string][]byte // cycle -> last encoded event

	events     chan models.RefreshEvent
	register   chan *hubClient
	unregister chan *hubClient
	done       chan struct{}
	stopOnce   sync.Once

	logger *common.Logger
}

type hubClient struct {
	hub  *RefreshHub
	conn *websocket.Conn
	send chan []byte
}

var _ Broadcaster = (*RefreshHub)(nil)

// NewRefreshHub creates a hub. Call Run in its own goroutine.
func NewRefreshHub(logger *common.Logger) *RefreshHub {
	return &RefreshHub{
		clients:    make(map[*hubClient]struct{}),
		latest:     make(map[string][]byte),
		events:     make(chan models.RefreshEvent, broadcastQueue),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns client registration and fan-out until Stop is called.
func (h *RefreshHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				h.dropLocked(c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(c)
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", n).Msg("Refresh feed client disconnected")
		case event := <-h.events:
			h.fanOut(event)
		}
	}
}

func (h *RefreshHub) add(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	for _, cycle := range []string{models.CycleHoldings, models.CycleBitcoin, models.CycleStocks} {
		if data, ok := h.latest[cycle]; ok {
			c.send <- data // fresh buffer holds one event per cycle
		}
	}
	h.logger.Debug().Int("clients", len(h.clients)).Msg("Refresh feed client connected")
}

func (h *RefreshHub) fanOut(event models.RefreshEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn().Err(err).Str("cycle", event.Cycle).Msg("Failed to encode refresh event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest[event.Cycle] = data
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client is not draining; disconnect rather than block the hub.
			h.dropLocked(c)
		}
	}
}

func (h *RefreshHub) dropLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Stop ends Run and closes every client. Safe to call more than once.
func (h *RefreshHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast queues an event for every connected client. It never blocks;
// events are dropped when the queue is full.
func (h *RefreshHub) Broadcast(event models.RefreshEvent) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn().Str("cycle", event.Cycle).Str("type", event.Type).Msg("Refresh feed queue full, dropping event")
	}
}

// ServeWS upgrades the request and subscribes the connection to the feed.
func (h *RefreshHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &hubClient{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writeLoop()
	go c.readLoop()
}

// ClientCount returns the number of connected clients.
func (h *RefreshHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *hubClient) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards inbound frames; it exists to notice closed connections
// and to keep the read deadline moving on pongs.
func (c *hubClient) readLoop() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
