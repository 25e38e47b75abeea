// Package hub fans library updates out to connected WebSocket clients.
package hub

import (
	"context"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 32
)

// MessageHandler receives every valid message sent by a client.
type MessageHandler func(ctx context.Context, clientID string, msg protocol.Message)

// Options configures a Hub.
type Options struct {
	// AllowedOrigins lists accepted Origin headers; "*" accepts any.
	AllowedOrigins []string
	// PingPeriod must be shorter than the 60s read deadline.
	PingPeriod time.Duration
	OnMessage  MessageHandler
	Logger     *zap.Logger
}

// Hub keeps the set of connected clients. Run owns the client set; every
// other method talks to it through channels.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	clients map[*Client]struct{}
	latest  []byte // last song list, sent to clients on connect
	count   atomic.Int64

	upgrader   websocket.Upgrader
	pingPeriod time.Duration
	onMessage  MessageHandler
	log        *zap.Logger
}

// New creates a hub. Call Run before serving connections.
func New(opts Options) *Hub {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.PingPeriod <= 0 || opts.PingPeriod >= pongWait {
		opts.PingPeriod = 30 * time.Second
	}
	latest, _ := protocol.Encode(protocol.SongListMessage{Songs: []string{}})
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		latest:     latest,
		pingPeriod: opts.PingPeriod,
		onMessage:  opts.OnMessage,
		log:        log,
	}
	origins := slices.Clone(opts.AllowedOrigins)
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(origins) == 0 ||
				slices.Contains(origins, "*") || slices.Contains(origins, origin)
		},
	}
	return h
}

// Run processes registrations and broadcasts until ctx is done, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)
			h.deliver(c, h.latest)
			h.log.Info("client connected", zap.String("client", c.id), zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.remove(c)
				h.log.Info("client disconnected", zap.String("client", c.id), zap.Int("clients", len(h.clients)))
			}

		case msg := <-h.broadcast:
			h.latest = msg
			for c := range h.clients {
				h.deliver(c, msg)
			}

		case <-ctx.Done():
			for c := range h.clients {
				h.remove(c)
			}
			return
		}
	}
}

// deliver queues msg for c, dropping the client when its queue is full.
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.Warn("dropping slow client", zap.String("client", c.id))
		h.remove(c)
	}
}

func (h *Hub) remove(c *Client) {
	delete(h.clients, c)
	h.count.Add(-1)
	close(c.send)
}

// BroadcastSongs sends the library list to every client and keeps it for
// clients that connect later.
func (h *Hub) BroadcastSongs(titles []string) error {
	if titles == nil {
		titles = []string{}
	}
	data, err := protocol.Encode(protocol.SongListMessage{Songs: titles})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// ServeHTTP upgrades the request and serves the client until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &Client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	c.readPump(r.Context())
}
