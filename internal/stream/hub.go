package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"discord-dashboard/internal/metrics"
	"discord-dashboard/internal/model"
)

const (
	TypeState = "state"

	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Envelope wraps every frame pushed to a subscriber.
type Envelope struct {
	Type string               `json:"type"`
	Data model.DashboardState `json:"data"`
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans dashboard state out to connected WebSocket clients.
type Hub struct {
	current  func() model.DashboardState
	log      *zap.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	register   chan *subscriber
	unregister chan *subscriber
	broadcast  chan []byte
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*subscriber]struct{}
}

// NewHub creates a hub. current supplies the state sent to a client as soon
// as it connects.
func NewHub(current func() model.DashboardState, logger *zap.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		current: current,
		log:     logger,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		clients:    make(map[*subscriber]struct{}),
	}
}

// Run owns the subscriber set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for sub := range h.clients {
				delete(h.clients, sub)
				close(sub.send)
			}
			h.mu.Unlock()
			h.metrics.SetStreamClients(0)
			return

		case sub := <-h.register:
			h.mu.Lock()
			h.clients[sub] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetStreamClients(count)
			h.log.Debug("stream client connected", zap.String("subscriber_id", sub.id))

		case sub := <-h.unregister:
			h.drop(sub)

		case frame := <-h.broadcast:
			h.mu.RLock()
			var slow []*subscriber
			for sub := range h.clients {
				select {
				case sub.send <- frame:
				default:
					slow = append(slow, sub)
				}
			}
			h.mu.RUnlock()
			for _, sub := range slow {
				h.log.Warn("stream client too slow; disconnecting", zap.String("subscriber_id", sub.id))
				h.drop(sub)
			}
		}
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.clients[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, sub)
	close(sub.send)
	count := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetStreamClients(count)
	h.log.Debug("stream client disconnected", zap.String("subscriber_id", sub.id))
}

// Publish queues state for every connected client. It never blocks; when
// the queue is full the oldest queued frame is evicted so the newest state
// always gets through.
func (h *Hub) Publish(state model.DashboardState) {
	frame, err := encode(state)
	if err != nil {
		h.log.Error("encode stream frame", zap.Error(err))
		return
	}
	for {
		select {
		case h.broadcast <- frame:
			return
		default:
		}
		select {
		case <-h.broadcast:
			h.log.Warn("stream broadcast queue full; evicting oldest frame")
		default:
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams state frames until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := &subscriber{
		id:   xid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	if frame, err := encode(h.current()); err == nil {
		sub.send <- frame
	}

	select {
	case h.register <- sub:
	case <-r.Context().Done():
		conn.Close()
		return
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(sub)
	h.readPump(sub)
}

// readPump discards client frames; it exists to process control frames and
// notice disconnects.
func (h *Hub) readPump(sub *subscriber) {
	defer func() {
		select {
		case h.unregister <- sub:
		case <-h.done:
		}
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(512)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encode(state model.DashboardState) ([]byte, error) {
	return json.Marshal(Envelope{Type: TypeState, Data: state})
}
