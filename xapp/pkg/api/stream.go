package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/xapp/pkg/history"
)

const (
	subscriberBuffer = 64
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// subscriber is one websocket client of the decision stream
type subscriber struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	uavFilter string
}

// Hub fans decisions out to websocket subscribers. A slow subscriber loses
// messages instead of blocking the decision path.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	logger      logrus.FieldLogger
	onChange    func(n int)
}

// NewHub creates an empty hub. onChange, when set, receives the subscriber
// count after every change.
func NewHub(logger logrus.FieldLogger, onChange func(n int)) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		subscribers: make(map[string]*subscriber),
		logger:      logger,
		onChange:    onChange,
	}
}

// Count returns the number of connected subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	h.subscribers[s.id] = s
	n := len(h.subscribers)
	h.mu.Unlock()
	if h.onChange != nil {
		h.onChange(n)
	}
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	s, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		close(s.send)
	}
	n := len(h.subscribers)
	h.mu.Unlock()
	if ok && h.onChange != nil {
		h.onChange(n)
	}
}

// Broadcast sends a decision record to every matching subscriber
func (h *Hub) Broadcast(rec history.Record) {
	msg, err := json.Marshal(rec)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode decision for stream")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subscribers {
		if s.uavFilter != "" && s.uavFilter != rec.UavID {
			continue
		}
		select {
		case s.send <- msg:
		default:
			h.logger.WithField("subscriber", s.id).Warn("Decision stream subscriber is lagging, dropping message")
		}
	}
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.subscribers))
	for id := range h.subscribers {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.remove(id)
	}
}

// Serve upgrades the request to a websocket and streams decisions until the
// client goes away. The optional uav_id query parameter filters the stream.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	s := &subscriber{
		id:        "ws_" + uuid.New().String(),
		conn:      conn,
		send:      make(chan []byte, subscriberBuffer),
		uavFilter: c.Query("uav_id"),
	}
	h.add(s)
	h.logger.WithField("subscriber", s.id).Info("Decision stream subscriber connected")

	go h.writeLoop(s)
	h.readLoop(s)
}

// readLoop discards client messages and returns when the connection closes
func (h *Hub) readLoop(s *subscriber) {
	defer func() {
		h.remove(s.id)
		h.logger.WithField("subscriber", s.id).Info("Decision stream subscriber disconnected")
	}()

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
