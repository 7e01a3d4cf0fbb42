package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simaofelgueirasJM/flipper/internal/logging"
	"github.com/simaofelgueirasJM/flipper/internal/model"
	"github.com/simaofelgueirasJM/flipper/internal/reporter"
)

// Hub broadcasts capture records to connected websocket clients. It is a
// reporter.Reporter; reporting never blocks on a slow client.
type Hub struct {
	mu        sync.Mutex
	clients   map[*hubClient]struct{}
	closed    bool
	queueSize int
	writeWait time.Duration
	logger    logging.Logger
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

var _ reporter.Reporter = (*Hub)(nil)

// NewHub returns a hub buffering up to queueSize messages per client.
func NewHub(logger logging.Logger, queueSize int, writeWait time.Duration) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultConfig().ClientQueueSize
	}
	if writeWait <= 0 {
		writeWait = DefaultConfig().WriteTimeout
	}
	return &Hub{
		clients:   make(map[*hubClient]struct{}),
		queueSize: queueSize,
		writeWait: writeWait,
		logger:    logging.OrNop(logger).With(logging.Field{Key: "component", Value: "hub"}),
	}
}

func (h *Hub) ReportRequest(req model.RequestInfo) {
	h.Broadcast(newRequestMessage(req))
}

func (h *Hub) ReportResponse(resp model.ResponseInfo) {
	h.Broadcast(newResponseMessage(resp))
}

// Broadcast queues msg for every client. Clients with a full queue are
// disconnected.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding message", logging.Field{Key: "method", Value: msg.Method}, logging.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow websocket client", logging.Field{Key: "remote", Value: c.conn.RemoteAddr().String()})
			h.removeLocked(c)
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve runs conn until the peer disconnects or the hub closes. backlog is
// written before any live message.
func (h *Hub) Serve(conn *websocket.Conn, backlog []Message) {
	c := &hubClient{conn: conn, send: make(chan []byte, h.queueSize+len(backlog))}
	for _, msg := range backlog {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		c.send <- data
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("websocket client connected", logging.Field{Key: "remote", Value: conn.RemoteAddr().String()})

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writeLoop(c)
	}()

	// Reads only detect disconnects; clients have nothing to say.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
	<-done
	conn.Close()
	h.logger.Info("websocket client disconnected", logging.Field{Key: "remote", Value: conn.RemoteAddr().String()})
}

func (h *Hub) writeLoop(c *hubClient) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			// Unblock the read loop in Serve.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}

func (h *Hub) remove(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}
