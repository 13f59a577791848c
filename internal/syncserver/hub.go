package syncserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub tracks websocket clients and fans snapshot messages out to them
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	// initial returns the messages a new client receives first
	initial func() [][]byte

	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	metrics *Metrics
}

// NewHub creates a hub. Call Run to start its event loop.
func NewHub(initial func() [][]byte, metrics *Metrics, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		broadcast:  make(chan []byte, 1000),
		initial:    initial,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run is the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("hub shutting down")
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastAll(message)
		}
	}
}

// Stop shuts the hub down and closes every client
func (h *Hub) Stop() {
	h.cancel()
}

// Broadcast sends a snapshot message to every connected client
func (h *Hub) Broadcast(msgType string, data interface{}) error {
	payload, err := encodeMessage(msgType, data)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- payload:
		h.metrics.Broadcasts.WithLabelValues(msgType).Inc()
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("broadcast channel full, message dropped")
	}
}

// Count returns the number of connected clients
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encodeMessage(msgType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	return json.Marshal(Message{Type: msgType, Data: raw, Timestamp: time.Now().UnixMilli()})
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.metrics.Connections.Inc()

	if h.initial != nil {
		for _, msg := range h.initial() {
			select {
			case c.send <- msg:
			default:
				h.logger.Warn("initial snapshot dropped", zap.String("connection_id", c.id))
			}
		}
	}
	h.logger.Debug("client registered", zap.String("connection_id", c.id), zap.Int("clients", h.Count()))
}

func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.mu.Unlock()
	h.metrics.Connections.Dec()
	h.logger.Debug("client unregistered", zap.String("connection_id", c.id))
}

func (h *Hub) broadcastAll(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- message:
		default:
			h.metrics.DroppedClient.Inc()
			h.logger.Warn("closing slow client", zap.String("connection_id", c.id))
			h.unregisterClient(c)
			c.conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
		h.metrics.Connections.Dec()
	}
}
