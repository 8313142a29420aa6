// Package websocket fans progress snapshots out to connected browsers.
package websocket

import (
	"context"
	"sync"

	"github.com/richxcame/langsheet/pkg/logger"
	"go.uber.org/zap"
)

// Message is the envelope written to and read from clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`

	// Final asks the client's writer to close the connection after this
	// message has been delivered.
	Final bool `json:"-"`
}

// HandlerFunc handles an inbound message of one type.
type HandlerFunc func(client *Client, msg *Message)

// Hub tracks connected clients. Registration goes through channels so only
// Run mutates membership.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex

	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan *Message

	handlers   map[string]HandlerFunc
	handlersMu sync.RWMutex

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewHub creates an idle hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan *Message, 256),
		handlers:   make(map[string]HandlerFunc),
		stopped:    make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.stopped) })
			h.mu.Lock()
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if existing, ok := h.clients[client.ID]; ok && existing != client {
				existing.close()
			}
			h.clients[client.ID] = client
			h.mu.Unlock()
			logger.Debug("websocket client registered", zap.String("client_id", client.ID), zap.Int("clients", h.GetClientCount()))

		case client := <-h.Unregister:
			h.mu.Lock()
			if existing, ok := h.clients[client.ID]; ok && existing == client {
				delete(h.clients, client.ID)
				client.close()
			}
			h.mu.Unlock()
			logger.Debug("websocket client unregistered", zap.String("client_id", client.ID), zap.Int("clients", h.GetClientCount()))

		case msg := <-h.Broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				client.SendMessage(msg)
			}
			h.mu.RUnlock()
		}
	}
}

// RegisterClient hands client to Run. It returns false once the hub has
// stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.stopped:
		return false
	}
}

// UnregisterClient hands client to Run for removal.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.stopped:
	}
}

// SendToAll queues msg for every client. It never blocks; when the broadcast
// queue is full the message is dropped, since a newer snapshot will follow.
func (h *Hub) SendToAll(msg *Message) {
	select {
	case h.Broadcast <- msg:
	default:
		logger.Warn("websocket broadcast queue full, dropping message", zap.String("type", msg.Type))
	}
}

// GetClientCount returns the number of registered clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RegisterHandler routes inbound messages of msgType to handler.
func (h *Hub) RegisterHandler(msgType string, handler HandlerFunc) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.handlers[msgType] = handler
}

// HandleMessage dispatches an inbound message. Unknown types are logged and
// ignored.
func (h *Hub) HandleMessage(client *Client, msg *Message) {
	h.handlersMu.RLock()
	handler, ok := h.handlers[msg.Type]
	h.handlersMu.RUnlock()

	if !ok {
		client.logger.Debug("no handler for websocket message", zap.String("type", msg.Type))
		return
	}
	handler(client, msg)
}
