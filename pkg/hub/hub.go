// Package hub fans pipeline events out to websocket subscribers using a
// single goroutine that owns the subscriber set.
package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bytedance/sonic"
)

// Message is one JSON-encoded event. Subscribers receive it as a text frame.
type Message []byte

// DefaultClientBuffer is how many messages may queue for one subscriber
// before it is considered too slow and dropped.
const DefaultClientBuffer = 64

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	name   string
	logger *slog.Logger

	// Registered clients. Only the Run goroutine mutates the map.
	clients map[*Client]bool

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// onCount is told the subscriber count after every change.
	onCount func(int)

	mu      sync.RWMutex
	running bool
	dropped uint64
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCountHook registers fn to observe the subscriber count.
func WithCountHook(fn func(int)) Option {
	return func(h *Hub) {
		h.onCount = fn
	}
}

// New creates a new Hub
func New(name string, opts ...Option) *Hub {
	h := &Hub{
		name:       name,
		logger:     slog.Default(),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "hub", "hub", name)
	return h
}

// Run is the hub's main loop. It returns when ctx is cancelled, after
// closing every client's queue.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		h.running = false
		h.mu.Unlock()
		close(h.done)
		h.notify(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("subscriber connected", "total", count)
			h.notify(count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("subscriber disconnected", "remaining", count)
			h.notify(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			before := len(h.clients)
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Queue full: the subscriber is too slow.
					close(client.send)
					delete(h.clients, client)
					h.dropped++
					h.logger.Warn("dropped slow subscriber")
				}
			}
			count := len(h.clients)
			h.mu.Unlock()
			if count != before {
				h.notify(count)
			}
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Broadcast sends a message to all connected clients. It never blocks; when
// the inbound queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Message(data))
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many subscribers were removed for falling behind.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// join registers c unless the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters c unless the hub has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) notify(count int) {
	if h.onCount != nil {
		h.onCount(count)
	}
}
