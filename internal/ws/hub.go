package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

var (
	// ErrNotStarted is returned when Publish is called before Start. This is
	// a programming error in the process wiring, not a runtime condition to
	// retry; callers should surface it loudly.
	ErrNotStarted = errors.New("ws: hub not started")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("ws: hub already started")
)

// envelope is the JSON frame pushed to every connected client: a named event
// plus its payload.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub is the single fan-out point for real-time events. It must be
// constructed by the process bootstrap and passed by reference to every
// component that publishes; Start must be called exactly once before the
// first Publish.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex
	started    atomic.Bool
}

// NewHub allocates a Hub. The hub does not deliver anything until Start is
// called.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 256),
	}
}

// Start launches the hub's event loop in its own goroutine. Calling Start
// more than once is an error.
func (h *Hub) Start() error {
	if !h.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	go h.run()
	return nil
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("ws: client %s connected (user=%s)", client.ID, client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("ws: client %s disconnected", client.ID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow consumer: drop the message rather than block the
					// fan-out for everyone else.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish encodes the named event and enqueues it for delivery to every
// connected client. Delivery is best-effort; individual slow or disconnected
// clients never fail the publish. Publishing before Start returns
// ErrNotStarted without any partial send.
func (h *Hub) Publish(event string, payload any) error {
	if !h.started.Load() {
		return ErrNotStarted
	}

	data, err := json.Marshal(envelope{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("ws: marshal %s event: %w", event, err)
	}

	h.broadcast <- data
	return nil
}

// Register enqueues a new client for addition to the hub.
func (h *Hub) Register(c *Client) {
	h.register <- c
}

// Unregister enqueues a client for removal from the hub.
func (h *Hub) Unregister(c *Client) {
	h.unregister <- c
}
