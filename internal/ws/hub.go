package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/resto-qr/api/internal/events"
	"github.com/resto-qr/api/internal/metrics"
)

// roomMessage is an encoded event addressed to one or more rooms
type roomMessage struct {
	rooms   []string
	message []byte
}

// Hub maintains the set of active clients and broadcasts events to them.
// Rooms are "kitchen", "floor" and "table:<uuid>".
type Hub struct {
	// Registered clients by room
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *roomMessage

	// Closed when Run returns
	done chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is canceled, closing
// every client connection.
// This should be called as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for room, clients := range h.rooms {
				for client := range clients {
					close(client.send)
					metrics.WSClients.Dec()
				}
				delete(h.rooms, room)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()
			metrics.WSClients.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for _, room := range msg.rooms {
				for client := range h.rooms[room] {
					select {
					case client.send <- msg.message:
					default:
						// Client's send buffer is full, drop it
						h.remove(client)
						metrics.WSDropped.Inc()
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove deletes client from its room and closes its send channel.
// Callers hold h.mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	metrics.WSClients.Dec()
	// Clean up empty rooms
	if len(clients) == 0 {
		delete(h.rooms, client.room)
	}
}

// Publish queues e for every client in the event's rooms. It implements
// events.Publisher.
func (h *Hub) Publish(ctx context.Context, e events.Event) error {
	message, err := json.Marshal(e)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- &roomMessage{rooms: e.Rooms, message: message}:
		return nil
	case <-h.done:
		return events.ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of clients in room.
func (h *Hub) ClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
