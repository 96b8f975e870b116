package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"seller-center/internal/event"
)

// Hub relays every bus event to the connected portal UIs.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{}

	bus    event.Bus
	logger *slog.Logger
}

func NewHub(bus event.Bus, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		bus:        bus,
		logger:     logger.With("component", "ws_hub"),
	}
}

// Run serves the hub until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	defer func() {
		close(h.done)
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case e, ok := <-events:
			if !ok {
				return
			}
			message, err := json.Marshal(e)
			if err != nil {
				h.logger.Error("failed to marshal event", "type", e.Type, "error", err)
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer.
					h.logger.Warn("dropping websocket client", "remote", client.remote)
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Clients returns the number of connected clients. It blocks until Run picks
// up the query.
func (h *Hub) Clients(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-h.done:
		return 0
	case <-ctx.Done():
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-ctx.Done():
		return 0
	}
}
