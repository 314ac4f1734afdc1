package websocket

import (
	"log"
	"sync"

	"monochrome/types"
)

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run()
	Stop()
	Broadcast(message types.SnapshotMessage)
	Refresh()
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
	ClientCount() int
}

// SnapshotFunc builds the message a client receives right after connecting
type SnapshotFunc func() types.SnapshotMessage

// hub maintains the set of active clients and broadcasts messages to them
type hub struct {
	clients map[*Client]bool

	// Broadcast channel for sending messages to all clients
	broadcast chan types.SnapshotMessage

	// refresh asks the loop to build and send a fresh snapshot. It holds at
	// most one pending request.
	refresh chan struct{}

	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once

	snapshot SnapshotFunc

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub. snapshot may be nil.
func NewHub(snapshot SnapshotFunc) Hub {
	return &hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan types.SnapshotMessage, 256),
		refresh:    make(chan struct{}, 1),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		snapshot:   snapshot,
	}
}

// Run starts the hub's main event loop and returns after Stop
func (h *hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client %s connected", client.id)

			if h.snapshot != nil {
				h.deliver(client, h.snapshot())
			}

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			log.Printf("WebSocket client %s disconnected", client.id)

		case message := <-h.broadcast:
			h.deliverAll(message)

		case <-h.refresh:
			// Built here so snapshots leave in the order the state changed
			if h.snapshot != nil {
				h.deliverAll(h.snapshot())
			}

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *hub) deliverAll(message types.SnapshotMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.deliver(client, message)
	}
}

// deliver queues a message for one client, dropping clients that fell behind
func (h *hub) deliver(client *Client, message types.SnapshotMessage) {
	select {
	case client.send <- message:
	default:
		log.Printf("WebSocket client %s is not keeping up, disconnecting", client.id)
		h.mu.Lock()
		h.remove(client)
		h.mu.Unlock()
	}
}

// remove must be called with the lock held
func (h *hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Stop shuts the event loop down and closes every client
func (h *hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Broadcast sends a message to every connected client
func (h *hub) Broadcast(message types.SnapshotMessage) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("WebSocket broadcast channel full, dropping snapshot")
	}
}

// Refresh schedules a snapshot for every client. Requests made while one is
// pending are merged, since the pending snapshot reads the latest state.
func (h *hub) Refresh() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
