package handlers

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Message represents a WebSocket message
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client represents a WebSocket client
type Client struct {
	conn     *websocket.Conn
	id       uuid.UUID
	username string
	send     chan []byte
}

// Hub maintains active WebSocket connections and fans events out to them.
// Events are cluster credential changes and pod traffic toggles.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	done       chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("[ws] client connected: %s (%s)", client.username, client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Printf("[ws] client disconnected: %s (%s)", client.username, client.id)

		case data := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			return
		}
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	close(h.done)
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(event string, payload interface{}) {
	data, err := json.Marshal(Message{Type: event, Data: payload})
	if err != nil {
		log.Printf("[ws] failed to marshal message: %v", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// ConnectionCount returns the number of active WebSocket connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConnection handles an upgraded WebSocket connection. The JWT
// middleware runs before the upgrade, so the username is already in the
// connection locals.
func (h *Hub) HandleConnection(conn *websocket.Conn) {
	username, _ := conn.Locals("username").(string)

	client := &Client{
		conn:     conn,
		id:       uuid.New(),
		username: username,
		send:     make(chan []byte, 256),
	}

	h.register <- client

	conn.WriteJSON(Message{Type: "connected", Data: map[string]string{"status": "ok"}})

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[ws] write error: %v", err)
				return
			}
		}
	}()

	// Reader loop
	defer func() {
		h.unregister <- client
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[ws] read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "ping":
			client.send <- []byte(`{"type":"pong"}`)
		}
	}
}
