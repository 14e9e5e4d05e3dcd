package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one connected dashboard session, pinned to a tenant.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	tenantID string
	send     chan []byte
}

// Hub fans tenant-scoped events out to connected dashboard clients.
// Clients only ever receive events for their own tenant.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan tenantEvent
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

type tenantEvent struct {
	tenantID string
	payload  []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan tenantEvent),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.WithField("tenant_id", client.tenantID).Debug("WebSocket client registered")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.tenantID != event.tenantID {
					continue
				}
				select {
				case client.send <- event.payload:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Publish sends an event to every client of the given tenant.
func (h *Hub) Publish(tenantID, eventType string, data interface{}) {
	payload, err := json.Marshal(wsEvent{Type: eventType, Data: data})
	if err != nil {
		log.WithError(err).Error("Failed to marshal ws event")
		return
	}
	h.broadcast <- tenantEvent{tenantID: tenantID, payload: payload}
}

// ServeWs upgrades the connection and ties it to the tenant resolved
// by the auth middleware.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, tenantID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("WebSocket upgrade failed")
		return
	}
	client := &Client{hub: h, conn: conn, tenantID: tenantID, send: make(chan []byte, 256)}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		// Clients don't send application messages; this just detects
		// disconnects.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
