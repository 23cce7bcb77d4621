// internal/handlers/hub.go
package handlers

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// outBuffer is how many messages may queue for a slow client before drops start.
const outBuffer = 32

// Client is one live WebSocket connection.
type Client struct {
	ID      string
	Remote  string
	OutChan chan []byte

	mu   sync.Mutex
	room string
}

func newClient(id, remote string) *Client {
	return &Client{ID: id, Remote: remote, OutChan: make(chan []byte, outBuffer)}
}

// Room is the code of the room this connection is seated in, if any.
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) setRoom(code string) {
	c.mu.Lock()
	c.room = code
	c.mu.Unlock()
}

// Hub fans room events out to subscribed connections. Sends never block: the
// engine broadcasts while holding a room lock.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	logger  *logrus.Logger
}

func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

// Unregister drops the client and every room subscription it holds.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.ID)
	if code := c.Room(); code != "" {
		h.unsubscribeLocked(c.ID, code)
	}
}

// Client looks up a live connection by id.
func (h *Hub) Client(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Subscribe moves c into room code, leaving any previous room.
func (h *Hub) Subscribe(c *Client, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev := c.Room(); prev != "" && prev != code {
		h.unsubscribeLocked(c.ID, prev)
	}
	members, ok := h.rooms[code]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[code] = members
	}
	members[c.ID] = c
	c.setRoom(code)
}

// Unsubscribe removes c from code. It is a no-op if c has since moved on.
func (h *Hub) Unsubscribe(c *Client, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(c.ID, code)
	if c.Room() == code {
		c.setRoom("")
	}
}

func (h *Hub) unsubscribeLocked(clientID, code string) {
	members, ok := h.rooms[code]
	if !ok {
		return
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(h.rooms, code)
	}
}

// CloseRoom forgets every subscription to code.
func (h *Hub) CloseRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.rooms[code] {
		if c.Room() == code {
			c.setRoom("")
		}
	}
	delete(h.rooms, code)
}

// RoomSize is the number of connections subscribed to code.
func (h *Hub) RoomSize(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// Send queues msg for one client.
func (h *Hub) Send(c *Client, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal outgoing message")
		return
	}
	h.push(c, data)
}

// BroadcastRoom queues msg for every connection in code.
func (h *Hub) BroadcastRoom(code string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithField("room", code).WithError(err).Error("failed to marshal broadcast")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[code] {
		h.push(c, data)
	}
}

func (h *Hub) push(c *Client, data []byte) {
	select {
	case c.OutChan <- data:
	default:
		h.logger.WithField("conn", c.ID).Warn("outbound queue full, dropping message")
	}
}
