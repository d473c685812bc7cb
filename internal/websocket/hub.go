package websocket

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"chargedesk/internal/logger"
	"chargedesk/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// newUpgrader accepts handshakes without an Origin header (non-browser
// clients), from the API's own host, or from one of allowedOrigins. A "*"
// entry allows any origin.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] || allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub    *Hub
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

type userMessage struct {
	userID  uuid.UUID
	payload []byte
}

// Hub keeps the live connections of every user and routes messages to them
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	direct     chan userMessage
	register   chan *Client
	upgrader   websocket.Upgrader
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub initializes a new WS Hub instance. Browser handshakes are accepted
// from allowedOrigins only.
func NewHub(allowedOrigins ...string) *Hub {
	return &Hub{
		upgrader:   newUpgrader(allowedOrigins),
		clients:    make(map[uuid.UUID]map[*Client]bool),
		direct:     make(chan userMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			logger.Debug("WebSocket client connected", "user_id", client.UserID)
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			logger.Debug("WebSocket client disconnected", "user_id", client.UserID)
		case msg := <-h.direct:
			h.mu.Lock()
			for client := range h.clients[msg.userID] {
				select {
				case client.Send <- msg.payload:
				default:
					// slow consumer
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(client *Client) {
	conns, ok := h.clients[client.UserID]
	if !ok || !conns[client] {
		return
	}
	delete(conns, client)
	close(client.Send)
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}
}

// SendToUser queues payload for every live connection of userID. It never
// blocks; it returns false when the user has no connection or the queue is full.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) bool {
	if !h.IsOnline(userID) {
		return false
	}
	select {
	case h.direct <- userMessage{userID: userID, payload: payload}:
		return true
	default:
		return false
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump drains the connection so close frames are noticed
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read failed", "user_id", c.UserID, "error", err)
			}
			break
		}
	}
}

// ServeWs authenticates the token query parameter and attaches the
// connection to the user it was issued for
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	userID, err := middleware.ParseSubject(tokenString, secret)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", "error", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	client := &Client{Hub: hub, UserID: userID, Conn: conn, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
