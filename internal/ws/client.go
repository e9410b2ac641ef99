package ws

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/resto-qr/api/internal/auth"
	"github.com/resto-qr/api/internal/enum"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBuffer = 256
)

var (
	errUnknownRoom = errors.New("unknown room")
	errRoomDenied  = errors.New("room access denied")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins (we validate via JWT)
	},
}

// Client represents a single WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	room string
	send chan []byte
}

// ReadPump pumps messages from the WebSocket connection to the hub
// The application runs ReadPump in a per-connection goroutine
// Clients only listen, so reads exist to detect disconnects and pongs
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
// Each event is sent as its own text frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// resolveRoom picks the room a token may join. Customers are pinned to their
// table; staff may join kitchen, floor or any table, defaulting by role.
func resolveRoom(claims *auth.Claims, requested string) (string, error) {
	if claims.IsCustomer() {
		own := enum.TableRoom(claims.TableID.String())
		if requested != "" && requested != own {
			return "", errRoomDenied
		}
		return own, nil
	}

	if !enum.IsStaffRole(claims.Role) {
		return "", errRoomDenied
	}

	switch {
	case requested == "":
		if claims.Role == enum.UserRoleChef {
			return enum.RoomKitchen, nil
		}
		return enum.RoomFloor, nil
	case requested == enum.RoomKitchen, requested == enum.RoomFloor:
		return requested, nil
	case strings.HasPrefix(requested, enum.RoomTablePrefix):
		if _, err := uuid.Parse(strings.TrimPrefix(requested, enum.RoomTablePrefix)); err != nil {
			return "", errUnknownRoom
		}
		return requested, nil
	}
	return "", errUnknownRoom
}

// ServeWS handles WebSocket requests from clients
// Endpoint: WS /ws?token=JWT&room=kitchen|floor|table:<id>
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	// 1. Extract token from query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	// 2. Validate JWT (refresh tokens carry no role)
	claims, err := auth.ValidateToken(jwtSecret, tokenStr)
	if err != nil || claims.Role == "" {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// 3. Pick the room
	room, err := resolveRoom(claims, r.URL.Query().Get("room"))
	if err != nil {
		status := http.StatusForbidden
		if errors.Is(err, errUnknownRoom) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	// 4. Upgrade to WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	// 5. Create client and register with hub
	client := &Client{
		hub:  hub,
		conn: conn,
		room: room,
		send: make(chan []byte, sendBuffer),
	}
	select {
	case client.hub.register <- client:
	case <-client.hub.done:
		conn.Close()
		return
	}

	// 6. Start pumps in separate goroutines
	go client.WritePump()
	go client.ReadPump()
}
