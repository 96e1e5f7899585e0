package eventhub

import (
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// WebSocketClient реалізує інтерфейс eventhub.Client
type WebSocketClient struct {
	ID   string
	User *models.User
	Conn *websocket.Conn
	Hub  *ManagerService
	Send chan models.ComplaintEvent
}

func NewWebSocketClient(conn *websocket.Conn, hub *ManagerService, user *models.User) *WebSocketClient {
	return &WebSocketClient{
		ID:   uuid.NewString(),
		User: user,
		Conn: conn,
		Hub:  hub,
		Send: make(chan models.ComplaintEvent, config.ClientBufferSize),
	}
}

func (c *WebSocketClient) GetClientID() string                          { return c.ID }
func (c *WebSocketClient) GetUserID() string                            { return c.User.ID }
func (c *WebSocketClient) IsAdmin() bool                                { return c.User.IsAdmin() }
func (c *WebSocketClient) GetSendChannel() chan<- models.ComplaintEvent { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump only keeps the connection alive: the stream is server-to-client,
// so anything the client sends is discarded.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARNING: Error reading from client %s: %v", c.ID, err)
			}
			return
		}
	}
}

// writePump пише події з каналу Send у WebSocket, по одній на повідомлення.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(event); err != nil {
				log.Printf("WARNING: Error writing event to client %s: %v", c.ID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
