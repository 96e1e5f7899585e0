package handler

import (
	"complaintdesk/backend/internal/eventhub"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// NewUpgrader builds the websocket upgrader. An empty allowedOrigins list
// accepts any origin.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowed) == 0 || origin == "" || allowed[origin] || allowed["*"]
		},
	}
}

// ServeEvents оновлює HTTP-з'єднання до WebSocket і підписує клієнта на
// події його скарг (адміністратора на всі).
func (h *Handler) ServeEvents(upgrader websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade вже відповів клієнту
			log.Printf("WARNING: Websocket upgrade failed for user %s: %v", user.ID, err)
			return
		}

		client := eventhub.NewWebSocketClient(conn, h.Hub, user)
		if !h.Hub.Register(client) {
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "event hub stopped"))
			conn.Close()
		}
	}
}
