package eventhub

import "complaintdesk/backend/internal/models"

// Client is the interface for any event subscriber (e.g., WebSocket, Telegram).
// The hub decides per event which clients receive it.
type Client interface {
	// GetClientID returns an identifier unique to this connection. One user may
	// hold several connections.
	GetClientID() string
	// GetUserID returns the user the client acts for.
	GetUserID() string
	// IsAdmin reports whether the client receives events for every complaint
	// rather than only the user's own.
	IsAdmin() bool

	// GetSendChannel returns the channel the hub writes events to.
	GetSendChannel() chan<- models.ComplaintEvent

	// Run starts the client's pumps.
	Run()
	// Close shuts down the client and its send channel. The hub calls it at
	// most once.
	Close()
}

// accepts reports whether event is visible to client.
func accepts(client Client, event models.ComplaintEvent) bool {
	return client.IsAdmin() || client.GetUserID() == event.OwnerID
}
