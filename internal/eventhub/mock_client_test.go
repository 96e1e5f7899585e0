package eventhub_test

import (
	"complaintdesk/backend/internal/models"
	"sync/atomic"
)

type MockClient struct {
	clientID    string
	userID      string
	admin       bool
	closed      atomic.Int32
	RecvChannel chan models.ComplaintEvent
}

func newMockClient(clientID, userID string, admin bool) *MockClient {
	return &MockClient{
		clientID:    clientID,
		userID:      userID,
		admin:       admin,
		RecvChannel: make(chan models.ComplaintEvent, 10),
	}
}

func (c *MockClient) GetClientID() string { return c.clientID }

func (c *MockClient) GetUserID() string { return c.userID }

func (c *MockClient) IsAdmin() bool { return c.admin }

func (c *MockClient) GetSendChannel() chan<- models.ComplaintEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.closed.Add(1)
}

func (c *MockClient) CloseCount() int {
	return int(c.closed.Load())
}
