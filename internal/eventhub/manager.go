// Package eventhub fans committed complaint events out to connected clients.
// Admin clients see every event, other clients only events on complaints
// they own.
package eventhub

import (
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"fmt"
	"log"
	"sync"
)

// ManagerService owns the set of connected clients. Registration and dispatch
// happen on the Run goroutine only.
type ManagerService struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	Source storage.EventSource

	mu   sync.RWMutex
	done chan struct{}
}

func NewManagerService(source storage.EventSource) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Source:       source,
		done:         make(chan struct{}),
	}
}

// Register hands client to the hub. It returns false once the hub has stopped.
func (m *ManagerService) Register(client Client) bool {
	select {
	case m.RegisterCh <- client:
		return true
	case <-m.done:
		return false
	}
}

// Unregister removes client from the hub; safe to call after the hub stopped.
func (m *ManagerService) Unregister(client Client) {
	select {
	case m.UnregisterCh <- client:
	case <-m.done:
	}
}

// HasClient reports whether a client with id is registered.
func (m *ManagerService) HasClient(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.Clients[id]
	return ok
}

// Run subscribes to the event source and serves clients until ctx is
// cancelled or the source closes.
func (m *ManagerService) Run(ctx context.Context) error {
	defer close(m.done)

	events, err := m.Source.SubscribeEvents(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to complaint events: %w", err)
	}
	log.Println("INFO: Event hub started.")
	defer m.closeAll()

	for {
		select {
		case <-ctx.Done():
			log.Println("INFO: Event hub stopped.")
			return nil

		case client := <-m.RegisterCh:
			m.mu.Lock()
			m.Clients[client.GetClientID()] = client
			m.mu.Unlock()
			client.Run()
			log.Printf("INFO: Client %s registered for user %s", client.GetClientID(), client.GetUserID())

		case client := <-m.UnregisterCh:
			m.remove(client.GetClientID())

		case event, ok := <-events:
			if !ok {
				log.Println("WARNING: Event source closed, stopping hub.")
				return nil
			}
			m.dispatch(event)
		}
	}
}

func (m *ManagerService) dispatch(event models.ComplaintEvent) {
	m.mu.RLock()
	targets := make([]Client, 0, len(m.Clients))
	for _, client := range m.Clients {
		if accepts(client, event) {
			targets = append(targets, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.GetSendChannel() <- event:
		default:
			// Повільний клієнт: відключаємо, щоб не блокувати інших
			log.Printf("WARNING: Client %s is too slow, dropping it.", client.GetClientID())
			m.remove(client.GetClientID())
		}
	}
}

func (m *ManagerService) remove(id string) {
	m.mu.Lock()
	client, ok := m.Clients[id]
	if ok {
		delete(m.Clients, id)
	}
	m.mu.Unlock()

	if ok {
		client.Close()
		log.Printf("INFO: Client %s unregistered.", id)
	}
}

func (m *ManagerService) closeAll() {
	m.mu.Lock()
	clients := m.Clients
	m.Clients = make(map[string]Client)
	m.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
