package storage

import (
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"context"
	"log"
	"sync"
)

// localBus is the in-process event fan-out used when Redis is not configured.
// Slow subscribers lose events rather than block publishers.
type localBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan models.ComplaintEvent
}

func newLocalBus() *localBus {
	return &localBus{subs: make(map[int]chan models.ComplaintEvent)}
}

func (b *localBus) publish(event models.ComplaintEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			log.Printf("WARNING: Event subscriber %d is full, dropping event for complaint %d", id, event.ComplaintID)
		}
	}
}

func (b *localBus) subscribe(ctx context.Context) <-chan models.ComplaintEvent {
	ch := make(chan models.ComplaintEvent, config.EventBufferSize)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}
