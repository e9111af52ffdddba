package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/perchhost/panel/pkg/logger"
)

// EventType represents the type of event
type EventType string

const (
	// Server lifecycle events
	EventServerPowerAction EventType = "server.power_action"

	// Transfer events
	EventTransferInitiated EventType = "server.transfer_initiated"
	EventTransferCompleted EventType = "server.transfer_completed"
	EventTransferFailed    EventType = "server.transfer_failed"

	// Backup events
	EventBackupCompleted EventType = "backup.completed"
	EventBackupRestored  EventType = "backup.restored"

	// Agent-facing events
	EventSftpAuthenticated EventType = "sftp.authenticated"
	EventActivityIngested  EventType = "activity.ingested"
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	ServerID  uint                   `json:"server_id,omitempty"`
	UserID    uint                   `json:"user_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
}

// Handler is a function that handles events
type Handler func(event Event)

// Publisher is the emit-capable dependency handed to components that only
// need to publish. Satisfied by *Bus and trivially mockable in tests.
type Publisher interface {
	Publish(event Event)
}

// Bus manages event publishing and subscription. It is constructed once
// in main and injected everywhere it is needed; there is no package-level
// instance.
type Bus struct {
	subscribers map[EventType][]Handler
	mu          sync.RWMutex
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish publishes an event to all subscribers. Handlers run on their
// own goroutines so a slow subscriber never blocks the request path.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	b.mu.RLock()
	handlers := b.subscribers[event.Type]
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Event handler panicked", nil, map[string]interface{}{
						"event_type": event.Type,
						"panic":      r,
					})
				}
			}()
			h(event)
		}(handler)
	}

	logger.Debug("Event published", map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	})
}
