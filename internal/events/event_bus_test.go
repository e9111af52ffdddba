package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var received []Event
	var wg sync.WaitGroup
	wg.Add(2)

	handler := func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
		wg.Done()
	}
	bus.Subscribe(EventTransferCompleted, handler)
	bus.Subscribe(EventTransferCompleted, handler)

	bus.Publish(Event{Type: EventTransferCompleted, ServerID: 10})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers were not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	for _, e := range received {
		assert.Equal(t, EventTransferCompleted, e.Type)
		assert.Equal(t, uint(10), e.ServerID)
		assert.NotEmpty(t, e.ID, "events are assigned ids on publish")
		assert.False(t, e.Timestamp.IsZero())
	}
}

func TestPublishIgnoresUnsubscribedTypes(t *testing.T) {
	bus := NewBus()

	called := make(chan struct{}, 1)
	bus.Subscribe(EventTransferFailed, func(e Event) {
		called <- struct{}{}
	})

	bus.Publish(Event{Type: EventTransferCompleted})

	select {
	case <-called:
		t.Fatal("handler for a different type must not fire")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandlerPanicDoesNotKillBus(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe(EventBackupCompleted, func(e Event) {
		panic("handler bug")
	})
	bus.Subscribe(EventBackupCompleted, func(e Event) {
		wg.Done()
	})

	bus.Publish(Event{Type: EventBackupCompleted})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("surviving handler was not invoked")
	}
}
