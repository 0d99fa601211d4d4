package store

import (
	"sync"
)

// subscriberBuffer is the channel buffer for each subscriber.
const subscriberBuffer = 16

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive states via buffered channels. Sends are non-blocking;
// if a subscriber's buffer is full, the state is dropped for that subscriber
// to prevent blocking the poller.
type MemoryStore struct {
	mu          sync.RWMutex
	current     FleetState
	subscribers map[chan FleetState]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan FleetState]struct{}),
	}
}

// Publish swaps in state as the current snapshot and notifies all subscribers.
func (m *MemoryStore) Publish(state FleetState) {
	m.mu.Lock()
	m.current = state
	m.mu.Unlock()

	m.notifySubscribers(state)
}

// Current returns the most recently published state.
func (m *MemoryStore) Current() FleetState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe creates a new subscription and returns a channel for receiving states.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan FleetState {
	ch := make(chan FleetState, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan FleetState) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the state to all active subscribers without blocking.
func (m *MemoryStore) notifySubscribers(state FleetState) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- state:
		default:
			// subscriber is slow, drop the state
		}
	}
}
