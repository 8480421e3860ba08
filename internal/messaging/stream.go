package messaging

import (
	"sync"

	"github.com/google/uuid"

	"lostpets/client/internal/models"
)

// MessageStream fans inbound messages out to any number of listeners. It is
// an explicit observer registry: listeners attach with Subscribe and detach
// with Unsubscribe, and every published message reaches every listener that
// is attached at publish time, in publish order.
type MessageStream struct {
	mu        sync.RWMutex
	listeners map[string]func(models.Message)
}

// NewMessageStream returns an empty stream.
func NewMessageStream() *MessageStream {
	return &MessageStream{listeners: make(map[string]func(models.Message))}
}

// Subscribe attaches a listener and returns its registration id.
func (s *MessageStream) Subscribe(listener func(models.Message)) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.listeners[id] = listener
	s.mu.Unlock()
	return id
}

// Unsubscribe detaches a listener. Unknown ids are ignored.
func (s *MessageStream) Unsubscribe(id string) {
	s.mu.Lock()
	delete(s.listeners, id)
	s.mu.Unlock()
}

// Publish delivers the message to every attached listener, synchronously on
// the caller's goroutine so per-listener ordering follows broker order.
func (s *MessageStream) Publish(msg models.Message) {
	s.mu.RLock()
	listeners := make([]func(models.Message), 0, len(s.listeners))
	for _, listener := range s.listeners {
		listeners = append(listeners, listener)
	}
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(msg)
	}
}
