// Package messaging is the real-time core of the client: it keeps one broker
// session alive per logged-in user, subscribes to the user's inbound topic,
// dispatches outbound messages and drives the SENT/DELIVERED/READ delivery
// state machine.
package messaging

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"lostpets/client/internal/config"
	"lostpets/client/internal/localization"
	"lostpets/client/internal/models"
	"lostpets/client/internal/notify"
)

// TokenSource supplies the session token attached to the broker handshake.
type TokenSource interface {
	Token() string
	Expired() bool
}

// UserSource resolves the logged-in user, whose email addresses the inbound
// topic.
type UserSource interface {
	GetLoggedUser(ctx context.Context) (*models.User, error)
}

// Service owns the broker connection of the logged-in user. It implements
// the connection manager (start/stop/reconnect), the inbound subscription
// and the outbound dispatcher.
type Service struct {
	newTransport TransportFactory
	tokens       TokenSource
	users        UserSource
	notifier     notify.Notifier
	texts        *localization.Localizer

	stream *MessageStream

	mu        sync.Mutex
	transport Transport
	sub       TransportSubscription
	stopped   bool
}

// NewService wires a Service; no connection is made until Start.
func NewService(factory TransportFactory, tokens TokenSource, users UserSource,
	notifier notify.Notifier, texts *localization.Localizer) *Service {
	return &Service{
		newTransport: factory,
		tokens:       tokens,
		users:        users,
		notifier:     notifier,
		texts:        texts,
		stream:       NewMessageStream(),
	}
}

// Messages returns the stream carrying every decoded inbound message.
func (s *Service) Messages() *MessageStream {
	return s.stream
}

// Start establishes the broker session if none is active. The handshake is
// asynchronous; on success the user topic subscription is attached, on any
// error the user is warned and the connection is retried immediately,
// without backoff and without an attempt cap, until Stop is called.
func (s *Service) Start() {
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
	s.connect()
}

// connect opens a fresh session unless one is active or Stop won the race.
func (s *Service) connect() {
	s.mu.Lock()
	if s.stopped || s.transport != nil {
		s.mu.Unlock()
		return
	}
	transport := s.newTransport()
	s.transport = transport
	s.mu.Unlock()

	headers := map[string]string{}
	if token := s.tokens.Token(); token != "" {
		headers["Authorization"] = token
		if s.tokens.Expired() {
			// Still attempted: the broker is the authority on rejection.
			log.Printf("WARNING: connecting to the broker with an expired session token")
		}
	}

	transport.Connect(headers,
		func() { s.initUserTopicSubscription(transport) },
		func(err error) { s.handleConnectionError(transport, err) })
}

// Stop detaches the inbound subscription and closes the session. Calling it
// repeatedly, or before any Start, is a no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	transport, sub := s.transport, s.sub
	s.transport, s.sub = nil, nil
	s.stopped = true
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if transport != nil {
		transport.Disconnect()
	}
}

// Connected reports whether an established session is currently up.
func (s *Service) Connected() bool {
	s.mu.Lock()
	transport := s.transport
	s.mu.Unlock()
	return transport != nil && transport.Connected()
}

// Send publishes the message to the recipient's destination, fire and
// forget. The caller is responsible for setting the message status before
// dispatching; status updates reuse the full message payload.
func (s *Service) Send(msg models.Message, recipientEmail string) {
	s.mu.Lock()
	transport := s.transport
	s.mu.Unlock()
	if transport == nil {
		log.Printf("WARNING: dropping outbound message %s: not connected", msg.Code)
		return
	}

	body, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ERROR: encode outbound message %s: %v", msg.Code, err)
		return
	}
	if err := transport.Send(config.UserDestination(recipientEmail), map[string]string{}, body); err != nil {
		log.Printf("WARNING: publish message %s: %v", msg.Code, err)
	}
}

func (s *Service) initUserTopicSubscription(transport Transport) {
	user, err := s.users.GetLoggedUser(context.Background())
	if err != nil {
		log.Printf("ERROR: cannot resolve logged user for topic subscription: %v", err)
		return
	}

	sub, err := transport.Subscribe(config.UserTopic(user.Email), s.handleFrame)
	if err != nil {
		log.Printf("ERROR: subscribe to user topic: %v", err)
		return
	}

	s.mu.Lock()
	if s.transport == transport {
		s.sub = sub
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	// The session was stopped or replaced while subscribing.
	sub.Unsubscribe()
}

// handleFrame decodes one inbound frame and publishes it on the stream.
// Malformed frames are dropped, never fatal to the subscription.
func (s *Service) handleFrame(body []byte) {
	var msg models.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		log.Printf("ERROR: dropping malformed inbound frame: %v", err)
		return
	}
	if msg.Chat == nil || msg.FromUser == nil || msg.ToUser == nil {
		log.Printf("ERROR: dropping inbound frame %q without chat or user references", msg.Code)
		return
	}
	s.stream.Publish(msg)
}

func (s *Service) handleConnectionError(transport Transport, err error) {
	log.Printf("messaging: connection error: %v", err)
	transport.Disconnect()

	s.mu.Lock()
	if s.transport != transport {
		// A stale session erroring after Stop or after being replaced.
		s.mu.Unlock()
		return
	}
	s.transport = nil
	s.sub = nil
	stopped := s.stopped
	s.mu.Unlock()

	if stopped {
		return
	}
	s.notifier.ShowError(s.texts.T("chats.title"), s.texts.T("chats.connection_lost"))
	s.connect()
}
