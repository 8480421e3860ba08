package messaging

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostpets/client/internal/models"
)

// fakeBroker routes frames between transports in memory: a frame sent to
// /send/chatMessage/<email> is delivered to whoever subscribed on
// /exchange/chatMessage/<email>.
type fakeBroker struct {
	mu     sync.Mutex
	topics map[string]func(body []byte)
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{topics: make(map[string]func(body []byte))}
}

func (b *fakeBroker) factory() Transport {
	return &brokeredTransport{broker: b}
}

func (b *fakeBroker) route(destination string, body []byte) {
	topic := strings.Replace(destination, "/send/", "/exchange/", 1)
	b.mu.Lock()
	handler := b.topics[topic]
	b.mu.Unlock()
	if handler != nil {
		handler(body)
	}
}

type brokeredTransport struct {
	broker *fakeBroker

	mu        sync.Mutex
	connected bool
}

func (t *brokeredTransport) Connect(_ map[string]string, onConnected func(), _ func(error)) {
	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	go onConnected()
}

func (t *brokeredTransport) Subscribe(destination string, handler func(body []byte)) (TransportSubscription, error) {
	t.broker.mu.Lock()
	t.broker.topics[destination] = handler
	t.broker.mu.Unlock()
	return brokeredSubscription{broker: t.broker, destination: destination}, nil
}

func (t *brokeredTransport) Send(destination string, _ map[string]string, body []byte) error {
	t.broker.route(destination, body)
	return nil
}

func (t *brokeredTransport) Disconnect() {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
}

func (t *brokeredTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

type brokeredSubscription struct {
	broker      *fakeBroker
	destination string
}

func (s brokeredSubscription) Unsubscribe() {
	s.broker.mu.Lock()
	delete(s.broker.topics, s.destination)
	s.broker.mu.Unlock()
}

type endToEndParty struct {
	service  *Service
	screen   *ChatScreen
	backend  *fakeBackend
	notifier *recordingNotifier
}

func newEndToEndParty(t *testing.T, broker *fakeBroker, self, other *models.User) *endToEndParty {
	t.Helper()
	notifier := &recordingNotifier{}
	texts := testTexts(t)
	service := NewService(broker.factory, fakeTokens{token: "tok"}, fakeUsers{user: self}, notifier, texts)

	backend := newFakeBackend()
	backend.setChats([]models.Chat{{ID: 5, Code: "chat-ab", FromUser: self, ToUser: other}})

	screen := NewChatScreen(self, service, backend, backend, backend, notifier, texts)
	screen.ReadAckDelay = 10 * time.Millisecond
	screen.RefreshDelay = 10 * time.Millisecond

	return &endToEndParty{service: service, screen: screen, backend: backend, notifier: notifier}
}

func (p *endToEndParty) chat() models.Chat {
	return p.backend.chats[0]
}

// Two clients wired through the in-memory broker: the full round trip of one
// conversation, background alerting on one side and the delivery state
// machine advancing on both.
func TestEndToEndDeliveryBetweenTwoClients(t *testing.T) {
	ctx := context.Background()
	broker := newFakeBroker()

	ann := newEndToEndParty(t, broker, alice(), bob())
	ben := newEndToEndParty(t, broker, bob(), alice())

	ann.service.Start()
	ben.service.Start()
	time.Sleep(settle)
	defer ann.service.Stop()
	defer ben.service.Stop()

	require.NoError(t, ann.screen.Enter(ctx))
	require.NoError(t, ann.screen.OpenChat(ctx, ann.chat()))
	require.NoError(t, ben.screen.Enter(ctx))
	ben.screen.SetVisible(false)

	// Recipient is backgrounded: one alert, sender sees DELIVERED but never
	// READ.
	require.NoError(t, ann.screen.Send(ctx, "has anyone seen Luna?"))
	time.Sleep(settle)

	alerts := ben.notifier.bySeverity("message")
	require.Len(t, alerts, 1)
	assert.Equal(t, "Archer Alice", alerts[0].summary)
	assert.Equal(t, "has anyone seen Luna?", alerts[0].detail)

	require.Len(t, ann.screen.Messages(), 1)
	assert.Equal(t, models.StatusDelivered, ann.screen.Messages()[0].Status)

	// Recipient opens the chat: the next message is delivered and read.
	ben.screen.SetVisible(true)
	require.NoError(t, ben.screen.OpenChat(ctx, ben.chat()))

	require.NoError(t, ann.screen.Send(ctx, "she has a red collar"))
	time.Sleep(settle)

	annMessages := ann.screen.Messages()
	require.Len(t, annMessages, 2)
	assert.Equal(t, models.StatusRead, annMessages[1].Status)

	benMessages := ben.screen.Messages()
	require.Len(t, benMessages, 1)
	assert.Equal(t, models.StatusRead, benMessages[0].Status)

	// The backgrounded phase produced exactly one alert; the open chat none.
	assert.Len(t, ben.notifier.bySeverity("message"), 1)
}
