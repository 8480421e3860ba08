package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"lostpets/client/internal/models"
)

// fakeTransport is a scripted broker session. Connect resolves asynchronously
// like the real client does, either succeeding or failing per failConnect.
type fakeTransport struct {
	failConnect bool

	mu          sync.Mutex
	headers     map[string]string
	subscribers map[string]func(body []byte)
	sent        []sentFrame
	connected   bool
	onError     func(error)
}

type sentFrame struct {
	destination string
	body        []byte
}

func newFakeTransport(failConnect bool) *fakeTransport {
	return &fakeTransport{
		failConnect: failConnect,
		subscribers: make(map[string]func(body []byte)),
	}
}

func (t *fakeTransport) Connect(headers map[string]string, onConnected func(), onError func(error)) {
	t.mu.Lock()
	t.headers = headers
	t.onError = onError
	t.mu.Unlock()

	if t.failConnect {
		time.AfterFunc(time.Millisecond, func() { onError(errors.New("dial refused")) })
		return
	}
	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	go onConnected()
}

func (t *fakeTransport) Subscribe(destination string, handler func(body []byte)) (TransportSubscription, error) {
	t.mu.Lock()
	t.subscribers[destination] = handler
	t.mu.Unlock()
	return fakeSubscription{transport: t, destination: destination}, nil
}

func (t *fakeTransport) Send(destination string, headers map[string]string, body []byte) error {
	t.mu.Lock()
	t.sent = append(t.sent, sentFrame{destination: destination, body: body})
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) Disconnect() {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
}

func (t *fakeTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// push delivers a frame to the handler subscribed on the destination.
func (t *fakeTransport) push(tb testing.TB, destination string, msg models.Message) {
	tb.Helper()
	t.mu.Lock()
	handler := t.subscribers[destination]
	t.mu.Unlock()
	if handler == nil {
		tb.Fatalf("no subscriber on %s", destination)
	}
	body, err := json.Marshal(msg)
	if err != nil {
		tb.Fatalf("encode frame: %v", err)
	}
	handler(body)
}

func (t *fakeTransport) dropConnection(err error) {
	t.mu.Lock()
	onError := t.onError
	t.connected = false
	t.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

func (t *fakeTransport) sentFrames() []sentFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]sentFrame(nil), t.sent...)
}

func (t *fakeTransport) subscriptions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	dests := make([]string, 0, len(t.subscribers))
	for dest := range t.subscribers {
		dests = append(dests, dest)
	}
	return dests
}

type fakeSubscription struct {
	transport   *fakeTransport
	destination string
}

func (s fakeSubscription) Unsubscribe() {
	s.transport.mu.Lock()
	delete(s.transport.subscribers, s.destination)
	s.transport.mu.Unlock()
}

// scriptedFactory hands out pre-built transports in order and keeps building
// fresh ones from the last script entry once the script runs out.
type scriptedFactory struct {
	mu      sync.Mutex
	script  []bool // failConnect per attempt; last entry repeats
	created []*fakeTransport
}

func newScriptedFactory(failures ...bool) *scriptedFactory {
	if len(failures) == 0 {
		failures = []bool{false}
	}
	return &scriptedFactory{script: failures}
}

func (f *scriptedFactory) factory() Transport {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.created)
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	transport := newFakeTransport(f.script[idx])
	f.created = append(f.created, transport)
	return transport
}

func (f *scriptedFactory) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *scriptedFactory) last() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.created) == 0 {
		return nil
	}
	return f.created[len(f.created)-1]
}

// recordingNotifier captures every notification for assertions.
type recordingNotifier struct {
	mu      sync.Mutex
	entries []notification
}

type notification struct {
	severity string
	summary  string
	detail   string
}

func (n *recordingNotifier) record(severity, summary, detail string) {
	n.mu.Lock()
	n.entries = append(n.entries, notification{severity, summary, detail})
	n.mu.Unlock()
}

func (n *recordingNotifier) ShowSuccess(summary, detail string) { n.record("success", summary, detail) }
func (n *recordingNotifier) ShowInfo(summary, detail string)    { n.record("info", summary, detail) }
func (n *recordingNotifier) ShowWarn(summary, detail string)    { n.record("warn", summary, detail) }
func (n *recordingNotifier) ShowError(summary, detail string)   { n.record("error", summary, detail) }
func (n *recordingNotifier) ShowMessage(summary, detail string) { n.record("message", summary, detail) }

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.entries...)
}

func (n *recordingNotifier) bySeverity(severity string) []notification {
	var out []notification
	for _, entry := range n.all() {
		if entry.severity == severity {
			out = append(out, entry)
		}
	}
	return out
}

type fakeTokens struct {
	token   string
	expired bool
}

func (t fakeTokens) Token() string { return t.token }
func (t fakeTokens) Expired() bool { return t.expired }

type fakeUsers struct {
	user *models.User
	err  error
}

func (u fakeUsers) GetLoggedUser(context.Context) (*models.User, error) {
	return u.user, u.err
}

// fakeBackend covers the REST collaborators of the chat screen.
type fakeBackend struct {
	mu       sync.Mutex
	chats    []models.Chat
	history  map[string][]models.Message
	users    map[int64]*models.User
	chatErr  error
	loads    int
	fetched  []string
	resolved []int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		history: make(map[string][]models.Message),
		users:   make(map[int64]*models.User),
	}
}

func (b *fakeBackend) GetUserChats(_ context.Context, _ int64) ([]models.Chat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads++
	if b.chatErr != nil {
		return nil, b.chatErr
	}
	return append([]models.Chat(nil), b.chats...), nil
}

func (b *fakeBackend) GetChatMessages(_ context.Context, chatCode, _ string) ([]models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fetched = append(b.fetched, chatCode)
	return append([]models.Message(nil), b.history[chatCode]...), nil
}

func (b *fakeBackend) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resolved = append(b.resolved, id)
	user, ok := b.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (b *fakeBackend) setChats(chats []models.Chat) {
	b.mu.Lock()
	b.chats = chats
	b.mu.Unlock()
}

func (b *fakeBackend) loadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads
}

// recordingDispatcher satisfies Dispatcher for screen tests that do not need
// a full Service underneath.
type recordingDispatcher struct {
	stream *MessageStream

	mu   sync.Mutex
	sent []dispatched
}

type dispatched struct {
	msg       models.Message
	recipient string
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{stream: NewMessageStream()}
}

func (d *recordingDispatcher) Send(msg models.Message, recipientEmail string) {
	d.mu.Lock()
	d.sent = append(d.sent, dispatched{msg: msg, recipient: recipientEmail})
	d.mu.Unlock()
}

func (d *recordingDispatcher) Messages() *MessageStream { return d.stream }

func (d *recordingDispatcher) sentMessages() []dispatched {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatched(nil), d.sent...)
}
