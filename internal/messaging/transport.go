package messaging

import (
	"lostpets/client/internal/config"
	"lostpets/client/internal/stomp"
)

// Transport is one streaming session toward the message broker. It abstracts
// the underlying protocol so the connection manager can be exercised against
// fakes; the production implementation is a STOMP session over websocket.
type Transport interface {
	// Connect starts the handshake asynchronously. onConnected fires exactly
	// once on success, onError at most once for any failure, including
	// connection loss after a successful connect.
	Connect(headers map[string]string, onConnected func(), onError func(error))
	// Subscribe registers a frame handler for a broker destination.
	Subscribe(destination string, handler func(body []byte)) (TransportSubscription, error)
	// Send publishes a fire-and-forget frame.
	Send(destination string, headers map[string]string, body []byte) error
	// Disconnect closes the session. Must be safe to call at any time.
	Disconnect()
	// Connected reports whether the handshake completed and the session is up.
	Connected() bool
}

// TransportSubscription is the handle used to detach a topic subscription.
type TransportSubscription interface {
	Unsubscribe()
}

// TransportFactory builds a fresh Transport for each connection attempt;
// sessions are single-use.
type TransportFactory func() Transport

// NewSTOMPTransportFactory returns a factory producing STOMP sessions toward
// the given websocket URL, with the fixed bidirectional heartbeat the broker
// contract requires.
func NewSTOMPTransportFactory(url string) TransportFactory {
	return func() Transport {
		return &stompTransport{
			client: stomp.NewClient(url, config.ClientHeartbeat, config.ServerHeartbeat),
		}
	}
}

type stompTransport struct {
	client *stomp.Client
}

func (t *stompTransport) Connect(headers map[string]string, onConnected func(), onError func(error)) {
	t.client.Connect(headers, onConnected, onError)
}

func (t *stompTransport) Subscribe(destination string, handler func(body []byte)) (TransportSubscription, error) {
	return t.client.Subscribe(destination, func(frame *stomp.Frame) {
		handler(frame.Body)
	})
}

func (t *stompTransport) Send(destination string, headers map[string]string, body []byte) error {
	return t.client.Send(destination, headers, body)
}

func (t *stompTransport) Disconnect() {
	t.client.Disconnect()
}

func (t *stompTransport) Connected() bool {
	return t.client.Connected()
}
