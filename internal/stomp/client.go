package stomp

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	connectWait    = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Handler receives MESSAGE frames delivered to one subscription.
type Handler func(frame *Frame)

// Client is one STOMP session over a websocket connection. A Client is
// single-use: after the connection fails or Disconnect is called, a new
// Client must be created to connect again.
type Client struct {
	url      string
	outgoing time.Duration // heartbeat this client offers to send
	incoming time.Duration // heartbeat this client wants to receive

	mu        sync.Mutex
	conn      *websocket.Conn
	subs      map[string]Handler
	send      chan *Frame
	connected bool
	closed    bool
	hbSend    time.Duration // negotiated outgoing interval
	hbRecv    time.Duration // negotiated incoming interval

	onConnected func()
	onError     func(error)
	errOnce     sync.Once
	sendOnce    sync.Once
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	ID          string
	destination string
	client      *Client
}

// NewClient prepares a session toward the given websocket URL. The heartbeat
// intervals are offered to the server during the handshake; zero disables
// that direction.
func NewClient(url string, outgoing, incoming time.Duration) *Client {
	return &Client{
		url:      url,
		outgoing: outgoing,
		incoming: incoming,
		subs:     make(map[string]Handler),
		send:     make(chan *Frame, sendBuffer),
	}
}

// Connect starts the handshake asynchronously. onConnected fires exactly once
// when the server accepts the session; onError fires at most once for any
// failure, including connection loss after a successful connect.
func (c *Client) Connect(headers map[string]string, onConnected func(), onError func(error)) {
	c.onConnected = onConnected
	c.onError = onError
	go c.dial(headers)
}

// Connected reports whether the session handshake has completed and the
// connection is still up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Subscribe registers a handler for MESSAGE frames on the given destination.
func (c *Client) Subscribe(destination string, handler Handler) (*Subscription, error) {
	id := "sub-" + uuid.NewString()

	frame := NewFrame(CmdSubscribe)
	frame.Headers[HdrID] = id
	frame.Headers[HdrDestination] = destination

	c.mu.Lock()
	c.subs[id] = handler
	c.mu.Unlock()

	if err := c.enqueue(frame); err != nil {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
		return nil, err
	}
	return &Subscription{ID: id, destination: destination, client: c}, nil
}

// Unsubscribe removes the subscription. Safe to call after the connection is
// already gone.
func (s *Subscription) Unsubscribe() {
	frame := NewFrame(CmdUnsubscribe)
	frame.Headers[HdrID] = s.ID
	_ = s.client.enqueue(frame)

	s.client.mu.Lock()
	delete(s.client.subs, s.ID)
	s.client.mu.Unlock()
}

// Send publishes a fire-and-forget frame to the destination. No receipt is
// requested and no acknowledgement is awaited.
func (c *Client) Send(destination string, headers map[string]string, body []byte) error {
	frame := NewFrame(CmdSend)
	for name, value := range headers {
		frame.Headers[name] = value
	}
	frame.Headers[HdrDestination] = destination
	frame.Body = body
	return c.enqueue(frame)
}

// Disconnect closes the session, flushing a DISCONNECT frame when the
// handshake had completed. Calling it repeatedly, or before connecting, is a
// no-op.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	connected := c.connected
	conn := c.conn
	c.mu.Unlock()

	if connected {
		// Best effort; the write pump flushes it before closing the socket.
		frame := NewFrame(CmdDisconnect)
		_ = c.enqueue(frame)
	}

	c.mu.Lock()
	c.connected = false
	c.sendOnce.Do(func() { close(c.send) })
	c.mu.Unlock()

	if !connected && conn != nil {
		// No write pump running yet, so nothing else will close the socket.
		conn.Close()
	}
}

func (c *Client) dial(headers map[string]string) {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.reportError(fmt.Errorf("stomp: dial %s: %w", c.url, err))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	frame := NewFrame(CmdConnect)
	frame.Headers[HdrAcceptVersion] = "1.2"
	frame.Headers[HdrHeartBeat] = fmt.Sprintf("%d,%d",
		c.outgoing.Milliseconds(), c.incoming.Milliseconds())
	for name, value := range headers {
		frame.Headers[name] = value
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, frame.Marshal()); err != nil {
		conn.Close()
		c.reportError(fmt.Errorf("stomp: connect handshake: %w", err))
		return
	}

	c.readPump()
}

// readPump owns all reads on the connection, from the CONNECTED frame until
// the connection dies.
func (c *Client) readPump() {
	defer c.teardown()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(connectWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.reportError(fmt.Errorf("stomp: connection lost: %w", err))
			}
			return
		}
		c.resetReadDeadline()

		if IsHeartbeat(data) {
			continue
		}
		frame, err := Unmarshal(data)
		if err != nil {
			log.Printf("stomp: dropping malformed frame: %v", err)
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame *Frame) {
	switch frame.Command {
	case CmdConnected:
		c.negotiateHeartbeat(frame.Header(HdrHeartBeat))
		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()
		c.resetReadDeadline()
		go c.writePump()
		if c.onConnected != nil {
			c.onConnected()
		}

	case CmdMessage:
		c.mu.Lock()
		handler := c.subs[frame.Header(HdrSubscription)]
		c.mu.Unlock()
		if handler == nil {
			log.Printf("stomp: no subscriber for destination %s", frame.Header(HdrDestination))
			return
		}
		handler(frame)

	case CmdError:
		c.reportError(fmt.Errorf("stomp: server error: %s", frame.Header(HdrMessage)))

	default:
		log.Printf("stomp: ignoring unexpected %s frame", frame.Command)
	}
}

// writePump owns all writes on the connection after the handshake. It drains
// the send channel and emits heartbeats on the negotiated interval.
func (c *Client) writePump() {
	c.mu.Lock()
	interval := c.hbSend
	c.mu.Unlock()
	if interval <= 0 {
		interval = time.Hour // heartbeats disabled by negotiation
	}
	ticker := time.NewTicker(interval)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame.Marshal()); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte("\n")); err != nil {
				return
			}
		}
	}
}

// negotiateHeartbeat combines our offer with the server's CONNECTED
// heart-beat header per the STOMP rules: a direction is active only if both
// sides enable it, at the slower of the two rates.
func (c *Client) negotiateHeartbeat(value string) {
	serverSend, serverWant := time.Duration(0), time.Duration(0)
	if sx, sy, ok := strings.Cut(value, ","); ok {
		if ms, err := strconv.Atoi(strings.TrimSpace(sx)); err == nil {
			serverSend = time.Duration(ms) * time.Millisecond
		}
		if ms, err := strconv.Atoi(strings.TrimSpace(sy)); err == nil {
			serverWant = time.Duration(ms) * time.Millisecond
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hbSend = 0
	if c.outgoing > 0 && serverWant > 0 {
		c.hbSend = max(c.outgoing, serverWant)
	}
	c.hbRecv = 0
	if c.incoming > 0 && serverSend > 0 {
		c.hbRecv = max(c.incoming, serverSend)
	}
}

// resetReadDeadline pushes the read deadline out by twice the negotiated
// incoming heartbeat so one missed beat is tolerated but not two.
func (c *Client) resetReadDeadline() {
	c.mu.Lock()
	recv := c.hbRecv
	connected := c.connected
	c.mu.Unlock()

	switch {
	case recv > 0:
		c.conn.SetReadDeadline(time.Now().Add(2 * recv))
	case connected:
		c.conn.SetReadDeadline(time.Time{})
	}
}

func (c *Client) enqueue(frame *Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return fmt.Errorf("stomp: not connected")
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("stomp: send buffer full, dropping %s frame", frame.Command)
	}
}

func (c *Client) teardown() {
	c.mu.Lock()
	c.connected = false
	c.sendOnce.Do(func() { close(c.send) })
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
}

func (c *Client) reportError(err error) {
	c.errOnce.Do(func() {
		if c.onError != nil {
			c.onError(err)
		}
	})
}
