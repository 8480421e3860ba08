// Package stomp implements the client side of STOMP 1.2 over a websocket
// connection: handshake, heartbeats, topic subscriptions and fire-and-forget
// sends. It covers the subset of the protocol the messaging broker speaks.
package stomp

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// STOMP frame commands used by this client.
const (
	CmdConnect     = "CONNECT"
	CmdConnected   = "CONNECTED"
	CmdSend        = "SEND"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdDisconnect  = "DISCONNECT"
	CmdMessage     = "MESSAGE"
	CmdError       = "ERROR"
)

// Well-known header names.
const (
	HdrAcceptVersion = "accept-version"
	HdrHeartBeat     = "heart-beat"
	HdrDestination   = "destination"
	HdrID            = "id"
	HdrSubscription  = "subscription"
	HdrMessage       = "message"
)

// Frame is one STOMP frame: a command, a set of headers and an optional body.
type Frame struct {
	Command string
	Headers map[string]string
	Body    []byte
}

// NewFrame builds a frame with an empty header set.
func NewFrame(command string) *Frame {
	return &Frame{Command: command, Headers: make(map[string]string)}
}

// Header returns the value of the named header, or "" if absent.
func (f *Frame) Header(name string) string {
	return f.Headers[name]
}

// Marshal encodes the frame to its wire form, NUL terminated. Headers are
// written in sorted order so the output is deterministic.
func (f *Frame) Marshal() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	names := make([]string, 0, len(f.Headers))
	for name := range f.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		buf.WriteString(escapeHeader(f.Command, name))
		buf.WriteByte(':')
		buf.WriteString(escapeHeader(f.Command, f.Headers[name]))
		buf.WriteByte('\n')
	}

	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Unmarshal decodes one wire frame. Heartbeat frames (a bare LF) must be
// filtered out by the caller before decoding.
func Unmarshal(data []byte) (*Frame, error) {
	data = bytes.TrimSuffix(data, []byte{0})

	head, body, found := bytes.Cut(data, []byte("\n\n"))
	if !found {
		return nil, fmt.Errorf("stomp: frame without header terminator")
	}

	lines := strings.Split(string(head), "\n")
	if lines[0] == "" {
		return nil, fmt.Errorf("stomp: frame without command")
	}

	frame := NewFrame(strings.TrimSuffix(lines[0], "\r"))
	for _, line := range lines[1:] {
		line = strings.TrimSuffix(line, "\r")
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("stomp: malformed header line %q", line)
		}
		name, err := unescapeHeader(frame.Command, name)
		if err != nil {
			return nil, err
		}
		value, err = unescapeHeader(frame.Command, value)
		if err != nil {
			return nil, err
		}
		// STOMP counts only the first occurrence of a repeated header.
		if _, exists := frame.Headers[name]; !exists {
			frame.Headers[name] = value
		}
	}

	if len(body) > 0 {
		frame.Body = body
	}
	return frame, nil
}

// IsHeartbeat reports whether the raw transport payload is a heartbeat
// rather than a frame.
func IsHeartbeat(data []byte) bool {
	trimmed := bytes.TrimRight(data, "\r\n")
	return len(trimmed) == 0
}

var headerEscaper = strings.NewReplacer(
	`\`, `\\`,
	"\r", `\r`,
	"\n", `\n`,
	":", `\c`,
)

// escapeHeader applies STOMP 1.2 header escaping. CONNECT and CONNECTED
// frames are exempt for backward compatibility with STOMP 1.0.
func escapeHeader(command, value string) string {
	if command == CmdConnect || command == CmdConnected {
		return value
	}
	return headerEscaper.Replace(value)
}

func unescapeHeader(command, value string) (string, error) {
	if command == CmdConnect || command == CmdConnected {
		return value, nil
	}
	if !strings.ContainsRune(value, '\\') {
		return value, nil
	}
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(value) {
			return "", fmt.Errorf("stomp: dangling escape in %q", value)
		}
		switch value[i] {
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		case '\\':
			b.WriteByte('\\')
		default:
			return "", fmt.Errorf("stomp: invalid escape sequence %q", value[i-1:i+1])
		}
	}
	return b.String(), nil
}
