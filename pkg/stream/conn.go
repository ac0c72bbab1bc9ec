package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageType is the type of a WebSocket data frame. The values match the
// gorilla/websocket constants.
type MessageType int

const (
	TextMessage   MessageType = websocket.TextMessage
	BinaryMessage MessageType = websocket.BinaryMessage
)

// Conn is one open transport. ReadMessage is only called from a single
// reader goroutine and WriteMessage only from the event loop.
type Conn interface {
	ReadMessage() (MessageType, []byte, error)
	WriteMessage(mt MessageType, data []byte) error
	// Close performs a clean close of the transport.
	Close() error
}

// Dialer opens transports.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// WebSocketDialer dials WebSocket endpoints with gorilla/websocket.
type WebSocketDialer struct {
	// Dialer is the underlying dialer. If nil, websocket.DefaultDialer is used.
	Dialer *websocket.Dialer
	// Header is sent with the opening handshake.
	Header http.Header
}

// Dial implements Dialer. A bare host:port address is dialled as ws://.
func (d *WebSocketDialer) Dial(ctx context.Context, addr string) (Conn, error) {
	u, err := NormalizeURL(addr)
	if err != nil {
		return nil, err
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, u, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (http status %d)", u, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	return &wsConn{conn: conn}, nil
}

// NormalizeURL turns a streaming endpoint address into a WebSocket URL.
// "host:port" becomes "ws://host:port/"; http and https schemes are mapped
// to ws and wss.
func NormalizeURL(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("stream: empty address")
	}
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("stream: invalid address %q: %w", addr, err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("stream: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("stream: missing host in %q", addr)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

const closeGrace = time.Second

type wsConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func (c *wsConn) ReadMessage() (MessageType, []byte, error) {
	mt, data, err := c.conn.ReadMessage()
	return MessageType(mt), data, err
}

func (c *wsConn) WriteMessage(mt MessageType, data []byte) error {
	return c.conn.WriteMessage(int(mt), data)
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
