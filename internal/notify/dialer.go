package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// TextMessage is the websocket message type STOMP frames are sent as.
const TextMessage = websocket.TextMessage

// Conn is the part of a websocket connection the service uses.
// *websocket.Conn implements it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens websocket connections. Tests substitute a fake.
type Dialer interface {
	Dial(ctx context.Context, url string, header http.Header) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string, header http.Header) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	return f(ctx, url, header)
}

type websocketDialer struct {
	d *websocket.Dialer
}

// NewWebsocketDialer returns the gorilla/websocket dialer, negotiating the
// STOMP 1.2 subprotocol.
func NewWebsocketDialer() Dialer {
	return websocketDialer{d: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 15 * time.Second,
		Subprotocols:     []string{"v12.stomp"},
	}}
}

func (w websocketDialer) Dial(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, resp, err := w.d.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

// URLFromBase derives the websocket endpoint from the backend base URL,
// e.g. "https://issues.example.com" becomes "wss://issues.example.com/ws".
func URLFromBase(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/ws"
}
