package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/officetracker/oit/internal/types"
)

// fakeConn answers CONNECT by itself and reports SUBSCRIBE frames to its
// dialer.
type fakeConn struct {
	dialer *fakeDialer
	in     chan []byte

	mu      sync.Mutex
	written []frame

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-c.in:
		if !ok {
			return 0, nil, io.EOF
		}
		return TextMessage, data, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}
	f, err := parseFrame(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.written = append(c.written, f)
	c.mu.Unlock()
	switch f.command {
	case cmdConnect:
		c.in <- c.dialer.connectReply()
	case cmdSubscribe:
		c.dialer.subscribed <- c
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, f := range c.written {
		out = append(out, f.command)
	}
	return out
}

type fakeDialer struct {
	mu         sync.Mutex
	conns      []*fakeConn
	reject     int // number of CONNECTs to answer with ERROR
	headers    []http.Header
	subscribed chan *fakeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{subscribed: make(chan *fakeConn, 8)}
}

func (d *fakeDialer) Dial(_ context.Context, _ string, h http.Header) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeConn{dialer: d, in: make(chan []byte, 16), closed: make(chan struct{})}
	d.conns = append(d.conns, c)
	d.headers = append(d.headers, h)
	return c, nil
}

func (d *fakeDialer) connectReply() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reject > 0 {
		d.reject--
		return newFrame(cmdError, "message", "not authenticated").encode()
	}
	return newFrame(cmdConnected, "version", "1.2").encode()
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) waitSubscribed(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-d.subscribed:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for SUBSCRIBE")
		return nil
	}
}

type collectSink struct {
	ch chan types.Notification
}

func newCollectSink() *collectSink {
	return &collectSink{ch: make(chan types.Notification, 16)}
}

func (s *collectSink) DeliverNotification(n types.Notification) { s.ch <- n }

func (s *collectSink) next(t *testing.T) types.Notification {
	t.Helper()
	select {
	case n := <-s.ch:
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
		return types.Notification{}
	}
}

func messageFrame(body string) []byte {
	return frame{
		command: cmdMessage,
		headers: map[string]string{"destination": Destination("1"), "subscription": "sub-0"},
		body:    []byte(body),
	}.encode()
}

func TestStartRequiresViewer(t *testing.T) {
	s := New(Config{URL: "ws://example.invalid/ws"}, newCollectSink(), WithDialer(newFakeDialer()))
	assert.ErrorIs(t, s.Start(""), ErrNoViewer)
	assert.False(t, s.Active())
}

func TestDoubleStartKeepsOneConnection(t *testing.T) {
	d := newFakeDialer()
	s := New(Config{URL: "ws://example.invalid/ws"}, newCollectSink(), WithDialer(d))
	defer s.Stop()

	require.NoError(t, s.Start("1"))
	require.NoError(t, s.Start("1"))
	require.NoError(t, s.Start("2"))
	d.waitSubscribed(t)

	assert.Equal(t, 1, d.dials())
	assert.True(t, s.Active())
	assert.Equal(t, "1", s.Viewer())
}

func TestStopThenStartOpensFreshConnection(t *testing.T) {
	d := newFakeDialer()
	s := New(Config{URL: "ws://example.invalid/ws"}, newCollectSink(), WithDialer(d))

	require.NoError(t, s.Start("1"))
	first := d.waitSubscribed(t)

	s.Stop()
	assert.False(t, s.Active())
	assert.Equal(t, "", s.Viewer())
	assert.True(t, first.isClosed())
	assert.Equal(t, []string{cmdConnect, cmdSubscribe, cmdDisconnect}, first.commands())
	s.Stop()

	require.NoError(t, s.Start("3"))
	second := d.waitSubscribed(t)
	defer s.Stop()

	assert.Equal(t, 2, d.dials())
	assert.NotSame(t, first, second)
	second.mu.Lock()
	assert.Equal(t, Destination("3"), second.written[1].header("destination"))
	second.mu.Unlock()
}

func TestMessagesAreDelivered(t *testing.T) {
	d := newFakeDialer()
	sink := newCollectSink()
	var errMu sync.Mutex
	var reported []error
	s := New(Config{URL: "ws://example.invalid/ws"}, sink, WithDialer(d), OnError(func(err error) {
		errMu.Lock()
		reported = append(reported, err)
		errMu.Unlock()
	}))
	defer s.Stop()

	require.NoError(t, s.Start("1"))
	c := d.waitSubscribed(t)

	c.in <- messageFrame(`{"id":5,"issueId":9,"type":"COMMENT","message":"New comment","createdAt":"2024-05-01T10:00:00"}`)
	c.in <- []byte("\n")
	c.in <- messageFrame(`{not json`)
	c.in <- messageFrame(`{"id":6,"issueId":9,"type":"SOMETHING_ELSE"}`)
	c.in <- []byte("garbage without newline")
	c.in <- messageFrame(`{"id":7,"issueId":9,"type":"UPVOTE","message":"+1"}`)

	n := sink.next(t)
	assert.Equal(t, int64(5), n.ID)
	assert.Equal(t, types.NotificationComment, n.Type)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), n.CreatedAt)
	n = sink.next(t)
	assert.Equal(t, int64(7), n.ID, "malformed messages are skipped")

	errMu.Lock()
	assert.Len(t, reported, 3)
	errMu.Unlock()
	assert.Equal(t, 1, d.dials(), "bad payloads do not tear down the subscription")
}

func TestReconnectsAfterDrop(t *testing.T) {
	d := newFakeDialer()
	s := New(Config{URL: "ws://example.invalid/ws", ReconnectDelay: 10 * time.Millisecond}, newCollectSink(), WithDialer(d))
	defer s.Stop()

	require.NoError(t, s.Start("1"))
	first := d.waitSubscribed(t)
	close(first.in)

	d.waitSubscribed(t)
	assert.Equal(t, 2, d.dials())
	assert.True(t, s.Active())
}

func TestErrorFrameOnConnectRetries(t *testing.T) {
	d := newFakeDialer()
	d.reject = 2
	var errMu sync.Mutex
	var reported []string
	s := New(Config{URL: "ws://example.invalid/ws", ReconnectDelay: 5 * time.Millisecond}, newCollectSink(),
		WithDialer(d),
		OnError(func(err error) {
			errMu.Lock()
			reported = append(reported, err.Error())
			errMu.Unlock()
		}))
	defer s.Stop()

	require.NoError(t, s.Start("1"))
	d.waitSubscribed(t)
	assert.Equal(t, 3, d.dials())

	errMu.Lock()
	defer errMu.Unlock()
	require.Len(t, reported, 2)
	assert.Contains(t, reported[0], "not authenticated")
}

func TestHeadersPassedToDialer(t *testing.T) {
	d := newFakeDialer()
	h := http.Header{}
	h.Set("Cookie", "SESSION=abc")
	s := New(Config{URL: "ws://example.invalid/ws", Headers: h}, newCollectSink(), WithDialer(d))
	defer s.Stop()

	require.NoError(t, s.Start("1"))
	d.waitSubscribed(t)
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Equal(t, "SESSION=abc", d.headers[0].Get("Cookie"))
}

func TestOverRealWebsocket(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin:  func(r *http.Request) bool { return true },
		Subprotocols: []string{"v12.stomp"},
	}
	gotDisconnect := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "SESSION=abc" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		read := func() frame {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return frame{}
			}
			f, _ := parseFrame(data)
			return f
		}
		if f := read(); f.command != cmdConnect || f.header("accept-version") != "1.2" {
			t.Errorf("first frame = %+v, want CONNECT 1.2", f)
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, newFrame(cmdConnected, "version", "1.2").encode())
		if f := read(); f.header("destination") != "/user/42/queue/notifications" {
			t.Errorf("subscribe destination = %q", f.header("destination"))
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, messageFrame(`{"id":1,"issueId":3,"type":"STATUS_CHANGE","message":"Resolved"}`))
		for {
			f := read()
			if f.command == cmdDisconnect {
				close(gotDisconnect)
				return
			}
			if f.command == "" {
				return
			}
		}
	}))
	defer srv.Close()

	h := http.Header{}
	h.Set("Cookie", "SESSION=abc")
	sink := newCollectSink()
	s := New(Config{URL: URLFromBase(srv.URL), Headers: h}, sink)
	require.NoError(t, s.Start("42"))

	n := sink.next(t)
	assert.Equal(t, types.NotificationStatusChange, n.Type)
	assert.Equal(t, "Resolved", n.Message)

	s.Stop()
	select {
	case <-gotDisconnect:
	case <-time.After(5 * time.Second):
		t.Error("server never saw DISCONNECT")
	}
}

func TestURLFromBase(t *testing.T) {
	assert.Equal(t, "wss://issues.example.com/ws", URLFromBase("https://issues.example.com/"))
	assert.Equal(t, "ws://127.0.0.1:8080/ws", URLFromBase("http://127.0.0.1:8080"))
	assert.True(t, strings.HasSuffix(URLFromBase("http://x"), "/ws"))
}
