// Package notify keeps the real-time notification subscription of the
// signed-in viewer.
//
// The backend pushes notifications as STOMP 1.2 MESSAGE frames over a
// websocket. A Service owns at most one connection; it reconnects with a
// constant delay after the connection drops and hands every decoded
// notification to its Sink.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/officetracker/oit/internal/debug"
	"github.com/officetracker/oit/internal/types"
)

// DefaultReconnectDelay is the pause between reconnect attempts.
const DefaultReconnectDelay = 5 * time.Second

// ErrNoViewer is returned by Start without a viewer identity.
var ErrNoViewer = errors.New("notify: viewer id required")

var errConnectionClosed = errors.New("notify: connection closed by server")

// Sink receives pushed notifications. *tracker.Tracker implements it.
type Sink interface {
	DeliverNotification(n types.Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(types.Notification)

func (f SinkFunc) DeliverNotification(n types.Notification) { f(n) }

// Config holds the connection settings.
type Config struct {
	// URL is the websocket endpoint, e.g. "wss://issues.example.com/ws".
	URL string
	// ReconnectDelay defaults to DefaultReconnectDelay.
	ReconnectDelay time.Duration
	// Headers are sent with the websocket handshake (session cookie).
	Headers http.Header
}

// Service manages the push subscription. It is safe for concurrent use.
type Service struct {
	cfg     Config
	sink    Sink
	dialer  Dialer
	onError func(error)

	// life serializes Start and Stop.
	life sync.Mutex

	mu     sync.Mutex
	viewer string
	cancel context.CancelFunc
	done   chan struct{}
	conn   Conn

	writeMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(s *Service) { s.dialer = d }
}

// OnError registers a hook for connection and decoding errors. They are
// also written to the debug log.
func OnError(fn func(error)) Option {
	return func(s *Service) { s.onError = fn }
}

// New creates a stopped service.
func New(cfg Config, sink Sink, opts ...Option) *Service {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	s := &Service{
		cfg:    cfg,
		sink:   sink,
		dialer: NewWebsocketDialer(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start subscribes to the notifications of viewerID. It returns at once;
// the connection is made in the background. Calling Start while a
// subscription is active does nothing, whoever the viewer is.
func (s *Service) Start(viewerID string) error {
	if viewerID == "" {
		return ErrNoViewer
	}
	s.life.Lock()
	defer s.life.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.viewer = viewerID
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, viewerID, s.done)
	debug.Logf("notify: subscribing for viewer %s\n", viewerID)
	return nil
}

// Stop ends the subscription and waits for the connection to close. A
// later Start opens a new connection. Stop is idempotent.
func (s *Service) Stop() {
	s.life.Lock()
	defer s.life.Unlock()

	s.mu.Lock()
	cancel, done, conn := s.cancel, s.done, s.conn
	s.cancel, s.done, s.viewer = nil, nil, ""
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	if conn != nil {
		// Best effort; the server may already be gone.
		_ = s.write(conn, newFrame(cmdDisconnect))
	}
	cancel()
	<-done
	debug.Logf("notify: stopped\n")
}

// Active reports whether a subscription is running.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Viewer returns the identity of the active subscription, or "".
func (s *Service) Viewer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewer
}

func (s *Service) report(err error) {
	debug.Logf("notify: %v\n", err)
	if s.onError != nil {
		s.onError(err)
	}
}

// run keeps a connection open until ctx is cancelled.
func (s *Service) run(ctx context.Context, viewer string, done chan struct{}) {
	defer close(done)
	bo := backoff.WithContext(backoff.NewConstantBackOff(s.cfg.ReconnectDelay), ctx)
	_ = backoff.RetryNotify(func() error {
		err := s.session(ctx, viewer)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err == nil {
			err = errConnectionClosed
		}
		return err
	}, bo, func(err error, wait time.Duration) {
		s.report(fmt.Errorf("%w (reconnecting in %s)", err, wait))
	})
}

// session runs one connection: handshake, subscribe, then read until the
// connection fails or ctx is cancelled.
func (s *Service) session(ctx context.Context, viewer string) error {
	conn, err := s.dialer.Dial(ctx, s.cfg.URL, s.cfg.Headers)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
	}()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := s.handshake(conn); err != nil {
		return err
	}
	sub := newFrame(cmdSubscribe,
		"id", "sub-0",
		"destination", Destination(viewer),
		"ack", "auto",
	)
	if err := s.write(conn, sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	debug.Logf("notify: subscribed to %s\n", Destination(viewer))

	for {
		f, err := readFrame(conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var malformed *malformedError
			if errors.As(err, &malformed) {
				s.report(err)
				continue
			}
			return err
		}
		switch f.command {
		case "":
			// heart-beat
		case cmdMessage:
			s.deliver(f)
		case cmdError:
			return fmt.Errorf("server error: %s", errorText(f))
		default:
			debug.Logf("notify: ignoring %s frame\n", f.command)
		}
	}
}

func (s *Service) handshake(conn Conn) error {
	connect := newFrame(cmdConnect,
		"accept-version", "1.2",
		"heart-beat", "0,0",
	)
	if u, err := url.Parse(s.cfg.URL); err == nil && u.Host != "" {
		connect.headers["host"] = u.Hostname()
	}
	if err := s.write(conn, connect); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for {
		f, err := readFrame(conn)
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		switch f.command {
		case "":
			continue
		case cmdConnected:
			return nil
		case cmdError:
			return fmt.Errorf("connect rejected: %s", errorText(f))
		default:
			return fmt.Errorf("connect: unexpected %s frame", f.command)
		}
	}
}

// deliver decodes a MESSAGE body and passes it to the sink. Bad payloads
// are reported and skipped.
func (s *Service) deliver(f frame) {
	var d types.NotificationDTO
	if err := json.Unmarshal(f.body, &d); err != nil {
		s.report(fmt.Errorf("decode notification: %w", err))
		return
	}
	n, err := types.ToNotification(d)
	if err != nil {
		s.report(fmt.Errorf("decode notification: %w", err))
		return
	}
	s.sink.DeliverNotification(n)
}

func (s *Service) write(conn Conn, f frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(TextMessage, f.encode())
}

// malformedError wraps a frame that could not be parsed. The connection
// survives it.
type malformedError struct{ err error }

func (e *malformedError) Error() string { return e.err.Error() }
func (e *malformedError) Unwrap() error { return e.err }

func readFrame(conn Conn) (frame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return frame{}, fmt.Errorf("read: %w", err)
	}
	f, err := parseFrame(data)
	if err != nil {
		return frame{}, &malformedError{err: err}
	}
	return f, nil
}

func errorText(f frame) string {
	msg := f.header("message")
	if len(f.body) > 0 {
		if msg != "" {
			msg += ": "
		}
		msg += string(f.body)
	}
	if msg == "" {
		msg = "no details"
	}
	return msg
}

// Destination is the per-viewer queue notifications are published to.
func Destination(viewer string) string {
	return "/user/" + viewer + "/queue/notifications"
}
