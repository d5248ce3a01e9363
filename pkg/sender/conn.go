package sender

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	connSendTimeout  = 10 * time.Second
	connCloseTimeout = time.Second
)

// Conn is the subset of *websocket.Conn a worker relies on.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Dialer opens connections to endpoints.
type Dialer interface {
	Dial(ctx context.Context, endpoint Endpoint) (Conn, error)
}

// WebSocketDialer dials endpoints with gorilla/websocket, bounding the whole
// connect (DNS, TCP, TLS and handshake) by the configured timeout.
type WebSocketDialer struct {
	dialer  *websocket.Dialer
	timeout time.Duration
}

var _ Dialer = (*WebSocketDialer)(nil)

// NewWebSocketDialer builds a dialer from the worker configuration. TLS
// certificates are verified against the system trust store unless the config
// says otherwise.
func NewWebSocketDialer(cfg WorkerConfig) *WebSocketDialer {
	return &WebSocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: cfg.ConnectTimeout,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure, // nolint: gosec
			},
		},
		timeout: cfg.ConnectTimeout,
	}
}

func (d *WebSocketDialer) Dial(ctx context.Context, endpoint Endpoint) (Conn, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	conn, resp, err := d.dialer.DialContext(ctx, string(endpoint), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%v (status code %d)", err, resp.StatusCode)
		}
		return nil, err
	}
	return conn, nil
}

type frame struct {
	messageType int
	data        []byte
}

// session is the live handle for one connection. A single goroutine reads
// from the underlying connection and hands frames over on a channel, so the
// worker can poll for frames with a short timeout without ever putting a read
// deadline on the connection itself.
type session struct {
	conn    Conn
	frames  chan frame
	readErr error // Valid once frames is closed.
	stop    chan struct{}

	closeMtx sync.Mutex
	closed   bool
}

func newSession(conn Conn) *session {
	s := &session{
		conn:   conn,
		frames: make(chan frame, 16),
		stop:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *session) readLoop() {
	defer close(s.frames)
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.readErr = err
			return
		}
		select {
		case s.frames <- frame{messageType: mt, data: data}:
		case <-s.stop:
			return
		}
	}
}

func (s *session) send(data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(connSendTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// close tries to cleanly shut down the connection. Only the first call does
// anything; later calls return nil.
func (s *session) close() error {
	s.closeMtx.Lock()
	defer s.closeMtx.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.stop)
	_ = s.conn.SetWriteDeadline(time.Now().Add(connCloseTimeout))
	// the peer may already be gone, in which case the close frame can't be written
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
