package sender

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/informalsystems/ws-sender/internal/logging"
	"github.com/informalsystems/ws-sender/internal/outagesim"
	"github.com/prometheus/client_golang/prometheus"
)

const testPayload = `{"type":"send_public_message","data":{"message_type":1,"content":""}}`

// startTestServer starts an outage simulator and returns it along with the
// base URL onto which tokens can be appended.
func startTestServer(t *testing.T, echo bool) (*outagesim.Server, string) {
	t.Helper()
	srv := outagesim.NewServer(echo)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/websocket?" + outagesim.TokenParam + "="
}

func testWorkerConfig() WorkerConfig {
	return WorkerConfig{
		ConnectTimeout: 5 * time.Second,
		Interval:       0,
		Backoff:        20 * time.Millisecond,
		ReadTimeout:    50 * time.Millisecond,
	}
}

func newTestWorker(endpoint Endpoint, cfg WorkerConfig, dialer Dialer) (*Worker, *Metrics) {
	if dialer == nil {
		dialer = NewWebSocketDialer(cfg)
	}
	metrics := NewMetrics(prometheus.NewRegistry())
	payload, err := ParsePayload(testPayload)
	if err != nil {
		panic(err)
	}
	return NewWorker("conn-1", endpoint, payload, cfg, dialer, metrics, logging.NewNoopLogger()), metrics
}

func noopLoggerFactory(ctx string, kvpairs ...interface{}) logging.Logger {
	return logging.NewNoopLogger()
}

// runWorker runs the worker in the background. The returned channel yields
// its final sent-count.
func runWorker(ctx context.Context, w *Worker) <-chan int {
	done := make(chan int, 1)
	go func() {
		done <- w.Run(ctx)
	}()
	return done
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

//
// Fakes
//

type dialFunc func(ctx context.Context, endpoint Endpoint) (Conn, error)

func (f dialFunc) Dial(ctx context.Context, endpoint Endpoint) (Conn, error) {
	return f(ctx, endpoint)
}

// eventLog records what a fake connection was asked to do, in order.
type eventLog struct {
	mtx    sync.Mutex
	events []string
}

func (l *eventLog) add(ev string) {
	l.mtx.Lock()
	l.events = append(l.events, ev)
	l.mtx.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) count(ev string) int {
	n := 0
	for _, e := range l.snapshot() {
		if e == ev {
			n++
		}
	}
	return n
}

var errFakeClosed = errors.New("fake connection closed")

// fakeConn blocks reads until closed and fails every data write with
// writeErr, if set.
type fakeConn struct {
	log      *eventLog
	writeErr error

	mtx       sync.Mutex
	deadlines []time.Time
	closes    int
	closeOnce sync.Once
	closed    chan struct{}
}

var _ Conn = (*fakeConn)(nil)

func newFakeConn(log *eventLog, writeErr error) *fakeConn {
	return &fakeConn{
		log:      log,
		writeErr: writeErr,
		closed:   make(chan struct{}),
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return errFakeClosed
	default:
	}
	if messageType != 1 {
		// control frames (i.e. close) are not interesting here
		return nil
	}
	c.log.add("write")
	return c.writeErr
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errFakeClosed
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	c.mtx.Lock()
	c.deadlines = append(c.deadlines, t)
	c.mtx.Unlock()
	return nil
}

func (c *fakeConn) writeDeadlines() []time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]time.Time(nil), c.deadlines...)
}

func (c *fakeConn) Close() error {
	c.mtx.Lock()
	c.closes++
	n := c.closes
	c.mtx.Unlock()
	c.closeOnce.Do(func() { close(c.closed) })
	c.log.add("close")
	if n > 1 {
		return errFakeClosed
	}
	return nil
}

func (c *fakeConn) closeCount() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.closes
}
