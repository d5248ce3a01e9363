package sender

import (
	"context"
	"errors"
	"time"

	"github.com/informalsystems/ws-sender/internal/logging"
)

// Worker keeps one logical connection to a single endpoint alive, sending the
// payload on every cycle and draining whatever the peer sends back. It
// reconnects on any failure until its send quota (if any) is met or its
// context is cancelled.
//
// All of a worker's state is owned by the goroutine executing Run.
type Worker struct {
	name     string
	endpoint Endpoint
	payload  Payload
	cfg      WorkerConfig
	dialer   Dialer
	metrics  *Metrics
	logger   logging.Logger

	phase workerPhase
	sess  *session
	sent  int
}

// NewWorker creates a worker for the given endpoint. The name is only used
// to tag log lines and metrics.
func NewWorker(name string, endpoint Endpoint, payload Payload, cfg WorkerConfig, dialer Dialer, metrics *Metrics, logger logging.Logger) *Worker {
	return &Worker{
		name:     name,
		endpoint: endpoint,
		payload:  payload,
		cfg:      cfg,
		dialer:   dialer,
		metrics:  metrics,
		logger:   logger,
		phase:    phaseDisconnected,
	}
}

// Name returns the worker's human-readable name.
func (w *Worker) Name() string {
	return w.name
}

// Run drives the worker's state machine until it terminates, returning the
// number of payloads sent. With a send quota of 0 it only returns once ctx is
// cancelled.
func (w *Worker) Run(ctx context.Context) int {
	defer w.closeSession()
	for {
		switch w.phase {
		case phaseDisconnected:
			w.connect(ctx)

		case phaseConnected:
			w.sendAndDrain(ctx)

		case phaseTerminated:
			return w.sent
		}
	}
}

func (w *Worker) setPhase(p workerPhase) {
	if w.phase == p {
		return
	}
	w.logger.Debug("Phase change", "from", w.phase, "to", p)
	w.phase = p
}

func (w *Worker) connect(ctx context.Context) {
	conn, err := w.dialer.Dial(ctx, w.endpoint)
	if err != nil {
		w.metrics.ConnectAttempt.WithLabelValues(w.name, "failure").Inc()
		if ctx.Err() != nil {
			w.setPhase(phaseTerminated)
			return
		}
		w.handleError(ctx, &workerError{kind: connectErr, err: err})
		return
	}
	w.metrics.ConnectAttempt.WithLabelValues(w.name, "success").Inc()
	w.metrics.Connected.Inc()
	w.sess = newSession(conn)
	w.logger.Info("Connected")
	w.setPhase(phaseConnected)
}

// sendAndDrain runs send/drain/sleep cycles on the current connection until
// something moves the worker out of the connected phase.
func (w *Worker) sendAndDrain(ctx context.Context) {
	for w.phase == phaseConnected {
		if ctx.Err() != nil {
			w.setPhase(phaseTerminated)
			return
		}
		if err := w.sess.send(w.payload); err != nil {
			w.metrics.SendFailures.WithLabelValues(w.name).Inc()
			w.handleError(ctx, &workerError{kind: transmitErr, err: err})
			return
		}
		w.sent++
		w.metrics.Sent.WithLabelValues(w.name).Inc()
		w.logger.Info("Sent payload", "sent", w.sent, "payload", w.payload.String())

		if w.cfg.MaxSends > 0 && w.sent >= w.cfg.MaxSends {
			w.logger.Info("Send quota reached", "sent", w.sent)
			w.metrics.Completed.Inc()
			w.closeSession()
			w.setPhase(phaseTerminated)
			return
		}

		if err := w.drain(ctx); err != nil {
			if ctx.Err() != nil {
				w.setPhase(phaseTerminated)
				return
			}
			w.metrics.ReceiveErrors.WithLabelValues(w.name).Inc()
			w.handleError(ctx, &workerError{kind: receiveErr, err: err})
			return
		}

		if !sleepCtx(ctx, w.cfg.Interval) {
			w.setPhase(phaseTerminated)
			return
		}
	}
}

var errConnectionClosed = errors.New("connection closed")

// drain reports every frame that arrives within the read timeout of the
// previous one. Running out of frames is the normal way out and returns nil.
func (w *Worker) drain(ctx context.Context) error {
	timer := time.NewTimer(w.cfg.ReadTimeout)
	defer timer.Stop()
	for {
		select {
		case f, ok := <-w.sess.frames:
			if !ok {
				if w.sess.readErr != nil {
					return w.sess.readErr
				}
				return errConnectionClosed
			}
			w.metrics.Received.WithLabelValues(w.name).Inc()
			w.logger.Info("Received frame", "type", f.messageType, "data", string(f.data))
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.cfg.ReadTimeout)

		case <-timer.C:
			return nil

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleError reports the error and applies the recovery action declared for
// its kind.
func (w *Worker) handleError(ctx context.Context, err *workerError) {
	w.logger.Error("Worker error", "kind", err.kind, "err", err.err)
	switch err.kind.recovery() {
	case retryAfterBackoff:
		w.logger.Debug("Retrying connect after backoff", "backoff", w.cfg.Backoff)
		if !sleepCtx(ctx, w.cfg.Backoff) {
			w.setPhase(phaseTerminated)
		}

	case reconnectNow:
		w.closeSession()
		w.setPhase(phaseDisconnected)

	case reportOnly:
	}
}

// closeSession closes the current connection handle, if any. Close failures
// are reported and otherwise ignored.
func (w *Worker) closeSession() {
	if w.sess == nil {
		return
	}
	sess := w.sess
	w.sess = nil
	w.metrics.Connected.Dec()
	if err := sess.close(); err != nil {
		w.handleError(context.Background(), &workerError{kind: closeErr, err: err})
	}
	w.logger.Info("Closed")
}

// sleepCtx waits for d, returning false if ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
