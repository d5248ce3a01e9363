package sender

import (
	"context"
	"fmt"
	"sync"

	"github.com/informalsystems/ws-sender/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	uuid "github.com/satori/go.uuid"
)

// LoggerFactory builds a logger for the given context. It has the same shape
// as logging.NewLogrusLogger.
type LoggerFactory func(ctx string, kvpairs ...interface{}) logging.Logger

// Supervisor fans out one Worker per endpoint, all sharing the same payload
// and configuration, and waits for them to finish (bounded mode) or for
// cancellation (unbounded mode).
type Supervisor struct {
	endpoints []Endpoint
	payload   Payload
	cfg       WorkerConfig

	dialer     Dialer
	metrics    *Metrics
	newLogger  LoggerFactory
	logger     logging.Logger
	runID      string
	workerDone func(name string, sent int)
}

// SupervisorOption overrides part of a Supervisor's default wiring.
type SupervisorOption func(s *Supervisor)

// WithDialer overrides the dialer the workers use to connect.
func WithDialer(d Dialer) SupervisorOption {
	return func(s *Supervisor) {
		s.dialer = d
	}
}

// WithMetrics makes the workers report into the given metrics.
func WithMetrics(m *Metrics) SupervisorOption {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// WithLoggerFactory overrides how the supervisor and its workers obtain their
// loggers.
func WithLoggerFactory(f LoggerFactory) SupervisorOption {
	return func(s *Supervisor) {
		s.newLogger = f
	}
}

// WithWorkerDone registers a callback invoked, from the worker's own
// goroutine, when a worker exits.
func WithWorkerDone(fn func(name string, sent int)) SupervisorOption {
	return func(s *Supervisor) {
		s.workerDone = fn
	}
}

// NewSupervisor prepares a supervisor for the given endpoints. Nothing is
// started until Run is called.
func NewSupervisor(endpoints []Endpoint, payload Payload, cfg WorkerConfig, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		endpoints: endpoints,
		payload:   payload,
		cfg:       cfg,
		newLogger: logging.NewLogrusLogger,
		runID:     makeRunID(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialer == nil {
		s.dialer = NewWebSocketDialer(cfg)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.NewRegistry())
	}
	s.logger = s.newLogger("supervisor", "run", s.runID)
	return s
}

// workers builds one worker per endpoint, named by its 1-based position. Each
// worker logs through a child of the supervisor's logger, tagged with its name.
func (s *Supervisor) workers() []*Worker {
	workers := make([]*Worker, 0, len(s.endpoints))
	for i, endpoint := range s.endpoints {
		name := fmt.Sprintf("conn-%d", i+1)
		workers = append(workers, NewWorker(
			name,
			endpoint,
			s.payload,
			s.cfg,
			s.dialer,
			s.metrics,
			s.logger.With("ctx", name),
		))
	}
	return workers
}

// Run starts all the workers. With a send quota it returns nil once every
// worker has finished; without one it only returns on cancellation. On
// cancellation it returns ctx.Err() straight away and leaves the workers to
// notice the cancellation on their own.
func (s *Supervisor) Run(ctx context.Context) error {
	workers := s.workers()
	s.logger.Info("Starting workers", "count", len(workers), "maxSends", s.cfg.MaxSends)

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			sent := w.Run(ctx)
			if s.workerDone != nil {
				s.workerDone(w.Name(), sent)
			}
		}(w)
	}

	if s.cfg.MaxSends == 0 {
		<-ctx.Done()
		s.logger.Info("Cancelled, stopping")
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("All workers completed")
		return nil
	case <-ctx.Done():
		s.logger.Info("Cancelled before all workers completed")
		return ctx.Err()
	}
}

func makeRunID() string {
	return uuid.NewV4().String()
}
