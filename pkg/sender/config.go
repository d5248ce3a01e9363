package sender

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/informalsystems/ws-sender/pkg/timeutils"
)

const (
	defaultConnectTimeout = 15
	defaultInterval       = 5.0
	defaultBackoff        = 2 * time.Second
	defaultReadTimeout    = 1 * time.Second
)

// Config represents the configuration for a single sender process, as
// supplied on the command line.
type Config struct {
	BaseURL        string                      `json:"base_url"`        // Prefix onto which each token is appended.
	TokensFile     string                      `json:"tokens_file"`     // File containing one token per line.
	Message        string                      `json:"message"`         // The JSON document to send on every cycle.
	ConnectTimeout int                         `json:"connect_timeout"` // Connect timeout, in seconds.
	Interval       float64                     `json:"interval"`        // Seconds between sends on a single connection.
	Count          int                         `json:"count"`           // Sends per connection before stopping. 0 means unlimited.
	Insecure       bool                        `json:"insecure"`        // Skip TLS certificate verification.
	Backoff        timeutils.ParseableDuration `json:"backoff"`         // Wait between failed connect attempts.
	ReadTimeout    timeutils.ParseableDuration `json:"read_timeout"`    // How long to wait for each frame while draining.
	MetricsAddr    string                      `json:"metrics_addr"`    // Optional host:port on which to serve Prometheus metrics.
}

// WorkerConfig holds the scalar tuning values shared read-only by every
// worker.
type WorkerConfig struct {
	ConnectTimeout time.Duration
	Interval       time.Duration
	Backoff        time.Duration
	ReadTimeout    time.Duration
	MaxSends       int
	Insecure       bool
}

// DefaultConfig returns a Config populated with the default tuning values.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: defaultConnectTimeout,
		Interval:       defaultInterval,
		Backoff:        timeutils.ParseableDuration(defaultBackoff),
		ReadTimeout:    timeutils.ParseableDuration(defaultReadTimeout),
	}
}

// Validate checks the scalar parameters. The tokens file and message are
// checked when they are loaded.
func (c Config) Validate() error {
	if len(c.BaseURL) == 0 {
		return NewError(ErrInvalidConfig, nil, "base URL must be specified")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return NewError(ErrInvalidConfig, err, "base URL cannot be parsed")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("unsupported protocol: %s (only ws:// and wss:// are supported)", u.Scheme))
	}
	if len(c.TokensFile) == 0 {
		return NewError(ErrInvalidConfig, nil, "tokens file must be specified")
	}
	if c.ConnectTimeout < 1 {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("expected connect timeout to be >= 1 second, but was %d", c.ConnectTimeout))
	}
	if math.IsNaN(c.Interval) || math.IsInf(c.Interval, 0) {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("expected interval to be a finite number of seconds, but was %v", c.Interval))
	}
	if c.Interval > timeutils.MaxSeconds {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("expected interval to be at most %.0f seconds, but was %v", timeutils.MaxSeconds, c.Interval))
	}
	if c.Count < 0 {
		return NewError(ErrInvalidConfig, nil, fmt.Sprintf("expected count to be >= 0, but was %d", c.Count))
	}
	if c.Backoff <= 0 {
		return NewError(ErrInvalidConfig, nil, "backoff must be greater than 0")
	}
	if c.ReadTimeout <= 0 {
		return NewError(ErrInvalidConfig, nil, "read timeout must be greater than 0")
	}
	return nil
}

// WorkerConfig extracts the values the workers need. The interval is clamped
// to be non-negative.
func (c Config) WorkerConfig() WorkerConfig {
	return WorkerConfig{
		ConnectTimeout: time.Duration(c.ConnectTimeout) * time.Second,
		Interval:       timeutils.Seconds(c.Interval),
		Backoff:        c.Backoff.Duration(),
		ReadTimeout:    c.ReadTimeout.Duration(),
		MaxSends:       c.Count,
		Insecure:       c.Insecure,
	}
}

func (c Config) ToJSON() string {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%v", c)
	}
	return string(b)
}
