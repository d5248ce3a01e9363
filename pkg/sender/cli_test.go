package sender

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/informalsystems/ws-sender/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

func TestExecuteSenderRejectsBadConfigBeforeConnecting(t *testing.T) {
	srv, baseURL := startTestServer(t, false)

	testCases := []struct {
		name       string
		message    string
		tokensFile string
		code       ErrorCode
	}{
		{"malformed JSON", `{bad`, writeTokensFile(t, "a\nb\n"), ErrInvalidPayload},
		{"empty tokens file", testPayload, writeTokensFile(t, "\n   \n"), ErrNoEndpoints},
		{"missing tokens file", testPayload, "/nonexistent/tokens.txt", ErrFailedToReadTokensFile},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.BaseURL = baseURL
			cfg.TokensFile = tc.tokensFile
			cfg.Message = tc.message
			cfg.Count = 1

			err := executeSender(context.Background(), cfg, logging.NewNoopLogger(), WithLoggerFactory(noopLoggerFactory))
			if !IsErrorCode(err, tc.code) {
				t.Fatalf("expected error code %d, got: %v", tc.code, err)
			}
			if code := ExitCodeFor(err); code != ExitConfigError {
				t.Errorf("expected exit code %d, got %d", ExitConfigError, code)
			}
		})
	}
	if c := srv.TotalConnects(); c != 0 {
		t.Errorf("expected no connection attempts on configuration errors, got %d", c)
	}
}

func TestExecuteSenderBoundedRun(t *testing.T) {
	srv, baseURL := startTestServer(t, true)
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.TokensFile = writeTokensFile(t, "x\ny\nz\n")
	cfg.Message = testPayload
	cfg.Count = 2
	cfg.Interval = 0

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := executeSender(ctx, cfg, logging.NewNoopLogger(), WithLoggerFactory(noopLoggerFactory)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !waitFor(2*time.Second, func() bool { return srv.Received() == 6 }) {
		t.Errorf("expected 6 frames in total, got %d", srv.Received())
	}
}

func TestExecuteSenderCancelledIsNotAnError(t *testing.T) {
	_, baseURL := startTestServer(t, false)
	cfg := DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.TokensFile = writeTokensFile(t, "x\n")
	cfg.Message = testPayload

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)
	if err := executeSender(ctx, cfg, logging.NewNoopLogger(), WithLoggerFactory(noopLoggerFactory)); err != nil {
		t.Fatalf("expected cancellation to be a clean exit, got: %v", err)
	}
}

func TestBadFlagsAreConfigErrors(t *testing.T) {
	testCases := [][]string{
		{"--count", "abc"},
		{"--interval", "soon"},
		{"--backoff", "never"},
		{"--no-such-flag"},
	}
	for _, args := range testCases {
		cmd := buildCLI(&CLIConfig{AppName: "ws-sender"}, logging.NewNoopLogger())
		cmd.SetArgs(args)
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)

		err := cmd.Execute()
		if !IsErrorCode(err, ErrInvalidConfig) {
			t.Errorf("%v: expected ErrInvalidConfig, got: %v", args, err)
		}
		if code := ExitCodeFor(err); code != ExitConfigError {
			t.Errorf("%v: expected exit code %d, got %d", args, ExitConfigError, code)
		}
	}
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	metrics.Sent.WithLabelValues("conn-1").Add(3)

	addr, stop, err := serveMetrics("127.0.0.1:0", reg, logging.NewNoopLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer stop()

	r, err := http.Get("http://" + addr.String() + "/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), `wssender_sent_total{worker="conn-1"} 3`) {
		t.Errorf("expected sent counter in metrics output, got:\n%s", string(body))
	}
}
