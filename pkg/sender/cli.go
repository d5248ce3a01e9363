package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/informalsystems/ws-sender/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const metricsShutdownTimeout = 5 * time.Second

// CLIConfig carries the application's identity and the process-wide defaults
// (base address, tokens file, message), so a different build can supply its
// own without touching any package state.
type CLIConfig struct {
	AppName           string
	AppShortDesc      string
	AppLongDesc       string
	DefaultBaseURL    string
	DefaultTokensFile string
	DefaultMessage    string
}

var (
	flagVerbose bool
)

func buildCLI(cli *CLIConfig, logger logging.Logger) *cobra.Command {
	cobra.OnInitialize(func() { initLogLevel(logger) })
	cfg := DefaultConfig()
	rootCmd := &cobra.Command{
		Use:   cli.AppName,
		Short: cli.AppShortDesc,
		Long:  cli.AppLongDesc,
		Run: func(cmd *cobra.Command, args []string) {
			logger.Debug(fmt.Sprintf("Configuration: %s", cfg.ToJSON()))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			// we want to know if the user hits Ctrl+Break
			cancelTrap := trapInterrupts(cancel, logger)
			defer close(cancelTrap)

			if err := executeSender(ctx, cfg, logger); err != nil {
				logger.Error(err.Error())
				cancel()
				os.Exit(ExitCodeFor(err))
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfg.BaseURL, "base-url", cli.DefaultBaseURL, "The WebSockets URL onto which each token is appended")
	rootCmd.PersistentFlags().StringVar(&cfg.TokensFile, "tokens-file", cli.DefaultTokensFile, "Path to a file with tokens (the value after token=), one per line")
	rootCmd.PersistentFlags().StringVar(&cfg.Message, "message", cli.DefaultMessage, "The JSON document to send on every connection")
	rootCmd.PersistentFlags().IntVar(&cfg.ConnectTimeout, "timeout", defaultConnectTimeout, "Connect timeout, in seconds")
	rootCmd.PersistentFlags().Float64Var(&cfg.Interval, "interval", defaultInterval, "Seconds between messages on each connection")
	rootCmd.PersistentFlags().IntVar(&cfg.Count, "count", 0, "Times to send per connection - set to 0 to send forever")
	rootCmd.PersistentFlags().BoolVar(&cfg.Insecure, "insecure", false, "Disable TLS certificate verification (testing only)")
	rootCmd.PersistentFlags().Var(&cfg.Backoff, "backoff", "How long to wait before retrying a failed connect")
	rootCmd.PersistentFlags().Var(&cfg.ReadTimeout, "read-timeout", "How long to wait for each incoming frame after a send")
	rootCmd.PersistentFlags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "An optional host:port on which to serve Prometheus metrics")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Increase output logging verbosity to DEBUG level")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return NewError(ErrInvalidConfig, err)
	})
	return rootCmd
}

func initLogLevel(logger logging.Logger) {
	if flagVerbose {
		logrus.SetLevel(logrus.DebugLevel)
		logger.Debug("Set logging level to DEBUG")
	}
}

// Run must be executed from your `main` function.
func Run(cli *CLIConfig) {
	logger := logging.NewLogrusLogger("main")
	if err := buildCLI(cli, logger).Execute(); err != nil {
		logger.Error("Error", "err", err)
		os.Exit(ExitCodeFor(err))
	}
}

// executeSender loads and checks everything the workers need, then runs them
// until they complete or ctx is cancelled. Configuration problems are returned
// before any worker is started.
func executeSender(ctx context.Context, cfg Config, logger logging.Logger, opts ...SupervisorOption) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := ParsePayload(cfg.Message)
	if err != nil {
		return err
	}
	endpoints, err := LoadEndpoints(cfg.BaseURL, cfg.TokensFile)
	if err != nil {
		return err
	}
	logger.Info("Loaded endpoints", "count", len(endpoints))

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	if len(cfg.MetricsAddr) > 0 {
		_, stopMetrics, err := serveMetrics(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	opts = append([]SupervisorOption{WithMetrics(metrics)}, opts...)
	sup := NewSupervisor(endpoints, payload, cfg.WorkerConfig(), opts...)
	if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serveMetrics exposes the registry on /metrics at the given address,
// returning the address actually bound and a function that stops the server.
func serveMetrics(addr string, reg *prometheus.Registry, logger logging.Logger) (net.Addr, func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	l, err := resolveListener(addr)
	if err != nil {
		return nil, nil, NewError(ErrMetricsServerFailed, err, addr)
	}
	go func() {
		logger.Info("Serving metrics", "addr", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "err", err)
		}
	}()
	return l.Addr(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func trapInterrupts(onKill func(), logger logging.Logger) chan struct{} {
	sigc := make(chan os.Signal, 1)
	cancelTrap := make(chan struct{})
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigc)
		select {
		case <-sigc:
			logger.Info("Caught kill signal")
			onKill()
		case <-cancelTrap:
			return
		}
	}()
	return cancelTrap
}
