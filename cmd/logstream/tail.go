package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/logstream/config"
	"github.com/c360/logstream/health"
	"github.com/c360/logstream/metric"
	"github.com/c360/logstream/natsclient"
	"github.com/c360/logstream/relay"
	"github.com/c360/logstream/stream"
	"github.com/c360/logstream/types"
)

// runTail follows one or more executions live. Each execution gets its own
// push channel; every channel prints into the same stdout printer. The
// command exits when all channels have ended or on SIGINT/SIGTERM.
func runTail(args []string) error {
	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	cf := registerCommonFlags(fs)
	output := fs.String("output", "text",
		"Output format: text, or json for one object per line")
	relayFlag := fs.Bool("relay", getEnvBool("LOGSTREAM_RELAY", false),
		"Republish streamed logs to NATS (env: LOGSTREAM_RELAY)")
	noReconnect := fs.Bool("no-reconnect", false,
		"Disable automatic reconnection after abnormal closes")
	adminPort := fs.Int("admin-port", getEnvInt("LOGSTREAM_ADMIN_PORT", 0),
		"Serve /metrics and /healthz on this port, 0 disables (env: LOGSTREAM_ADMIN_PORT)")
	shutdownTimeout := fs.Duration("shutdown-timeout", getEnvDuration("LOGSTREAM_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Time allowed for draining connections on exit (env: LOGSTREAM_SHUTDOWN_TIMEOUT)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s tail [flags] <execution-id> [execution-id...]\n\nFlags:\n", appName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	executionIDs := fs.Args()
	if len(executionIDs) == 0 {
		fs.Usage()
		return fmt.Errorf("at least one execution id required")
	}
	if *output != "text" && *output != "json" {
		return fmt.Errorf("invalid output format %q, must be text or json", *output)
	}

	cfg, err := loadConfiguration(cf)
	if err != nil {
		return err
	}
	if *relayFlag && !cfg.Relay.Enabled {
		cfg.Relay.Enabled = true
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()
	monitor := health.NewMonitor()

	if *adminPort > 0 {
		adminServer := metric.NewServer(*adminPort, "", registry, health.NewHandler(monitor, appName))
		go func() {
			if serveErr := adminServer.Start(); serveErr != nil {
				logger.Error("Diagnostics server failed", "error", serveErr)
			}
		}()
		defer func() { _ = adminServer.Stop() }()
		logger.Info("diagnostics server listening", "address", adminServer.Address())
	}

	streamCfg := stream.Config{
		BaseURL:          cfg.Server.BaseURL,
		HandshakeTimeout: cfg.Stream.HandshakeTimeout,
		Reconnect:        cfg.Stream.Reconnect,
	}
	if *noReconnect {
		streamCfg.Reconnect.Disabled = true
	}

	tlsConfig, err := loadTLSConfig(cfg)
	if err != nil {
		return err
	}

	manager, err := stream.NewManager(streamCfg, cfg.Server.TokenProvider(),
		stream.WithLogger(logger), stream.WithMetrics(metrics),
		stream.WithTLSConfig(tlsConfig))
	if err != nil {
		return err
	}
	defer manager.Close()

	var logRelay *relay.Relay
	if cfg.Relay.Enabled {
		nc, natsErr := buildNATSClient(cfg.Relay.NATS, logger, metrics)
		if natsErr != nil {
			return fmt.Errorf("configure NATS client: %w", natsErr)
		}
		if connErr := nc.Connect(ctx); connErr != nil {
			return fmt.Errorf("connect to NATS: %w", connErr)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), *shutdownTimeout)
			defer cancel()
			if closeErr := nc.Close(closeCtx); closeErr != nil {
				logger.Warn("NATS close failed", "error", closeErr)
			}
		}()

		logRelay, err = relay.New(nc, cfg.Relay.Publish,
			relay.WithLogger(logger), relay.WithMetrics(metrics))
		if err != nil {
			return fmt.Errorf("configure relay: %w", err)
		}
		if err = logRelay.Start(ctx); err != nil {
			return fmt.Errorf("start relay: %w", err)
		}
		defer func() {
			if stopErr := logRelay.Stop(); stopErr != nil {
				logger.Warn("relay stop failed", "error", stopErr)
			}
			logger.Info("relay finished",
				"published", logRelay.Published(), "dropped", logRelay.Dropped())
		}()
	}

	printer := newEntryPrinter(os.Stdout, *output == "json", len(executionIDs) > 1)

	logger.Info("tailing executions",
		"count", len(executionIDs), "relay", cfg.Relay.Enabled)

	// A plain group rather than WithContext: one execution failing must not
	// tear down the channels still streaming. The signal context above is
	// the only global cancel.
	var g errgroup.Group
	for _, executionID := range executionIDs {
		g.Go(func() error {
			return tailOne(ctx, manager, logRelay, printer, monitor, logger, executionID)
		})
	}

	return g.Wait()
}

// tailOne opens the push channel for one execution and blocks until it ends.
// A channel that exhausts its reconnection budget reports an error; a normal
// close, server-side completion, or cancellation does not.
func tailOne(ctx context.Context, manager *stream.Manager, logRelay *relay.Relay,
	printer *entryPrinter, monitor *health.Monitor, logger *slog.Logger, executionID string) error {

	component := "stream:" + executionID

	callbacks := stream.Callbacks{
		OnMessage: printer.Entry,
		OnStatusUpdate: func(update types.StatusUpdate) {
			printer.Status(executionID, update)
		},
		OnStateChange: func(state types.ConnectionState) {
			monitor.UpdateFromState(component, state)
		},
		OnError: func(err error) {
			logger.Debug("stream error", "execution_id", executionID, "error", err)
		},
	}
	if logRelay != nil {
		callbacks = mergeCallbacks(callbacks, logRelay.Callbacks(executionID))
	}

	handle, err := manager.Connect(ctx, executionID, callbacks)
	if err != nil {
		monitor.UpdateFromError(component, err)
		return fmt.Errorf("connect %s: %w", executionID, err)
	}

	<-handle.Done()

	if handle.State() == types.StateFailed {
		return fmt.Errorf("stream for %s failed after %d attempts", executionID, handle.Attempts())
	}
	return nil
}

// mergeCallbacks fans every event out to both callback sets, a first then b
func mergeCallbacks(a, b stream.Callbacks) stream.Callbacks {
	return stream.Callbacks{
		OnMessage: func(entry types.LogEntry) {
			if a.OnMessage != nil {
				a.OnMessage(entry)
			}
			if b.OnMessage != nil {
				b.OnMessage(entry)
			}
		},
		OnStatusUpdate: func(update types.StatusUpdate) {
			if a.OnStatusUpdate != nil {
				a.OnStatusUpdate(update)
			}
			if b.OnStatusUpdate != nil {
				b.OnStatusUpdate(update)
			}
		},
		OnStateChange: func(state types.ConnectionState) {
			if a.OnStateChange != nil {
				a.OnStateChange(state)
			}
			if b.OnStateChange != nil {
				b.OnStateChange(state)
			}
		},
		OnError: func(err error) {
			if a.OnError != nil {
				a.OnError(err)
			}
			if b.OnError != nil {
				b.OnError(err)
			}
		},
	}
}

// buildNATSClient constructs the relay's NATS connection from configuration
func buildNATSClient(cfg config.NATSConfig, logger *slog.Logger, metrics *metric.Metrics) (*natsclient.Client, error) {
	opts := []natsclient.Option{
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(metrics),
	}
	if cfg.Name != "" {
		opts = append(opts, natsclient.WithName(cfg.Name))
	}
	if cfg.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, natsclient.WithToken(cfg.Token))
	}
	if cfg.TLS.CertFile != "" || cfg.TLS.CAFile != "" {
		opts = append(opts, natsclient.WithTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.CAFile))
	}
	return natsclient.NewClient(cfg.URL, opts...)
}
