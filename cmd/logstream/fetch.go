package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/c360/logstream/errors"
	"github.com/c360/logstream/pkg/retry"
	"github.com/c360/logstream/query"
	"github.com/c360/logstream/types"
)

// runFetch retrieves historical logs for a single execution over the REST
// endpoints. The query facade itself never retries; the retry wrapper here
// is the caller-side policy, applied only to transient failures.
func runFetch(args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	cf := registerCommonFlags(fs)
	source := fs.String("source", "unified",
		"Log source: unified, stdout, or stderr")
	format := fs.String("format", "structured",
		"Response format for the unified source: structured or raw")
	logType := fs.String("log-type", "",
		"Filter unified logs by type: stdout, stderr, system, application")
	level := fs.String("level", "",
		"Filter unified logs by level: DEBUG, INFO, WARNING, ERROR, CRITICAL")
	search := fs.String("search", "",
		"Filter unified logs to lines containing this text")
	lines := fs.Int("lines", 0,
		"Maximum lines to return, 0 for the server default")
	output := fs.String("output", "text",
		"Output format: text or json")
	retryFlag := fs.Int("retry", -1,
		"Retries for transient failures, -1 uses the configured value")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s fetch [flags] <execution-id>\n\nFlags:\n", appName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one execution id required")
	}
	executionID := fs.Arg(0)

	switch *source {
	case "unified", "stdout", "stderr":
	default:
		return fmt.Errorf("invalid source %q, must be unified, stdout, or stderr", *source)
	}
	switch *format {
	case "structured", "raw":
	default:
		return fmt.Errorf("invalid format %q, must be structured or raw", *format)
	}
	if *output != "text" && *output != "json" {
		return fmt.Errorf("invalid output format %q, must be text or json", *output)
	}
	if *logType != "" && !types.LogType(*logType).IsValid() {
		return fmt.Errorf("invalid log type %q", *logType)
	}
	levelFilter := types.LogLevel(strings.ToUpper(*level))
	if *level != "" && !levelFilter.IsValid() {
		return fmt.Errorf("invalid level %q", *level)
	}

	cfg, err := loadConfiguration(cf)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tlsConfig, err := loadTLSConfig(cfg)
	if err != nil {
		return err
	}

	client, err := query.NewClient(
		query.Config{BaseURL: cfg.Server.BaseURL, Timeout: cfg.Query.Timeout},
		cfg.Server.TokenProvider(),
		query.WithLogger(logger),
		query.WithTLSConfig(tlsConfig))
	if err != nil {
		return err
	}

	attempts := cfg.Query.RetryAttempts
	if *retryFlag >= 0 {
		attempts = *retryFlag
	}
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = attempts + 1

	jsonOutput := *output == "json"

	switch *source {
	case "stdout", "stderr":
		fetch := client.GetStdoutLogs
		if *source == "stderr" {
			fetch = client.GetStderrLogs
		}
		result, fetchErr := retry.DoWithResult(ctx, retryCfg, func() (*query.FileLogs, error) {
			res, qerr := fetch(ctx, executionID, *lines)
			return res, classifyForRetry(qerr)
		})
		if fetchErr != nil {
			return fmt.Errorf("fetch %s logs: %w", *source, fetchErr)
		}
		if jsonOutput {
			return printJSON(os.Stdout, result)
		}
		printContent(os.Stdout, result.Content)
		return nil

	default:
		filter := types.QueryFilter{
			LogType: types.LogType(*logType),
			Level:   levelFilter,
			Lines:   *lines,
			Search:  *search,
		}
		result, fetchErr := retry.DoWithResult(ctx, retryCfg, func() (*query.UnifiedLogs, error) {
			res, qerr := client.GetUnifiedLogs(ctx, executionID, query.Format(*format), filter)
			return res, classifyForRetry(qerr)
		})
		if fetchErr != nil {
			return fmt.Errorf("fetch unified logs: %w", fetchErr)
		}
		return printUnified(os.Stdout, result, jsonOutput, logger)
	}
}

// printUnified writes a unified query result in the chosen format
func printUnified(w io.Writer, result *query.UnifiedLogs, jsonOutput bool, logger *slog.Logger) error {
	if result.Format == query.FormatRaw {
		if jsonOutput {
			return printJSON(w, result.Raw)
		}
		printContent(w, result.Raw.RawContent)
		return nil
	}

	if jsonOutput {
		return printJSON(w, result.Structured)
	}

	printer := newEntryPrinter(w, false, false)
	for _, entry := range result.Structured.Items {
		printer.Entry(entry)
	}
	if result.Structured.Total > len(result.Structured.Items) {
		logger.Info("more entries available on the server",
			"returned", len(result.Structured.Items),
			"total", result.Structured.Total,
			"page", result.Structured.Page)
	}
	return nil
}

// classifyForRetry marks errors the server would answer the same way again
// as non-retryable, so only transient failures consume retry attempts
func classifyForRetry(err error) error {
	if err == nil {
		return nil
	}
	if !errors.IsTransient(err) {
		return retry.NonRetryable(err)
	}
	return err
}
