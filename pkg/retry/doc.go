// Package retry provides simple exponential backoff retry logic for transient failures.
//
// # Overview
//
// This package offers a minimal retry mechanism with exponential backoff for callers
// that want to retry historical log queries or relay publishes. The query facade
// itself never retries; layering retry.Do around a facade call keeps retry policy a
// caller decision. The stream manager's reconnection loop does NOT use this package:
// its backoff is part of the connection handle's state machine.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (startup, e.g. first NATS connect)
//
// # Usage Examples
//
// Retry a historical query:
//
//	resp, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*query.UnifiedLogResponse, error) {
//	    return client.GetUnifiedLogs(ctx, executionID, query.FormatStructured, filter)
//	})
//
// Skip retries for non-retryable failures:
//
//	err := retry.Do(ctx, cfg, func() error {
//	    if err := publish(); err != nil {
//	        if errors.IsInvalid(err) {
//	            return retry.NonRetryable(err)
//	        }
//	        return err
//	    }
//	    return nil
//	})
//
// Custom configuration:
//
//	cfg := retry.Config{
//	    MaxAttempts:  5,
//	    InitialDelay: 200 * time.Millisecond,
//	    MaxDelay:     10 * time.Second,
//	    Multiplier:   2.0,
//	    AddJitter:    true,
//	}
//	err := retry.Do(ctx, cfg, operation)
//
// # Design Philosophy
//
// This package is intentionally minimal:
//
//   - No circuit breakers
//   - No metrics collection (use instrumentation at call site)
//   - No error classification (caller decides what to retry)
//   - Just exponential backoff with jitter
//
// # Context Cancellation
//
// All retry operations respect context cancellation and will immediately stop retrying
// when the context is cancelled, either during operation execution or during backoff delay.
//
// # Thread Safety
//
// All functions are safe for concurrent use. The jitter mechanism uses a thread-safe
// random source to avoid contention.
package retry
