// Package errors provides standardized error handling patterns for logstream components.
//
// # Overview
//
// The errors package implements a three-class error classification system for a
// streaming log client: Transient (temporary, retryable), Invalid (bad input,
// non-retryable), and Fatal (unrecoverable, stop processing).
//
// The classes map directly onto the client's failure taxonomy:
//
//   - Auth failures (missing or rejected token) classify Invalid: the stream
//     manager fails synchronously and never dials the transport.
//   - Connection failures classify Transient: the stream manager retries them
//     with exponential backoff up to its attempt cap, after which the final
//     error classifies Fatal (ErrMaxRetriesExceeded).
//   - Protocol failures (malformed frames) classify Invalid: they are logged
//     and dropped, never escalated to a connection failure.
//   - Query failures carry the class implied by their HTTP status so callers
//     can layer their own retry policy on top of the facade.
//
// # Error Classification
//
// Errors are classified based on their type or content:
//
//   - Transient: network timeouts, connection loss, temporary unavailability
//   - Invalid: malformed frames, missing tokens, bad configuration values
//   - Fatal: exhausted reconnection attempts, unrecoverable configuration
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Quick Start
//
// Use standard error variables for common conditions:
//
//	if token == "" {
//	    return errors.ErrNoToken
//	}
//
// Wrap errors with context for debugging:
//
//	if err := conn.WriteJSON(frame); err != nil {
//	    return errors.WrapTransient(err, "Manager", "sendPong", "write frame")
//	}
//
// Check classification for retry logic:
//
//	if err := client.GetUnifiedLogs(ctx, id, format, filter); err != nil {
//	    if errors.IsTransient(err) {
//	        // safe to retry with backoff
//	    } else if errors.IsInvalid(err) {
//	        // fix the request, do not retry
//	    }
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")  // For retryable errors
//	errors.WrapInvalid(err, "Component", "Method", "action")    // For validation errors
//	errors.WrapFatal(err, "Component", "Method", "action")      // For unrecoverable errors
//
// The generic Wrap() function preserves the original error's classification:
//
//	errors.Wrap(err, "Component", "Method", "action")  // Preserves original class
//
// # Standard Error Variables
//
// Pre-defined error variables cover the common conditions, organized by category:
//
//   - Lifecycle: ErrAlreadyStarted, ErrNotStarted, ErrClosed
//   - Tokens: ErrNoToken, ErrInvalidToken
//   - Connections: ErrNoConnection, ErrConnectionLost, ErrConnectionTimeout,
//     ErrMaxRetriesExceeded
//   - Frames: ErrInvalidFrame, ErrUnknownFrame, ErrParsingFailed, ErrInvalidData
//   - Queries: ErrExecutionNotFound, ErrBadResponse
//   - Configuration: ErrInvalidConfig, ErrMissingConfig
//
// Use these variables instead of creating custom error messages so callers can
// match conditions with errors.Is().
//
// # Retry Configuration
//
// The package includes built-in retry support with exponential backoff:
//
//	config := errors.DefaultRetryConfig()
//
//	for attempt := 0; attempt < config.MaxRetries; attempt++ {
//	    if err := operation(); err != nil {
//	        if !config.ShouldRetry(err, attempt) {
//	            return err  // Non-retryable or max attempts reached
//	        }
//	        time.Sleep(config.BackoffDelay(attempt))
//	        continue
//	    }
//	    return nil  // Success
//	}
//
// RetryConfig converts to the retry framework's Config via ToRetryConfig() for
// use with retry.Do and retry.DoWithResult.
//
// Note: the stream manager's reconnection backoff is its own policy (owned by
// the connection handle, never shared); RetryConfig serves callers retrying
// facade queries or relay publishes.
//
// # Integration with errors.As/Is
//
// All error types support standard library error inspection:
//
//	var ce *errors.ClassifiedError
//	if errors.As(err, &ce) {
//	    log.Printf("Component: %s, Class: %s", ce.Component, ce.Class)
//	}
//
//	if errors.Is(err, errors.ErrNoToken) {
//	    // prompt for credentials rather than retrying
//	}
//
//	// Classification is preserved through error chains
//	wrapped := errors.Wrap(errors.ErrConnectionTimeout, "Manager", "Connect", "dial")
//	if errors.IsTransient(wrapped) {  // true - classification preserved
//	    // Retry logic
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable constants safe for concurrent access. The ClassifiedError type
// is safe to share across goroutines after creation.
package errors
