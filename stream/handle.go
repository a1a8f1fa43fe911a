package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/logstream/errors"
	"github.com/c360/logstream/metric"
	"github.com/c360/logstream/types"
)

// Handle owns one push channel for one execution: the live transport, the
// reconnect-attempt counter, and the manual-close flag. A handle is created
// by Manager.Connect and never reconnects again once Disconnect is called or
// the reconnection budget is exhausted; a fresh Connect call is required to
// retry after that.
type Handle struct {
	executionID string
	url         string
	callbacks   Callbacks
	reconnect   ReconnectConfig
	dialer      *websocket.Dialer
	logger      *slog.Logger
	metrics     *metric.Metrics
	router      *router

	ctx    context.Context
	cancel context.CancelFunc

	state       atomic.Int32
	attempts    atomic.Int32
	manualClose atomic.Bool
	closeOnce   sync.Once
	done        chan struct{}

	connMu sync.Mutex
	conn   *websocket.Conn

	writeMu sync.Mutex
}

func newHandle(ctx context.Context, executionID, url string, callbacks Callbacks,
	reconnect ReconnectConfig, dialer *websocket.Dialer,
	logger *slog.Logger, metrics *metric.Metrics) *Handle {

	hctx, cancel := context.WithCancel(ctx)

	h := &Handle{
		executionID: executionID,
		url:         url,
		callbacks:   callbacks,
		reconnect:   reconnect,
		dialer:      dialer,
		logger:      logger,
		metrics:     metrics,
		ctx:         hctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	h.state.Store(int32(types.StateDisconnected))

	h.router = &router{
		executionID:   executionID,
		logger:        logger,
		metrics:       metrics,
		notifyMessage: h.notifyMessage,
		notifyStatus:  h.notifyStatus,
		notifyError:   h.notifyError,
	}

	return h
}

// ExecutionID returns the execution this handle streams logs for
func (h *Handle) ExecutionID() string {
	return h.executionID
}

// State returns the current connection state
func (h *Handle) State() types.ConnectionState {
	return types.ConnectionState(h.state.Load())
}

// Attempts returns the current reconnect-attempt count. It resets to zero
// only on a successful re-open.
func (h *Handle) Attempts() int {
	return int(h.attempts.Load())
}

// Done returns a channel closed once the handle has fully stopped, whether
// by Disconnect, context cancellation, or reconnection budget exhaustion.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Disconnect closes the push channel with a normal-closure code, cancels any
// pending reconnection timer, and suppresses all further reconnection. It is
// idempotent and safe to call from inside a callback. No callback fires after
// Disconnect returns; a callback already executing on another goroutine at
// the moment of the call may still finish.
func (h *Handle) Disconnect() {
	h.closeOnce.Do(func() {
		h.manualClose.Store(true)
		h.cancel()

		h.connMu.Lock()
		conn := h.conn
		h.conn = nil
		h.connMu.Unlock()

		if conn != nil {
			h.writeMu.Lock()
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			h.writeMu.Unlock()
			_ = conn.Close()
		}

		h.markDisconnected()
		h.logger.Debug("stream disconnected", "execution_id", h.executionID)
	})
}

// run drives the connection lifecycle on a single goroutine: dial, pump
// frames, and on abnormal close wait out the backoff before redialing. All
// callbacks fire from this goroutine, so consumers see them serialized.
func (h *Handle) run() {
	defer close(h.done)

	for {
		if h.stopping() {
			h.markDisconnected()
			return
		}

		h.transition(types.StateConnecting)

		conn, _, err := h.dialer.DialContext(h.ctx, h.url, nil)
		if err != nil {
			if h.stopping() {
				h.markDisconnected()
				return
			}
			if !h.handleFailure(errors.WrapTransient(err, "stream", "run", "open push channel")) {
				return
			}
			continue
		}

		h.storeConn(conn)
		h.attempts.Store(0)
		h.transition(types.StateConnected)

		readErr := h.readPump(conn)

		h.clearConn()
		_ = conn.Close()

		if h.stopping() {
			h.markDisconnected()
			return
		}

		// A normal closure is the server finishing the stream, typically
		// after a terminal status. Only abnormal closes are retried.
		if websocket.IsCloseError(readErr, websocket.CloseNormalClosure) {
			h.logger.Debug("push channel closed by server", "execution_id", h.executionID)
			h.transition(types.StateDisconnected)
			return
		}

		if !h.handleFailure(errors.WrapTransient(readErr, "stream", "run", "push channel closed")) {
			return
		}
	}
}

// readPump reads frames until the transport fails or the handle stops. The
// returned error is the close cause.
func (h *Handle) readPump(conn *websocket.Conn) error {
	// Unblock the read when the handle context ends
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-h.ctx.Done():
			_ = conn.Close()
		case <-watchDone:
		}
	}()

	send := func(messageType int, data []byte) error {
		h.writeMu.Lock()
		defer h.writeMu.Unlock()
		return conn.WriteMessage(messageType, data)
	}

	for {
		select {
		case <-h.ctx.Done():
			return h.ctx.Err()
		default:
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			h.router.dispatch(raw, send)
		}
	}
}

// handleFailure reports a transport failure and either waits out the backoff
// for the next attempt (true) or finishes the handle (false). The failed
// state fires exactly once, with the last close details attached.
func (h *Handle) handleFailure(cause error) bool {
	if !h.canRetry() {
		h.transition(types.StateFailed)
		h.notifyError(errors.WrapFatal(
			fmt.Errorf("%w: %w", errors.ErrMaxRetriesExceeded, cause),
			"stream", "run", "reconnection budget exhausted"))
		return false
	}

	// Momentary error signal, then the authoritative transition
	h.transition(types.StateError)
	h.notifyError(cause)
	h.transition(types.StateReconnecting)

	attempt := int(h.attempts.Add(1))
	if h.metrics != nil {
		h.metrics.RecordReconnect(h.executionID)
	}

	delay := computeReconnectDelay(h.reconnect, attempt)
	h.logger.Debug("scheduling reconnection",
		"execution_id", h.executionID, "attempt", attempt, "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-h.ctx.Done():
		h.markDisconnected()
		return false
	}
}

// canRetry reports whether another reconnection attempt is allowed.
// A negative MaxAttempts means no limit.
func (h *Handle) canRetry() bool {
	if h.reconnect.Disabled {
		return false
	}
	if h.reconnect.MaxAttempts > 0 && int(h.attempts.Load()) >= h.reconnect.MaxAttempts {
		return false
	}
	return true
}

// stopping reports whether the handle is shutting down. Once true, no
// further transport moves happen and no callback fires.
func (h *Handle) stopping() bool {
	return h.manualClose.Load() || h.ctx.Err() != nil
}

// transition stores a new state and notifies the consumer. Suppressed
// handles neither change state nor fire the callback.
func (h *Handle) transition(state types.ConnectionState) {
	if h.stopping() {
		return
	}

	h.state.Store(int32(state))
	if h.metrics != nil {
		h.metrics.RecordConnectionState(h.executionID, int(state))
	}
	h.logger.Debug("connection state changed",
		"execution_id", h.executionID, "state", state.String())

	if h.callbacks.OnStateChange != nil {
		h.callbacks.OnStateChange(state)
	}
}

// markDisconnected records the resting state without firing callbacks
func (h *Handle) markDisconnected() {
	h.state.Store(int32(types.StateDisconnected))
	if h.metrics != nil {
		h.metrics.RecordConnectionState(h.executionID, int(types.StateDisconnected))
	}
}

func (h *Handle) notifyMessage(entry types.LogEntry) {
	if h.stopping() {
		return
	}
	if h.callbacks.OnMessage != nil {
		h.callbacks.OnMessage(entry)
	}
}

func (h *Handle) notifyStatus(update types.StatusUpdate) {
	if h.stopping() {
		return
	}
	if h.callbacks.OnStatusUpdate != nil {
		h.callbacks.OnStatusUpdate(update)
	}
}

func (h *Handle) notifyError(err error) {
	if h.stopping() {
		return
	}
	if h.metrics != nil {
		h.metrics.RecordError("stream", errors.Classify(err).String())
	}
	if h.callbacks.OnError != nil {
		h.callbacks.OnError(err)
	}
}

func (h *Handle) storeConn(conn *websocket.Conn) {
	h.connMu.Lock()
	h.conn = conn
	h.connMu.Unlock()
}

func (h *Handle) clearConn() {
	h.connMu.Lock()
	h.conn = nil
	h.connMu.Unlock()
}
