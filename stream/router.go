package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/c360/logstream/errors"
	"github.com/c360/logstream/metric"
	"github.com/c360/logstream/types"
)

// frameSink writes an outbound frame on the live transport. It matches the
// signature of (*websocket.Conn).WriteMessage so the read loop can hand the
// connection's write path straight to the router.
type frameSink func(messageType int, data []byte) error

// router decodes inbound frames once and dispatches them by type. Malformed
// or unknown frames are dropped without closing the connection: a bad frame
// is the server's problem, not a reason to tear down a healthy stream.
type router struct {
	executionID string
	logger      *slog.Logger
	metrics     *metric.Metrics

	notifyMessage func(types.LogEntry)
	notifyStatus  func(types.StatusUpdate)
	notifyError   func(error)
}

// dispatch processes a single raw frame. Keepalive pings are answered on the
// spot through send, before any later frame is read, so the pong always
// precedes subsequent processing.
func (r *router) dispatch(raw []byte, send frameSink) {
	frame, err := types.ParseFrame(raw)
	if err != nil {
		r.drop("parse_error", "dropping malformed frame", err)
		return
	}

	if r.metrics != nil {
		r.metrics.RecordFrameReceived(r.executionID, frame.Type)
	}

	switch frame.Type {
	case types.FramePing:
		r.answerPing(send)

	case types.FrameLogLine:
		r.dispatchLogLine(frame)

	case types.FrameExecutionStatus:
		r.dispatchStatus(frame)

	case types.FrameError:
		message := frame.Message
		if message == "" {
			message = "unknown server error"
		}
		r.notifyError(errors.WrapTransient(
			fmt.Errorf("%s", message),
			"stream", "dispatch", "server reported an error"))

	default:
		r.drop("unknown_type", "dropping frame with unknown type",
			fmt.Errorf("%w: %s", errors.ErrUnknownFrame, frame.Type))
	}
}

// answerPing replies with a pong carrying the current time. Not forwarded to
// the consumer.
func (r *router) answerPing(send frameSink) {
	data, err := json.Marshal(types.NewPongFrame())
	if err != nil {
		return // Silent failure - don't disrupt frame processing
	}

	if err := send(websocket.TextMessage, data); err != nil {
		r.logger.Debug("pong write failed",
			"execution_id", r.executionID, "error", err)
		return
	}

	if r.metrics != nil {
		r.metrics.RecordPongSent(r.executionID)
	}
}

func (r *router) dispatchLogLine(frame *types.Frame) {
	if len(frame.Data) == 0 {
		r.drop("missing_data", "dropping log_line frame without data", errors.ErrInvalidData)
		return
	}

	var payload types.LogLinePayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		r.drop("parse_error", "dropping log_line frame with bad payload", err)
		return
	}

	r.notifyMessage(payload.ToLogEntry(r.executionID))
}

func (r *router) dispatchStatus(frame *types.Frame) {
	if len(frame.Data) == 0 {
		r.drop("missing_data", "dropping execution_status frame without data", errors.ErrInvalidData)
		return
	}

	var payload types.ExecutionStatusPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		r.drop("parse_error", "dropping execution_status frame with bad payload", err)
		return
	}

	r.notifyStatus(payload.ToStatusUpdate())
}

// drop records a frame that will not be dispatched. Dropped frames are a
// debug-level event: they are expected whenever the server speaks a newer
// protocol revision than this client.
func (r *router) drop(reason, message string, err error) {
	r.logger.Debug(message,
		"execution_id", r.executionID, "reason", reason, "error", err)

	if r.metrics != nil {
		r.metrics.RecordFrameDropped(r.executionID, reason)
	}
}
