// Package relay republishes streamed execution logs onto NATS subjects.
//
// A Relay adapts the stream package's consumer callbacks into NATS publishes:
// each log line goes to {prefix}.{execution_id}.{log_type} and each status
// change to {prefix}.{execution_id}.status, as JSON. Publishing is best
// effort. A failed or rate limited publish is counted and logged, never
// surfaced back into the stream, so a NATS outage cannot stall or kill the
// push channel feeding the relay.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/c360/logstream/errors"
	"github.com/c360/logstream/metric"
	"github.com/c360/logstream/pkg/timestamp"
	"github.com/c360/logstream/stream"
	"github.com/c360/logstream/types"
)

// DefaultSubjectPrefix is the first subject token when none is configured.
const DefaultSubjectPrefix = "logs"

// statusToken is the final subject token for execution status events.
const statusToken = "status"

// defaultRateBurst is the burst allowance applied when a rate cap is set
// without an explicit burst.
const defaultRateBurst = 10

// Publisher is the subset of the NATS client the relay publishes through.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	JetStreamPublish(ctx context.Context, subject string, data []byte, msgID string) error
}

// Config controls subject layout and publish behavior.
type Config struct {
	// SubjectPrefix is the leading token of every published subject. Empty
	// takes the default "logs". A trailing dot is tolerated and stripped.
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`

	// UseJetStream publishes through JetStream with a Nats-Msg-Id per entry
	// so redelivered lines de-duplicate server side. Requires a server with
	// JetStream enabled.
	UseJetStream bool `json:"use_jetstream" yaml:"use_jetstream"`

	// RateLimit caps relayed log lines per second. Zero means no cap.
	// Status events are exempt from the cap.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// RateBurst is the burst size allowed above the steady rate. Zero takes
	// the default of ten. Ignored when RateLimit is zero.
	RateBurst int `json:"rate_burst" yaml:"rate_burst"`
}

func (c Config) normalize() Config {
	c.SubjectPrefix = strings.Trim(c.SubjectPrefix, ".")
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.RateBurst <= 0 {
		c.RateBurst = defaultRateBurst
	}
	return c
}

// StatusEvent is the JSON shape published on the status subject.
type StatusEvent struct {
	ExecutionID string                `json:"execution_id"`
	Status      types.ExecutionStatus `json:"status"`
	Message     string                `json:"message,omitempty"`
	Progress    *float64              `json:"progress,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

// Option customizes a Relay
type Option func(*Relay)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *metric.Metrics) Option {
	return func(r *Relay) {
		r.metrics = metrics
	}
}

// Relay bridges execution streams onto NATS subjects. It is driven entirely
// by the callbacks it hands out; it runs no goroutines of its own.
type Relay struct {
	publisher Publisher
	cfg       Config
	logger    *slog.Logger
	metrics   *metric.Metrics
	limiter   *rate.Limiter // nil when no rate cap is configured

	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc

	published atomic.Int64
	dropped   atomic.Int64
}

// New creates a relay that publishes through the given publisher. The relay
// starts stopped; callbacks fired before Start drop their input.
func New(publisher Publisher, cfg Config, opts ...Option) (*Relay, error) {
	if publisher == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"relay", "New", "publisher required")
	}
	cfg = cfg.normalize()

	r := &Relay{
		publisher: publisher,
		cfg:       cfg,
		logger:    slog.Default(),
	}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Start arms the relay. The context bounds every publish issued through the
// relay's callbacks; cancelling it has the same effect as Stop.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "relay", "Start", "check running state")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.running = true
	return nil
}

// Stop disarms the relay and cancels in-flight JetStream publishes.
// Callbacks fired after Stop drop their input. Stopping a relay that is not
// running is a no-op, and a stopped relay can be started again.
func (r *Relay) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}
	r.cancel()
	r.running = false
	return nil
}

// Running reports whether the relay is started.
func (r *Relay) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Published returns the number of inputs successfully published.
func (r *Relay) Published() int64 {
	return r.published.Load()
}

// Dropped returns the number of inputs discarded without publishing.
func (r *Relay) Dropped() int64 {
	return r.dropped.Load()
}

// Callbacks returns stream callbacks that republish everything they receive
// under the given execution ID. Pass them to the stream manager's Connect,
// or merge them with the consumer's own callbacks first.
func (r *Relay) Callbacks(executionID string) stream.Callbacks {
	return stream.Callbacks{
		OnMessage: func(entry types.LogEntry) {
			r.relayEntry(executionID, entry)
		},
		OnStatusUpdate: func(update types.StatusUpdate) {
			r.relayStatus(executionID, update)
		},
	}
}

func (r *Relay) relayEntry(executionID string, entry types.LogEntry) {
	ctx, ok := r.armed()
	if !ok {
		r.drop(executionID, "stopped", nil)
		return
	}
	if r.limiter != nil && !r.limiter.Allow() {
		r.drop(executionID, "rate_limited", nil)
		return
	}

	if entry.ExecutionID == "" {
		entry.ExecutionID = executionID
	}
	data, err := json.Marshal(entry)
	if err != nil {
		r.drop(executionID, "marshal_error", err)
		return
	}

	subject := r.subject(entry.ExecutionID, string(entry.LogType))
	if err := r.publish(ctx, subject, data, r.msgID(entry.ID)); err != nil {
		r.drop(executionID, "publish_failed", err)
		return
	}
	r.recordPublished(string(entry.LogType))
}

func (r *Relay) relayStatus(executionID string, update types.StatusUpdate) {
	ctx, ok := r.armed()
	if !ok {
		r.drop(executionID, "stopped", nil)
		return
	}

	event := StatusEvent{
		ExecutionID: executionID,
		Status:      update.Status,
		Message:     update.Message,
		Progress:    update.Progress,
		Timestamp:   timestamp.NowISO(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		r.drop(executionID, "marshal_error", err)
		return
	}

	subject := r.subject(executionID, statusToken)
	if err := r.publish(ctx, subject, data, r.msgID("")); err != nil {
		r.drop(executionID, "publish_failed", err)
		return
	}
	r.recordPublished(statusToken)
}

// armed returns the publish context when the relay is running.
func (r *Relay) armed() (context.Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ctx, r.running
}

func (r *Relay) publish(ctx context.Context, subject string, data []byte, msgID string) error {
	if r.cfg.UseJetStream {
		return r.publisher.JetStreamPublish(ctx, subject, data, msgID)
	}
	return r.publisher.Publish(ctx, subject, data)
}

// msgID picks the de-duplication ID for a JetStream publish: the entry's own
// ID when the server provided one, a fresh UUID otherwise. Core publishes
// carry no ID.
func (r *Relay) msgID(natural string) string {
	if !r.cfg.UseJetStream {
		return ""
	}
	if natural != "" {
		return natural
	}
	return uuid.New().String()
}

func (r *Relay) recordPublished(logType string) {
	r.published.Add(1)
	if r.metrics != nil {
		r.metrics.RecordRelayPublished(logType)
	}
}

// drop counts a discarded input. Silent failure - the stream feeding the
// relay must never stall or die over a publish problem.
func (r *Relay) drop(executionID, reason string, err error) {
	r.dropped.Add(1)
	if r.metrics != nil {
		r.metrics.RecordRelayDropped(reason)
	}
	r.logger.Debug("Relay dropped input",
		"execution_id", executionID, "reason", reason, "error", err)
}

// subject builds {prefix}.{executionID}.{kind} with each dynamic part
// reduced to one valid NATS token.
func (r *Relay) subject(executionID, kind string) string {
	return r.cfg.SubjectPrefix + "." + subjectToken(executionID) + "." + subjectToken(kind)
}

// subjectToken rewrites a value so it is safe as a single NATS subject
// token. Spaces, dots, and wildcard characters would change the subject
// structure.
func subjectToken(value string) string {
	if value == "" {
		return "unknown"
	}
	return strings.Map(func(ch rune) rune {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			return ch
		case ch == '-' || ch == '_':
			return ch
		default:
			return '_'
		}
	}, value)
}
