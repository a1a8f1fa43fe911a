// Package query retrieves historical execution logs over REST. It complements
// the live push channel in the stream package: after a reconnection gap, or
// once an execution has finished, the same log content can be fetched here in
// either structured (paginated) or raw (full text) form.
//
// Query calls never retry internally. A failed call returns a classified
// error and the caller decides whether to repeat it; query failures never
// affect push-channel state.
package query

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/c360/logstream/errors"
	"github.com/c360/logstream/metric"
	"github.com/c360/logstream/token"
	"github.com/c360/logstream/types"
)

// Format selects the shape of a unified log response
type Format string

const (
	// FormatStructured returns paginated, parsed log entries
	FormatStructured Format = "structured"
	// FormatRaw returns the full log text in one field
	FormatRaw Format = "raw"
)

// StructuredLogs is the paginated response for structured queries
type StructuredLogs struct {
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
	Items []types.LogEntry `json:"items"`
}

// RawLogs is the full-text response for raw queries
type RawLogs struct {
	RawContent   string `json:"raw_content"`
	FilePath     string `json:"file_path"`
	FileSize     int64  `json:"file_size"`
	LinesCount   int    `json:"lines_count"`
	LastModified string `json:"last_modified"`
}

// UnifiedLogs holds the result of GetUnifiedLogs. Exactly one of Structured
// or Raw is set, matching Format.
type UnifiedLogs struct {
	Format     Format
	Structured *StructuredLogs
	Raw        *RawLogs
}

// FileLogs is the normalized result of the stdout/stderr convenience calls.
// Fields the server omits come back as "" or 0 rather than an error.
type FileLogs struct {
	ExecutionID  string        `json:"execution_id"`
	LogType      types.LogType `json:"log_type"`
	Content      string        `json:"content"`
	FilePath     string        `json:"file_path"`
	FileSize     int64         `json:"file_size"`
	LinesCount   int           `json:"lines_count"`
	LastModified string        `json:"last_modified"`
}

// Config holds the query client settings
type Config struct {
	// BaseURL is the server origin, e.g. "https://api.example.com"
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Timeout bounds each request end to end
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns a Config with the standard request timeout.
// BaseURL must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}

// Option customizes a Client
type Option func(*Client)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *metric.Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithHTTPClient replaces the underlying HTTP client, e.g. to supply a
// custom transport
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTLSConfig sets the TLS configuration used for https endpoints. Nil
// keeps the defaults. Ignored when WithHTTPClient is also given.
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(c *Client) {
		c.tlsConfig = tlsConfig
	}
}

// Client issues historical log queries against the execution log endpoints
type Client struct {
	baseURL    string
	tokens     token.Provider
	httpClient *http.Client
	tlsConfig  *tls.Config
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// NewClient creates a query client. The token provider supplies the bearer
// token attached to every request.
func NewClient(cfg Config, tokens token.Provider, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"query", "NewClient", "base URL required")
	}
	if tokens == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"query", "NewClient", "token provider required")
	}

	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.WrapInvalid(err, "query", "NewClient", "parse base URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("unsupported scheme %q", parsed.Scheme),
			"query", "NewClient", "parse base URL")
	}
	if parsed.Host == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("missing host in %q", cfg.BaseURL),
			"query", "NewClient", "parse base URL")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	c := &Client{
		baseURL: parsed.Scheme + "://" + parsed.Host,
		tokens:  tokens,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
		if c.tlsConfig != nil {
			transport := http.DefaultTransport.(*http.Transport).Clone()
			transport.TLSClientConfig = c.tlsConfig
			c.httpClient.Transport = transport
		}
	}

	return c, nil
}

// GetUnifiedLogs fetches logs for an execution in the requested format. An
// empty format defaults to structured. Filter fields left at their zero value
// are omitted from the request; Lines is clamped into the accepted range
// before sending, except that zero means no limit and sends no parameter.
func (c *Client) GetUnifiedLogs(ctx context.Context, executionID string, format Format, filter types.QueryFilter) (*UnifiedLogs, error) {
	if executionID == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("empty execution id"),
			"query", "GetUnifiedLogs", "validate execution id")
	}

	switch format {
	case "":
		format = FormatStructured
	case FormatStructured, FormatRaw:
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown format %q", format),
			"query", "GetUnifiedLogs", "validate format")
	}

	params := url.Values{}
	params.Set("format", string(format))
	if filter.LogType != "" {
		params.Set("log_type", string(filter.LogType))
	}
	if filter.Level != "" {
		params.Set("level", string(filter.Level))
	}
	if lines := filter.ClampLines(); lines > 0 {
		params.Set("lines", strconv.Itoa(lines))
	}
	if filter.Search != "" {
		params.Set("search", filter.Search)
	}

	requestURL := c.baseURL + "/api/v1/logs/executions/" +
		url.PathEscape(executionID) + "?" + params.Encode()

	body, err := c.get(ctx, "unified", "GetUnifiedLogs", executionID, requestURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if format == FormatRaw {
		var raw RawLogs
		if err := json.NewDecoder(body).Decode(&raw); err != nil {
			return nil, errors.WrapInvalid(err, "query", "GetUnifiedLogs", "decode raw response")
		}
		return &UnifiedLogs{Format: FormatRaw, Raw: &raw}, nil
	}

	var structured StructuredLogs
	if err := json.NewDecoder(body).Decode(&structured); err != nil {
		return nil, errors.WrapInvalid(err, "query", "GetUnifiedLogs", "decode structured response")
	}
	return &UnifiedLogs{Format: FormatStructured, Structured: &structured}, nil
}

// GetStdoutLogs fetches the raw stdout text of an execution. Lines follows
// the same clamping rule as GetUnifiedLogs.
func (c *Client) GetStdoutLogs(ctx context.Context, executionID string, lines int) (*FileLogs, error) {
	return c.fileLogs(ctx, "GetStdoutLogs", "stdout", types.LogTypeStdout, executionID, lines)
}

// GetStderrLogs fetches the raw stderr text of an execution
func (c *Client) GetStderrLogs(ctx context.Context, executionID string, lines int) (*FileLogs, error) {
	return c.fileLogs(ctx, "GetStderrLogs", "stderr", types.LogTypeStderr, executionID, lines)
}

func (c *Client) fileLogs(ctx context.Context, method, endpoint string, logType types.LogType, executionID string, lines int) (*FileLogs, error) {
	if executionID == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("empty execution id"),
			"query", method, "validate execution id")
	}

	requestURL := c.baseURL + "/api/v1/logs/executions/" +
		url.PathEscape(executionID) + "/" + endpoint
	if clamped := (types.QueryFilter{Lines: lines}).ClampLines(); clamped > 0 {
		requestURL += "?lines=" + strconv.Itoa(clamped)
	}

	body, err := c.get(ctx, endpoint, method, executionID, requestURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var raw RawLogs
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, errors.WrapInvalid(err, "query", method, "decode response")
	}

	return &FileLogs{
		ExecutionID:  executionID,
		LogType:      logType,
		Content:      raw.RawContent,
		FilePath:     raw.FilePath,
		FileSize:     raw.FileSize,
		LinesCount:   raw.LinesCount,
		LastModified: raw.LastModified,
	}, nil
}

// get performs one authorized request and returns the response body on 200.
// Any other outcome is mapped to a classified error; there is no retry here.
func (c *Client) get(ctx context.Context, endpoint, method, executionID, requestURL string) (io.ReadCloser, error) {
	accessToken, err := c.tokens.Token(ctx)
	if err != nil {
		c.record(endpoint, "error")
		return nil, errors.WrapInvalid(err, "query", method, "retrieve access token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		c.record(endpoint, "error")
		return nil, errors.WrapInvalid(err, "query", method, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(endpoint, "error")
		return nil, errors.WrapTransient(err, "query", method, "execute request")
	}

	if c.metrics != nil {
		c.metrics.RecordQueryDuration(endpoint, time.Since(start))
	}
	c.record(endpoint, strconv.Itoa(resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		err := c.statusError(method, executionID, resp)
		// Read and discard body to reuse connection
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return nil, err
	}

	return resp.Body, nil
}

// statusError maps a non-200 response to a classified error
func (c *Client) statusError(method, executionID string, resp *http.Response) error {
	c.logger.Debug("query request failed",
		"method", method, "execution_id", executionID, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return errors.WrapInvalid(
			fmt.Errorf("%w: status %d", errors.ErrInvalidData, resp.StatusCode),
			"query", method, "server rejected request")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.WrapInvalid(
			fmt.Errorf("%w: status %d", errors.ErrInvalidToken, resp.StatusCode),
			"query", method, "authorize request")
	case resp.StatusCode == http.StatusNotFound:
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrExecutionNotFound, executionID),
			"query", method, "locate execution")
	case resp.StatusCode >= 500:
		return errors.WrapTransient(
			fmt.Errorf("unexpected status code: %d", resp.StatusCode),
			"query", method, "execute request")
	default:
		return errors.WrapTransient(
			fmt.Errorf("%w: status %d", errors.ErrBadResponse, resp.StatusCode),
			"query", method, "execute request")
	}
}

func (c *Client) record(endpoint, status string) {
	if c.metrics != nil {
		c.metrics.RecordQueryRequest(endpoint, status)
	}
}
