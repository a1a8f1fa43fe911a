package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/c360/logstream/pkg/tlsutil"
	"github.com/c360/logstream/relay"
	"github.com/c360/logstream/stream"
	"github.com/c360/logstream/token"
)

// DefaultTokenEnv is the environment variable consulted for the access token
// when no explicit token source is configured.
const DefaultTokenEnv = "LOGSTREAM_TOKEN"

// Config is the complete client configuration: where the log service lives,
// how the push channel behaves, query settings, the optional NATS relay,
// and logging.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Stream StreamConfig `json:"stream" yaml:"stream"`
	Query  QueryConfig  `json:"query" yaml:"query"`
	Relay  RelayConfig  `json:"relay" yaml:"relay"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// ServerConfig locates the execution log service and its access token.
// Token sources are consulted in order: inline token, token file, then the
// environment variable.
type ServerConfig struct {
	BaseURL   string `json:"base_url" yaml:"base_url"`
	Token     string `json:"token,omitempty" yaml:"token,omitempty"`
	TokenFile string `json:"token_file,omitempty" yaml:"token_file,omitempty"`
	TokenEnv  string `json:"token_env,omitempty" yaml:"token_env,omitempty"`

	// TLS supplies trust material for https/wss endpoints beyond the
	// system CA bundle. Zero value uses the defaults.
	TLS tlsutil.ClientConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// TokenProvider builds the token source the server config describes.
func (s ServerConfig) TokenProvider() token.Provider {
	switch {
	case s.Token != "":
		return token.Static(s.Token)
	case s.TokenFile != "":
		return token.File(s.TokenFile)
	case s.TokenEnv != "":
		return token.Env(s.TokenEnv)
	default:
		return token.Env(DefaultTokenEnv)
	}
}

// StreamConfig tunes the push channel.
type StreamConfig struct {
	HandshakeTimeout time.Duration          `json:"handshake_timeout,omitempty" yaml:"handshake_timeout,omitempty"`
	Reconnect        stream.ReconnectConfig `json:"reconnect,omitempty" yaml:"reconnect,omitempty"`
}

// QueryConfig tunes the historical log facade. RetryAttempts configures the
// CLI's caller-side retry wrapper; zero means a single attempt. The facade
// itself never retries.
type QueryConfig struct {
	Timeout       time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RetryAttempts int           `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty"`
}

// RelayConfig enables republishing streamed logs to NATS.
type RelayConfig struct {
	Enabled bool         `json:"enabled" yaml:"enabled"`
	NATS    NATSConfig   `json:"nats,omitempty" yaml:"nats,omitempty"`
	Publish relay.Config `json:"publish,omitempty" yaml:"publish,omitempty"`
}

// NATSConfig defines the relay's NATS connection settings.
type NATSConfig struct {
	URL      string        `json:"url,omitempty" yaml:"url,omitempty"`
	Name     string        `json:"name,omitempty" yaml:"name,omitempty"`
	Username string        `json:"username,omitempty" yaml:"username,omitempty"`
	Password string        `json:"password,omitempty" yaml:"password,omitempty"`
	Token    string        `json:"token,omitempty" yaml:"token,omitempty"`
	TLS      NATSTLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// NATSTLSConfig for secure NATS connections
type NATSTLSConfig struct {
	CertFile string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
}

// LogConfig controls the client's own logging.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Default returns the configuration used when no file sets a value. The
// server base URL has no default; it must come from a file, the environment,
// or a flag.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			TokenEnv: DefaultTokenEnv,
		},
		Stream: StreamConfig{
			HandshakeTimeout: 45 * time.Second,
			Reconnect:        stream.DefaultReconnectConfig(),
		},
		Query: QueryConfig{
			Timeout: 30 * time.Second,
		},
		Relay: RelayConfig{
			NATS: NATSConfig{
				URL:  "nats://localhost:4222",
				Name: "logstream",
			},
			Publish: relay.Config{
				SubjectPrefix: relay.DefaultSubjectPrefix,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// Validate checks the configuration for values that cannot work. It runs
// after defaults and overrides are applied, so required fields are genuinely
// missing when absent here.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return errors.New("server.base_url is required")
	}
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("server.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url scheme %q not supported (http or https)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("server.base_url has no host")
	}

	switch c.Server.TLS.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("server.tls.min_version %q not recognized (1.2, 1.3)", c.Server.TLS.MinVersion)
	}
	if (c.Server.TLS.CertFile == "") != (c.Server.TLS.KeyFile == "") {
		return errors.New("server.tls.cert_file and server.tls.key_file must be set together")
	}

	if c.Stream.HandshakeTimeout < 0 {
		return errors.New("stream.handshake_timeout cannot be negative")
	}
	if c.Stream.Reconnect.InitialInterval < 0 {
		return errors.New("stream.reconnect.initial_interval cannot be negative")
	}
	if c.Stream.Reconnect.MaxInterval < 0 {
		return errors.New("stream.reconnect.max_interval cannot be negative")
	}
	if c.Stream.Reconnect.Multiplier < 0 {
		return errors.New("stream.reconnect.multiplier cannot be negative")
	}

	if c.Query.Timeout < 0 {
		return errors.New("query.timeout cannot be negative")
	}
	if c.Query.RetryAttempts < 0 {
		return errors.New("query.retry_attempts cannot be negative")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q not recognized (debug, info, warn, error)", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q not recognized (text, json)", c.Log.Format)
	}

	if c.Relay.Enabled {
		if c.Relay.NATS.URL == "" {
			return errors.New("relay.nats.url is required when the relay is enabled")
		}
		if prefix := c.Relay.Publish.SubjectPrefix; prefix != "" && !isValidSubjectPrefix(prefix) {
			return fmt.Errorf(
				"relay.publish.subject_prefix %q is not valid for NATS subjects (alphanumeric with dots, dashes, underscores)",
				prefix,
			)
		}
		if c.Relay.Publish.RateLimit < 0 {
			return errors.New("relay.publish.rate_limit cannot be negative")
		}
		if c.Relay.Publish.RateBurst < 0 {
			return errors.New("relay.publish.rate_burst cannot be negative")
		}
	}

	return nil
}

// isValidSubjectPrefix checks that a string can lead a NATS subject.
// Valid characters are alphanumeric, dots, dashes, and underscores.
func isValidSubjectPrefix(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a configuration loader with validation enabled and the
// LOGSTREAM environment prefix.
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		validation: true,
		envPrefix:  "LOGSTREAM",
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier
// ones key by key.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load builds the configuration: defaults, then each file layer merged in
// order, then environment overrides, then validation.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		rawConfig, err := l.loadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		merged, err := l.mergeFromMap(cfg, rawConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", path, err)
		}
		cfg = merged
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadRaw reads one config file into a raw map: JSON or YAML by extension,
// schema checked, duration strings converted for struct mapping.
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var rawConfig map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		// Validate JSON depth to prevent DoS
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &rawConfig); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rawConfig); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}

	if err := validateSchema(rawConfig); err != nil {
		return nil, err
	}

	if err := l.parseDurations(rawConfig); err != nil {
		return nil, err
	}

	return rawConfig, nil
}

// mergeFromMap merges a raw map over the base config, only overriding keys
// present in the map.
func (l *Loader) mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedMap := l.deepMergeMaps(baseMap, override)

	mergedJSON, err := json.Marshal(mergedMap)
	if err != nil {
		return nil, err
	}
	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}

	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func (l *Loader) deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any)

	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, baseOk := base[k].(map[string]any); baseOk {
			if overrideMap, overrideOk := v.(map[string]any); overrideOk {
				result[k] = l.deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// parseDurations converts duration strings like "45s" at the known duration
// keys into nanoseconds so they unmarshal into time.Duration fields.
func (l *Loader) parseDurations(data map[string]any) error {
	if streamSection, ok := data["stream"].(map[string]any); ok {
		if err := parseDurationKey(streamSection, "handshake_timeout"); err != nil {
			return err
		}
		if reconnect, ok := streamSection["reconnect"].(map[string]any); ok {
			if err := parseDurationKey(reconnect, "initial_interval"); err != nil {
				return err
			}
			if err := parseDurationKey(reconnect, "max_interval"); err != nil {
				return err
			}
		}
	}

	if querySection, ok := data["query"].(map[string]any); ok {
		if err := parseDurationKey(querySection, "timeout"); err != nil {
			return err
		}
	}

	return nil
}

// parseDurationKey rewrites a string duration value in place. Numeric values
// pass through untouched as nanoseconds.
func parseDurationKey(section map[string]any, key string) error {
	raw, ok := section[key].(string)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	section[key] = d.Nanoseconds()
	return nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		suffix string
		target *string
	}{
		{"_BASE_URL", &cfg.Server.BaseURL},
		{"_TOKEN", &cfg.Server.Token},
		{"_TOKEN_FILE", &cfg.Server.TokenFile},
		{"_NATS_URL", &cfg.Relay.NATS.URL},
		{"_NATS_TOKEN", &cfg.Relay.NATS.Token},
		{"_LOG_LEVEL", &cfg.Log.Level},
		{"_LOG_FORMAT", &cfg.Log.Format},
	}

	for _, o := range overrides {
		key := l.envPrefix + o.suffix
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		if err := validateEnvVar(key, val); err != nil {
			return err
		}
		*o.target = val
	}

	return nil
}

// SaveToFile writes the configuration to a file, JSON or YAML by extension.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		return fmt.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	return safeWriteFile(path, data)
}
