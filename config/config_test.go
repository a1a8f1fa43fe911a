package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/logstream/stream"
)

// writeConfigFile drops config content into a temp dir and returns its path
func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_LoadYAML(t *testing.T) {
	configFile := writeConfigFile(t, "config.yaml", `
server:
  base_url: https://logs.example.com
  token_env: ACME_LOG_TOKEN
  tls:
    ca_files:
      - /etc/acme/ca.pem
    min_version: "1.3"
stream:
  handshake_timeout: 10s
  reconnect:
    max_attempts: 8
    initial_interval: 500ms
    multiplier: 2.0
    max_interval: 20s
query:
  timeout: 5s
  retry_attempts: 3
relay:
  enabled: true
  nats:
    url: nats://nats.example.com:4222
    name: acme-logstream
    token: s3cret
  publish:
    subject_prefix: acme.logs
    use_jetstream: true
    rate_limit: 200
    rate_burst: 50
log:
  level: debug
  format: json
`)

	cfg, err := NewLoader().LoadFile(configFile)
	require.NoError(t, err)

	assert.Equal(t, "https://logs.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "ACME_LOG_TOKEN", cfg.Server.TokenEnv)
	assert.Equal(t, []string{"/etc/acme/ca.pem"}, cfg.Server.TLS.CAFiles)
	assert.Equal(t, "1.3", cfg.Server.TLS.MinVersion)
	assert.Equal(t, 10*time.Second, cfg.Stream.HandshakeTimeout)
	assert.Equal(t, 8, cfg.Stream.Reconnect.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Stream.Reconnect.InitialInterval)
	assert.Equal(t, 2.0, cfg.Stream.Reconnect.Multiplier)
	assert.Equal(t, 20*time.Second, cfg.Stream.Reconnect.MaxInterval)
	assert.Equal(t, 5*time.Second, cfg.Query.Timeout)
	assert.Equal(t, 3, cfg.Query.RetryAttempts)
	assert.True(t, cfg.Relay.Enabled)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.Relay.NATS.URL)
	assert.Equal(t, "acme-logstream", cfg.Relay.NATS.Name)
	assert.Equal(t, "s3cret", cfg.Relay.NATS.Token)
	assert.Equal(t, "acme.logs", cfg.Relay.Publish.SubjectPrefix)
	assert.True(t, cfg.Relay.Publish.UseJetStream)
	assert.Equal(t, 200.0, cfg.Relay.Publish.RateLimit)
	assert.Equal(t, 50, cfg.Relay.Publish.RateBurst)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoader_LoadJSON(t *testing.T) {
	configFile := writeConfigFile(t, "config.json", `{
		"server": {"base_url": "http://localhost:8080"},
		"stream": {"handshake_timeout": "30s"},
		"query": {"timeout": "12s"}
	}`)

	cfg, err := NewLoader().LoadFile(configFile)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Stream.HandshakeTimeout)
	assert.Equal(t, 12*time.Second, cfg.Query.Timeout)
}

func TestLoader_Defaults(t *testing.T) {
	configFile := writeConfigFile(t, "config.yaml", `
server:
  base_url: http://localhost:9000
`)

	cfg, err := NewLoader().LoadFile(configFile)
	require.NoError(t, err)

	want := Default()
	want.Server.BaseURL = "http://localhost:9000"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("loaded config differs from defaults (-want +got):\n%s", diff)
	}
}

func TestLoader_LayerMerging(t *testing.T) {
	tmpDir := t.TempDir()

	base := filepath.Join(tmpDir, "base.yaml")
	require.NoError(t, os.WriteFile(base, []byte(`
server:
  base_url: http://base.example.com
stream:
  reconnect:
    max_attempts: 3
    initial_interval: 2s
log:
  level: warn
`), 0644))

	// A later JSON layer overrides key by key, other formats mix freely
	override := filepath.Join(tmpDir, "override.json")
	require.NoError(t, os.WriteFile(override, []byte(`{
		"server": {"base_url": "http://override.example.com"},
		"stream": {"reconnect": {"max_attempts": 9}}
	}`), 0644))

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://override.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 9, cfg.Stream.Reconnect.MaxAttempts)
	// Keys untouched by the override survive from the earlier layer
	assert.Equal(t, 2*time.Second, cfg.Stream.Reconnect.InitialInterval)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("LOGSTREAM_BASE_URL", "https://env.example.com")
	t.Setenv("LOGSTREAM_LOG_LEVEL", "error")
	t.Setenv("LOGSTREAM_NATS_TOKEN", "env-nats-token")

	configFile := writeConfigFile(t, "config.yaml", `
server:
  base_url: http://file.example.com
log:
  level: debug
`)

	cfg, err := NewLoader().LoadFile(configFile)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "env-nats-token", cfg.Relay.NATS.Token)
}

func TestLoader_EnvOnly(t *testing.T) {
	t.Setenv("LOGSTREAM_BASE_URL", "https://env-only.example.com")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env-only.example.com", cfg.Server.BaseURL)
}

func TestLoader_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "wrong type for base_url",
			content: `{"server": {"base_url": 42}}`,
			field:   "base_url",
		},
		{
			name:    "unknown log level",
			content: `{"log": {"level": "verbose"}}`,
			field:   "level",
		},
		{
			name:    "negative retry attempts",
			content: `{"query": {"retry_attempts": -1}}`,
			field:   "retry_attempts",
		},
		{
			name:    "wrong type for relay enabled",
			content: `{"relay": {"enabled": "yes"}}`,
			field:   "enabled",
		},
		{
			name:    "unsupported TLS version",
			content: `{"server": {"tls": {"min_version": "1.1"}}}`,
			field:   "min_version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configFile := writeConfigFile(t, "config.json", tt.content)

			_, err := NewLoader().LoadFile(configFile)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoader_InvalidDuration(t *testing.T) {
	configFile := writeConfigFile(t, "config.yaml", `
server:
  base_url: http://localhost:8080
query:
  timeout: 45x
`)

	_, err := NewLoader().LoadFile(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoader_FileErrors(t *testing.T) {
	loader := NewLoader()

	_, err := loader.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = loader.LoadFile(writeConfigFile(t, "config.json", `{"server": {`))
	require.Error(t, err)

	badExt := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(badExt, []byte("x = 1"), 0644))
	_, err = loader.LoadFile(badExt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON or YAML")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Server.BaseURL = "http://localhost:8080"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "valid with relay",
			mutate: func(c *Config) { c.Relay.Enabled = true },
		},
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.Server.BaseURL = "" },
			wantErr: "server.base_url is required",
		},
		{
			name:    "unsupported scheme",
			mutate:  func(c *Config) { c.Server.BaseURL = "ftp://example.com" },
			wantErr: "scheme",
		},
		{
			name:    "no host",
			mutate:  func(c *Config) { c.Server.BaseURL = "http://" },
			wantErr: "no host",
		},
		{
			name:    "negative query timeout",
			mutate:  func(c *Config) { c.Query.Timeout = -time.Second },
			wantErr: "query.timeout",
		},
		{
			name:    "negative retry attempts",
			mutate:  func(c *Config) { c.Query.RetryAttempts = -1 },
			wantErr: "query.retry_attempts",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "trace" },
			wantErr: "log.level",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "log.format",
		},
		{
			name:    "TLS cert without key",
			mutate:  func(c *Config) { c.Server.TLS.CertFile = "/etc/client.pem" },
			wantErr: "server.tls.cert_file and server.tls.key_file",
		},
		{
			name:    "bad TLS min version",
			mutate:  func(c *Config) { c.Server.TLS.MinVersion = "1.0" },
			wantErr: "server.tls.min_version",
		},
		{
			name: "relay enabled without nats url",
			mutate: func(c *Config) {
				c.Relay.Enabled = true
				c.Relay.NATS.URL = ""
			},
			wantErr: "relay.nats.url",
		},
		{
			name: "relay subject prefix with space",
			mutate: func(c *Config) {
				c.Relay.Enabled = true
				c.Relay.Publish.SubjectPrefix = "my logs"
			},
			wantErr: "subject_prefix",
		},
		{
			name: "relay negative rate limit",
			mutate: func(c *Config) {
				c.Relay.Enabled = true
				c.Relay.Publish.RateLimit = -5
			},
			wantErr: "rate_limit",
		},
		{
			name:    "negative reconnect interval",
			mutate:  func(c *Config) { c.Stream.Reconnect.InitialInterval = -time.Second },
			wantErr: "initial_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerConfig_TokenProvider(t *testing.T) {
	ctx := context.Background()

	// Inline token wins over everything
	sc := ServerConfig{Token: "inline", TokenFile: "/nope", TokenEnv: "NOPE"}
	tok, err := sc.TokenProvider().Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "inline", tok)

	// Token file next
	tokenFile := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("from-file\n"), 0600))
	sc = ServerConfig{TokenFile: tokenFile, TokenEnv: "NOPE"}
	tok, err = sc.TokenProvider().Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from-file", tok)

	// Named environment variable
	t.Setenv("CUSTOM_TOKEN_VAR", "from-env")
	sc = ServerConfig{TokenEnv: "CUSTOM_TOKEN_VAR"}
	tok, err = sc.TokenProvider().Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)

	// Default environment variable when nothing is configured
	t.Setenv(DefaultTokenEnv, "from-default-env")
	tok, err = ServerConfig{}.TokenProvider().Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "from-default-env", tok)
}

func TestConfig_SaveAndReload(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "https://logs.example.com"
	cfg.Relay.Enabled = true
	cfg.Relay.Publish.UseJetStream = true
	cfg.Query.RetryAttempts = 2

	for _, name := range []string{"roundtrip.yaml", "roundtrip.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, cfg.SaveToFile(path))

			// Saved config must carry restrictive permissions: it may hold tokens
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			reloaded, err := NewLoader().LoadFile(path)
			require.NoError(t, err)
			if diff := cmp.Diff(cfg, reloaded); diff != "" {
				t.Errorf("reloaded config differs (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfig_Clone(t *testing.T) {
	original := Default()
	original.Server.BaseURL = "http://localhost:8080"
	original.Stream.Reconnect = stream.ReconnectConfig{MaxAttempts: 7}

	clone := original.Clone()
	clone.Server.BaseURL = "http://mutated.example.com"
	clone.Stream.Reconnect.MaxAttempts = 1

	assert.Equal(t, "http://localhost:8080", original.Server.BaseURL)
	assert.Equal(t, 7, original.Stream.Reconnect.MaxAttempts)
}
