package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c360/logstream/config"
	"github.com/c360/logstream/pkg/tlsutil"
)

// commonFlags are accepted by every subcommand. Non-empty values overlay the
// file and environment configuration; an empty value leaves the configured
// one alone.
type commonFlags struct {
	ConfigPath string
	BaseURL    string
	Token      string
	LogLevel   string
	LogFormat  string
}

// registerCommonFlags wires the shared flags into a subcommand's flag set
func registerCommonFlags(fs *flag.FlagSet) *commonFlags {
	cf := &commonFlags{}
	fs.StringVar(&cf.ConfigPath, "config", getEnv("LOGSTREAM_CONFIG", ""),
		"Configuration file, JSON or YAML (env: LOGSTREAM_CONFIG)")
	fs.StringVar(&cf.BaseURL, "base-url", "",
		"Server base URL (overrides config)")
	fs.StringVar(&cf.Token, "token", "",
		"Access token (overrides config)")
	fs.StringVar(&cf.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error")
	fs.StringVar(&cf.LogFormat, "log-format", "",
		"Log format: text, json")
	return cf
}

// loadConfiguration builds the effective configuration: defaults, then the
// optional config file, then environment overrides, then command line flags.
// Semantic validation runs once at the end, over the merged result.
func loadConfiguration(cf *commonFlags) (*config.Config, error) {
	loader := config.NewLoader()
	loader.EnableValidation(false)
	if cf.ConfigPath != "" {
		loader.AddLayer(cf.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if cf.BaseURL != "" {
		cfg.Server.BaseURL = cf.BaseURL
	}
	if cf.Token != "" {
		cfg.Server.Token = cf.Token
	}
	if cf.LogLevel != "" {
		cfg.Log.Level = cf.LogLevel
	}
	if cf.LogFormat != "" {
		cfg.Log.Format = cf.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadTLSConfig builds the optional client TLS material. Returns nil when
// the configuration does not go beyond the defaults.
func loadTLSConfig(cfg *config.Config) (*tls.Config, error) {
	if cfg.Server.TLS.IsZero() {
		return nil, nil
	}
	tlsConfig, err := tlsutil.LoadClientConfig(cfg.Server.TLS)
	if err != nil {
		return nil, fmt.Errorf("load TLS configuration: %w", err)
	}
	return tlsConfig, nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable value or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable value or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable value or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
