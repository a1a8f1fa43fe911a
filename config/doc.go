// Package config provides configuration management for the log streaming
// client.
//
// This package handles loading and validation of client configuration from
// JSON or YAML files and environment variables.
//
// # Core Components
//
// Config: the full configuration tree covering the log service location and
// token source, push channel tuning, query settings, the optional NATS
// relay, and logging.
//
// Loader: loads configuration with layer merging (base + overrides) and
// LOGSTREAM_* environment variable substitution. Every file layer is checked
// against a JSON schema before it is mapped onto the typed tree, so type
// mistakes report the offending field instead of an unmarshal error.
//
// # Basic Usage
//
// Loading configuration from files with layer merging:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.yaml")
//	loader.AddLayer("config/production.yaml") // Overrides base
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Duration fields accept Go duration strings in files:
//
//	stream:
//	  handshake_timeout: 45s
//	  reconnect:
//	    initial_interval: 1s
//	    max_interval: 30s
//
// # Environment Overrides
//
// After file layers are merged, LOGSTREAM_BASE_URL, LOGSTREAM_TOKEN,
// LOGSTREAM_TOKEN_FILE, LOGSTREAM_NATS_URL, LOGSTREAM_NATS_TOKEN,
// LOGSTREAM_LOG_LEVEL, and LOGSTREAM_LOG_FORMAT override the corresponding
// fields. Precedence is defaults < files < environment.
package config
