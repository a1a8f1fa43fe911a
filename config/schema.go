package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema describes the shape of a configuration file. Files are
// partial layers, so nothing is required here; required fields are enforced
// by Validate after defaults and overrides are applied. Duration fields
// accept a string ("45s") or raw nanoseconds.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "server": {
      "type": "object",
      "properties": {
        "base_url": {"type": "string"},
        "token": {"type": "string"},
        "token_file": {"type": "string"},
        "token_env": {"type": "string"},
        "tls": {
          "type": "object",
          "properties": {
            "ca_files": {"type": "array", "items": {"type": "string"}},
            "cert_file": {"type": "string"},
            "key_file": {"type": "string"},
            "min_version": {"type": "string", "enum": ["1.2", "1.3"]},
            "insecure_skip_verify": {"type": "boolean"}
          }
        }
      }
    },
    "stream": {
      "type": "object",
      "properties": {
        "handshake_timeout": {"type": ["integer", "string"]},
        "reconnect": {
          "type": "object",
          "properties": {
            "disabled": {"type": "boolean"},
            "max_attempts": {"type": "integer"},
            "initial_interval": {"type": ["integer", "string"]},
            "multiplier": {"type": "number"},
            "max_interval": {"type": ["integer", "string"]}
          }
        }
      }
    },
    "query": {
      "type": "object",
      "properties": {
        "timeout": {"type": ["integer", "string"]},
        "retry_attempts": {"type": "integer", "minimum": 0}
      }
    },
    "relay": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "nats": {
          "type": "object",
          "properties": {
            "url": {"type": "string"},
            "name": {"type": "string"},
            "username": {"type": "string"},
            "password": {"type": "string"},
            "token": {"type": "string"},
            "tls": {
              "type": "object",
              "properties": {
                "cert_file": {"type": "string"},
                "key_file": {"type": "string"},
                "ca_file": {"type": "string"}
              }
            }
          }
        },
        "publish": {
          "type": "object",
          "properties": {
            "subject_prefix": {"type": "string"},
            "use_jetstream": {"type": "boolean"},
            "rate_limit": {"type": "number", "minimum": 0},
            "rate_burst": {"type": "integer", "minimum": 0}
          }
        }
      }
    },
    "log": {
      "type": "object",
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
        "format": {"type": "string", "enum": ["text", "json"]}
      }
    }
  }
}`

// validateSchema checks a raw config map against the file schema before it
// is mapped onto the typed tree, so type mistakes surface with field names
// instead of unmarshal errors.
func validateSchema(raw map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewGoLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}

	if !result.Valid() {
		var sb strings.Builder
		sb.WriteString("configuration does not match schema:")
		for _, desc := range result.Errors() {
			sb.WriteString(fmt.Sprintf("\n  - %s: %s", desc.Field(), desc.Description()))
		}
		return errors.New(sb.String())
	}

	return nil
}
