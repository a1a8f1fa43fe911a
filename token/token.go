// Package token supplies access tokens for the push channel and the log
// query endpoints. Token issuance itself is out of scope; providers only
// look up credentials that already exist (a literal value, an environment
// variable, or a file kept fresh by an external rotation process).
package token

import (
	"context"
	"os"
	"strings"

	"github.com/c360/logstream/errors"
)

// Provider yields the access token used to authorize log access. Token is
// called before every transport open and every query, so implementations
// should be cheap and must be safe for concurrent use.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context) (string, error)

// Token implements Provider
func (f ProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static returns a provider that always yields the given token
func Static(token string) Provider {
	return ProviderFunc(func(_ context.Context) (string, error) {
		if token == "" {
			return "", errors.WrapInvalid(errors.ErrNoToken, "token", "Static", "lookup token")
		}
		return token, nil
	})
}

// Env returns a provider that reads the token from the named environment
// variable on every call.
func Env(name string) Provider {
	return ProviderFunc(func(_ context.Context) (string, error) {
		value := os.Getenv(name)
		if value == "" {
			return "", errors.WrapInvalid(errors.ErrNoToken, "token", "Env", "read "+name)
		}
		return value, nil
	})
}

// File returns a provider that reads the token from a file on every call,
// so externally rotated tokens are picked up without restarting. Leading
// and trailing whitespace is trimmed.
func File(path string) Provider {
	return ProviderFunc(func(_ context.Context) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.WrapInvalid(err, "token", "File", "read token file")
		}
		value := strings.TrimSpace(string(data))
		if value == "" {
			return "", errors.WrapInvalid(errors.ErrNoToken, "token", "File", "read token file")
		}
		return value, nil
	})
}
