package stream

import (
	"fmt"
	"net/url"

	"github.com/c360/logstream/errors"
)

// streamURL builds the push channel URL for an execution. The base URL may
// carry an http, https, ws, or wss scheme; http schemes are mapped to their
// websocket equivalents. The access token rides in the query string, which
// is why the result must never be logged verbatim.
func streamURL(baseURL, executionID, accessToken string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", errors.WrapInvalid(err, "stream", "streamURL", "parse base URL")
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a websocket scheme
	default:
		return "", errors.WrapInvalid(
			fmt.Errorf("unsupported scheme %q", u.Scheme),
			"stream", "streamURL", "validate base URL")
	}

	if u.Host == "" {
		return "", errors.WrapInvalid(
			fmt.Errorf("base URL has no host"),
			"stream", "streamURL", "validate base URL")
	}

	u.Path = "/api/v1/ws/executions/" + url.PathEscape(executionID) + "/logs"

	q := url.Values{}
	q.Set("token", accessToken)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// sanitizeStreamURL strips the query string so the URL is safe to log
func sanitizeStreamURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[unparseable url]"
	}
	u.RawQuery = ""
	return u.String()
}
