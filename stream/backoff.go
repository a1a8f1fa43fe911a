package stream

import "time"

// computeReconnectDelay calculates the backoff delay for a retry attempt.
// The first retry is attempt 1 and waits the initial interval; each further
// attempt multiplies the previous delay, capped at the maximum interval.
func computeReconnectDelay(cfg ReconnectConfig, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(cfg.InitialInterval)
	for j := 1; j < attempt; j++ {
		delay *= cfg.Multiplier
		if delay >= float64(cfg.MaxInterval) {
			return cfg.MaxInterval
		}
	}

	d := time.Duration(delay)
	if d > cfg.MaxInterval {
		return cfg.MaxInterval
	}
	return d
}
