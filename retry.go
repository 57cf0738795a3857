package workq

import "time"

// retryDelay computes the delay before attempt is retried (§4.1.1):
// retryDelay(attempt) = retryDelay × M[min(attempt,|M|)-1], and 0 if the
// configured base retryDelay is <= 0. attempt is 1-based.
func (c *Config) retryDelayFor(attempt int) time.Duration {
	if c.retryDelay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	idx := attempt
	if idx > len(c.retryMultipliers) {
		idx = len(c.retryMultipliers)
	}
	multiplier := c.retryMultipliers[idx-1]
	return c.retryDelay * time.Duration(multiplier)
}

// payloadTTL derives the TTL applied to a payload record (§3.3):
// max(1.5 × Σ retryDelay(1..retries+1), 7 days).
func (c *Config) payloadTTL() time.Duration {
	var sum time.Duration
	for attempt := 1; attempt <= c.retries+1; attempt++ {
		sum += c.retryDelayFor(attempt)
	}
	derived := time.Duration(1.5 * float64(sum))
	const sevenDays = 7 * 24 * time.Hour
	if derived < sevenDays {
		return sevenDays
	}
	return derived
}

// dequeueTTL is the TTL on a dequeue-time record (§3.1):
// max(1.5·workItemTimeout, 1h).
func (c *Config) dequeueTTL() time.Duration {
	derived := time.Duration(1.5 * float64(c.workItemTimeout))
	const oneHour = time.Hour
	if derived < oneHour {
		return oneHour
	}
	return derived
}

// maintenanceThrottle is clamp(workItemTimeout, 1s, 1min) (§4.3).
func (c *Config) maintenanceThrottle() time.Duration {
	switch {
	case c.workItemTimeout < time.Second:
		return time.Second
	case c.workItemTimeout > time.Minute:
		return time.Minute
	default:
		return c.workItemTimeout
	}
}
