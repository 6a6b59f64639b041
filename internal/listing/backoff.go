package listing

import (
	"math"
	"math/rand"
	"time"
)

const (
	publishAttempts = 3
	backoffBase     = 100 * time.Millisecond
	backoffCap      = time.Second
)

// backoff returns the wait before retry attempt (0-based).
// attempt=0 => 100ms, attempt=1 => 200ms, attempt=2 => 400ms
func backoff(attempt int) time.Duration {
	delay := time.Duration(float64(backoffBase) * math.Pow(2, float64(attempt)))
	if delay > backoffCap {
		delay = backoffCap
	}

	// small jitter (0–25ms) so instances do not retry in lockstep
	delay += time.Duration(rand.Intn(25)) * time.Millisecond
	return delay
}
