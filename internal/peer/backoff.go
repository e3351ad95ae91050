package peer

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig holds the per-peer reconnect schedule (§4.2 config:
// reconnect_backoff_initial, reconnect_backoff_max).
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64 // multiplier per attempt; defaults to 2.0 if <1
}

// nextDelay returns the delay before reconnect attempt n (1-based),
// exponential with a hard cap at cfg.Max, then scaled by a random factor
// in [0.5, 1.0) (exactly 0.5 when rng is nil). Attempt 1 returns
// cfg.Initial unscaled.
func nextDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.Initial <= 0 {
		return 0
	}
	if attempt <= 1 {
		return cfg.Initial
	}
	factor := cfg.Factor
	if factor < 1.0 {
		factor = 2.0
	}
	delay := float64(cfg.Initial) * math.Pow(factor, float64(attempt-1))
	if cfg.Max > 0 && delay > float64(cfg.Max) {
		delay = float64(cfg.Max)
	}
	jitter := 0.5
	if rng != nil {
		jitter = 0.5 + rng.Float64()*0.5
	}
	return time.Duration(delay * jitter)
}
