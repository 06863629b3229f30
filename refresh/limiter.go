package refresh

import (
	"time"

	"golang.org/x/time/rate"
)

// ThrottleConfig defines a public type used by goSession APIs.
//
// ThrottleConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ThrottleConfig struct {
	Enabled bool
	// MaxAttempts is the burst of refresh calls permitted before the cooldown
	// applies.
	MaxAttempts int
	// Cooldown is the interval at which one refresh attempt is restored.
	Cooldown time.Duration
}

// throttle guards against refresh storms: a durably invalid session would
// otherwise trigger one refresh call per failed request.
type throttle struct {
	limiter *rate.Limiter
}

func newThrottle(cfg ThrottleConfig) *throttle {
	if !cfg.Enabled {
		return nil
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Second
	}

	return &throttle{
		limiter: rate.NewLimiter(rate.Every(cfg.Cooldown), cfg.MaxAttempts),
	}
}

func (t *throttle) allow() bool {
	if t == nil {
		return true
	}
	return t.limiter.Allow()
}
