package cloud

import (
	"context"
	"time"

	"github.com/nerrad567/blink-sync-core/internal/infrastructure/config"
)

// RetryPolicy bounds the retry loops for 5xx, 429 and busy responses.
// Each loop backs off from its own base delay, doubling per attempt up to
// MaxDelay, and gives up after MaxAttempts total attempts.
type RetryPolicy struct {
	MaxAttempts      int
	ServerErrorDelay time.Duration
	RateLimitDelay   time.Duration
	BusyDelay        time.Duration
	MaxDelay         time.Duration
}

// DefaultRetryPolicy matches the configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      10,
		ServerErrorDelay: time.Second,
		RateLimitDelay:   500 * time.Millisecond,
		BusyDelay:        5 * time.Second,
		MaxDelay:         time.Minute,
	}
}

// RetryPolicyFromConfig converts the YAML retry block.
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:      cfg.MaxAttempts,
		ServerErrorDelay: cfg.ServerErrorDelay,
		RateLimitDelay:   cfg.RateLimitDelay,
		BusyDelay:        cfg.BusyDelay,
		MaxDelay:         cfg.MaxDelay,
	}
}

// Delay returns the wait before retry number attempt (0-based).
func (p RetryPolicy) Delay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			break
		}
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
