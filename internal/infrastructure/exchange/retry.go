package exchange

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/vitos/crypto_signal_bot/internal/domain"
	"github.com/vitos/crypto_signal_bot/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// transport executes one raw exchange operation without any retry.
type transport interface {
	Query(ctx context.Context, operation string, params url.Values) (json.RawMessage, error)
}

type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 2 * time.Second}
}

// RetryingCaller adds bounded retry with a fixed delay around raw exchange
// calls. Authentication, nonce and argument errors fail immediately; all
// other errors are retried until attempts are exhausted and the last error
// is surfaced.
type RetryingCaller struct {
	transport transport
	policy    RetryPolicy
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error // for testing
}

func NewRetryingCaller(t transport, policy RetryPolicy, logger *zap.Logger) *RetryingCaller {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &RetryingCaller{
		transport: t,
		policy:    policy,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *RetryingCaller) Call(ctx context.Context, operation string, params url.Values) (json.RawMessage, error) {
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		result, err := c.transport.Query(ctx, operation, params)
		if err == nil {
			return result, nil
		}
		lastErr = err
		metrics.RetryAttempts.Inc()

		if domain.IsNonRetryable(err) {
			c.logger.Warn("exchange call failed, not retryable",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return nil, err
		}

		c.logger.Warn("exchange call failed",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.policy.MaxAttempts),
			zap.Error(err))

		if attempt < c.policy.MaxAttempts {
			if serr := c.sleep(ctx, c.policy.Delay); serr != nil {
				return nil, serr
			}
		}
	}

	c.logger.Error("exchange call exhausted retries",
		zap.String("operation", operation),
		zap.Int("attempts", c.policy.MaxAttempts),
		zap.Error(lastErr))
	return nil, lastErr
}
