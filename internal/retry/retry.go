// internal/retry/retry.go
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/conviction-engine/internal/utils/logger"
)

// Policy - ограниченная политика повторов: фиксированное число попыток
// с постоянной паузой между ними.
type Policy struct {
	Attempts uint
	Delay    time.Duration
	// Event is the log event emitted before every repeat.
	Event string
}

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error or the policy is
// exhausted. The last error is returned unwrapped.
func Do[T any](ctx context.Context, log *zap.Logger, policy Policy, op func() (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts == 0 {
		attempts = 1
	}
	event := policy.Event
	if event == "" {
		event = "retry"
	}

	attempt := uint(1)
	notify := func(err error, wait time.Duration) {
		log.Info("Повтор попытки после ошибки",
			logger.Event(event),
			zap.Uint("attempt", attempt),
			zap.Uint("max_attempts", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))
		attempt++
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.Delay)),
		backoff.WithMaxTries(attempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify))
}
