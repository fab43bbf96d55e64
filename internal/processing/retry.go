package processing

import (
	"math/rand"
	"time"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/services/telegram"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

// RetryPolicy is the per-job retry rule. MaxRetries counts re-executions
// after the first attempt. Delay receives the number of retries already
// made.
type RetryPolicy struct {
	MaxRetries  int
	Delay       func(retries int) time.Duration
	ShouldRetry func(err error) bool
}

// Decision is what the runtime does with a failed execution.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Decide maps a failure on the given attempt (1-based) to a decision.
// Payload validation failures are never retried. A Telegram retry_after
// hint longer than the policy delay wins.
func (p RetryPolicy) Decide(err error, attempt int) Decision {
	if err == nil || types.IsValidationError(err) {
		return Decision{}
	}
	if p.ShouldRetry == nil || !p.ShouldRetry(err) {
		return Decision{}
	}

	retries := attempt - 1
	if retries < 0 {
		retries = 0
	}
	if retries >= p.MaxRetries {
		return Decision{}
	}

	var delay time.Duration
	if p.Delay != nil {
		delay = p.Delay(retries)
	}
	if tgErr, ok := telegram.AsError(err); ok && tgErr.RetryAfter != nil && *tgErr.RetryAfter > delay {
		delay = *tgErr.RetryAfter
	}
	return Decision{Retry: true, Delay: delay}
}

// FixedDelay waits the same time before every retry.
func FixedDelay(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff waits a random time in [0, min(base*2^retries, limit)].
func ExponentialBackoff(base, limit time.Duration) func(int) time.Duration {
	return func(retries int) time.Duration {
		ceiling := limit
		if retries < 32 {
			if d := base << uint(retries); d > 0 && d < limit {
				ceiling = d
			}
		}
		return time.Duration(rand.Int63n(int64(ceiling) + 1))
	}
}

func retryAny(error) bool { return true }

// AdminNotificationPolicy retries transient Telegram failures only.
func AdminNotificationPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  5,
		Delay:       FixedDelay(10 * time.Second),
		ShouldRetry: telegram.IsRetryable,
	}
}

// UserNotificationPolicy retries anything that reaches it; permanent
// delivery failures were already absorbed by the dispatcher.
func UserNotificationPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  5,
		Delay:       FixedDelay(10 * time.Second),
		ShouldRetry: retryAny,
	}
}

func ImageVariantsPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		Delay:       ExponentialBackoff(time.Second, 300*time.Second),
		ShouldRetry: retryAny,
	}
}
