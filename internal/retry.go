package internal

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
)

// jitterFraction randomises each delay by up to ±25%
const jitterFraction = 0.25

// RetryPolicy bounds how often and how slowly a remote call is retried
type RetryPolicy struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// DefaultRetryPolicy returns 3 retries starting at 1s, capped at 10s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   10 * time.Second,
	}
}

// WorstCaseWait is the longest total time spent sleeping between attempts,
// ignoring jitter
func (p RetryPolicy) WorstCaseWait() time.Duration {
	var total time.Duration
	for i := 0; i < p.MaxRetries; i++ {
		d := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(i)))
		total += min(d, p.MaxDelay)
	}
	return total
}

// Retrier runs remote calls under a RetryPolicy
type Retrier struct {
	policy RetryPolicy
	logger *log.Logger
	rand   func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetrier(policy RetryPolicy, logger *log.Logger) *Retrier {
	if logger == nil {
		logger = discardLogger()
	}
	return &Retrier{
		policy: policy,
		logger: logger,
		rand:   rand.Float64,
		sleep:  sleepContext,
	}
}

func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

// Delay returns the wait after the failed attempt with the given 0-based index:
// min(MaxDelay, BaseDelay * 2^attempt * (1 + jitter)), jitter in [-0.25, 0.25].
func (r *Retrier) Delay(attempt int) time.Duration {
	jitter := (r.rand()*2 - 1) * jitterFraction
	d := float64(r.policy.BaseDelay) * math.Pow(2, float64(attempt)) * (1 + jitter)
	if d >= float64(r.policy.MaxDelay) {
		return r.policy.MaxDelay
	}
	return time.Duration(d)
}

// Retry runs op, retrying retryable failures until the policy's retries are
// used up. The last error op returned is passed back as is.
//
// Never use this for calls that move money: a request that succeeded but was
// not acknowledged would be repeated.
func Retry[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !IsRetryable(err) || attempt >= r.policy.MaxRetries {
			return zero, err
		}

		delay := r.Delay(attempt)
		r.logger.Warn("remote call failed, retrying",
			"attempt", attempt+1,
			"max_attempts", r.policy.MaxRetries+1,
			"delay", delay.Round(time.Millisecond),
			"error", err)

		if r.sleep(ctx, delay) != nil {
			return zero, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
