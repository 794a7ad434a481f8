package bridge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	defaultMaxAttemptsConstant          = 3
	defaultInitialDelayConstant         = time.Second
	defaultBackoffMultiplierConstant    = 2.0
	invalidMaxAttemptsTemplateConstant  = "retry max attempts must be at least 1, got %d"
	invalidInitialDelayTemplateConstant = "retry initial delay must not be negative, got %s"
	invalidMultiplierTemplateConstant   = "retry backoff multiplier must be at least 1, got %v"
	retryCanceledMessageConstant        = "invocation canceled while waiting to retry"
)

// RetryPolicy bounds repeated attempts of one invocation.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy returns three attempts starting at one second and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       defaultMaxAttemptsConstant,
		InitialDelay:      defaultInitialDelayConstant,
		BackoffMultiplier: defaultBackoffMultiplierConstant,
	}
}

// Validate rejects policies that cannot make progress.
func (policy RetryPolicy) Validate() error {
	if policy.MaxAttempts < 1 {
		return NewValidationFailure(fmt.Sprintf(invalidMaxAttemptsTemplateConstant, policy.MaxAttempts), nil)
	}
	if policy.InitialDelay < 0 {
		return NewValidationFailure(fmt.Sprintf(invalidInitialDelayTemplateConstant, policy.InitialDelay), nil)
	}
	if policy.BackoffMultiplier < 1 || math.IsNaN(policy.BackoffMultiplier) || math.IsInf(policy.BackoffMultiplier, 0) {
		return NewValidationFailure(fmt.Sprintf(invalidMultiplierTemplateConstant, policy.BackoffMultiplier), nil)
	}
	return nil
}

// DelayBefore returns the pause preceding attempt number attempt; the first attempt is never delayed.
func (policy RetryPolicy) DelayBefore(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	scaledDelay := float64(policy.InitialDelay) * math.Pow(policy.BackoffMultiplier, float64(attempt-2))
	if scaledDelay > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(scaledDelay)
}

// Sleeper pauses between attempts and returns early with the context error when ctx ends.
type Sleeper interface {
	Sleep(ctx context.Context, duration time.Duration) error
}

// TimerSleeper waits on a real timer.
type TimerSleeper struct{}

// Sleep blocks for duration or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AttemptOperation runs attempt number attempt, counting from 1.
type AttemptOperation func(ctx context.Context, attempt int) error

// AttemptObserver is notified after every failed attempt.
type AttemptObserver func(attempt int, failure error)

// RetryController re-runs an operation while it fails transiently.
type RetryController struct {
	policy  RetryPolicy
	sleeper Sleeper
}

// NewRetryController constructs a controller; a nil sleeper waits on real timers.
func NewRetryController(policy RetryPolicy, sleeper Sleeper) RetryController {
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	return RetryController{policy: policy, sleeper: sleeper}
}

// Run executes operation until it succeeds, fails permanently, or exhausts the policy.
// It returns the number of attempts made together with the last failure.
func (controller RetryController) Run(ctx context.Context, operation AttemptOperation, observer AttemptObserver) (int, error) {
	var lastFailure error
	for attempt := 1; attempt <= controller.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if sleepError := controller.sleeper.Sleep(ctx, controller.policy.DelayBefore(attempt)); sleepError != nil {
				return attempt - 1, newCanceledFailure(retryCanceledMessageConstant, attempt-1, errors.Join(sleepError, lastFailure))
			}
		}

		lastFailure = operation(ctx, attempt)
		if lastFailure == nil {
			return attempt, nil
		}
		if observer != nil {
			observer(attempt, lastFailure)
		}
		if !IsTransient(lastFailure) {
			return attempt, lastFailure
		}
	}
	return controller.policy.MaxAttempts, lastFailure
}
