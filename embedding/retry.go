// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package embedding

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/poiesic/docembed/ai"
)

// RetryPolicy controls retries of provider calls.
type RetryPolicy struct {
	// MaxAttempts includes the first call. Default: 3
	MaxAttempts int `toml:"max_attempts"`

	// InitialDelay is the wait before the first retry. Default: 1s
	InitialDelay time.Duration `toml:"initial_delay"`

	// MaxDelay caps the backoff before jitter. Default: 30s
	MaxDelay time.Duration `toml:"max_delay"`

	// Multiplier grows the delay between retries. Default: 2
	Multiplier float64 `toml:"multiplier"`

	// Jitter adds up to this fraction of the delay at random. Default: 0.1
	Jitter float64 `toml:"jitter"`

	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	// Default: 30s
	Timeout time.Duration `toml:"timeout"`
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       0.1,
		Timeout:      30 * time.Second,
	}
}

// Validate checks the policy.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// Backoff returns the delay before retry number n (0 for the first retry):
// min(InitialDelay * Multiplier^n, MaxDelay) plus up to Jitter of that.
func (p RetryPolicy) Backoff(n int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(n))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * rand.Float64()
	}
	return time.Duration(d)
}

// Retry calls op until it succeeds, returns a non-retryable error, the
// attempts are used up, or ctx is done. Each attempt gets its own timeout;
// an attempt that times out fails with ai.KindTimeout and is retried.
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := policy.Validate(); err != nil {
		return zero, err
	}

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := runAttempt(ctx, policy.Timeout, op)
		if err == nil {
			if attempt > 0 {
				slog.Debug("operation succeeded after retry", "attempt", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if !ai.IsRetryable(err) {
			slog.Debug("operation failed with non-retryable error", "attempt", attempt+1, "err", err)
			return zero, err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		delay := policy.Backoff(attempt)
		slog.Debug("operation failed, will retry",
			"attempt", attempt+1, "maxAttempts", policy.MaxAttempts, "delay", delay, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := op(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		if ai.KindOf(err) != ai.KindTimeout {
			err = ai.NewProviderError("embedding", ai.KindTimeout, err)
		}
	}
	return result, err
}
