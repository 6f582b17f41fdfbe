package timeutil

import (
	"math"
	"math/rand"
	"time"
)

// durationPtr is a helper function to create a pointer to a time.Duration
func DurationPtr(d time.Duration) *time.Duration {
	return &d
}

// MaxDuration returns the largest duration in the given slice, or zero
// if the slice is empty.
func MaxDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	max := durations[0]
	for _, d := range durations[1:] {
		if d > max {
			max = d
		}
	}
	return max
}

// ComputeJitter returns a pseudo-random duration in [0, max) drawn from rng,
// or zero when max is not positive.
func ComputeJitter(max time.Duration, rng rand.Rand) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(int64(max)))
}

// ExponentialBackoffDelay computes the backoff delay for the given attempt
// number (1-indexed):
//
//	delay = min(initial * multiplier^(attempt-1), max) + ComputeJitter(jitter, rng)
//
// The jitter is added after the cap. With a jitter of zero or less the
// result is exactly the capped curve, so callers that pass no jitter (the
// rate limiter's backoff) get reproducible values.
func ExponentialBackoffDelay(attempt int, jitter time.Duration, rng rand.Rand, param BackoffParam) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exponent := float64(attempt - 1)
	delay := float64(param.initialDuration) * math.Pow(param.multiplier, exponent)
	if param.maxDuration > 0 && delay > float64(param.maxDuration) {
		delay = float64(param.maxDuration)
	}
	if delay <= 0 {
		delay = 0
	}
	return time.Duration(delay) + ComputeJitter(jitter, rng)
}

// Sleeper abstracts the act of waiting so callers can cancel the wait
// and tests can substitute a no-op implementation.
type Sleeper interface {
	Sleep(d time.Duration)
}

// RealSleeper sleeps on the wall clock via time.Sleep.
type RealSleeper struct{}

func NewRealSleeper() RealSleeper {
	return RealSleeper{}
}

func (RealSleeper) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	time.Sleep(d)
}

// NoopSleeper never sleeps. Used by tests that exercise retry/backoff
// logic without paying wall-clock cost.
type NoopSleeper struct{}

func (NoopSleeper) Sleep(time.Duration) {}
