package limiter

import (
	"math/rand"
	"sync"
	"time"

	"github.com/docweave/crawler/pkg/timeutil"
)

// RateLimiter is a per-host token bucket. Configurable requests_per_second
// and burst gate how often a host may be fetched; SetCrawlDelay/Backoff
// layer in politeness signals (robots.txt Crawl-delay, 429/5xx backoff)
// on top of the bucket. Acquire never sleeps itself — callers own the
// wait — so cancellation of that wait is entirely caller-driven.
type RateLimiter interface {
	SetRequestsPerSecond(rps float64)
	SetBurst(burst int)
	SetBaseDelay(baseDelay time.Duration)
	SetJitter(jitter time.Duration)
	SetRandomSeed(randomSeed int64)
	SetCrawlDelay(host string, delay time.Duration)
	Backoff(host string)
	ResetBackoff(host string)
	MarkLastFetchAsNow(host string)
	SetRNG(rng interface{})
	Acquire(host string) time.Duration
	ResolveDelay(host string) time.Duration
}

// ConcurrentRateLimiter is the concurrency-safe RateLimiter implementation.
// State is kept in a map from host to (last_grant_time, tokens) plus the
// politeness overlays (crawl delay, backoff), all guarded by mu; the RNG
// used for jitter is guarded separately so jitter computation never
// contends with bucket bookkeeping.
type ConcurrentRateLimiter struct {
	mu    sync.RWMutex
	rngMu sync.Mutex

	requestsPerSecond float64
	burst             int

	baseDelay    time.Duration
	jitter       time.Duration
	backoffParam timeutil.BackoffParam
	hostTimings  map[string]hostTiming
	rng          *rand.Rand
}

// NewConcurrentRateLimiter constructs a limiter with burst=1, the default
// per SPEC_FULL.md §4.2, no rate cap configured until
// SetRequestsPerSecond is called, and the default backoff curve
// (1s initial, x2 multiplier, 30s cap).
func NewConcurrentRateLimiter() *ConcurrentRateLimiter {
	return &ConcurrentRateLimiter{
		hostTimings:  make(map[string]hostTiming),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		burst:        1,
		backoffParam: timeutil.NewBackoffParam(1*time.Second, 2.0, 30*time.Second),
	}
}

// SetBackoffParam replaces the exponential-backoff curve used by Backoff.
func (r *ConcurrentRateLimiter) SetBackoffParam(param timeutil.BackoffParam) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backoffParam = param
}

func (r *ConcurrentRateLimiter) SetRequestsPerSecond(rps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestsPerSecond = rps
}

func (r *ConcurrentRateLimiter) SetBurst(burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if burst < 1 {
		burst = 1
	}
	r.burst = burst
}

func (r *ConcurrentRateLimiter) SetBaseDelay(baseDelay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.baseDelay = baseDelay
}

func (r *ConcurrentRateLimiter) SetJitter(jitter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jitter = jitter
}

func (r *ConcurrentRateLimiter) SetRandomSeed(randomSeed int64) {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()

	r.rng = rand.New(rand.NewSource(randomSeed))
}

// SetCrawlDelay sets a per-host delay floor, separate from the global
// base delay, typically sourced from a robots.txt Crawl-delay directive.
func (r *ConcurrentRateLimiter) SetCrawlDelay(host string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.hostTimings[host]
	t.crawlDelay = delay
	r.hostTimings[host] = t
}

// exponentialBackoffDelay computes exponential backoff based on count.
// Does NOT take lock; caller must hold r.mu (RLock or Lock).
func (r *ConcurrentRateLimiter) exponentialBackoffDelay(backoffCount int) time.Duration {
	rngCopy := r.safeRNGCopy()
	return timeutil.ExponentialBackoffDelay(backoffCount, 0, rngCopy, r.backoffParam)
}

func (r *ConcurrentRateLimiter) safeRNGCopy() rand.Rand {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return *r.rng
}

// Backoff triggers exponential backoff for the given host, incrementing
// the backoff counter and recomputing the delay. Called on 429/5xx.
func (r *ConcurrentRateLimiter) Backoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.hostTimings[host]
	t.backoffCount++
	t.backoffDelay = r.exponentialBackoffDelay(t.backoffCount)
	r.hostTimings[host] = t
}

// ResetBackoff clears the backoff counter for the given host, called
// after a successful request.
func (r *ConcurrentRateLimiter) ResetBackoff(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.hostTimings[host]
	if exists {
		t.backoffCount = 0
		t.backoffDelay = 0
		r.hostTimings[host] = t
	}
}

// MarkLastFetchAsNow records that host was just fetched.
func (r *ConcurrentRateLimiter) MarkLastFetchAsNow(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.hostTimings[host]
	t.lastFetchAt = time.Now()
	r.hostTimings[host] = t
}

// computeJitter returns a pseudo-random duration in [0, max).
func (r *ConcurrentRateLimiter) computeJitter(max time.Duration) time.Duration {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()

	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if max <= 0 {
		return 0
	}

	return time.Duration(r.rng.Int63n(int64(max)))
}

// SetRNG allows injecting a custom random number generator for testing.
func (r *ConcurrentRateLimiter) SetRNG(rng interface{}) {
	if randImpl, ok := rng.(*rand.Rand); ok {
		r.rngMu.Lock()
		r.rng = randImpl
		r.rngMu.Unlock()
	}
}

// refillTokens tops up host's bucket based on elapsed time since the last
// refill, capped at burst. Must be called with r.mu held.
func (r *ConcurrentRateLimiter) refillTokens(host string, now time.Time) hostTiming {
	t, exists := r.hostTimings[host]
	if !exists {
		t = hostTiming{tokens: float64(r.burst), lastRefill: now}
		r.hostTimings[host] = t
		return t
	}
	if r.requestsPerSecond > 0 {
		elapsed := now.Sub(t.lastRefill).Seconds()
		t.tokens += elapsed * r.requestsPerSecond
		if t.tokens > float64(r.burst) {
			t.tokens = float64(r.burst)
		}
	}
	t.lastRefill = now
	r.hostTimings[host] = t
	return t
}

// Acquire is the C2 contract: it returns the duration the caller should
// sleep before issuing a request to host (zero if the request may proceed
// immediately). It accounts for the token bucket (requests_per_second /
// burst), any explicit crawl delay, and any active backoff, taking the
// largest of the three as the floor, plus jitter. The limiter never
// sleeps; it only reports how long the caller should wait.
func (r *ConcurrentRateLimiter) Acquire(host string) time.Duration {
	now := time.Now()

	r.mu.Lock()
	t := r.refillTokens(host, now)

	var bucketWait time.Duration
	if r.requestsPerSecond > 0 {
		if t.tokens >= 1 {
			t.tokens -= 1
			r.hostTimings[host] = t
		} else {
			deficit := 1 - t.tokens
			bucketWait = time.Duration(deficit / r.requestsPerSecond * float64(time.Second))
		}
	}

	base := r.baseDelay
	jitter := r.jitter
	lastFetchAt := t.lastFetchAt
	r.mu.Unlock()

	// politeWait is how long the host-timing floor (base delay, robots
	// crawl-delay, backoff) still demands, measured from the last fetch.
	var politeWait time.Duration
	politeFloor := timeutil.MaxDuration([]time.Duration{base, t.crawlDelay, t.backoffDelay})
	if !lastFetchAt.IsZero() {
		if elapsed := now.Sub(lastFetchAt); elapsed < politeFloor {
			politeWait = politeFloor - elapsed
		}
	}

	wait := timeutil.MaxDuration([]time.Duration{bucketWait, politeWait})
	if wait > 0 {
		wait += r.computeJitter(jitter)
	}
	return wait
}

// ResolveDelay is an alias for Acquire kept for callers ported from the
// limiter's pre-token-bucket shape.
func (r *ConcurrentRateLimiter) ResolveDelay(host string) time.Duration {
	return r.Acquire(host)
}

// BaseDelay returns the configured global base delay.
func (r *ConcurrentRateLimiter) BaseDelay() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.baseDelay
}

// Jitter returns the configured global jitter budget.
func (r *ConcurrentRateLimiter) Jitter() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jitter
}

// RNG returns the limiter's current random source.
func (r *ConcurrentRateLimiter) RNG() *rand.Rand {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng
}

// HostTimings returns a shallow copy of the per-host timing map, safe for
// the caller to inspect without racing further limiter operations.
func (r *ConcurrentRateLimiter) HostTimings() map[string]hostTiming {
	r.mu.RLock()
	defer r.mu.RUnlock()

	copyMap := make(map[string]hostTiming, len(r.hostTimings))
	for k, v := range r.hostTimings {
		copyMap[k] = v
	}
	return copyMap
}
