// Package throttle paces sequential result page captures.
package throttle

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"serprank/config"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Throttle is the pacing policy of a batch: a fixed pause between two fetches
// of the same keyword, a random pause between keywords, and an optional
// global request rate.
type Throttle struct {
	sameKeyword time.Duration
	jitterMin   time.Duration
	jitterMax   time.Duration
	limiter     *rate.Limiter

	sleep SleepFunc

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customizes a Throttle.
type Option func(*Throttle)

// WithSleep replaces the real sleep, mostly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(t *Throttle) { t.sleep = fn }
}

// WithSeed makes the keyword jitter reproducible.
func WithSeed(seed int64) Option {
	return func(t *Throttle) { t.rng = rand.New(rand.NewSource(seed)) }
}

// New builds a throttle from configuration.
func New(cfg config.ThrottleConfig, opts ...Option) *Throttle {
	t := &Throttle{
		sameKeyword: cfg.SameKeywordDelay,
		jitterMin:   cfg.KeywordJitterMin,
		jitterMax:   cfg.KeywordJitterMax,
		sleep:       Sleep,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if cfg.RequestsPerMinute > 0 {
		t.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// None returns a throttle that never waits.
func None() *Throttle {
	return New(config.ThrottleConfig{})
}

// Acquire waits for the global request rate, if any.
func (t *Throttle) Acquire(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return nil
	}
	return t.limiter.Wait(ctx)
}

// SameKeyword pauses between two fetches for one keyword.
func (t *Throttle) SameKeyword(ctx context.Context) error {
	if t == nil || t.sameKeyword <= 0 {
		return nil
	}
	return t.sleep(ctx, t.sameKeyword)
}

// NextKeyword pauses for a random duration in [jitterMin, jitterMax] before
// the next keyword of a batch.
func (t *Throttle) NextKeyword(ctx context.Context) error {
	if t == nil {
		return nil
	}
	d := t.Jitter()
	if d <= 0 {
		return nil
	}
	return t.sleep(ctx, d)
}

// Jitter draws the next between-keyword pause.
func (t *Throttle) Jitter() time.Duration {
	if t.jitterMax <= t.jitterMin {
		return t.jitterMin
	}
	t.mu.Lock()
	n := t.rng.Int63n(int64(t.jitterMax - t.jitterMin + 1))
	t.mu.Unlock()
	return t.jitterMin + time.Duration(n)
}

// Sleep waits for d, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
