// Package estimate infers how many items were published during a trailing
// window from a search total and a newest-first sample of dated items.
package estimate

import (
	"math"
	"time"
)

// Result is an estimated trailing-window count. IsLimit marks a capped or
// extrapolated figure rather than an exact tally.
type Result struct {
	Estimated int  `json:"estimated"`
	IsLimit   bool `json:"isLimit"`
}

// Config holds the estimator constants.
type Config struct {
	WindowDays float64 `yaml:"window_days" json:"window_days"`
	// FullSample is the sample size from which the sample is assumed to be
	// truncated by the search API rather than complete.
	FullSample int `yaml:"full_sample" json:"full_sample"`

	HugeTotal  int     `yaml:"huge_total" json:"huge_total"`
	HugeRatio  float64 `yaml:"huge_ratio" json:"huge_ratio"`
	SmallRatio float64 `yaml:"small_ratio" json:"small_ratio"`

	CapTotal int     `yaml:"cap_total" json:"cap_total"`
	CapRatio float64 `yaml:"cap_ratio" json:"cap_ratio"`

	LimitTotal int `yaml:"limit_total" json:"limit_total"`

	MinSpanDays   float64 `yaml:"min_span_days" json:"min_span_days"`
	LimitSpanDays float64 `yaml:"limit_span_days" json:"limit_span_days"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		WindowDays:    30,
		FullSample:    100,
		HugeTotal:     1_000_000,
		HugeRatio:     0.008,
		SmallRatio:    0.012,
		CapTotal:      10_000,
		CapRatio:      0.03,
		LimitTotal:    50_000,
		MinSpanDays:   0.25,
		LimitSpanDays: 0.3,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.WindowDays == 0 {
		c.WindowDays = d.WindowDays
	}
	if c.FullSample == 0 {
		c.FullSample = d.FullSample
	}
	if c.HugeTotal == 0 {
		c.HugeTotal = d.HugeTotal
	}
	if c.HugeRatio == 0 {
		c.HugeRatio = d.HugeRatio
	}
	if c.SmallRatio == 0 {
		c.SmallRatio = d.SmallRatio
	}
	if c.CapTotal == 0 {
		c.CapTotal = d.CapTotal
	}
	if c.CapRatio == 0 {
		c.CapRatio = d.CapRatio
	}
	if c.LimitTotal == 0 {
		c.LimitTotal = d.LimitTotal
	}
	if c.MinSpanDays == 0 {
		c.MinSpanDays = d.MinSpanDays
	}
	if c.LimitSpanDays == 0 {
		c.LimitSpanDays = d.LimitSpanDays
	}
	return c
}

// WindowStart returns the start of the trailing window ending at now.
func (c Config) WindowStart(now time.Time) time.Time {
	return now.Add(-time.Duration(c.WindowDays * float64(24*time.Hour)))
}

// Estimator applies one Config.
type Estimator struct {
	cfg Config
}

// New returns an estimator; zero fields of cfg take their defaults.
func New(cfg Config) *Estimator {
	return &Estimator{cfg: cfg.WithDefaults()}
}

// Config returns the effective configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// EstimateRecent30 estimates with the default configuration.
func EstimateRecent30[T any](total int, items []T, dateOf func(T) (time.Time, bool), windowStart time.Time) Result {
	return Estimate(New(Config{}), total, items, dateOf, windowStart)
}

// Estimate infers the trailing-window count. items must be newest first and
// dateOf reports false for items without a usable date.
//
// Small samples are taken as the full result set and counted. Large samples
// are counted directly when they already reach back past windowStart,
// otherwise the sample's publishing rate is extrapolated over the window and
// capped. Without usable dates a fixed share of the total is reported.
func Estimate[T any](e *Estimator, total int, items []T, dateOf func(T) (time.Time, bool), windowStart time.Time) Result {
	cfg := e.cfg
	n := len(items)
	if total <= 0 || n == 0 {
		return Result{}
	}

	if n < cfg.FullSample {
		if _, ok := dateOf(items[0]); !ok {
			return Result{Estimated: n}
		}
		return Result{Estimated: countSince(items, dateOf, windowStart)}
	}

	newest, okNewest := dateOf(items[0])
	oldest, okOldest := dateOf(items[n-1])
	if !okNewest || !okOldest {
		ratio := cfg.SmallRatio
		if total > cfg.HugeTotal {
			ratio = cfg.HugeRatio
		}
		return Result{
			Estimated: min(total, int(math.Round(float64(total)*ratio))),
			IsLimit:   total > cfg.LimitTotal,
		}
	}

	if oldest.Before(windowStart) {
		return Result{Estimated: countSince(items, dateOf, windowStart)}
	}

	diffDays := math.Abs(newest.Sub(oldest).Hours()) / 24
	if diffDays < cfg.MinSpanDays {
		diffDays = (diffDays + cfg.MinSpanDays) / 2
	}
	dailyRate := float64(n) / diffDays
	estimated := int(math.Round(dailyRate * cfg.WindowDays))
	if total > cfg.CapTotal {
		if limit := int(math.Round(float64(total) * cfg.CapRatio)); estimated > limit {
			estimated = limit
		}
	}
	return Result{
		Estimated: min(total, estimated),
		IsLimit:   total > cfg.LimitTotal || diffDays <= cfg.LimitSpanDays,
	}
}

func countSince[T any](items []T, dateOf func(T) (time.Time, bool), windowStart time.Time) int {
	n := 0
	for _, it := range items {
		if d, ok := dateOf(it); ok && !d.Before(windowStart) {
			n++
		}
	}
	return n
}
