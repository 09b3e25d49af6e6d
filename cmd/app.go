package cmd

import (
	"github.com/sirupsen/logrus"

	"serprank/browser"
	"serprank/cache"
	"serprank/checker"
	"serprank/config"
	"serprank/estimate"
	"serprank/fetch"
	"serprank/metrics"
	"serprank/searchapi"
	"serprank/serp"
	"serprank/throttle"
)

// app is the set of collaborators a command wires together.
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	metrics *metrics.Metrics
	cache   *cache.Cache
	pool    *browser.Pool
	checker *checker.Checker
}

// newApp builds the checker on a browser pool, or on plain HTTP fetches when
// render is false. Fetched pages carry no geometry, so only section outlines
// work in that mode.
func newApp(cfg *config.Config, logger *logrus.Logger, render bool) *app {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
		cache:   cache.New(cfg.Redis, logger),
	}

	var snapshotter serp.Snapshotter
	if render {
		a.pool = browser.New(cfg.Browser, logger, browser.WithBlueMargin(cfg.Thresholds.BlueMargin))
		a.pool.Initialize()
		a.metrics.RegisterPool(a.pool.Stats)
		snapshotter = a.pool
	} else {
		snapshotter = fetch.New(cfg.Fetch)
	}

	a.checker = checker.New(snapshotter, cfg.Thresholds, logger,
		checker.WithThrottle(throttle.New(cfg.Throttle)),
		checker.WithCache(a.cache),
		checker.WithMetrics(a.metrics),
		checker.WithSegmenter(serp.NewSegmenter(cfg.Segmenter, nil)),
	)
	return a
}

// estimator returns the search API service, or nil without credentials.
func (a *app) estimator() *searchapi.Service {
	if a.cfg.SearchAPI.ClientID == "" || a.cfg.SearchAPI.ClientSecret == "" {
		return nil
	}
	return searchapi.NewService(
		searchapi.New(a.cfg.SearchAPI),
		estimate.New(a.cfg.Estimate),
		a.cache, a.metrics, a.logger,
	)
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Shutdown()
	}
	if err := a.cache.Close(); err != nil {
		a.logger.WithError(err).Warn("failed to close cache")
	}
}
