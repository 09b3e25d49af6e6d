package searchapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"serprank/cache"
	"serprank/estimate"
	"serprank/metrics"
)

// KindEstimate is the trailing-window estimate for one content kind.
type KindEstimate struct {
	Kind  Kind   `json:"kind"`
	Total int    `json:"total"`
	Error string `json:"error,omitempty"`
	estimate.Result
}

// KeywordEstimate collects the estimates of every kind for a keyword.
type KeywordEstimate struct {
	Keyword   string         `json:"keyword"`
	Estimates []KindEstimate `json:"estimates"`
}

// Searcher is the part of Client the service needs.
type Searcher interface {
	Search(ctx context.Context, kind Kind, query string) (*Response, error)
}

// Service turns search API samples into volume estimates.
type Service struct {
	searcher  Searcher
	estimator *estimate.Estimator
	cache     *cache.Cache
	metrics   *metrics.Metrics
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewService returns a service; cache and metrics may be nil.
func NewService(s Searcher, e *estimate.Estimator, c *cache.Cache, m *metrics.Metrics, logger logrus.FieldLogger) *Service {
	return &Service{searcher: s, estimator: e, cache: c, metrics: m, logger: logger, now: time.Now}
}

// EstimateKind estimates the trailing-window volume of one kind.
func (s *Service) EstimateKind(ctx context.Context, kind Kind, keyword string) (KindEstimate, error) {
	res, err := s.searcher.Search(ctx, kind, keyword)
	if err != nil {
		return KindEstimate{Kind: kind}, err
	}
	windowStart := s.estimator.Config().WindowStart(s.now())
	est := KindEstimate{
		Kind:   kind,
		Total:  res.Total,
		Result: estimate.Estimate(s.estimator, res.Total, res.Items, DateOf(kind), windowStart),
	}
	s.metrics.ObserveEstimate(string(kind), est.IsLimit)
	return est, nil
}

// ErrPartial is returned with a usable KeywordEstimate when some kinds
// failed. Partial results are not cached.
var ErrPartial = errors.New("some content kinds failed")

// EstimateKeyword queries every kind concurrently. A failing kind reports a
// zero estimate with its error and does not affect the others.
func (s *Service) EstimateKeyword(ctx context.Context, keyword string) (KeywordEstimate, error) {
	keyword = strings.TrimSpace(keyword)
	return cache.Memoize(ctx, s.cache, cache.Key("estimate", keyword), func() (KeywordEstimate, error) {
		out := KeywordEstimate{Keyword: keyword, Estimates: make([]KindEstimate, len(Kinds))}

		var (
			g      errgroup.Group
			mu     sync.Mutex
			failed int
		)
		for i, kind := range Kinds {
			g.Go(func() error {
				est, err := s.EstimateKind(ctx, kind, keyword)
				if err != nil {
					s.logger.WithError(err).WithFields(logrus.Fields{
						"keyword": keyword,
						"kind":    kind,
					}).Warn("estimate failed")
					est = KindEstimate{Kind: kind, Error: err.Error()}
				}
				mu.Lock()
				if err != nil {
					failed++
				}
				out.Estimates[i] = est
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		if failed > 0 {
			return out, ErrPartial
		}
		return out, nil
	})
}
