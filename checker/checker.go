// Package checker runs rank and section checks against live result pages.
package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"serprank/cache"
	"serprank/config"
	"serprank/metrics"
	"serprank/serp"
	"serprank/throttle"
)

// ErrBlocked is returned when the search engine served a block page.
var ErrBlocked = errors.New("blocked by search engine")

var blockMarkers = []string{
	"자동입력 방지",
	"비정상적인 검색",
	"보안 절차",
	"일시적으로 제한",
	"captcha",
	"unusual traffic",
}

// IsBlocked reports whether html looks like an anti-bot block page.
func IsBlocked(html string) bool {
	lower := strings.ToLower(html)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// tabLabels names the result tabs the way the page headings do.
var tabLabels = map[string]string{
	"blog":       "블로그",
	"view":       "VIEW",
	"cafe":       "카페",
	"kin":        "지식iN",
	"news":       "뉴스",
	"influencer": "인플루언서",
}

// Request describes one rank check. Exactly one of Snippet and Nicknames
// selects the matching variant.
type Request struct {
	Keyword   string   `json:"keyword"`
	Device    string   `json:"device,omitempty"`
	Tab       string   `json:"tab,omitempty"`
	Snippet   string   `json:"snippet,omitempty"`
	Nicknames []string `json:"nicknames,omitempty"`
}

func (r Request) withDefaults() Request {
	r.Keyword = strings.TrimSpace(r.Keyword)
	if r.Device == "" {
		r.Device = "pc"
	}
	if r.Tab == "" {
		r.Tab = "blog"
	}
	return r
}

// RankResult is the combined outcome of one rank check. PostedOn is the
// date label resolved to a calendar day at check time.
type RankResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Keyword  string `json:"keyword"`
	Rank     int    `json:"rank"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Date     string `json:"date,omitempty"`
	PostedOn string `json:"postedOn,omitempty"`
	URL      string `json:"url,omitempty"`
	Section  string `json:"section,omitempty"`
	Exposed  bool   `json:"exposed"`
}

// SectionsResult is a section outline from both detection modes.
type SectionsResult struct {
	Keyword     string             `json:"keyword"`
	Device      string             `json:"device"`
	Sections    []serp.SectionItem `json:"sections"`
	Patterns    []serp.SectionItem `json:"patterns"`
	OnlyDOM     []string           `json:"onlyDom,omitempty"`
	OnlyPattern []string           `json:"onlyPattern,omitempty"`
}

// Checker captures result pages and runs the engine over them.
type Checker struct {
	snapshotter serp.Snapshotter
	thresholds  serp.Thresholds
	segmenter   *serp.Segmenter
	throttle    *throttle.Throttle
	cache       *cache.Cache
	metrics     *metrics.Metrics
	logger      logrus.FieldLogger
	now         func() time.Time
}

// Option customizes a Checker.
type Option func(*Checker)

// WithThrottle paces captures and batches with t.
func WithThrottle(t *throttle.Throttle) Option { return func(c *Checker) { c.throttle = t } }

// WithCache memoizes section outlines in cc.
func WithCache(cc *cache.Cache) Option { return func(c *Checker) { c.cache = cc } }

// WithMetrics records captures and check outcomes in m.
func WithMetrics(m *metrics.Metrics) Option { return func(c *Checker) { c.metrics = m } }

// WithSegmenter replaces the default section segmenter.
func WithSegmenter(s *serp.Segmenter) Option { return func(c *Checker) { c.segmenter = s } }

// New returns a checker capturing pages with s.
func New(s serp.Snapshotter, th serp.Thresholds, logger logrus.FieldLogger, opts ...Option) *Checker {
	c := &Checker{
		snapshotter: s,
		thresholds:  th.WithDefaults(),
		segmenter:   serp.NewSegmenter(serp.Containers{}, nil),
		throttle:    throttle.None(),
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// plan is a validated request with its engine and target.
type plan struct {
	req    Request
	engine *serp.Engine
	target serp.Target
}

func (c *Checker) prepare(req Request) (plan, error) {
	req = req.withDefaults()
	if req.Keyword == "" {
		return plan{}, errors.New("keyword is required")
	}
	if _, ok := tabLabels[req.Tab]; !ok {
		return plan{}, fmt.Errorf("unknown tab %q", req.Tab)
	}
	switch {
	case len(req.Nicknames) > 0:
		target := serp.NewTarget(serp.MatchExact, req.Nicknames...)
		if target.Empty() {
			return plan{}, errors.New("nicknames are empty after normalization")
		}
		return plan{req: req, engine: serp.NewEngine(c.thresholds, serp.NicknameVariant), target: target}, nil
	case strings.TrimSpace(req.Snippet) != "":
		target := serp.NewTarget(serp.MatchContains, req.Snippet)
		if target.Empty() {
			return plan{}, errors.New("snippet is empty after normalization")
		}
		return plan{req: req, engine: serp.NewEngine(c.thresholds, serp.SnippetVariant), target: target}, nil
	}
	return plan{}, errors.New("either a snippet or nicknames are required")
}

// Check runs the tab rank and the integrated-page exposure checks
// concurrently. A failing branch falls back to rank 0 or not exposed without
// cancelling the other; the result fails only when both branches fail.
func (c *Checker) Check(ctx context.Context, req Request) RankResult {
	p, err := c.prepare(req)
	if err != nil {
		return c.finish(RankResult{Keyword: req.Keyword, Message: err.Error()})
	}

	var (
		best            serp.RankEntry
		exposed         bool
		rankErr, expErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		best, rankErr = c.tabRank(ctx, p)
		return nil
	})
	g.Go(func() error {
		exposed, expErr = c.exposure(ctx, p)
		return nil
	})
	_ = g.Wait()

	return c.combine(p, best, exposed, rankErr, expErr)
}

// checkSequential is Check without fan-out, pausing between the two
// captures of the keyword.
func (c *Checker) checkSequential(ctx context.Context, p plan) RankResult {
	best, rankErr := c.tabRank(ctx, p)
	var (
		exposed bool
		expErr  error
	)
	if err := c.throttle.SameKeyword(ctx); err != nil {
		expErr = err
	} else {
		exposed, expErr = c.exposure(ctx, p)
	}
	return c.combine(p, best, exposed, rankErr, expErr)
}

func (c *Checker) combine(p plan, best serp.RankEntry, exposed bool, rankErr, expErr error) RankResult {
	res := RankResult{
		Success: rankErr == nil || expErr == nil,
		Keyword: p.req.Keyword,
		Exposed: exposed,
	}
	if best.Rank > 0 {
		res.Rank = best.Rank
		res.Title = best.Title
		res.Author = best.Author
		res.Date = best.Date
		if t, ok := serp.ParseDate(best.Date, c.now()); ok {
			res.PostedOn = t.Format("2006-01-02")
		}
		res.URL = best.URL
		res.Section = best.Section
	}

	var msgs []string
	if rankErr != nil {
		msgs = append(msgs, "tab rank: "+rankErr.Error())
	}
	if expErr != nil {
		msgs = append(msgs, "exposure: "+expErr.Error())
	}
	if len(msgs) == 0 && res.Rank == 0 {
		msgs = append(msgs, fmt.Sprintf("not ranked within top %d", c.thresholds.MaxDepth))
	}
	res.Message = strings.Join(msgs, "; ")

	if rankErr != nil || expErr != nil {
		c.logger.WithFields(logrus.Fields{
			"keyword":  p.req.Keyword,
			"device":   p.req.Device,
			"rank_err": rankErr,
			"exp_err":  expErr,
		}).Warn("rank check degraded")
	}
	return c.finish(res)
}

func (c *Checker) finish(res RankResult) RankResult {
	switch {
	case !res.Success:
		c.metrics.ObserveCheck(metrics.OutcomeFailed)
	case res.Rank > 0:
		c.metrics.ObserveCheck(metrics.OutcomeRanked)
	default:
		c.metrics.ObserveCheck(metrics.OutcomeUnranked)
	}
	return res
}

func (c *Checker) tabRank(ctx context.Context, p plan) (serp.RankEntry, error) {
	url, err := config.SearchURL(p.req.Device, p.req.Tab, p.req.Keyword)
	if err != nil {
		return serp.RankEntry{}, err
	}
	snap, err := c.capture(ctx, url)
	if err != nil {
		return serp.RankEntry{}, err
	}
	best, _ := p.engine.Rank(snap.Elements, p.target)
	if best.Rank > 0 {
		best.Section = tabLabels[p.req.Tab]
	}
	return best, nil
}

func (c *Checker) exposure(ctx context.Context, p plan) (bool, error) {
	url, err := config.SearchURL(p.req.Device, "integrated", p.req.Keyword)
	if err != nil {
		return false, err
	}
	snap, err := c.capture(ctx, url)
	if err != nil {
		return false, err
	}
	best, _ := p.engine.Rank(snap.Elements, p.target)
	return best.Rank > 0, nil
}

// capture takes one snapshot, rejecting block pages.
func (c *Checker) capture(ctx context.Context, url string) (*serp.Snapshot, error) {
	if err := c.throttle.Acquire(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	snap, err := c.snapshotter.Capture(ctx, url)
	switch {
	case err != nil:
		c.metrics.ObserveCapture(time.Since(start), metrics.CaptureError)
		return nil, err
	case IsBlocked(snap.HTML):
		c.metrics.ObserveCapture(time.Since(start), metrics.CaptureBlocked)
		return nil, ErrBlocked
	}
	c.metrics.ObserveCapture(time.Since(start), metrics.CaptureOK)
	return snap, nil
}

// Sections outlines the integrated result page of keyword in both modes.
func (c *Checker) Sections(ctx context.Context, keyword, device string) (SectionsResult, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return SectionsResult{}, errors.New("keyword is required")
	}
	if device == "" {
		device = "pc"
	}
	url, err := config.SearchURL(device, "integrated", keyword)
	if err != nil {
		return SectionsResult{}, err
	}

	return cache.Memoize(ctx, c.cache, cache.Key("sections", device, keyword), func() (SectionsResult, error) {
		snap, err := c.capture(ctx, url)
		if err != nil {
			return SectionsResult{}, err
		}
		res, err := c.Outline(snap.HTML)
		if err != nil {
			return SectionsResult{}, err
		}
		res.Keyword, res.Device = keyword, device
		return res, nil
	})
}

// Outline segments already captured markup.
func (c *Checker) Outline(html string) (SectionsResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return SectionsResult{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	res := SectionsResult{
		Sections: c.segmenter.FromDocument(doc),
		Patterns: c.segmenter.FromHTML(html),
	}
	res.OnlyDOM, res.OnlyPattern = serp.Divergence(res.Sections, res.Patterns)
	return res, nil
}
