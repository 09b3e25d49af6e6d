// Package browser renders result pages in pooled headless Chrome tabs.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"serprank/config"
)

// ErrPoolTimeout is returned when no browser context frees up in time.
var ErrPoolTimeout = errors.New("timeout getting browser context from pool")

// Pool manages a pool of browser contexts for reuse
type Pool struct {
	cfg    config.BrowserConfig
	logger logrus.FieldLogger

	contexts    chan context.Context
	cancelFuncs map[context.Context]context.CancelFunc

	mu            sync.Mutex
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	initialized   bool
	currentSize   int
	scaleUpCount  int       // consecutive scale up events
	scaleDownTime time.Time // last time we scaled down
	waitQueue     int
	done          chan struct{}

	blueMargin int
}

// Option customizes a Pool.
type Option func(*Pool)

// WithBlueMargin sets the colour margin used to flag blue text.
func WithBlueMargin(margin int) Option {
	return func(p *Pool) { p.blueMargin = margin }
}

// New creates a pool; browsers start on first use.
func New(cfg config.BrowserConfig, logger logrus.FieldLogger, opts ...Option) *Pool {
	if cfg.MaxSize < 1 {
		cfg.MaxSize = 1
	}
	if cfg.MinSize > cfg.MaxSize {
		cfg.MinSize = cfg.MaxSize
	}
	p := &Pool{
		cfg:         cfg,
		logger:      logger,
		contexts:    make(chan context.Context, cfg.MaxSize),
		cancelFuncs: make(map[context.Context]context.CancelFunc),
		blueMargin:  40,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize starts the shared allocator and the minimum number of browsers.
func (p *Pool) Initialize() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("lang", "ko-KR"),
		chromedp.WindowSize(p.cfg.Width, p.cfg.Height),
		chromedp.UserAgent(p.cfg.UserAgent),
	)
	p.allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	p.done = make(chan struct{})

	p.scaleUp(p.cfg.MinSize)
	go p.autoScaler(p.done)

	p.initialized = true
	p.logger.WithFields(logrus.Fields{
		"size": p.currentSize,
		"min":  p.cfg.MinSize,
		"max":  p.cfg.MaxSize,
	}).Info("browser pool initialized")
}

// newBrowser starts one browser tab. Callers hold p.mu.
func (p *Pool) newBrowser(timeout time.Duration) (context.Context, context.CancelFunc, error) {
	ctx, cancel := chromedp.NewContext(p.allocCtx, chromedp.WithLogf(p.logger.Debugf))

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			go func() {
				_ = chromedp.Run(ctx, page.HandleJavaScriptDialog(false))
			}()
		}
	})

	initCtx, initCancel := context.WithTimeout(ctx, timeout)
	defer initCancel()
	if err := chromedp.Run(initCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, nil, err
	}
	return ctx, cancel, nil
}

// scaleUp adds n browser instances to the pool. Callers hold p.mu.
func (p *Pool) scaleUp(n int) {
	added := 0
	for i := 0; i < n && p.currentSize < p.cfg.MaxSize; i++ {
		ctx, cancel, err := p.newBrowser(p.cfg.Timeout)
		if err != nil {
			p.logger.WithError(err).Warn("failed to start browser")
			continue
		}
		p.contexts <- ctx
		p.cancelFuncs[ctx] = cancel
		p.currentSize++
		added++
	}
	if added > 0 {
		p.logger.WithFields(logrus.Fields{"added": added, "size": p.currentSize}).Debug("scaled up browser pool")
	}
}

// scaleDown removes up to n idle browsers, never going below MinSize.
// Callers hold p.mu.
func (p *Pool) scaleDown(n int) {
	n = min(n, p.currentSize-p.cfg.MinSize)
	removed := 0
drain:
	for removed < n {
		select {
		case ctx := <-p.contexts:
			p.discard(ctx)
			removed++
		default:
			break drain
		}
	}
	if removed > 0 {
		p.scaleDownTime = time.Now()
		p.logger.WithFields(logrus.Fields{"removed": removed, "size": p.currentSize}).Debug("scaled down browser pool")
	}
}

// discard closes a browser. Callers hold p.mu.
func (p *Pool) discard(ctx context.Context) {
	if cancel, ok := p.cancelFuncs[ctx]; ok {
		cancel()
		delete(p.cancelFuncs, ctx)
		p.currentSize--
	}
}

// autoScaler periodically resizes the pool to the observed demand.
func (p *Pool) autoScaler(done <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		p.mu.Lock()
		size := p.currentSize
		available := len(p.contexts)
		waiting := p.waitQueue

		utilization := 0
		if size > 0 {
			utilization = 100 * (size - available) / size
		}

		if (utilization > 80 || waiting > 0) && size < p.cfg.MaxSize {
			toAdd := max(1, min(waiting, p.cfg.MaxSize-size))
			p.scaleUpCount++
			if p.scaleUpCount > 3 {
				toAdd = min(toAdd*2, p.cfg.MaxSize-size)
			}
			p.scaleUp(toAdd)
		} else {
			p.scaleUpCount = 0
		}

		if utilization < 30 && size > p.cfg.MinSize && time.Since(p.scaleDownTime) > 2*time.Minute {
			// keep a fifth of the pool idle as buffer
			excess := available - max(1, size/5)
			if excess > 0 {
				p.scaleDown(excess)
			}
		}
		p.mu.Unlock()
	}
}

// Acquire takes a browser context from the pool, starting a new one when the
// pool is busy and below MaxSize. release must be called exactly once.
func (p *Pool) Acquire(ctx context.Context) (context.Context, func(), error) {
	p.Initialize()

	p.mu.Lock()
	p.waitQueue++
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.waitQueue--
		p.mu.Unlock()
	}()

	select {
	case bctx := <-p.contexts:
		return bctx, p.releaser(bctx), nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-time.After(500 * time.Millisecond):
	}

	p.mu.Lock()
	if p.currentSize < p.cfg.MaxSize {
		bctx, cancel, err := p.newBrowser(5 * time.Second)
		if err != nil {
			p.mu.Unlock()
			return nil, nil, fmt.Errorf("failed to create new browser instance: %w", err)
		}
		p.cancelFuncs[bctx] = cancel
		p.currentSize++
		p.mu.Unlock()
		return bctx, p.releaser(bctx), nil
	}
	p.mu.Unlock()

	wait := time.NewTimer(p.cfg.Timeout)
	defer wait.Stop()
	select {
	case bctx := <-p.contexts:
		return bctx, p.releaser(bctx), nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-wait.C:
		return nil, nil, ErrPoolTimeout
	}
}

// releaser resets a browser and returns it to the pool; browsers that fail
// the reset are closed instead.
func (p *Pool) releaser(bctx context.Context) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			refreshCtx, cancel := context.WithTimeout(bctx, 3*time.Second)
			err := chromedp.Run(refreshCtx,
				network.ClearBrowserCookies(),
				emulation.ClearDeviceMetricsOverride(),
				emulation.SetUserAgentOverride(p.cfg.UserAgent),
				chromedp.Navigate("about:blank"),
			)
			cancel()

			p.mu.Lock()
			defer p.mu.Unlock()
			if err != nil || !p.initialized {
				p.discard(bctx)
				return
			}
			select {
			case p.contexts <- bctx:
			default:
				p.discard(bctx)
			}
		})
	}
}

// Stats reports the pool size, idle browsers and waiting callers.
func (p *Pool) Stats() (size, idle, waiting int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentSize, len(p.contexts), p.waitQueue
}

// Shutdown closes all browser instances.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	close(p.done)

	for ctx, cancel := range p.cancelFuncs {
		cancel()
		delete(p.cancelFuncs, ctx)
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	for len(p.contexts) > 0 {
		<-p.contexts
	}

	p.currentSize = 0
	p.initialized = false
	p.logger.Info("browser pool shut down")
}
