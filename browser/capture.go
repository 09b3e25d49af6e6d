package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"serprank/serp"
)

// collectScript lists every element carrying direct text with its geometry
// and computed style.
const collectScript = `(() => {
  const out = [];
  const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_ELEMENT);
  let node;
  while ((node = walker.nextNode())) {
    if (node.closest('script, style, noscript, template')) continue;
    let text = '';
    for (const c of node.childNodes) {
      if (c.nodeType === Node.TEXT_NODE) text += c.textContent;
    }
    text = text.replace(/\s+/g, ' ').trim();
    if (!text) continue;
    const rect = node.getBoundingClientRect();
    const style = getComputedStyle(node);
    const link = node.closest('a[href]');
    out.push({
      text: text,
      x: rect.left,
      y: rect.top,
      fontSize: style.fontSize,
      fontWeight: style.fontWeight,
      color: style.color,
      href: link ? link.href : '',
      visible: rect.width > 0 && rect.height > 0 &&
        style.display !== 'none' && style.visibility !== 'hidden' &&
        !node.closest('[aria-hidden="true"]'),
    });
  }
  return out;
})()`

// rawElement is one record produced by collectScript.
type rawElement struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FontSize   string  `json:"fontSize"`
	FontWeight string  `json:"fontWeight"`
	Color      string  `json:"color"`
	Href       string  `json:"href"`
	Visible    bool    `json:"visible"`
}

func toVisibleElements(raw []rawElement, blueMargin int) []serp.VisibleElement {
	out := make([]serp.VisibleElement, 0, len(raw))
	for _, r := range raw {
		out = append(out, serp.NewVisibleElement(r.Text, r.X, r.Y, serp.RawStyle{
			FontSize:   r.FontSize,
			FontWeight: r.FontWeight,
			Color:      r.Color,
		}, r.Href, r.Visible, blueMargin))
	}
	return out
}

// isMobileURL reports whether the page belongs to the mobile site.
func isMobileURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Hostname(), "m.")
}

// Capture implements serp.Snapshotter: it renders url in a pooled browser
// and returns the visible elements and the page markup. The browser is
// returned to the pool on every path.
func (p *Pool) Capture(ctx context.Context, pageURL string) (*serp.Snapshot, error) {
	bctx, release, err := p.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get browser context: %w", err)
	}
	defer release()

	runCtx, cancel := context.WithTimeout(bctx, p.cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var actions []chromedp.Action
	if isMobileURL(pageURL) {
		actions = append(actions,
			emulation.SetUserAgentOverride(p.cfg.MobileUserAgent),
			emulation.SetDeviceMetricsOverride(390, 844, 3, true),
		)
	}

	var (
		raw  []rawElement
		html string
	)
	actions = append(actions,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(p.cfg.Settle),
		chromedp.Evaluate(collectScript, &raw),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", pageURL, err)
	}

	snap := &serp.Snapshot{
		URL:      pageURL,
		Elements: toVisibleElements(raw, p.blueMargin),
		HTML:     html,
	}
	p.logger.WithFields(logrus.Fields{
		"url":      pageURL,
		"elements": len(snap.Elements),
	}).Debug("captured page")
	return snap, nil
}
