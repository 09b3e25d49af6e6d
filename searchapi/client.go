// Package searchapi queries the open search API for result totals and a
// newest-first sample of items per content kind.
package searchapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"serprank/config"
)

// ErrStatus is wrapped by errors for non-2xx API responses.
var ErrStatus = errors.New("unexpected search API status")

// Kind is a searchable content type.
type Kind string

const (
	KindBlog Kind = "blog"
	KindCafe Kind = "cafearticle"
	KindKin  Kind = "kin"
	KindNews Kind = "news"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{KindBlog, KindCafe, KindKin, KindNews}

// ParseKind accepts the API names and the short aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blog":
		return KindBlog, nil
	case "cafe", "cafearticle":
		return KindCafe, nil
	case "kin", "qna":
		return KindKin, nil
	case "news":
		return KindNews, nil
	}
	return "", fmt.Errorf("unknown content kind %q", s)
}

// Item is one search API result. Only the fields of the item's kind are set.
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	BloggerName string `json:"bloggername,omitempty"`
	PostDate    string `json:"postdate,omitempty"`
	CafeName    string `json:"cafename,omitempty"`
	PubDate     string `json:"pubDate,omitempty"`
}

// Response is one page of search API results.
type Response struct {
	Total   int    `json:"total"`
	Start   int    `json:"start"`
	Display int    `json:"display"`
	Items   []Item `json:"items"`
}

// DateOf returns the date extractor for items of kind. Kinds without a
// publication date always report false.
func DateOf(kind Kind) func(Item) (time.Time, bool) {
	switch kind {
	case KindBlog:
		return func(it Item) (time.Time, bool) {
			t, err := time.ParseInLocation("20060102", it.PostDate, seoul)
			return t, err == nil
		}
	case KindNews:
		return func(it Item) (time.Time, bool) {
			t, err := time.Parse(time.RFC1123Z, it.PubDate)
			return t, err == nil
		}
	}
	return func(Item) (time.Time, bool) { return time.Time{}, false }
}

var seoul = time.FixedZone("KST", 9*60*60)

// Client calls the search API.
type Client struct {
	http    *resty.Client
	display int
}

// New returns a client authenticated with the configured application keys.
func New(cfg config.SearchAPIConfig) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("X-Naver-Client-Id", cfg.ClientID)
	client.SetHeader("X-Naver-Client-Secret", cfg.ClientSecret)

	display := cfg.Display
	if display <= 0 || display > 100 {
		display = 100
	}
	return &Client{http: client, display: display}
}

// Search returns the total and the newest items for query.
func (c *Client) Search(ctx context.Context, kind Kind, query string) (*Response, error) {
	var out Response
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":   query,
			"display": strconv.Itoa(c.display),
			"start":   "1",
			"sort":    "date",
		}).
		SetResult(&out).
		Get("/" + string(kind) + ".json")
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %w: %d %s", kind, ErrStatus, res.StatusCode(), strings.TrimSpace(res.String()))
	}
	return &out, nil
}
