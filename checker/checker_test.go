package checker

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serprank/config"
	"serprank/logging"
	"serprank/metrics"
	"serprank/serp"
	"serprank/throttle"
)

// fakeSnapshotter serves canned snapshots keyed by the where parameter.
type fakeSnapshotter struct {
	mu    sync.Mutex
	pages map[string]*serp.Snapshot
	errs  map[string]error
	calls []string
}

func (f *fakeSnapshotter) Capture(_ context.Context, raw string) (*serp.Snapshot, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	where := u.Query().Get("where")

	f.mu.Lock()
	f.calls = append(f.calls, u.Query().Get("query")+"/"+where)
	f.mu.Unlock()

	if err := f.errs[where]; err != nil {
		return nil, err
	}
	if snap, ok := f.pages[where]; ok {
		return snap, nil
	}
	return &serp.Snapshot{URL: raw}, nil
}

func title(text string, y float64) serp.VisibleElement {
	return serp.VisibleElement{Text: text, Y: y, X: 20, FontSize: 17, ColorIsBlue: true, HasHref: true, Href: "https://blog.example/" + text, Visible: true}
}

func date(text string, y float64) serp.VisibleElement {
	return serp.VisibleElement{Text: text, Y: y, X: 20, FontSize: 13, Visible: true}
}

func blogTab() *serp.Snapshot {
	return &serp.Snapshot{Elements: []serp.VisibleElement{
		title("부천 치아교정 잘하는 곳 후기", 100),
		date("2024.09.04", 140),
		title("강남 임플란트 가격 총정리", 300),
		date("3일 전", 330),
	}}
}

func integrated() *serp.Snapshot {
	return &serp.Snapshot{Elements: []serp.VisibleElement{
		title("강남 임플란트 가격 총정리", 500),
		date("3일 전", 530),
	}}
}

func newChecker(f *fakeSnapshotter, opts ...Option) *Checker {
	return New(f, serp.Thresholds{}, logging.Discard(), opts...)
}

func TestCheck(t *testing.T) {
	f := &fakeSnapshotter{pages: map[string]*serp.Snapshot{"blog": blogTab(), "nexearch": integrated()}}
	c := newChecker(f, WithMetrics(metrics.New()))
	c.now = func() time.Time { return time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC) }

	res := c.Check(context.Background(), Request{Keyword: "임플란트", Snippet: "임플란트 가격"})
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Rank)
	assert.Equal(t, "강남 임플란트 가격 총정리", res.Title)
	assert.Equal(t, "3일 전", res.Date)
	assert.Equal(t, "2024-09-07", res.PostedOn)
	assert.Equal(t, "블로그", res.Section)
	assert.True(t, res.Exposed)
	assert.Empty(t, res.Message)

	assert.ElementsMatch(t, []string{"임플란트/blog", "임플란트/nexearch"}, f.calls)
}

func TestCheckBranchFailure(t *testing.T) {
	f := &fakeSnapshotter{
		pages: map[string]*serp.Snapshot{"blog": blogTab()},
		errs:  map[string]error{"nexearch": errors.New("render timeout")},
	}
	res := newChecker(f).Check(context.Background(), Request{Keyword: "임플란트", Snippet: "임플란트 가격"})
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Rank)
	assert.False(t, res.Exposed)
	assert.Contains(t, res.Message, "exposure: render timeout")
}

func TestCheckBlocked(t *testing.T) {
	blocked := &serp.Snapshot{HTML: "<html>자동입력 방지 문자를 입력해 주세요</html>"}
	f := &fakeSnapshotter{pages: map[string]*serp.Snapshot{"blog": blocked, "nexearch": blocked}}

	res := newChecker(f).Check(context.Background(), Request{Keyword: "임플란트", Snippet: "임플란트 가격"})
	assert.False(t, res.Success)
	assert.Zero(t, res.Rank)
	assert.Contains(t, res.Message, ErrBlocked.Error())
}

func TestCheckInvalidRequest(t *testing.T) {
	c := newChecker(&fakeSnapshotter{})

	res := c.Check(context.Background(), Request{Keyword: "임플란트"})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)

	res = c.Check(context.Background(), Request{Snippet: "임플란트"})
	assert.False(t, res.Success)

	res = c.Check(context.Background(), Request{Keyword: "임플란트", Snippet: "x", Tab: "shorts"})
	assert.False(t, res.Success)
}

func TestCheckNotRanked(t *testing.T) {
	f := &fakeSnapshotter{pages: map[string]*serp.Snapshot{"blog": blogTab()}}
	res := newChecker(f).Check(context.Background(), Request{Keyword: "라식", Snippet: "서울 라식"})
	assert.True(t, res.Success)
	assert.Zero(t, res.Rank)
	assert.Empty(t, res.Section)
	assert.Contains(t, res.Message, "not ranked within top 30")
}

type sleepLog struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return nil
}

func TestCheckBatchPacing(t *testing.T) {
	f := &fakeSnapshotter{pages: map[string]*serp.Snapshot{"blog": blogTab(), "nexearch": integrated()}}
	sl := &sleepLog{}
	th := throttle.New(config.ThrottleConfig{
		SameKeywordDelay: 800 * time.Millisecond,
		KeywordJitterMin: 2 * time.Second,
		KeywordJitterMax: 2 * time.Second,
	}, throttle.WithSleep(sl.sleep))
	c := newChecker(f, WithThrottle(th))

	var streamed []string
	results, err := c.CheckBatch(context.Background(), Request{Snippet: "임플란트 가격"}, []string{"a", "", "c"}, func(r RankResult) {
		streamed = append(streamed, r.Keyword)
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "", "c"}, streamed)

	assert.True(t, results[0].Success)
	assert.Equal(t, 2, results[0].Rank)
	assert.False(t, results[1].Success, "empty keyword is reported, not fatal")
	assert.True(t, results[2].Success)

	// keyword a, pause, empty keyword, pause, keyword c
	assert.Equal(t, []time.Duration{
		800 * time.Millisecond,
		2 * time.Second,
		2 * time.Second,
		800 * time.Millisecond,
	}, sl.waits)
	assert.Equal(t, []string{"a/blog", "a/nexearch", "c/blog", "c/nexearch"}, f.calls)
}

func TestCheckBatchStopsScheduling(t *testing.T) {
	f := &fakeSnapshotter{pages: map[string]*serp.Snapshot{"blog": blogTab()}}
	c := newChecker(f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results, err := c.CheckBatch(ctx, Request{Snippet: "임플란트 가격"}, []string{"a", "b", "c"}, func(RankResult) {
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Keyword)
}

func TestCheckNicknameBatch(t *testing.T) {
	nicknameTab := &serp.Snapshot{Elements: []serp.VisibleElement{
		{Text: "치과맘", X: 80, Y: 80, FontSize: 13, Visible: true},
		date("3일 전", 80),
		{Text: "부천 치아교정 후기", X: 20, Y: 110, FontSize: 17, Visible: true},
	}}
	f := &fakeSnapshotter{pages: map[string]*serp.Snapshot{"m_blog": nicknameTab}}
	c := newChecker(f)

	results, err := c.CheckNicknameBatch(context.Background(), []string{"치과 맘"}, []string{"부천치아교정"}, "mobile", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "치과맘", results[0].Author)
	assert.False(t, results[0].Exposed)
}

const sectionPage = `<html><body><div id="main_pack">
<section class="sc_new sp_power"><h2>파워링크</h2><ul><li><a href="#">광고1</a></li></ul></section>
<section class="sc_new sp_nreview"><h2>VIEW</h2></section>
<section class="sc_new sp_blog" style="display:none"><h2>블로그</h2></section>
</div></body></html>`

func TestSections(t *testing.T) {
	f := &fakeSnapshotter{pages: map[string]*serp.Snapshot{"m": {HTML: sectionPage}}}
	c := newChecker(f)

	res, err := c.Sections(context.Background(), " 치과 ", "mobile")
	require.NoError(t, err)
	assert.Equal(t, "치과", res.Keyword)
	assert.Equal(t, "mobile", res.Device)
	require.Len(t, res.Sections, 2)
	assert.Equal(t, serp.SectionPowerLink, res.Sections[0].Name)
	assert.Equal(t, 1, res.Sections[0].Count)
	assert.Equal(t, []string{"블로그"}, res.OnlyPattern)

	_, err = c.Sections(context.Background(), "", "pc")
	assert.Error(t, err)
	_, err = c.Sections(context.Background(), "치과", "watch")
	assert.Error(t, err)
}

func TestIsBlocked(t *testing.T) {
	assert.True(t, IsBlocked("Our systems have detected unusual traffic"))
	assert.True(t, IsBlocked("<div>CAPTCHA</div>"))
	assert.False(t, IsBlocked("<div>검색 결과</div>"))
}
