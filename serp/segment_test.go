package serp

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBlocks(t *testing.T) {
	blocks := []Block{
		{Text: "정렬 기간"},
		{Text: "숨김 영역", Heading: "블로그", Hidden: true},
		{Text: "'부천치아교정' 관련 광고 광고 링크1 링크2", Class: "sc_new sp_power", Heading: "'부천치아교정' 관련 광고", AdLines: 2},
		{Text: "플레이스 지도 보기", Class: "sc_new sp_local", Heading: "플레이스"},
		{Text: "VIEW 글1 글2", Class: "sc_new sp_nreview", Heading: "VIEW"},
		{Text: "연관검색어 부천교정 부천치과 신고 도움말", Links: []string{"부천교정", "부천치과", "신고", "도움말", "부천교정"}},
		{Text: "함께 많이 찾는 키워드 a b", Links: []string{"a", "b"}},
		{Text: "VIEW 더보기", Class: "sc_new sp_nreview", Heading: "VIEW"},
		{Text: "검색 결과 도움말", Heading: "도움말"},
		{Text: "지식백과 용어", Class: "sc_new sp_dic", Heading: "지식백과"},
		{Text: "사이드 파워링크", Class: "ad_section", Heading: "파워링크", IsSide: true, AdLines: 3},
	}

	got := NewSegmenter(Containers{}, nil).FromBlocks(blocks)

	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{SectionPowerLink, SectionPlace, "VIEW", SectionRelated, "함께 많이 찾는", SectionDictionary, SectionPowerLink}, names)

	ad := got[0]
	assert.True(t, ad.IsAd)
	assert.Equal(t, 2, ad.Count)
	assert.Equal(t, "'부천치아교정' 관련 광고", ad.SubName)

	related := got[3]
	assert.Equal(t, []string{"부천교정", "부천치과"}, related.SubItems)
	assert.Equal(t, 2, related.Count)

	side := got[6]
	assert.True(t, side.IsSide)
	assert.Empty(t, side.SubName)
	assert.Equal(t, 3, side.Count)

	seen := map[sectionKey]bool{}
	for _, s := range got {
		key := sectionKey{s.Name, s.SubName}
		require.False(t, seen[key], "duplicate section %v", key)
		seen[key] = true
	}
}

func TestFromBlocksAdLabel(t *testing.T) {
	blocks := []Block{
		{Text: "비즈사이트 광고 업체1", Heading: "비즈사이트", Labels: []string{"광고"}, AdLines: 1},
	}
	got := NewSegmenter(Containers{}, nil).FromBlocks(blocks)
	require.Len(t, got, 1)
	assert.Equal(t, "비즈사이트", got[0].Name)
	assert.True(t, got[0].IsAd)
}

func TestFromBlocksRawHeading(t *testing.T) {
	got := NewSegmenter(Containers{}, nil).FromBlocks([]Block{
		{Text: "요즘 뜨는 치과 이야기 본문", Heading: "요즘 뜨는 치과 이야기"},
		{Text: "본문만 있음"},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "요즘 뜨는 치과 이야기", got[0].Name)
}

const samplePage = `<html><body>
<div id="main_pack">
  <section class="sc_new sp_power"><div class="api_subject_bx"><h2>'부천치아교정' 관련 광고</h2>
    <ul><li><a href="#">치과1</a></li><li><a href="#">치과2</a></li><li>설명</li></ul></div></section>
  <div class="option_area">정렬 기간</div>
  <section class="sc_new sp_nreview"><h2 class="api_title">VIEW</h2><a href="#">글1</a></section>
  <section class="sc_new sp_blog" aria-hidden="true"><h2>블로그</h2></section>
  <section class="sc_new sp_kin" style="display: none"><h2>지식iN</h2></section>
  <div class="related_srch"><strong class="title">연관검색어</strong>
    <a href="#">부천교정</a><a href="#">부천치과</a><a href="#">신고</a></div>
</div>
<div id="sub_pack">
  <section class="sc_new sp_website"><h2>웹사이트</h2><ul><li><a href="#">사이트</a></li></ul></section>
</div>
</body></html>`

func TestFromDocument(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(samplePage))
	require.NoError(t, err)

	got := NewSegmenter(Containers{}, nil).FromDocument(doc)
	require.Len(t, got, 4)

	assert.Equal(t, SectionPowerLink, got[0].Name)
	assert.Equal(t, 2, got[0].Count)
	assert.True(t, got[0].IsAd)
	assert.Equal(t, "VIEW", got[1].Name)
	assert.Equal(t, SectionRelated, got[2].Name)
	assert.Equal(t, []string{"부천교정", "부천치과"}, got[2].SubItems)
	assert.Equal(t, SectionWebsite, got[3].Name)
	assert.True(t, got[3].IsSide)
}

func TestFromHTML(t *testing.T) {
	got := NewSegmenter(Containers{}, nil).FromHTML(samplePage)

	var names []string
	for _, s := range got {
		names = append(names, s.Name)
	}
	// pattern mode also reports the hidden blog and kin sections
	assert.Equal(t, []string{SectionPowerLink, "VIEW", "블로그", "지식iN", SectionRelated, SectionWebsite}, names)
	assert.True(t, got[0].IsAd)

	assert.Empty(t, NewSegmenter(Containers{}, nil).FromHTML("<html></html>"))
}

func TestDivergence(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(samplePage))
	require.NoError(t, err)
	s := NewSegmenter(Containers{}, nil)

	onlyDOM, onlyPattern := Divergence(s.FromDocument(doc), s.FromHTML(samplePage))
	assert.Empty(t, onlyDOM)
	assert.Equal(t, []string{"블로그", "지식iN"}, onlyPattern)
}

func TestGetTextContent(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div id="x">첫 줄<br>둘째 <b>줄</b><script>var a;</script></div>`))
	require.NoError(t, err)
	assert.Equal(t, "첫 줄\n둘째 줄", GetTextContent(doc.Find("#x")))
}
