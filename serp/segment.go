package serp

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/exp/slices"
)

// SectionPattern labels a section by the first place its pattern matches in
// raw HTML.
type SectionPattern struct {
	Name    string
	Pattern *regexp.Regexp
	IsAd    bool
}

// DefaultPatterns detect the result page sections from static HTML, for
// comparisons where nothing was rendered.
var DefaultPatterns = []SectionPattern{
	{Name: SectionPowerLink, Pattern: regexp.MustCompile(`class="[^"]*(?:sp_power|power_link|powerlink)`), IsAd: true},
	{Name: "비즈사이트", Pattern: regexp.MustCompile(`class="[^"]*(?:sp_bizsite|biz_site)`), IsAd: true},
	{Name: "브랜드검색", Pattern: regexp.MustCompile(`class="[^"]*(?:sp_brand|brand_search)`), IsAd: true},
	{Name: SectionPlace, Pattern: regexp.MustCompile(`class="[^"]*(?:sp_local|sp_place|place_section)`)},
	{Name: "VIEW", Pattern: regexp.MustCompile(`class="[^"]*(?:sp_nreview|sp_view)`)},
	{Name: "인플루언서", Pattern: regexp.MustCompile(`class="[^"]*sp_influencer`)},
	{Name: "블로그", Pattern: regexp.MustCompile(`class="[^"]*sp_blog`)},
	{Name: "카페", Pattern: regexp.MustCompile(`class="[^"]*sp_cafe`)},
	{Name: "지식iN", Pattern: regexp.MustCompile(`class="[^"]*sp_kin`)},
	{Name: "뉴스", Pattern: regexp.MustCompile(`class="[^"]*sp_n?news`)},
	{Name: "이미지", Pattern: regexp.MustCompile(`class="[^"]*sp_image`)},
	{Name: "동영상", Pattern: regexp.MustCompile(`class="[^"]*sp_video`)},
	{Name: "쇼핑", Pattern: regexp.MustCompile(`class="[^"]*sp_shop`)},
	{Name: SectionWebsite, Pattern: regexp.MustCompile(`class="[^"]*sp_website`)},
	{Name: SectionDictionary, Pattern: regexp.MustCompile(`class="[^"]*(?:sp_dic|sp_encyclopedia)`)},
	{Name: SectionRelated, Pattern: regexp.MustCompile(`class="[^"]*related_srch|>연관\s*검색어<`)},
	{Name: "함께 많이 찾는", Pattern: regexp.MustCompile(`함께 많이 찾는`)},
	{Name: "함께 보면 좋은", Pattern: regexp.MustCompile(`함께 보면 좋은`)},
	{Name: "건강·의학 인기글", Pattern: regexp.MustCompile(`건강·의학 인기글`)},
}

// Containers locate the result columns in a page.
type Containers struct {
	Main string `yaml:"main" json:"main"`
	Side string `yaml:"side" json:"side"`
}

// DefaultContainers match the PC and mobile result pages.
var DefaultContainers = Containers{
	Main: "#main_pack, #ct",
	Side: "#sub_pack",
}

// Segmenter outlines a result page. FromBlocks/FromDocument work on the
// rendered structure, FromHTML on the raw markup; the two are independent and
// may disagree on ambiguous markup, see Divergence.
type Segmenter struct {
	containers Containers
	patterns   []SectionPattern
}

// NewSegmenter returns a segmenter. Empty arguments select the defaults.
func NewSegmenter(containers Containers, patterns []SectionPattern) *Segmenter {
	if containers.Main == "" {
		containers.Main = DefaultContainers.Main
	}
	if containers.Side == "" {
		containers.Side = DefaultContainers.Side
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	return &Segmenter{containers: containers, patterns: patterns}
}

// FromBlocks classifies blocks in order and keeps the first section for every
// (name, subName) pair on the page.
func (s *Segmenter) FromBlocks(blocks []Block) []SectionItem {
	seen := make(map[sectionKey]struct{})
	out := []SectionItem{}
	for _, b := range blocks {
		item, ok := classifyBlock(b)
		if !ok {
			continue
		}
		out = appendSection(out, seen, item)
	}
	return out
}

// FromDocument segments a parsed page: main column first, then the side column.
func (s *Segmenter) FromDocument(doc *goquery.Document) []SectionItem {
	return s.FromBlocks(BlocksFromDocument(doc, s.containers))
}

// FromHTML segments raw markup by the first offset of each pattern.
func (s *Segmenter) FromHTML(html string) []SectionItem {
	type hit struct {
		item   SectionItem
		offset int
	}
	var hits []hit
	for _, p := range s.patterns {
		locs := p.Pattern.FindAllStringIndex(html, -1)
		if len(locs) == 0 {
			continue
		}
		hits = append(hits, hit{
			item:   SectionItem{Name: p.Name, Count: len(locs), IsAd: p.IsAd},
			offset: locs[0][0],
		})
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return a.offset - b.offset })

	out := []SectionItem{}
	for _, h := range hits {
		if slices.ContainsFunc(out, func(it SectionItem) bool { return it.Name == h.item.Name }) {
			continue
		}
		out = append(out, h.item)
	}
	return out
}

// Divergence lists section names found by only one of the two modes.
func Divergence(dom, pattern []SectionItem) (onlyDOM, onlyPattern []string) {
	has := func(items []SectionItem, name string) bool {
		return slices.ContainsFunc(items, func(it SectionItem) bool { return it.Name == name })
	}
	for _, it := range dom {
		if !has(pattern, it.Name) && !slices.Contains(onlyDOM, it.Name) {
			onlyDOM = append(onlyDOM, it.Name)
		}
	}
	for _, it := range pattern {
		if !has(dom, it.Name) && !slices.Contains(onlyPattern, it.Name) {
			onlyPattern = append(onlyPattern, it.Name)
		}
	}
	return onlyDOM, onlyPattern
}

// BlocksFromDocument reduces the children of the main and side containers
// to blocks, main column first.
func BlocksFromDocument(doc *goquery.Document, c Containers) []Block {
	var blocks []Block
	collect := func(selector string, side bool) {
		if selector == "" {
			return
		}
		doc.Find(selector).First().Children().Each(func(_ int, sel *goquery.Selection) {
			b := blockFromSelection(sel)
			b.IsSide = side
			blocks = append(blocks, b)
		})
	}
	collect(c.Main, false)
	collect(c.Side, true)
	return blocks
}

const headingSelector = "h2, h3, h4, .api_title, .title_area, .tit, strong.title"

func blockFromSelection(sel *goquery.Selection) Block {
	b := Block{
		Text:   GetTextContent(sel),
		Class:  classHints(sel),
		ID:     sel.AttrOr("id", ""),
		Hidden: isHidden(sel),
	}

	sel.Find(headingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		b.Heading = collapseSpace(h.Text())
		return b.Heading == ""
	})

	sel.Find("a").Each(func(_ int, a *goquery.Selection) {
		if t := collapseSpace(a.Text()); t != "" {
			b.Links = append(b.Links, t)
		}
	})

	sel.Find("span, em, i").Each(func(_ int, l *goquery.Selection) {
		t := collapseSpace(l.Text())
		if t != "" && utf8.RuneCountInString(t) <= 6 {
			b.Labels = append(b.Labels, t)
		}
	})

	sel.Find("li").Each(func(_ int, li *goquery.Selection) {
		if li.Find("a").Length() > 0 {
			b.AdLines++
		}
	})
	return b
}

// classHints joins the class of the block and of its direct children, where
// the section markers usually sit.
func classHints(sel *goquery.Selection) string {
	hints := []string{sel.AttrOr("class", "")}
	sel.Children().Each(func(_ int, c *goquery.Selection) {
		if cls := c.AttrOr("class", ""); cls != "" {
			hints = append(hints, cls)
		}
	})
	return strings.TrimSpace(strings.Join(hints, " "))
}

func isHidden(sel *goquery.Selection) bool {
	if sel.AttrOr("aria-hidden", "") == "true" {
		return true
	}
	style := strings.ToLower(strings.ReplaceAll(sel.AttrOr("style", ""), " ", ""))
	return strings.Contains(style, "display:none")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// GetTextContent extracts all text from a selection, one space between text
// nodes and a newline for every <br>.
func GetTextContent(s *goquery.Selection) string {
	var content strings.Builder

	var prev *goquery.Selection
	s.Contents().Each(func(i int, sel *goquery.Selection) {
		switch goquery.NodeName(sel) {
		case "#text":
			text := strings.TrimSpace(sel.Text())
			if text != "" {
				if i > 0 && prev != nil && goquery.NodeName(prev) != "br" && content.Len() > 0 {
					content.WriteString(" ")
				}
				content.WriteString(text)
			}
		case "br":
			content.WriteString("\n")
		case "script", "style", "#comment":
		default:
			childText := GetTextContent(sel)
			if childText != "" {
				if content.Len() > 0 && !strings.HasSuffix(content.String(), "\n") {
					content.WriteString(" ")
				}
				content.WriteString(childText)
			}
		}
		prev = sel
	})

	return strings.TrimSpace(content.String())
}
