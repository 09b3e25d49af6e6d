package serp

import (
	"strings"
	"unicode/utf8"
)

// SectionItem is one named block of a result page.
type SectionItem struct {
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	IsAd     bool     `json:"isAd,omitempty"`
	IsSide   bool     `json:"isSide,omitempty"`
	SubName  string   `json:"subName,omitempty"`
	SubItems []string `json:"subItems,omitempty"`
}

// Block is a top-level sibling of the results container, reduced to the
// hints the segmenter looks at.
type Block struct {
	Text    string   `json:"text"`
	Class   string   `json:"class,omitempty"`
	ID      string   `json:"id,omitempty"`
	Hidden  bool     `json:"hidden,omitempty"`
	IsSide  bool     `json:"isSide,omitempty"`
	Heading string   `json:"heading,omitempty"`
	Links   []string `json:"links,omitempty"`
	Labels  []string `json:"labels,omitempty"`
	// AdLines counts list items carrying a link, i.e. ad lines in ad blocks.
	AdLines int `json:"adLines,omitempty"`
}

const (
	SectionRelated    = "연관검색어"
	SectionDictionary = "지식백과"
	SectionPowerLink  = "파워링크"
	SectionPlace      = "플레이스"
	SectionWebsite    = "웹사이트"
)

var (
	boilerplateTexts = map[string]struct{}{
		"정렬 기간": {},
		"정렬":    {},
		"기간":    {},
		"옵션":    {},
		"검색옵션":  {},
	}
	nameStopList = map[string]struct{}{
		"검색":  {},
		"정렬":  {},
		"기간":  {},
		"신고":  {},
		"도움말": {},
	}
	subItemStopList = map[string]struct{}{
		"신고":  {},
		"도움말": {},
	}
	fixedSections = []string{
		"함께 많이 찾는",
		"함께 보면 좋은",
		"건강·의학 인기글",
	}
	// labelTable canonicalizes heading text, first containment wins.
	labelTable = []struct{ contains, name string }{
		{"파워링크", SectionPowerLink},
		{"비즈사이트", "비즈사이트"},
		{"브랜드", "브랜드검색"},
		{"인플루언서", "인플루언서"},
		{"VIEW", "VIEW"},
		{"블로그", "블로그"},
		{"카페", "카페"},
		{"지식iN", "지식iN"},
		{"뉴스", "뉴스"},
		{"이미지", "이미지"},
		{"동영상", "동영상"},
		{"쇼핑", "쇼핑"},
		{"플레이스", SectionPlace},
		{"웹사이트", SectionWebsite},
		{"지식백과", SectionDictionary},
	}
)

const maxRawTitleRunes = 30

// sectionRule is one entry of the ordered classification table.
type sectionRule struct {
	name  string
	match func(b Block) bool
	build func(b Block) SectionItem
}

var sectionRules = []sectionRule{
	{
		name: "related",
		match: func(b Block) bool {
			return b.hasHint("related", "relate_", "rel_kwd", "keyword_rel") || strings.HasPrefix(b.Text, "연관")
		},
		build: func(b Block) SectionItem {
			items := relatedItems(b)
			return SectionItem{Name: SectionRelated, Count: len(items), SubItems: items}
		},
	},
	{
		name: "dictionary",
		match: func(b Block) bool {
			return b.hasHint("sp_dic", "kdic", "dictionary", "encyclopedia") || strings.Contains(b.Heading, "사전")
		},
		build: func(b Block) SectionItem {
			return SectionItem{Name: SectionDictionary, Count: 1}
		},
	},
	{
		name: "ad",
		match: func(b Block) bool {
			if b.hasHint("power", "bizsite", "brand_ad", "ad_section") || b.hasToken(isAdToken) {
				return true
			}
			for _, l := range b.Labels {
				if l == "광고" {
					return true
				}
			}
			return false
		},
		build: func(b Block) SectionItem {
			name := canonicalLabel(b.Heading)
			if name == "" {
				name = SectionPowerLink
			}
			item := SectionItem{Name: name, Count: b.AdLines, IsAd: true}
			if b.Heading != "" && b.Heading != name {
				item.SubName = truncateRunes(b.Heading, maxRawTitleRunes)
			}
			return item
		},
	},
	{
		name: "place",
		match: func(b Block) bool {
			return b.hasHint("place", "local", "map") ||
				strings.Contains(b.Heading, "플레이스") || strings.Contains(b.Heading, "지도")
		},
		build: func(b Block) SectionItem {
			return SectionItem{Name: SectionPlace, Count: max(b.AdLines, 1)}
		},
	},
	{
		name: "website",
		match: func(b Block) bool {
			return b.hasHint("website", "web_list", "sp_web") || strings.Contains(b.Heading, "웹사이트")
		},
		build: func(b Block) SectionItem {
			return SectionItem{Name: SectionWebsite, Count: max(b.AdLines, 1)}
		},
	},
	{
		name: "fixed",
		match: func(b Block) bool {
			return fixedSectionName(b) != ""
		},
		build: func(b Block) SectionItem {
			return SectionItem{Name: fixedSectionName(b), Count: max(len(b.Links), 1)}
		},
	},
	{
		name:  "heading",
		match: func(b Block) bool { return true },
		build: func(b Block) SectionItem {
			name := canonicalLabel(b.Heading)
			if name == "" {
				name = truncateRunes(b.Heading, maxRawTitleRunes)
			}
			return SectionItem{Name: name, Count: 1}
		},
	},
}

// hasHint reports whether the class or id contains any of the fragments.
func (b Block) hasHint(fragments ...string) bool {
	hints := strings.ToLower(b.Class + " " + b.ID)
	for _, f := range fragments {
		if strings.Contains(hints, f) {
			return true
		}
	}
	return false
}

func (b Block) hasToken(pred func(string) bool) bool {
	for _, tok := range strings.Fields(strings.ToLower(b.Class + " " + b.ID)) {
		if pred(tok) {
			return true
		}
	}
	return false
}

func isAdToken(tok string) bool {
	return tok == "ad" || strings.HasPrefix(tok, "ad_") || strings.HasSuffix(tok, "_ad") || strings.Contains(tok, "_ad_")
}

func relatedItems(b Block) []string {
	source := b.Links
	if len(source) == 0 {
		source = strings.Fields(strings.TrimPrefix(b.Text, b.Heading))
	}
	seen := make(map[string]struct{}, len(source))
	var items []string
	for _, s := range source {
		s = strings.TrimSpace(s)
		if s == "" || s == b.Heading || strings.HasPrefix(s, "연관") {
			continue
		}
		if _, stop := subItemStopList[s]; stop {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		items = append(items, s)
	}
	return items
}

func fixedSectionName(b Block) string {
	for _, name := range fixedSections {
		if strings.Contains(b.Heading, name) || strings.Contains(b.Text, name) {
			return name
		}
	}
	return ""
}

func canonicalLabel(heading string) string {
	for _, l := range labelTable {
		if strings.Contains(heading, l.contains) {
			return l.name
		}
	}
	return ""
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

type sectionKey struct{ name, subName string }

// classifyBlock resolves one block to a section, or false when the block is
// skipped or its name is rejected.
func classifyBlock(b Block) (SectionItem, bool) {
	text := strings.TrimSpace(b.Text)
	if text == "" || b.Hidden {
		return SectionItem{}, false
	}
	if _, ok := boilerplateTexts[text]; ok {
		return SectionItem{}, false
	}
	b.Text = text

	for _, rule := range sectionRules {
		if !rule.match(b) {
			continue
		}
		item := rule.build(b)
		item.IsSide = b.IsSide
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			return SectionItem{}, false
		}
		if _, stop := nameStopList[item.Name]; stop {
			return SectionItem{}, false
		}
		return item, true
	}
	return SectionItem{}, false
}

// appendSection adds item unless its (name, subName) pair was already seen.
func appendSection(out []SectionItem, seen map[sectionKey]struct{}, item SectionItem) []SectionItem {
	key := sectionKey{item.Name, item.SubName}
	if _, dup := seen[key]; dup {
		return out
	}
	seen[key] = struct{}{}
	return append(out, item)
}
