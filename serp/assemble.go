package serp

import (
	"math"
	"strings"
	"unicode/utf8"
)

// RankEntry is one visual search result.
type RankEntry struct {
	Rank    int     `json:"rank"`
	Title   string  `json:"title"`
	Author  string  `json:"author"`
	Date    string  `json:"date"`
	URL     string  `json:"url"`
	Section string  `json:"section,omitempty"`
	Y       float64 `json:"-"`
}

// titleStopWords mark page chrome that shares the title font band.
var titleStopWords = []string{
	"도움말",
	"Keep",
	"통계",
	"더보기",
	"신고",
	"공유하기",
	"광고",
}

// Assembler pairs clustered titles, dates and authors into ranked entries.
type Assembler struct {
	th      Thresholds
	variant Variant
}

// NewAssembler returns an assembler for the given thresholds and variant.
func NewAssembler(th Thresholds, variant Variant) *Assembler {
	return &Assembler{th: th.WithDefaults(), variant: variant}
}

// Assemble builds entries from classified elements. target is only used to
// prefer an author that matches it exactly; it may be empty.
func (a *Assembler) Assemble(classified []ClassifiedEntry, target Target) []RankEntry {
	grouped := ByRole(classified, a.th.ClusterGap)
	if a.variant.Anchor == AnchorTitle {
		return a.byTitle(grouped, target)
	}
	return a.byDate(grouped, target)
}

func (a *Assembler) byDate(grouped map[Role][]ClassifiedEntry, target Target) []RankEntry {
	titles := grouped[RoleTitle]
	used := make([]bool, len(titles))
	var entries []RankEntry

	for n, date := range grouped[RoleDate] {
		if n >= a.th.MaxDepth {
			break
		}
		best := -1
		bestScore := 0.0
		for i, t := range titles {
			if used[i] || t.Y < date.Y-a.th.TitleWindowAbove || t.Y > date.Y+a.th.TitleWindowBelow {
				continue
			}
			if isStopTitle(t.Text) {
				continue
			}
			if s := titleScore(t); best < 0 || s > bestScore {
				best, bestScore = i, s
			}
		}
		if best < 0 {
			continue
		}
		used[best] = true
		title := titles[best]

		entry := RankEntry{
			Rank:  len(entries) + 1,
			Title: title.Text,
			Date:  date.Text,
			URL:   title.Href,
			Y:     date.Y,
		}
		if a.variant.Authors {
			entry.Author = a.pickAuthor(grouped[RoleAuthor], date.Y, title.Text, target)
		}
		entries = append(entries, entry)
	}
	return entries
}

func (a *Assembler) byTitle(grouped map[Role][]ClassifiedEntry, target Target) []RankEntry {
	dates := grouped[RoleDate]
	authors := grouped[RoleAuthor]
	var entries []RankEntry

	for n, title := range grouped[RoleTitle] {
		if n >= a.th.MaxDepth {
			break
		}
		if isStopTitle(title.Text) {
			continue
		}

		entry := RankEntry{
			Rank:  len(entries) + 1,
			Title: title.Text,
			URL:   title.Href,
			Y:     title.Y,
		}

		nearest := -1
		for i, d := range dates {
			if d.Y < title.Y-a.th.AuthorWindow || d.Y > title.Y+a.th.TitleWindowBelow {
				continue
			}
			if nearest < 0 || math.Abs(d.Y-title.Y) < math.Abs(dates[nearest].Y-title.Y) {
				nearest = i
			}
		}
		if nearest >= 0 {
			entry.Date = dates[nearest].Text
		}

		if a.variant.Authors {
			entry.Author = a.pickAuthor(authors, title.Y, title.Text, target)
			if entry.Author == "" && nearest >= 0 {
				entry.Author = a.pickAuthor(authors, dates[nearest].Y, title.Text, target)
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// pickAuthor prefers an exact target match among the authors near y, then
// the first nickname-sized text that is not the title itself.
func (a *Assembler) pickAuthor(authors []ClassifiedEntry, y float64, title string, target Target) string {
	normTitle := Normalize(title)
	var candidates []string
	for _, au := range authors {
		if math.Abs(au.Y-y) >= a.th.AuthorWindow {
			continue
		}
		text := strings.TrimSpace(au.Text)
		runes := utf8.RuneCountInString(text)
		if runes == 0 || runes > a.th.MaxNicknameRunes || IsDateText(text) {
			continue
		}
		if Normalize(text) == normTitle {
			continue
		}
		candidates = append(candidates, text)
	}

	if target.Mode == MatchExact && !target.Empty() {
		for _, c := range candidates {
			if target.Matches(c) {
				return c
			}
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return ""
}

func titleScore(t ClassifiedEntry) float64 {
	score := t.FontSize * 10
	if t.IsBold {
		score += 30
	}
	if utf8.RuneCountInString(t.Text) < 2 {
		score -= 50
	}
	return score
}

func isStopTitle(text string) bool {
	if IsDateText(text) {
		return true
	}
	for _, w := range titleStopWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
