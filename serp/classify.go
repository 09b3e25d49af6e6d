package serp

import "math"

// Role is the semantic tag the classifier assigns to a visible element.
type Role int

const (
	RoleIgnore Role = iota
	RoleTitle
	RoleDate
	RoleAuthor
)

func (r Role) String() string {
	switch r {
	case RoleTitle:
		return "title"
	case RoleDate:
		return "date"
	case RoleAuthor:
		return "author"
	default:
		return "ignore"
	}
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// TitleFilter selects how title candidates are recognised.
type TitleFilter int

const (
	// TitleStrictBlue requires the title font band and a blue link colour.
	TitleStrictBlue TitleFilter = iota
	// TitleSizeOnly accepts any colour inside the title font band.
	TitleSizeOnly
)

// AnchorKind is the element each assembled entry is built around.
type AnchorKind int

const (
	AnchorDate AnchorKind = iota
	AnchorTitle
)

// Variant picks one of the classifier strategies used by the different
// checks. SnippetVariant and NicknameVariant cover the two in use.
type Variant struct {
	Title   TitleFilter
	Anchor  AnchorKind
	Authors bool
}

var (
	// SnippetVariant ranks results by their date line and matches a title fragment.
	SnippetVariant = Variant{Title: TitleStrictBlue, Anchor: AnchorDate}
	// NicknameVariant ranks results by their title and matches the author nickname.
	NicknameVariant = Variant{Title: TitleSizeOnly, Anchor: AnchorTitle, Authors: true}
)

// ClassifiedEntry is a visible element with the role it was given.
type ClassifiedEntry struct {
	Role     Role    `json:"role"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"fontSize"`
	IsBold   bool    `json:"isBold"`
	Href     string  `json:"href,omitempty"`
}

// Classifier assigns roles to visible elements.
type Classifier struct {
	th      Thresholds
	variant Variant
}

// NewClassifier returns a classifier for the given thresholds and variant.
// Zero thresholds fall back to DefaultThresholds.
func NewClassifier(th Thresholds, variant Variant) *Classifier {
	return &Classifier{th: th.WithDefaults(), variant: variant}
}

// Classify applies the title and date rules to a single element. Author
// detection needs the neighbouring dates and is done by ClassifyAll.
func (c *Classifier) Classify(el VisibleElement) ClassifiedEntry {
	entry := ClassifiedEntry{
		Role:     RoleIgnore,
		Text:     el.Text,
		X:        el.X,
		Y:        el.Y,
		FontSize: el.FontSize,
		IsBold:   el.IsBold,
		Href:     el.Href,
	}
	if !el.Visible || el.Text == "" {
		return entry
	}

	switch {
	case c.isTitle(el):
		entry.Role = RoleTitle
	case c.isDate(el):
		entry.Role = RoleDate
	}
	return entry
}

func (c *Classifier) isTitle(el VisibleElement) bool {
	if el.Y <= 0 || !inBand(el.FontSize, c.th.TitleFontMin, c.th.TitleFontMax) {
		return false
	}
	if c.variant.Title == TitleStrictBlue {
		return el.ColorIsBlue
	}
	return true
}

func (c *Classifier) isDate(el VisibleElement) bool {
	return !el.ColorIsBlue &&
		inBand(el.FontSize, c.th.DateFontMin, c.th.DateFontMax) &&
		IsDateText(el.Text)
}

// ClassifyAll classifies a snapshot and drops ignored elements. The result
// keeps the input order.
func (c *Classifier) ClassifyAll(elements []VisibleElement) []ClassifiedEntry {
	classified := make([]ClassifiedEntry, len(elements))
	var dateYs []float64
	for i, el := range elements {
		classified[i] = c.Classify(el)
		if classified[i].Role == RoleDate {
			dateYs = append(dateYs, el.Y)
		}
	}

	if c.variant.Authors {
		for i, el := range elements {
			if classified[i].Role != RoleIgnore || !el.Visible || el.Text == "" {
				continue
			}
			if el.FontSize >= c.th.AuthorFontMax {
				continue
			}
			if nearAny(el.Y, dateYs, c.th.AuthorWindow) {
				classified[i].Role = RoleAuthor
			}
		}
	}

	out := make([]ClassifiedEntry, 0, len(classified))
	for _, e := range classified {
		if e.Role != RoleIgnore {
			out = append(out, e)
		}
	}
	return out
}

func inBand(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func nearAny(y float64, ys []float64, window float64) bool {
	for _, other := range ys {
		if math.Abs(y-other) < window {
			return true
		}
	}
	return false
}
