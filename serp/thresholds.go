package serp

// Thresholds holds the empirically tuned values the classifier, clusterer and
// assembler work with. They were read off rendered result pages and have no
// deeper derivation; re-tune them when the page markup changes.
type Thresholds struct {
	TitleFontMin float64 `yaml:"title_font_min" json:"title_font_min"`
	TitleFontMax float64 `yaml:"title_font_max" json:"title_font_max"`
	DateFontMin  float64 `yaml:"date_font_min" json:"date_font_min"`
	DateFontMax  float64 `yaml:"date_font_max" json:"date_font_max"`

	// AuthorFontMax is exclusive.
	AuthorFontMax float64 `yaml:"author_font_max" json:"author_font_max"`
	AuthorWindow  float64 `yaml:"author_window" json:"author_window"`

	// BlueMargin is how far the blue channel must exceed both red and green.
	BlueMargin int `yaml:"blue_margin" json:"blue_margin"`

	ClusterGap float64 `yaml:"cluster_gap" json:"cluster_gap"`

	TitleWindowAbove float64 `yaml:"title_window_above" json:"title_window_above"`
	TitleWindowBelow float64 `yaml:"title_window_below" json:"title_window_below"`

	MaxNicknameRunes int `yaml:"max_nickname_runes" json:"max_nickname_runes"`
	MaxDepth         int `yaml:"max_depth" json:"max_depth"`
}

// DefaultThresholds returns the values observed on the mobile and PC result pages.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TitleFontMin:     16.5,
		TitleFontMax:     17.5,
		DateFontMin:      11,
		DateFontMax:      15,
		AuthorFontMax:    16,
		AuthorWindow:     50,
		BlueMargin:       40,
		ClusterGap:       30,
		TitleWindowAbove: 100,
		TitleWindowBelow: 120,
		MaxNicknameRunes: 20,
		MaxDepth:         30,
	}
}

// WithDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) WithDefaults() Thresholds {
	d := DefaultThresholds()
	if t.TitleFontMin == 0 {
		t.TitleFontMin = d.TitleFontMin
	}
	if t.TitleFontMax == 0 {
		t.TitleFontMax = d.TitleFontMax
	}
	if t.DateFontMin == 0 {
		t.DateFontMin = d.DateFontMin
	}
	if t.DateFontMax == 0 {
		t.DateFontMax = d.DateFontMax
	}
	if t.AuthorFontMax == 0 {
		t.AuthorFontMax = d.AuthorFontMax
	}
	if t.AuthorWindow == 0 {
		t.AuthorWindow = d.AuthorWindow
	}
	if t.BlueMargin == 0 {
		t.BlueMargin = d.BlueMargin
	}
	if t.ClusterGap == 0 {
		t.ClusterGap = d.ClusterGap
	}
	if t.TitleWindowAbove == 0 {
		t.TitleWindowAbove = d.TitleWindowAbove
	}
	if t.TitleWindowBelow == 0 {
		t.TitleWindowBelow = d.TitleWindowBelow
	}
	if t.MaxNicknameRunes == 0 {
		t.MaxNicknameRunes = d.MaxNicknameRunes
	}
	if t.MaxDepth == 0 {
		t.MaxDepth = d.MaxDepth
	}
	return t
}
