// Package serp structures rendered search result pages into ranked entries and
// named sections. Everything here is a pure function over an already captured
// snapshot; capturing is left to a Snapshotter.
package serp

import (
	"context"
	"strconv"
	"strings"
)

// VisibleElement is one rendered text node with the geometry and computed
// style the heuristics rely on. Y and X are viewport relative.
type VisibleElement struct {
	Text        string  `json:"text"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	FontSize    float64 `json:"fontSize"`
	IsBold      bool    `json:"isBold"`
	ColorIsBlue bool    `json:"colorIsBlue"`
	HasHref     bool    `json:"hasHref"`
	Href        string  `json:"href,omitempty"`
	Visible     bool    `json:"visible"`
}

// RawStyle is the computed style as reported by the browser, before the
// boolean fingerprints are derived from it.
type RawStyle struct {
	FontSize   string `json:"fontSize"`
	FontWeight string `json:"fontWeight"`
	Color      string `json:"color"`
}

// NewVisibleElement derives the boolean fingerprints of an element from its
// raw computed style.
func NewVisibleElement(text string, x, y float64, style RawStyle, href string, visible bool, blueMargin int) VisibleElement {
	return VisibleElement{
		Text:        strings.TrimSpace(text),
		X:           x,
		Y:           y,
		FontSize:    ParseFontSize(style.FontSize),
		IsBold:      IsBoldWeight(style.FontWeight),
		ColorIsBlue: IsBlueColor(style.Color, blueMargin),
		HasHref:     href != "",
		Href:        href,
		Visible:     visible,
	}
}

// Snapshot is what a Snapshotter hands to the engine. Elements is empty when
// the page was fetched without rendering.
type Snapshot struct {
	URL      string           `json:"url"`
	Elements []VisibleElement `json:"elements,omitempty"`
	HTML     string           `json:"-"`
}

// Snapshotter renders or fetches a result page.
type Snapshotter interface {
	Capture(ctx context.Context, url string) (*Snapshot, error)
}

// ParseFontSize reads values such as "17px" or "16.5". Unparsable input is 0.
func ParseFontSize(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// IsBoldWeight reports whether a CSS font-weight is 600 or heavier.
func IsBoldWeight(weight string) bool {
	weight = strings.ToLower(strings.TrimSpace(weight))
	if strings.Contains(weight, "bold") {
		return true
	}
	n, err := strconv.Atoi(weight)
	return err == nil && n >= 600
}

// IsBlueColor reports whether the blue channel of a CSS colour exceeds both
// red and green by more than margin. Bluish grays fail this on purpose.
func IsBlueColor(color string, margin int) bool {
	r, g, b, ok := ParseColor(color)
	if !ok {
		return false
	}
	return b-r > margin && b-g > margin
}

// ParseColor understands rgb(), rgba() and #rgb / #rrggbb notations.
func ParseColor(color string) (r, g, b int, ok bool) {
	color = strings.ToLower(strings.TrimSpace(color))
	switch {
	case strings.HasPrefix(color, "rgb"):
		open := strings.IndexByte(color, '(')
		end := strings.IndexByte(color, ')')
		if open < 0 || end < open {
			return 0, 0, 0, false
		}
		parts := strings.FieldsFunc(color[open+1:end], func(c rune) bool {
			return c == ',' || c == ' ' || c == '/'
		})
		if len(parts) < 3 {
			return 0, 0, 0, false
		}
		var rgb [3]int
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseFloat(parts[i], 64)
			if err != nil {
				return 0, 0, 0, false
			}
			rgb[i] = int(v)
		}
		return rgb[0], rgb[1], rgb[2], true
	case strings.HasPrefix(color, "#"):
		hex := color[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return 0, 0, 0, false
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, 0, 0, false
		}
		return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
	}
	return 0, 0, 0, false
}
