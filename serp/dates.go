package serp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	absoluteDateRe = regexp.MustCompile(`^(\d{4})\.\s?(\d{1,2})\.\s?(\d{1,2})\.?$`)
	relativeDateRe = regexp.MustCompile(`^(\d+)\s*(분|시간|일|주|개월|년)\s*전$`)
)

const (
	yesterdayLabel = "어제"
	justNowLabel   = "방금 전"
)

// IsDateText reports whether text is a date label as printed under a result.
func IsDateText(text string) bool {
	text = strings.TrimSpace(text)
	if text == yesterdayLabel || text == justNowLabel {
		return true
	}
	return absoluteDateRe.MatchString(text) || relativeDateRe.MatchString(text)
}

// ParseDate resolves an absolute or relative date label against now.
func ParseDate(text string, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	switch text {
	case justNowLabel:
		return now, true
	case yesterdayLabel:
		return now.AddDate(0, 0, -1), true
	}

	if m := absoluteDateRe.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			return time.Time{}, false
		}
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, now.Location()), true
	}

	m := relativeDateRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	switch m[2] {
	case "분":
		return now.Add(-time.Duration(n) * time.Minute), true
	case "시간":
		return now.Add(-time.Duration(n) * time.Hour), true
	case "일":
		return now.AddDate(0, 0, -n), true
	case "주":
		return now.AddDate(0, 0, -7*n), true
	case "개월":
		return now.AddDate(0, -n, 0), true
	case "년":
		return now.AddDate(-n, 0, 0), true
	}
	return time.Time{}, false
}
