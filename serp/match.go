package serp

import "strings"

// Normalize keeps Hangul syllables and ASCII letters and digits, lowercased.
// Spacing, punctuation and everything else is dropped.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 0xAC00 && r <= 0xD7A3:
			b.WriteRune(r)
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// MatchMode decides how a candidate is compared with the target.
type MatchMode int

const (
	// MatchExact is used for nicknames, where generic names would over-match.
	MatchExact MatchMode = iota
	// MatchContains is used for descriptive title fragments.
	MatchContains
)

// Target is a normalized set of identifiers to look for.
type Target struct {
	Mode   MatchMode
	Values []string
}

// NewTarget normalizes the raw identifiers and drops the ones that normalize
// to nothing.
func NewTarget(mode MatchMode, raw ...string) Target {
	t := Target{Mode: mode}
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		n := Normalize(r)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		t.Values = append(t.Values, n)
	}
	return t
}

// Empty reports whether there is nothing to match against.
func (t Target) Empty() bool {
	return len(t.Values) == 0
}

// Matches reports whether candidate belongs to the target.
func (t Target) Matches(candidate string) bool {
	c := Normalize(candidate)
	if c == "" {
		return false
	}
	for _, v := range t.Values {
		switch t.Mode {
		case MatchExact:
			if c == v {
				return true
			}
		case MatchContains:
			if strings.Contains(c, v) {
				return true
			}
		}
	}
	return false
}

// FindRank returns the first entry, by ascending rank, that belongs to the
// target. Exact targets are compared with the author, containment targets
// with the title. Only entries ranked up to depth are considered. When
// nothing matches the returned entry has rank 0 and ok is false.
func FindRank(entries []RankEntry, target Target, depth int) (RankEntry, bool) {
	if target.Empty() {
		return RankEntry{}, false
	}
	best := RankEntry{}
	for _, e := range entries {
		if depth > 0 && e.Rank > depth {
			continue
		}
		field := e.Title
		if target.Mode == MatchExact {
			field = e.Author
		}
		if !target.Matches(field) {
			continue
		}
		if best.Rank == 0 || e.Rank < best.Rank {
			best = e
		}
	}
	return best, best.Rank != 0
}
