package serp

import (
	"math"
	"sort"
	"unicode/utf8"
)

// Cluster folds near-duplicate detections of the same role. The renderer
// often reports one visible title through several nested nodes; consecutive
// entries closer than gap pixels are merged and the longer text survives.
// The input is not modified.
func Cluster(entries []ClassifiedEntry, gap float64) []ClassifiedEntry {
	if len(entries) == 0 {
		return nil
	}
	sorted := make([]ClassifiedEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y < sorted[j].Y })

	out := []ClassifiedEntry{sorted[0]}
	prevY := sorted[0].Y
	for _, e := range sorted[1:] {
		last := &out[len(out)-1]
		if e.Role == last.Role && math.Abs(e.Y-prevY) < gap {
			if utf8.RuneCountInString(e.Text) > utf8.RuneCountInString(last.Text) {
				*last = e
			}
		} else {
			out = append(out, e)
		}
		prevY = e.Y
	}
	return out
}

// ByRole splits classified entries into one clustered list per role.
func ByRole(entries []ClassifiedEntry, gap float64) map[Role][]ClassifiedEntry {
	grouped := make(map[Role][]ClassifiedEntry)
	for _, e := range entries {
		grouped[e.Role] = append(grouped[e.Role], e)
	}
	for role, list := range grouped {
		grouped[role] = Cluster(list, gap)
	}
	return grouped
}
