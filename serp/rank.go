package serp

// Engine runs classification, clustering, assembly and matching over one
// snapshot for a given variant.
type Engine struct {
	th         Thresholds
	classifier *Classifier
	assembler  *Assembler
}

// NewEngine returns an engine for the variant.
func NewEngine(th Thresholds, variant Variant) *Engine {
	th = th.WithDefaults()
	return &Engine{
		th:         th,
		classifier: NewClassifier(th, variant),
		assembler:  NewAssembler(th, variant),
	}
}

// Entries returns the ranked entries of a snapshot. section, when set, is
// copied onto every entry.
func (e *Engine) Entries(elements []VisibleElement, target Target, section string) []RankEntry {
	entries := e.assembler.Assemble(e.classifier.ClassifyAll(elements), target)
	if section != "" {
		for i := range entries {
			entries[i].Section = section
		}
	}
	return entries
}

// Rank locates the target in a snapshot. A rank of 0 means not found.
func (e *Engine) Rank(elements []VisibleElement, target Target) (RankEntry, []RankEntry) {
	entries := e.Entries(elements, target, "")
	best, _ := FindRank(entries, target, e.th.MaxDepth)
	return best, entries
}
