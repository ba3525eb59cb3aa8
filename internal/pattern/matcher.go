// Package pattern runs the deterministic detection layer: every
// catalog detector against the input text, producing a structured hit
// list and a confidence score. Matching is a pure function of the
// input and the static catalog.
package pattern

import (
	"sort"

	"github.com/kalkan-ai/kalkan/internal/catalog"
)

const (
	// baselineConfidence applies when the text is clean.
	baselineConfidence = 0.95
	// decayPerCategory lowers confidence for each additional distinct
	// violation category. More simultaneous categories look more like a
	// deliberate evasion attempt than a false positive. Tunable.
	decayPerCategory = 0.05
	// floorConfidence is the lowest the decay can reach.
	floorConfidence = 0.70
)

// Hit is one detector match. Spans hold [start, end) byte offsets for
// every match of the category; Placeholder is non-empty only for PII
// categories.
type Hit struct {
	Category    catalog.Category
	Spans       [][2]int
	Placeholder string
}

// Result is the pattern layer output for one input.
type Result struct {
	Hits       []Hit
	Confidence float64
}

// Categories returns the distinct hit categories in catalog order.
func (r Result) Categories() []catalog.Category {
	out := make([]catalog.Category, 0, len(r.Hits))
	for _, h := range r.Hits {
		out = append(out, h.Category)
	}
	return out
}

// PIIHits returns only the hits that carry a redaction placeholder.
func (r Result) PIIHits() []Hit {
	var out []Hit
	for _, h := range r.Hits {
		if h.Placeholder != "" {
			out = append(out, h)
		}
	}
	return out
}

// Matcher runs the catalog against input text.
type Matcher struct {
	cat *catalog.Catalog
}

// NewMatcher builds a matcher over the given catalog.
func NewMatcher(cat *catalog.Catalog) *Matcher {
	return &Matcher{cat: cat}
}

// Match runs every detector against text. A detector may match zero,
// one, or many times; all matches of one category collapse into a
// single Hit with all spans.
func (m *Matcher) Match(text string) Result {
	res := Result{Confidence: baselineConfidence}
	if text == "" {
		return res
	}

	for _, d := range m.cat.Detectors() {
		var spans [][2]int
		for _, re := range d.Patterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				spans = append(spans, [2]int{loc[0], loc[1]})
			}
		}
		if len(spans) == 0 {
			continue
		}
		sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
		res.Hits = append(res.Hits, Hit{
			Category:    d.Category,
			Spans:       spans,
			Placeholder: d.Placeholder,
		})
	}

	res.Confidence = confidenceFor(len(res.Hits))
	return res
}

func confidenceFor(distinctCategories int) float64 {
	conf := baselineConfidence - decayPerCategory*float64(distinctCategories)
	if conf < floorConfidence {
		return floorConfidence
	}
	return conf
}
