// Package redact replaces matched PII spans with category-typed
// placeholder tokens.
package redact

import (
	"github.com/kalkan-ai/kalkan/internal/catalog"
	"github.com/kalkan-ai/kalkan/internal/pattern"
)

// Result is the redactor output.
type Result struct {
	Redacted   string
	Categories []catalog.Category
	Changed    bool
}

// Redactor applies per-category global substitution using the catalog
// patterns. Replacements are applied category by category with
// ReplaceAllString rather than by mutating byte offsets, so earlier
// substitutions cannot corrupt later, non-overlapping spans.
type Redactor struct {
	cat *catalog.Catalog
}

// New builds a redactor over the given catalog.
func New(cat *catalog.Catalog) *Redactor {
	return &Redactor{cat: cat}
}

// Redact replaces every matched PII span with its typed placeholder.
// Idempotent: placeholders contain no digits or address characters, so
// re-running the matcher and redactor on the output finds nothing new.
func (r *Redactor) Redact(text string, hits []pattern.Hit) Result {
	res := Result{Redacted: text}
	if text == "" {
		return res
	}

	for _, h := range hits {
		if h.Placeholder == "" {
			continue
		}
		d, ok := r.cat.Detector(h.Category)
		if !ok {
			continue
		}
		before := res.Redacted
		for _, re := range d.Patterns {
			res.Redacted = re.ReplaceAllString(res.Redacted, d.Placeholder)
		}
		if res.Redacted != before {
			res.Changed = true
			res.Categories = append(res.Categories, h.Category)
		}
	}
	return res
}

// Scrub redacts every PII category regardless of prior hits. The audit
// logger uses it to bound what a stored preview can contain.
func (r *Redactor) Scrub(text string) string {
	out := text
	for _, d := range r.cat.Detectors() {
		if d.Placeholder == "" {
			continue
		}
		for _, re := range d.Patterns {
			out = re.ReplaceAllString(out, d.Placeholder)
		}
	}
	return out
}
