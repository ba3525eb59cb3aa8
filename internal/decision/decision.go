// Package decision merges the deterministic pattern layer and the
// advisory classifier layer into a single verdict. Combination is
// deterministic given both inputs.
package decision

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kalkan-ai/kalkan/internal/catalog"
	"github.com/kalkan-ai/kalkan/internal/classifier"
	"github.com/kalkan-ai/kalkan/internal/pattern"
)

// Status is the final verdict for one evaluation.
type Status string

const (
	StatusAllow    Status = "ALLOW"
	StatusRedacted Status = "REDACTED"
	StatusFlag     Status = "FLAG"
	StatusBlock    Status = "BLOCK"
)

// Verdict is created once per evaluation and never mutated afterwards.
type Verdict struct {
	Status Status
	// Violations is the deduplicated union of both layers, sorted.
	Violations []catalog.Category
	// Confidence is the max of the layer confidences. Never an average:
	// a high-confidence detection must not be diluted by the other
	// layer's low-confidence silence.
	Confidence float64
	// Reason is the internal, detailed explanation. It never crosses
	// the sanitization boundary.
	Reason string
}

// Combine applies the precedence policy: BLOCK > REDACTED > FLAG >
// ALLOW, first matching rule wins. Violations reported by both layers
// count once.
func Combine(cat *catalog.Catalog, p pattern.Result, c *classifier.Verdict) Verdict {
	violations := union(p, c)

	v := Verdict{
		Violations: violations,
		Confidence: maxConfidence(p, c),
	}

	var critical []catalog.Category
	piiOnly := len(violations) > 0
	for _, cv := range violations {
		if cat.IsCritical(cv) {
			critical = append(critical, cv)
		}
		if !cat.IsPII(cv) {
			piiOnly = false
		}
	}

	// Redaction needs concrete spans from the deterministic layer. A
	// PII category reported only by the classifier has nothing to
	// substitute, so it flags instead of pretending the content was
	// cleaned.
	patternPII := false
	for _, h := range p.Hits {
		if cat.IsPII(h.Category) {
			patternPII = true
			break
		}
	}

	classifierEscalates := c != nil && c.IsHarmful &&
		(c.Severity == classifier.SeverityHigh || c.Severity == classifier.SeverityCritical)

	switch {
	case len(critical) > 0:
		v.Status = StatusBlock
		v.Reason = fmt.Sprintf("critical categories present: %s", joinCategories(critical))
	case classifierEscalates:
		v.Status = StatusBlock
		v.Reason = fmt.Sprintf("classifier reported harmful content with severity %s", c.Severity)
	case piiOnly && patternPII:
		v.Status = StatusRedacted
		v.Reason = fmt.Sprintf("personal data categories only: %s", joinCategories(violations))
	case len(violations) > 0 || (c != nil && c.IsHarmful):
		v.Status = StatusFlag
		v.Reason = flagReason(violations, c)
	case c != nil && c.Degraded:
		v.Status = StatusFlag
		v.Reason = "classifier response was incomplete, defaulting to flag"
	default:
		v.Status = StatusAllow
		v.Reason = "no violations from either layer"
	}
	return v
}

func flagReason(violations []catalog.Category, c *classifier.Verdict) string {
	if len(violations) > 0 {
		return fmt.Sprintf("non-critical categories present: %s", joinCategories(violations))
	}
	return fmt.Sprintf("classifier reported harmful content with severity %s", c.Severity)
}

func union(p pattern.Result, c *classifier.Verdict) []catalog.Category {
	seen := make(map[catalog.Category]struct{})
	for _, h := range p.Hits {
		seen[h.Category] = struct{}{}
	}
	if c != nil {
		for _, cv := range c.Categories {
			seen[cv] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]catalog.Category, 0, len(seen))
	for cv := range seen {
		out = append(out, cv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func maxConfidence(p pattern.Result, c *classifier.Verdict) float64 {
	conf := p.Confidence
	if c != nil && c.Confidence > conf {
		conf = c.Confidence
	}
	return conf
}

func joinCategories(cats []catalog.Category) string {
	strs := make([]string, len(cats))
	for i, c := range cats {
		strs[i] = string(c)
	}
	return strings.Join(strs, ", ")
}
