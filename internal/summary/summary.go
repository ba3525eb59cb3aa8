// Package summary maps an internal verdict to the caller-facing shape.
// The mapping is deliberately coarse: category-level intent only, never
// pattern text, detector names, or classifier prose, so an external
// caller cannot reverse-engineer which detector fired.
package summary

import (
	"fmt"
	"strings"

	"github.com/kalkan-ai/kalkan/internal/catalog"
	"github.com/kalkan-ai/kalkan/internal/decision"
)

// ConfidenceLevel buckets a numeric confidence for external callers.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// External is the sanitized summary. Derived fresh from the verdict on
// every call, never persisted.
type External struct {
	Permitted            bool            `json:"permitted"`
	PolicyCompliant      bool            `json:"policy_compliant"`
	ModificationsApplied bool            `json:"modifications_applied"`
	Modifications        []string        `json:"modifications,omitempty"`
	ConfidenceLevel      ConfidenceLevel `json:"confidence_level"`
	HumanSummary         string          `json:"human_summary"`
}

// policyAreas maps internal categories many-to-one onto coarse,
// caller-safe policy labels.
var policyAreas = map[catalog.Category]string{
	catalog.CategoryPIINationalID: "personal information protection",
	catalog.CategoryPIIIBAN:       "personal information protection",
	catalog.CategoryPIIPhone:      "personal information protection",
	catalog.CategoryPIIEmail:      "personal information protection",
	catalog.CategoryPIIPassport:   "personal information protection",
	catalog.CategoryToxicity:      "respectful communication",
	catalog.CategoryThreat:        "respectful communication",
	catalog.CategoryRelInsult:     "cultural and religious sensitivity",
	catalog.CategoryRelFabric:     "cultural and religious sensitivity",
	catalog.CategoryPromptInj:     "security policy",
	catalog.CategoryDataExfil:     "security policy",
	catalog.CategoryCodeInj:       "security policy",
	catalog.CategoryPolDisinfo:    "information integrity",
}

// Build derives the external summary from a combined verdict and the
// categories the redactor actually replaced. Pure function.
func Build(v decision.Verdict, redacted []catalog.Category) External {
	ext := External{
		Permitted:       v.Status != decision.StatusBlock,
		PolicyCompliant: v.Status == decision.StatusAllow,
		ConfidenceLevel: bucket(v.Confidence),
	}

	areas := coarseAreas(v.Violations)
	if v.Status == decision.StatusRedacted && len(redacted) > 0 {
		ext.ModificationsApplied = true
		ext.Modifications = coarseAreas(redacted)
	}

	switch v.Status {
	case decision.StatusAllow:
		ext.HumanSummary = "Content passed all safety checks."
	case decision.StatusRedacted:
		ext.HumanSummary = "Content was permitted after personal information was masked."
	case decision.StatusFlag:
		ext.HumanSummary = fmt.Sprintf("Content was permitted but flagged for review under: %s.", joinAreas(areas))
	case decision.StatusBlock:
		ext.HumanSummary = fmt.Sprintf("Content was not permitted due to: %s.", joinAreas(areas))
	}
	return ext
}

func bucket(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.85:
		return ConfidenceHigh
	case confidence >= 0.60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// coarseAreas deduplicates categories into policy labels, preserving
// first-seen order.
func coarseAreas(cats []catalog.Category) []string {
	seen := make(map[string]struct{}, len(cats))
	var out []string
	for _, c := range cats {
		area, ok := policyAreas[c]
		if !ok {
			area = "content policy"
		}
		if _, dup := seen[area]; dup {
			continue
		}
		seen[area] = struct{}{}
		out = append(out, area)
	}
	return out
}

func joinAreas(areas []string) string {
	if len(areas) == 0 {
		return "content policy"
	}
	return strings.Join(areas, ", ")
}
