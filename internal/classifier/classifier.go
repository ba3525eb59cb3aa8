// Package classifier sends input text to an external AI classification
// capability and validates the structured response. The layer is
// advisory: it can escalate a verdict but its failure never makes the
// gateway unavailable, and it is never the sole authority for critical
// categories.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kalkan-ai/kalkan/internal/catalog"
	"github.com/kalkan-ai/kalkan/internal/oplog"
	"github.com/kalkan-ai/kalkan/internal/pattern"
)

// Severity grades a harmful classification.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Suggested actions the upstream model may return.
const (
	ActionAllow  = "allow"
	ActionFlag   = "flag"
	ActionRedact = "redact"
	ActionBlock  = "block"
)

// Verdict is the validated classification result. It is treated as
// untrusted, advisory input to the decision combiner.
type Verdict struct {
	IsHarmful       bool
	Categories      []catalog.Category
	Severity        Severity
	Confidence      float64
	SuggestedAction string
	RedactedContent string
	// Fallback marks a verdict computed locally because the external
	// call failed or returned something unparseable.
	Fallback bool
	// Degraded marks a verdict whose response parsed but had missing or
	// invalid fields that were defaulted. A degraded harmless verdict
	// must never resolve to a silent allow downstream.
	Degraded bool
}

// Provider is the upstream completion capability. Implementations wrap
// one vendor SDK each.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// fallbackConfidenceCeiling caps the confidence of a pattern-only
// fallback verdict, reflecting that one layer is missing.
const fallbackConfidenceCeiling = 0.60

// Adapter calls the provider with a fixed-taxonomy instruction and a
// bounded timeout, and degrades to a local pattern-only verdict on any
// failure. Single attempt, no retries.
type Adapter struct {
	provider Provider
	cat      *catalog.Catalog
	matcher  *pattern.Matcher
	timeout  time.Duration
}

// NewAdapter builds an adapter. provider may be nil, in which case
// every call resolves to the fallback verdict.
func NewAdapter(provider Provider, cat *catalog.Catalog, matcher *pattern.Matcher, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{provider: provider, cat: cat, matcher: matcher, timeout: timeout}
}

// Classify returns a verdict for text. It never returns an error:
// transport failures, timeouts, and unparseable responses all resolve
// to the fallback verdict.
func (a *Adapter) Classify(ctx context.Context, text string) *Verdict {
	if a.provider == nil {
		return a.fallback(text)
	}

	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.provider.Complete(cctx, a.systemPrompt(), text)
	if err != nil {
		oplog.Logf("classifier: provider call failed, using fallback: %v", err)
		return a.fallback(text)
	}

	v, err := a.parse(raw)
	if err != nil {
		oplog.Logf("classifier: unparseable response, using fallback: %v", err)
		return a.fallback(text)
	}
	return v
}

// fallback re-runs the deterministic layer with a lowered confidence
// ceiling so that classifier unavailability never hides pattern
// findings.
func (a *Adapter) fallback(text string) *Verdict {
	res := a.matcher.Match(text)
	v := &Verdict{
		Severity:        SeverityNone,
		SuggestedAction: ActionAllow,
		Fallback:        true,
	}
	v.Confidence = res.Confidence
	if v.Confidence > fallbackConfidenceCeiling {
		v.Confidence = fallbackConfidenceCeiling
	}
	if len(res.Hits) == 0 {
		return v
	}

	v.IsHarmful = true
	v.Severity = SeverityMedium
	v.SuggestedAction = ActionFlag
	for _, h := range res.Hits {
		v.Categories = append(v.Categories, h.Category)
		if a.cat.IsCritical(h.Category) {
			v.Severity = SeverityCritical
			v.SuggestedAction = ActionBlock
		}
	}
	return v
}

// wireVerdict mirrors the JSON shape requested from the model. Pointer
// fields distinguish missing from zero.
type wireVerdict struct {
	IsHarmful       *bool    `json:"is_harmful"`
	Categories      []string `json:"violation_categories"`
	Severity        *string  `json:"severity"`
	Confidence      *float64 `json:"confidence"`
	SuggestedAction *string  `json:"suggested_action"`
	RedactedContent *string  `json:"redacted_content"`
}

// fenceRe strips a markdown code fence some models wrap around JSON.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// parse validates the raw response field by field with typed defaults.
// A missing or invalid field degrades the verdict toward FLAG, never
// toward a silent ALLOW.
func (a *Adapter) parse(raw string) (*Verdict, error) {
	raw = stripFences(raw)
	var w wireVerdict
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}

	v := &Verdict{}
	degraded := false

	for _, c := range w.Categories {
		cat := catalog.Category(strings.TrimSpace(strings.ToLower(c)))
		if !a.cat.Known(cat) {
			degraded = true
			continue
		}
		v.Categories = append(v.Categories, cat)
	}

	switch {
	case w.IsHarmful != nil:
		v.IsHarmful = *w.IsHarmful
	case len(v.Categories) > 0:
		// Harmful signal present elsewhere; never suppress it because
		// one field went missing.
		v.IsHarmful = true
		degraded = true
	default:
		degraded = true
	}

	v.Severity = SeverityNone
	if w.Severity != nil {
		switch s := Severity(strings.ToLower(strings.TrimSpace(*w.Severity))); s {
		case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
			v.Severity = s
		default:
			degraded = true
		}
	} else {
		degraded = true
	}
	if v.IsHarmful && v.Severity == SeverityNone {
		v.Severity = SeverityMedium
	}

	if w.Confidence != nil && *w.Confidence >= 0 && *w.Confidence <= 1 {
		v.Confidence = *w.Confidence
	} else {
		v.Confidence = 0.5
		degraded = true
	}

	if w.SuggestedAction != nil {
		switch act := strings.ToLower(strings.TrimSpace(*w.SuggestedAction)); act {
		case ActionAllow, ActionFlag, ActionRedact, ActionBlock:
			v.SuggestedAction = act
		}
	}
	if v.SuggestedAction == "" {
		if degraded || v.IsHarmful {
			v.SuggestedAction = ActionFlag
		} else {
			v.SuggestedAction = ActionAllow
		}
	}

	if w.RedactedContent != nil {
		v.RedactedContent = *w.RedactedContent
	}

	if degraded && !v.IsHarmful && v.SuggestedAction == ActionAllow {
		v.SuggestedAction = ActionFlag
	}
	v.Degraded = degraded

	return v, nil
}

// systemPrompt carries the fixed taxonomy and the exact response shape.
func (a *Adapter) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a content-safety classifier for a regional moderation gateway.\n")
	sb.WriteString("Classify the user message against these violation categories:\n")
	for _, cat := range a.cat.Categories() {
		sb.WriteString("  - ")
		sb.WriteString(string(cat))
		sb.WriteByte('\n')
	}
	sb.WriteString("\nOutput ONLY valid JSON, no prose, no markdown, in exactly this shape:\n")
	sb.WriteString(`{
  "is_harmful": true,
  "violation_categories": ["prompt_injection"],
  "severity": "none|low|medium|high|critical",
  "confidence": 0.0,
  "suggested_action": "allow|flag|redact|block",
  "redacted_content": ""
}`)
	return sb.String()
}

// ErrNoProvider is returned by NewProvider when the configured name is
// unknown.
var ErrNoProvider = errors.New("classifier: unknown provider")
