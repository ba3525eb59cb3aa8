// Package guard orchestrates one evaluation: both detection layers run
// concurrently, their outputs are combined, the content transformed
// per verdict, and an audit record emitted. Evaluate never returns an
// error; every failure mode degrades to a conservative verdict.
package guard

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/kalkan-ai/kalkan/internal/audit"
	"github.com/kalkan-ai/kalkan/internal/catalog"
	"github.com/kalkan-ai/kalkan/internal/classifier"
	"github.com/kalkan-ai/kalkan/internal/decision"
	"github.com/kalkan-ai/kalkan/internal/pattern"
	"github.com/kalkan-ai/kalkan/internal/redact"
	"github.com/kalkan-ai/kalkan/internal/summary"
	"github.com/kalkan-ai/kalkan/internal/telemetry"
)

// Limits bounds what a single evaluation will analyze.
type Limits struct {
	// MaxInputBytes is the largest input the layers will inspect.
	// Larger inputs are flagged rather than silently truncated.
	MaxInputBytes int
	// PreviewChars bounds the scrubbed preview stored in audit records.
	PreviewChars int
}

// Result is the full outcome of one evaluation, internal view plus the
// sanitized external summary.
type Result struct {
	Status        decision.Status
	Content       string
	Violations    []catalog.Category
	RedactedItems []catalog.Category
	Confidence    float64
	AuditID       string
	Summary       summary.External
}

// Service wires the layers together. Construct once, share across
// requests; all methods are safe for concurrent use.
type Service struct {
	cat      *catalog.Catalog
	matcher  *pattern.Matcher
	redactor *redact.Redactor
	adapter  *classifier.Adapter
	emitter  *audit.Emitter
	tel      *telemetry.Provider
	limits   Limits
}

// New builds the service. emitter and tel may be nil; the service then
// skips audit delivery and metrics respectively.
func New(cat *catalog.Catalog, adapter *classifier.Adapter, emitter *audit.Emitter, tel *telemetry.Provider, limits Limits) *Service {
	if limits.MaxInputBytes <= 0 {
		limits.MaxInputBytes = 64 * 1024
	}
	if limits.PreviewChars <= 0 {
		limits.PreviewChars = 120
	}
	return &Service{
		cat:      cat,
		matcher:  pattern.NewMatcher(cat),
		redactor: redact.New(cat),
		adapter:  adapter,
		emitter:  emitter,
		tel:      tel,
		limits:   limits,
	}
}

// Evaluate runs both layers over text and returns the combined result.
// It never returns an error: layer failures degrade the verdict, they
// do not make the gateway unavailable.
func (s *Service) Evaluate(ctx context.Context, text string) Result {
	start := time.Now()
	auditID := uuid.New().String()

	var span trace.Span
	ctx, span = s.tel.Tracer().Start(ctx, "kalkan.evaluate")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		v := decision.Verdict{Status: decision.StatusAllow, Confidence: 1.0, Reason: "empty input"}
		res := Result{
			Status:     v.Status,
			Content:    text,
			Confidence: v.Confidence,
			AuditID:    auditID,
			Summary:    summary.Build(v, nil),
		}
		s.record(ctx, auditID, text, pattern.Result{Confidence: 1.0}, nil, v, start, 0)
		return res
	}

	if len(text) > s.limits.MaxInputBytes {
		v := decision.Verdict{
			Status:     decision.StatusFlag,
			Confidence: 0.5,
			Reason:     "input exceeds analysis limit, unable to fully analyze",
		}
		res := Result{
			Status:     v.Status,
			Content:    text,
			Confidence: v.Confidence,
			AuditID:    auditID,
			Summary:    summary.Build(v, nil),
		}
		s.record(ctx, auditID, text, pattern.Result{Confidence: v.Confidence}, nil, v, start, 0)
		return res
	}

	// Both layers run concurrently; the pattern layer is cheap, the
	// classifier call dominates latency.
	type classOut struct {
		verdict *classifier.Verdict
		elapsed time.Duration
	}
	classCh := make(chan classOut, 1)
	go func() {
		cs := time.Now()
		v := s.adapter.Classify(ctx, text)
		classCh <- classOut{verdict: v, elapsed: time.Since(cs)}
	}()

	patRes := s.matcher.Match(text)
	co := <-classCh

	verdict := decision.Combine(s.cat, patRes, co.verdict)

	res := Result{
		Status:     verdict.Status,
		Violations: verdict.Violations,
		Confidence: verdict.Confidence,
		AuditID:    auditID,
	}

	switch verdict.Status {
	case decision.StatusBlock:
		res.Content = ""
	case decision.StatusRedacted:
		red := s.redactor.Redact(text, patRes.PIIHits())
		res.Content = red.Redacted
		res.RedactedItems = red.Categories
	default:
		res.Content = text
	}

	res.Summary = summary.Build(verdict, res.RedactedItems)

	s.record(ctx, auditID, text, patRes, co.verdict, verdict, start, co.elapsed)
	return res
}

// record assembles and emits the audit entry and metrics. The raw text
// never enters the record: only its fingerprint and a scrubbed,
// bounded preview.
func (s *Service) record(ctx context.Context, auditID, text string, patRes pattern.Result, cls *classifier.Verdict, v decision.Verdict, start time.Time, classifierElapsed time.Duration) {
	elapsed := time.Since(start)

	rec := &audit.Record{
		AuditID:     auditID,
		Timestamp:   time.Now().UTC(),
		Fingerprint: audit.Fingerprint(text),
		Preview:     audit.BoundPreview(s.redactor.Scrub(text), s.limits.PreviewChars),
		Pattern: audit.LayerResult{
			Categories: patRes.Categories(),
			Confidence: patRes.Confidence,
		},
		Status:    string(v.Status),
		LatencyMs: float64(elapsed.Microseconds()) / 1000.0,
	}
	fallback := false
	if cls != nil {
		rec.Classifier = audit.LayerResult{
			Categories: cls.Categories,
			Confidence: cls.Confidence,
			Fallback:   cls.Fallback,
		}
		fallback = cls.Fallback
	}

	if s.emitter != nil {
		s.emitter.Emit(ctx, rec)
	}

	trace.SpanFromContext(ctx).SetAttributes(telemetry.SafeAttributes(map[string]interface{}{
		"kalkan.status":              string(v.Status),
		"kalkan.audit_id":            auditID,
		"kalkan.violation_count":     len(v.Violations),
		"kalkan.classifier_fallback": fallback,
		"kalkan.latency_ms":          rec.LatencyMs,
	})...)
	s.tel.RecordEvaluation(string(v.Status), fallback,
		float64(elapsed.Microseconds())/1000.0,
		float64(classifierElapsed.Microseconds())/1000.0,
		len(v.Violations))
}

// Close flushes the audit pipeline.
func (s *Service) Close(ctx context.Context) {
	if s.emitter != nil {
		s.emitter.Close(ctx)
	}
}
