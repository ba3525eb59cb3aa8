// Package audit appends one immutable record per evaluation to an
// append-only sink. Records never contain the raw submitted text, only
// a one-way fingerprint and a bounded, scrubbed preview.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/kalkan-ai/kalkan/internal/catalog"
)

// LayerResult summarizes one detection layer inside a record.
type LayerResult struct {
	Categories []catalog.Category `json:"categories,omitempty"`
	Confidence float64            `json:"confidence"`
	Fallback   bool               `json:"fallback,omitempty"`
}

// Record is the canonical audit payload. Once written it is never
// updated or deleted by this subsystem.
type Record struct {
	AuditID     string      `json:"audit_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Fingerprint string      `json:"fingerprint"`
	Preview     string      `json:"preview,omitempty"`
	Pattern     LayerResult `json:"pattern"`
	Classifier  LayerResult `json:"classifier"`
	Status      string      `json:"status"`
	LatencyMs   float64     `json:"latency_ms"`
}

// Fingerprint derives a short one-way hash of the input text for audit
// correlation. It is not reversible to the original content.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:8])
}

// BoundPreview truncates an already-scrubbed preview to at most n
// bytes, ellipsis included, cutting on a rune boundary.
func BoundPreview(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	const ellipsis = "…"
	cut := n - len(ellipsis)
	if cut <= 0 {
		cut = n
		for cut > 0 && s[cut]&0xC0 == 0x80 {
			cut--
		}
		return s[:cut]
	}
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + ellipsis
}
