package telemetry

import "testing"

func TestSafeAttributes_DropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(map[string]interface{}{
		"kalkan.status":      "BLOCK",
		"kalkan.content":     "raw submitted text",
		"request_text":       "more raw text",
		"user_email":         "ali@example.com",
		"kalkan.fingerprint": "abc123",
		"latency_ms":         12.5,
	})

	for _, a := range attrs {
		switch string(a.Key) {
		case "kalkan.content", "request_text", "user_email", "kalkan.fingerprint":
			t.Fatalf("sensitive key %s survived filtering", a.Key)
		}
	}

	keys := make(map[string]bool)
	for _, a := range attrs {
		keys[string(a.Key)] = true
	}
	if !keys["kalkan.status"] || !keys["latency_ms"] {
		t.Fatalf("safe keys missing from %v", keys)
	}
}

func TestSafeAttributes_SkipsOversizedStrings(t *testing.T) {
	big := make([]byte, 1024)
	for i := range big {
		big[i] = 'x'
	}
	attrs := SafeAttributes(map[string]interface{}{"note": string(big)})
	if len(attrs) != 0 {
		t.Fatal("oversized string value must be dropped")
	}
}

func TestSafeAttributes_Empty(t *testing.T) {
	if got := SafeAttributes(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}
