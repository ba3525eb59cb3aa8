package oplog

import (
	"strings"
	"testing"
)

func TestString_RedactsBearerTokens(t *testing.T) {
	in := "request failed: Authorization: Bearer sk-abc123def456"
	out := String(in)
	if strings.Contains(out, "sk-abc123def456") {
		t.Fatalf("token survived redaction: %q", out)
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatalf("no redaction marker: %q", out)
	}
}

func TestString_RedactsAPIKeys(t *testing.T) {
	cases := []string{
		"api_key=sk-secretvalue123",
		"apikey: very-secret-thing",
		"token=abcdef123456",
	}
	for _, in := range cases {
		out := String(in)
		if strings.Contains(out, "secret") || strings.Contains(out, "abcdef123456") {
			t.Errorf("secret survived in %q -> %q", in, out)
		}
	}
}

func TestString_RedactsURLPaths(t *testing.T) {
	out := String("posting to https://hooks.example.com/services/T000/B000/secretpart failed")
	if strings.Contains(out, "T000") {
		t.Fatalf("url path survived: %q", out)
	}
	if !strings.Contains(out, "hooks.example.com") {
		t.Fatalf("host should survive for debuggability: %q", out)
	}
}

func TestString_LeavesPlainTextAlone(t *testing.T) {
	in := "evaluation finished with status FLAG"
	if out := String(in); out != in {
		t.Fatalf("plain text modified: %q", out)
	}
}

func TestSprintf(t *testing.T) {
	out := Sprintf("sink %s failed: %s", "webhook", "Bearer abc123")
	if strings.Contains(out, "abc123") {
		t.Fatalf("formatted secret survived: %q", out)
	}
}
