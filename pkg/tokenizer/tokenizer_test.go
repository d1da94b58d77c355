package tokenizer

import (
	"strings"
	"testing"
)

func TestCountTokens(t *testing.T) {
	if got := CountTokens(""); got != 1 {
		t.Errorf("CountTokens(\"\") = %d, want 1", got)
	}
	if got := CountTokens(strings.Repeat("word ", 300)); got != 400 {
		t.Errorf("CountTokens(300 words) = %d, want 400", got)
	}
}

func TestTruncate(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 1000))

	got, cut := Truncate(text, 400)
	if !cut {
		t.Fatal("expected truncation")
	}
	if n := len(strings.Fields(got)); n != 300 {
		t.Fatalf("kept %d words, want 300", n)
	}
	if CountTokens(got) > 400 {
		t.Fatalf("truncated text still exceeds budget: %d", CountTokens(got))
	}

	short := "a few words"
	if got, cut := Truncate(short, 400); cut || got != short {
		t.Fatalf("short text changed: %q, %v", got, cut)
	}
	if got, cut := Truncate(text, 0); cut || got != text {
		t.Fatal("non-positive budget must disable truncation")
	}
}
