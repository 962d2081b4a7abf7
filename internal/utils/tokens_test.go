package utils_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/clusterloom-cli/internal/utils"
)

func TestCountTokens(t *testing.T) {
	cases := []struct {
		name string
		in   string
		min  int
	}{
		{"empty", "", 0},
		{"simple", "hello world", 2},
		{"long", strings.Repeat("a", 4000), 900},
	}
	for _, c := range cases {
		if got := utils.CountTokens(c.in); got < c.min {
			t.Errorf("%s: got %d < min %d", c.name, got, c.min)
		}
	}
}

func TestTruncateToTokenLimit(t *testing.T) {
	text := strings.Repeat("abcd ", 1000)
	trunc := utils.TruncateToTokenLimit(text, 300)
	if n := utils.CountTokens(trunc); n > 300 {
		t.Fatalf("tokens=%d exceeds limit", n)
	}
	if len(trunc) == 0 {
		t.Fatalf("expected non-empty truncation")
	}
}

func TestTruncateKeepsWholeLines(t *testing.T) {
	text := strings.Repeat("[SECTION] abcdefghij\n", 50)
	trunc := utils.TruncateToTokenLimit(text, 40)
	if !strings.HasSuffix(trunc, "\n") {
		t.Fatalf("expected cut at a line boundary, got %q", trunc[len(trunc)-10:])
	}
}
