package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestNarrator_SymbolPrefixes(t *testing.T) {
	var buf bytes.Buffer
	n := New(&buf)

	n.Progress("waiting for %s", "commit")
	n.Success("done")
	n.Failure("broken")
	n.Warn("careful")
	n.URL("https://web.example.com/")
	n.Finished("took %s", "2 minutes")
	n.Plain("no prefix")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		" ↻ waiting for commit",
		" ✓ done",
		" ✕ broken",
		" ⚠ careful",
		" \U0001f30d https://web.example.com/",
		" ⏱ took 2 minutes",
		"no prefix",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
