package render

import (
	"strings"
	"testing"
)

// TestTerminalWidth tests that the width always falls inside usable bounds
func TestTerminalWidth(t *testing.T) {
	width := TerminalWidth()
	if width <= 0 || width > 120 {
		t.Errorf("TerminalWidth() = %d, want value in (0, 120]", width)
	}
}

// TestMarkdown tests basic rendering
func TestMarkdown(t *testing.T) {
	out, err := Markdown("# Title\n\nSome **bold** text.", 80)
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if !strings.Contains(out, "Title") {
		t.Errorf("rendered output missing heading text:\n%s", out)
	}
	if !strings.Contains(out, "bold") {
		t.Errorf("rendered output missing body text:\n%s", out)
	}
}

// TestMarkdownZeroWidth tests the width fallback
func TestMarkdownZeroWidth(t *testing.T) {
	out, err := Markdown("plain line", 0)
	if err != nil {
		t.Fatalf("Markdown() error = %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("rendered output is empty")
	}
}
