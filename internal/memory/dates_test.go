package memory

import (
	"testing"
	"time"
)

func TestExtractRelativeDates(t *testing.T) {
	d := NewDateExtractor()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) // a Friday
	d.now = func() time.Time { return base }

	tests := []struct {
		text string
		want string
	}{
		{"what did we discuss yesterday", "2026-08-27"},
		{"remind me tomorrow", "2026-08-29"},
		{"let's meet today", "2026-08-28"},
	}
	for _, tt := range tests {
		got, ok := d.Extract(tt.text)
		if !ok {
			t.Errorf("Extract(%q): no date found, want %s", tt.text, tt.want)
			continue
		}
		if got != tt.want {
			t.Errorf("Extract(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestExtractNoDateIsNotAnError(t *testing.T) {
	d := NewDateExtractor()

	for _, text := range []string{
		"glowing dragon on a cliff",
		"favorite food",
		"",
	} {
		if got, ok := d.Extract(text); ok {
			t.Errorf("Extract(%q) = %s, want no match", text, got)
		}
	}
}
