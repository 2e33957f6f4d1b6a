package memory

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DateExtractor normalizes natural-language date expressions ("last friday",
// "tomorrow") into YYYY-MM-DD, relative to now. Extraction is best-effort:
// most queries contain no date expression, and that is not an error.
type DateExtractor struct {
	parser *when.Parser

	// now is swappable for deterministic tests.
	now func() time.Time
}

// NewDateExtractor creates an extractor with English and common rules.
func NewDateExtractor() *DateExtractor {
	parser := when.New(nil)
	parser.Add(en.All...)
	parser.Add(common.All...)
	return &DateExtractor{parser: parser, now: time.Now}
}

// Extract returns the normalized date found in text and true, or ("", false)
// when no date expression is recognized. It never returns an error to the
// caller; a parser failure is treated the same as no match.
func (d *DateExtractor) Extract(text string) (string, bool) {
	result, err := d.parser.Parse(text, d.now())
	if err != nil || result == nil {
		return "", false
	}
	return result.Time.Format("2006-01-02"), true
}
