// Package sanitize scrubs PII from merchant dialogue before it is chunked,
// embedded, and stored. Scrubbing is best-effort pattern matching; source
// files are expected to be pre-anonymized upstream and this is the last line.
package sanitize

import "regexp"

var (
	cardPattern  = regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`\b(?:\+\d{1,2}\s?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`)
)

type Scrubber struct{}

func NewScrubber() *Scrubber {
	return &Scrubber{}
}

// Scrub replaces card numbers, emails, and phone numbers with typed
// placeholders. Card numbers go first: their digit groups would otherwise
// partially match the phone pattern.
func (s *Scrubber) Scrub(text string) string {
	text = cardPattern.ReplaceAllString(text, "[CREDIT_CARD]")
	text = emailPattern.ReplaceAllString(text, "[EMAIL]")
	text = phonePattern.ReplaceAllString(text, "[PHONE]")
	return text
}
