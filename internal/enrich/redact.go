package enrich

import "regexp"

var (
	emailRe  = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	redditRe = regexp.MustCompile(`(?i)\bu/[a-z0-9_\-]+`)
	phoneRe  = regexp.MustCompile(`\b(?:\+?1[-. ]?)?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}\b`)
)

// Redact applies spec.md §4.6's PII rules to s: email addresses become
// "[email]", Reddit handles "u/<name>" become "[user]", and phone
// numbers become "[phone]". It runs before any LLM call and before a
// ContentComment is stored.
func Redact(s string) string {
	s = emailRe.ReplaceAllString(s, "[email]")
	s = redditRe.ReplaceAllString(s, "[user]")
	s = phoneRe.ReplaceAllString(s, "[phone]")
	return s
}
