package enrich

import "github.com/microcosm-cc/bluemonday"

// sanitizePolicy implements spec.md §4.6's emission allow-list: {p, br,
// strong, em, ul, ol, li, a, h3}, preserving href on <a> and stripping
// every other tag plus all event/style attributes. bluemonday is an
// allow-list sanitizer by construction, so anything not named here is
// dropped automatically.
var sanitizePolicy = newSanitizePolicy()

func newSanitizePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "ul", "ol", "li", "h3")
	p.AllowAttrs("href").OnElements("a")
	p.AllowElements("a")
	p.RequireNoFollowOnLinks(false)
	return p
}

// Sanitize strips html down to a small allow-listed tag set before a
// field is emitted in the feed.
func Sanitize(html string) string {
	return sanitizePolicy.Sanitize(html)
}
