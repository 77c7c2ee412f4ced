// Package sanitize strips unsafe markup from extracted article HTML.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer applies a fixed allowlist policy. It is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New creates a Sanitizer.
//
// The policy starts from bluemonday's UGC policy, which already rejects
// scripts, frames, embeds, forms, event handlers and non-http(s) URLs,
// and forces rel="nofollow" on links.
func New() *Sanitizer {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)

	p.AllowElements("figure", "figcaption", "picture")

	p.AllowStyles("text-align").
		MatchingEnum("left", "right", "center", "justify", "start", "end").
		Globally()
	p.AllowStyles("font-weight", "font-style", "text-decoration").Globally()

	return &Sanitizer{policy: p}
}

// Sanitize returns the cleaned, trimmed HTML. Sanitize(Sanitize(x)) equals
// Sanitize(x).
func (s *Sanitizer) Sanitize(html string) string {
	return strings.TrimSpace(s.policy.Sanitize(html))
}

var defaultSanitizer = New()

// HTML sanitizes with the shared default policy.
func HTML(html string) string {
	return defaultSanitizer.Sanitize(html)
}
