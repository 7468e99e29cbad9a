// Package richtext cleans the HTML of imported fields.
package richtext

import (
	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips scripts, event handlers and other unsafe markup from
// field HTML while keeping the media and layout markup cards rely on.
// A nil *Sanitizer passes text through unchanged.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func New() *Sanitizer {
	policy := bluemonday.UGCPolicy().
		AllowElements("img", "audio", "hr", "br", "div", "span", "u", "s", "sub", "sup").
		AllowAttrs("src", "alt").OnElements("img").
		AllowAttrs("src", "id", "type", "controls").OnElements("audio").
		AllowAttrs("id").OnElements("hr", "img").
		AllowAttrs("class").OnElements("span", "div")
	policy.AllowDataURIImages()
	policy.AllowStyling()
	return &Sanitizer{policy: policy}
}

// Sanitize returns the cleaned HTML.
func (s *Sanitizer) Sanitize(html string) string {
	if s == nil {
		return html
	}
	return s.policy.Sanitize(html)
}
