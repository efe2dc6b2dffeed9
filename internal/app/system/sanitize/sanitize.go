// Package sanitize strips dangerous markup from user-supplied text.
//
// Comments, replies, article bodies, and profile bios come straight from
// the mobile client and may carry HTML. Rich text keeps a conservative
// tag set; plain-text fields are stripped entirely.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	rich  *bluemonday.Policy
	plain *bluemonday.Policy
)

func init() {
	rich = bluemonday.UGCPolicy()
	rich.RequireNoFollowOnLinks(true)

	plain = bluemonday.StrictPolicy()
}

// Rich sanitizes text that may legitimately contain markup (article
// bodies). Script, event handlers, and javascript: URLs are removed.
func Rich(s string) string {
	return strings.TrimSpace(rich.Sanitize(s))
}

// Plain strips all markup. Used for comments, replies, bios, titles,
// and reasons, which the client renders as text.
func Plain(s string) string {
	return strings.TrimSpace(plain.Sanitize(s))
}
