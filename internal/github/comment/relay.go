package comment

import "strings"

// RelayMarker tags slash-commands the bot posts on behalf of someone else.
// The webhook echo of such a comment is authored by the bot's credential,
// which is a plain User account when a personal token is used, so the marker
// is what keeps the echo from running the command a second time.
const RelayMarker = "<!-- triage-bot:relayed -->"

// TagRelayed appends the hidden relay marker to body.
func TagRelayed(body string) string {
	return strings.TrimSpace(body) + "\n\n" + RelayMarker
}

// IsRelayed reports whether body carries the relay marker.
func IsRelayed(body string) bool {
	return strings.Contains(body, RelayMarker)
}

// StripRelayed removes the relay marker and surrounding whitespace.
func StripRelayed(body string) string {
	return strings.TrimSpace(strings.ReplaceAll(body, RelayMarker, ""))
}
