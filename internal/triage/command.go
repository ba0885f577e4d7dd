package triage

import (
	"strings"
	"unicode"

	"github.com/cexll/triagebot/internal/github/comment"
)

// Slash-commands understood by the bot.
const (
	CmdApprove  = "/approve"
	CmdUpdate   = "/update"
	CmdAssign   = "/assign"
	CmdUnassign = "/unassign"
)

// Command is a trimmed comment body interpreted as a slash-command.
type Command struct {
	body string
}

// ParseCommand trims the comment body and drops the relay marker. An empty
// body yields an empty command.
func ParseCommand(body string) Command {
	return Command{body: comment.StripRelayed(body)}
}

// Body returns the trimmed body.
func (c Command) Body() string { return c.body }

// Is reports whether the body is exactly name.
func (c Command) Is(name string) bool {
	return c.body == name
}

// Has reports whether the body starts with name followed by the end of the
// body, whitespace or '@'. "/assignee" does not have "/assign".
func (c Command) Has(name string) bool {
	rest, ok := strings.CutPrefix(c.body, name)
	if !ok {
		return false
	}
	if rest == "" {
		return true
	}
	r := []rune(rest)[0]
	return unicode.IsSpace(r) || r == '@'
}

// Mentions returns the @-mentioned logins following name, in the order they
// appear. Text before the first '@' and empty segments are dropped; duplicates
// are kept. Returns nil when the body does not have name or names nobody.
func (c Command) Mentions(name string) []string {
	if !c.Has(name) {
		return nil
	}
	segments := strings.Split(strings.TrimPrefix(c.body, name), "@")
	var out []string
	for _, seg := range segments[1:] {
		fields := strings.Fields(seg)
		if len(fields) == 0 {
			continue
		}
		// only the login itself; trailing prose or list commas are not part of it
		if login := strings.TrimRight(fields[0], ",;"); login != "" {
			out = append(out, login)
		}
	}
	return out
}
