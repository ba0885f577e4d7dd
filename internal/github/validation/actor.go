package validation

import (
	"strings"

	"github.com/cexll/triagebot/internal/github"
	"github.com/cexll/triagebot/internal/github/comment"
)

// IsBot reports whether an account is a bot.
// A bot either has type "Bot" or a login ending in [bot].
func IsBot(login, userType string) bool {
	if strings.EqualFold(userType, "Bot") {
		return true
	}
	return IsBotLogin(login)
}

// IsBotLogin checks the login alone.
func IsBotLogin(login string) bool {
	return strings.HasSuffix(strings.ToLower(login), "[bot]")
}

// ShouldIgnoreComment reports whether a comment must not be treated as a
// command. Bot comments are ignored so the bot never answers itself or
// another automation, and so are commands the bot relayed for someone else.
func ShouldIgnoreComment(c *github.Comment) bool {
	if c == nil {
		return true
	}
	return IsBot(c.User, c.UserType) || comment.IsRelayed(c.Body)
}
