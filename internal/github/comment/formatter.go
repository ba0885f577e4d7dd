package comment

import (
	"strings"
)

// UnlockedHeader opens every comment posted after an issue leaves triage.
const UnlockedHeader = "This issue has been verified and unlocked."

// AssignInvite is appended when nobody is assigned yet.
const AssignInvite = "If anyone is interested in working on this issue, please comment `/assign` to get assigned to this issue."

// FormatMentions renders logins as @-mentions separated by spaces.
// Input: ["a", "b"]  Output: "@a @b"
func FormatMentions(logins []string) string {
	var b strings.Builder
	for _, login := range logins {
		login = strings.TrimPrefix(strings.TrimSpace(login), "@")
		if login == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('@')
		b.WriteString(login)
	}
	return b.String()
}

// FormatUnlocked builds the comment posted when an issue is unlocked.
// Current assignees are told to start work; otherwise contributors are
// invited to self-assign.
func FormatUnlocked(assignees []string) string {
	mentions := FormatMentions(assignees)
	if mentions == "" {
		return UnlockedHeader + "\n\n" + AssignInvite
	}
	return UnlockedHeader + "\n\n" + mentions + " can start working on this issue now and raise PR"
}
