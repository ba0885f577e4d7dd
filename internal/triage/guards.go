package triage

import (
	"strings"

	gh "github.com/google/go-github/v66/github"
)

// IsClosed reports whether the issue is closed.
func IsClosed(issue *gh.Issue) bool {
	return issue.GetState() == "closed"
}

// IsLocked reports whether the conversation is locked.
func IsLocked(issue *gh.Issue) bool {
	return issue.GetLocked()
}

// IsPullRequest reports whether the issue is a pull request.
func IsPullRequest(issue *gh.Issue) bool {
	return issue.IsPullRequest()
}

// HasLabel reports whether the issue carries a label with the given name.
func HasLabel(issue *gh.Issue, name string) bool {
	for _, l := range issue.Labels {
		if l.GetName() == name {
			return true
		}
	}
	return false
}

// HasQuotaLabel reports whether any max-assignees label is present.
func (l Labels) HasQuotaLabel(issue *gh.Issue) bool {
	for _, label := range issue.Labels {
		if l.IsQuotaLabel(label.GetName()) {
			return true
		}
	}
	return false
}

// MaxAssignees returns the quota encoded by the first max-assignees label in
// server order, or DefaultMaxAssignees when there is none.
func (l Labels) MaxAssignees(issue *gh.Issue) int {
	for _, label := range issue.Labels {
		if name := label.GetName(); l.IsQuotaLabel(name) {
			return l.ParseQuota(name)
		}
	}
	return DefaultMaxAssignees
}

// RemainingSlots is the number of assignees that can still be added. Never negative.
func (l Labels) RemainingSlots(issue *gh.Issue) int {
	return max(l.MaxAssignees(issue)-len(issue.Assignees), 0)
}

// Assignees returns the logins of the current assignees in server order.
func Assignees(issue *gh.Issue) []string {
	out := make([]string, 0, len(issue.Assignees))
	for _, u := range issue.Assignees {
		out = append(out, u.GetLogin())
	}
	return out
}

// Team is the triage allow-list.
type Team []string

// ParseTeam splits a comma-separated list of usernames, dropping blanks.
func ParseTeam(csv string) Team {
	var team Team
	for _, name := range strings.Split(csv, ",") {
		if name = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "@")); name != "" {
			team = append(team, name)
		}
	}
	return team
}

// Contains reports whether actor is a member. GitHub logins are case-insensitive.
func (t Team) Contains(actor string) bool {
	if actor == "" {
		return false
	}
	for _, member := range t {
		if strings.EqualFold(member, actor) {
			return true
		}
	}
	return false
}
