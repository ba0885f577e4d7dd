package triage

import (
	"fmt"
	"strconv"
	"strings"
)

// Default label names.
const (
	DefaultPendingTriageLabel = "pending-triage"
	DefaultMaxAssigneesPrefix = "max-assignees-"
	DefaultMaxAssignees       = 1
)

// Labels names the labels the bot reads and writes. All label matching goes
// through this type so there is one naming scheme per deployment.
type Labels struct {
	PendingTriage      string
	MaxAssigneesPrefix string
}

// DefaultLabels returns the stock label scheme.
func DefaultLabels() Labels {
	return Labels{
		PendingTriage:      DefaultPendingTriageLabel,
		MaxAssigneesPrefix: DefaultMaxAssigneesPrefix,
	}
}

// Validate rejects label schemes that would make quota matching ambiguous.
func (l Labels) Validate() error {
	if strings.TrimSpace(l.PendingTriage) == "" {
		return fmt.Errorf("pending-triage label name must not be empty")
	}
	if strings.TrimSpace(l.MaxAssigneesPrefix) == "" {
		return fmt.Errorf("max-assignees label prefix must not be empty")
	}
	if !strings.HasSuffix(l.MaxAssigneesPrefix, "-") {
		return fmt.Errorf("max-assignees label prefix %q must end with '-'", l.MaxAssigneesPrefix)
	}
	if strings.HasPrefix(l.PendingTriage, l.MaxAssigneesPrefix) {
		return fmt.Errorf("pending-triage label %q collides with quota prefix %q", l.PendingTriage, l.MaxAssigneesPrefix)
	}
	return nil
}

// IsQuotaLabel reports whether name is a max-assignees label.
func (l Labels) IsQuotaLabel(name string) bool {
	return strings.HasPrefix(name, l.MaxAssigneesPrefix)
}

// QuotaLabel returns the label name encoding a quota of n.
func (l Labels) QuotaLabel(n int) string {
	return l.MaxAssigneesPrefix + strconv.Itoa(n)
}

// ParseQuota decodes the quota of a max-assignees label. Suffixes that are not
// a non-negative integer yield DefaultMaxAssignees.
func (l Labels) ParseQuota(name string) int {
	suffix, ok := strings.CutPrefix(name, l.MaxAssigneesPrefix)
	if !ok {
		return DefaultMaxAssignees
	}
	n, err := strconv.Atoi(strings.TrimSpace(suffix))
	if err != nil || n < 0 {
		return DefaultMaxAssignees
	}
	return n
}
