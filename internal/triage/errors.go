package triage

import (
	"errors"
	"fmt"

	gh "github.com/google/go-github/v66/github"
)

var (
	// ErrNoIssue indicates the triggering event carries no issue.
	ErrNoIssue = errors.New("event carries no issue")
	// ErrNoComment indicates the triggering event carries no comment.
	ErrNoComment = errors.New("event carries no comment")
)

// FetchError reports that reading the issue or comment of a run failed.
type FetchError struct {
	Entity string
	ID     int64
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %d: %v", e.Entity, e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError reports that a write answered with a non-success status.
type MutationError struct {
	Op     string
	Status int
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %v", e.Op, e.Status, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// TransportError reports that a call failed before any HTTP response arrived.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Classify turns the result of a go-github call into a MutationError or
// TransportError. It returns nil for successful calls, including 202 Accepted.
func Classify(op string, resp *gh.Response, err error) error {
	if err == nil {
		return nil
	}

	var accepted *gh.AcceptedError
	if errors.As(err, &accepted) {
		return nil
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &MutationError{Op: op, Status: ghErr.Response.StatusCode, Err: err}
	}
	if resp != nil && resp.Response != nil {
		return &MutationError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return &TransportError{Op: op, Err: err}
}

// StatusOf extracts the HTTP status from a classified error, or 0.
func StatusOf(err error) int {
	var mut *MutationError
	if errors.As(err, &mut) {
		return mut.Status
	}
	return 0
}
