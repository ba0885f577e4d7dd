package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// EventType defines supported GitHub webhook events
type EventType string

const (
	EventIssueComment EventType = "issue_comment"
	EventIssues       EventType = "issues"
)

// EventAction defines GitHub event actions
type EventAction string

const (
	ActionOpened    EventAction = "opened"
	ActionClosed    EventAction = "closed"
	ActionCreated   EventAction = "created"
	ActionEdited    EventAction = "edited"
	ActionLabeled   EventAction = "labeled"
	ActionUnlabeled EventAction = "unlabeled"
)

// ErrUnsupportedEvent is returned by ParseWebhookEvent for events the bot never acts on.
var ErrUnsupportedEvent = errors.New("unsupported event type")

// Context represents the parsed webhook delivery that triggered a run.
// It is built once and treated as read-only afterwards.
type Context struct {
	EventName   EventType
	EventAction EventAction
	DeliveryID  string
	Repository  Repository
	Actor       string

	// Issue/PR identification
	IsPR        bool
	IssueNumber int
	IssueState  string

	// Sub-payloads, nil when the event does not carry them
	TriggerComment *Comment
	Label          *Label

	// Raw payload for additional data
	Payload map[string]interface{}
}

// Repository represents a GitHub repository
type Repository struct {
	Owner    string
	Name     string
	FullName string
}

// Comment represents the comment sub-payload of an issue_comment delivery.
type Comment struct {
	ID       int64
	Body     string
	User     string
	UserType string
}

// Label represents the label sub-payload of a labeled/unlabeled delivery.
type Label struct {
	Name string
}

// ParseWebhookEvent parses a GitHub webhook event into Context
func ParseWebhookEvent(eventType string, payload []byte) (*Context, error) {
	switch EventType(eventType) {
	case EventIssueComment, EventIssues:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, eventType)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	ctx := &Context{
		EventName:   EventType(eventType),
		EventAction: EventAction(getStringField(data, "action")),
		Payload:     data,
	}

	if repo, ok := data["repository"].(map[string]interface{}); ok {
		ctx.Repository = Repository{
			Owner:    getStringField(repo, "owner", "login"),
			Name:     getStringField(repo, "name"),
			FullName: getStringField(repo, "full_name"),
		}
		if ctx.Repository.FullName == "" && ctx.Repository.Owner != "" {
			ctx.Repository.FullName = ctx.Repository.Owner + "/" + ctx.Repository.Name
		}
	}

	if sender, ok := data["sender"].(map[string]interface{}); ok {
		ctx.Actor = getStringField(sender, "login")
	}

	if issue, ok := data["issue"].(map[string]interface{}); ok {
		ctx.IssueNumber = int(getNumberField(issue, "number"))
		ctx.IssueState = getStringField(issue, "state")
		if pullRequest, hasPR := issue["pull_request"]; hasPR && pullRequest != nil {
			ctx.IsPR = true
		}
	}

	// The body is read from "body"; "body_text" is only present with the
	// text media type and is never consulted.
	if comment, ok := data["comment"].(map[string]interface{}); ok {
		ctx.TriggerComment = &Comment{
			ID:       int64(getNumberField(comment, "id")),
			Body:     getStringField(comment, "body"),
			User:     getStringField(comment, "user", "login"),
			UserType: getStringField(comment, "user", "type"),
		}
	}

	if label, ok := data["label"].(map[string]interface{}); ok {
		ctx.Label = &Label{Name: getStringField(label, "name")}
	}

	return ctx, nil
}

// LoadActionsEvent builds a Context from the environment GitHub Actions
// provides to a workflow step: GITHUB_EVENT_NAME, GITHUB_EVENT_PATH and GITHUB_ACTOR.
func LoadActionsEvent(eventName, eventPath, actor string) (*Context, error) {
	if strings.TrimSpace(eventName) == "" {
		return nil, fmt.Errorf("GITHUB_EVENT_NAME is required")
	}
	if strings.TrimSpace(eventPath) == "" {
		return nil, fmt.Errorf("GITHUB_EVENT_PATH is required")
	}

	payload, err := os.ReadFile(eventPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read event payload: %w", err)
	}

	ctx, err := ParseWebhookEvent(eventName, payload)
	if err != nil {
		return nil, err
	}
	if actor != "" {
		ctx.Actor = actor
	}
	return ctx, nil
}

// GetEventName returns the GitHub event name as a string.
func (c *Context) GetEventName() string { return string(c.EventName) }

// GetEventAction returns the GitHub event action as a string.
func (c *Context) GetEventAction() string { return string(c.EventAction) }

// GetRepositoryFullName returns owner/name if available.
func (c *Context) GetRepositoryFullName() string { return c.Repository.FullName }

// GetRepositoryOwner returns the repository owner login.
func (c *Context) GetRepositoryOwner() string { return c.Repository.Owner }

// GetRepositoryName returns the repository name.
func (c *Context) GetRepositoryName() string { return c.Repository.Name }

// GetIssueNumber returns the issue number for the context (PRs reuse issue numbering).
func (c *Context) GetIssueNumber() int { return c.IssueNumber }

// GetActor returns the actor login from the event payload.
func (c *Context) GetActor() string { return c.Actor }

// GetTriggerCommentBody returns the body of the trigger comment if present.
func (c *Context) GetTriggerCommentBody() string {
	if c.TriggerComment == nil {
		return ""
	}
	return c.TriggerComment.Body
}

// GetLabelName returns the name of the label sub-payload if present.
func (c *Context) GetLabelName() string {
	if c.Label == nil {
		return ""
	}
	return c.Label.Name
}

// Is reports whether the context matches the given event and action.
func (c *Context) Is(event EventType, action EventAction) bool {
	return c.EventName == event && c.EventAction == action
}

// Helper functions for safe map access
func getStringField(data map[string]interface{}, keys ...string) string {
	current := data
	for i, key := range keys {
		if i == len(keys)-1 {
			if val, ok := current[key].(string); ok {
				return val
			}
			return ""
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return ""
		}
	}
	return ""
}

func getNumberField(data map[string]interface{}, keys ...string) float64 {
	current := data
	for i, key := range keys {
		if i == len(keys)-1 {
			if val, ok := current[key].(float64); ok {
				return val
			}
			return 0
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return 0
		}
	}
	return 0
}
