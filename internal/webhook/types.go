package webhook

import (
	"github.com/cexll/triagebot/internal/dispatcher"
	"github.com/cexll/triagebot/internal/github"
)

// RunSummary is the JSON body answered for a processed delivery.
type RunSummary struct {
	Delivery string           `json:"delivery,omitempty"`
	Event    string           `json:"event"`
	Action   string           `json:"action"`
	Repo     string           `json:"repo"`
	Issue    int              `json:"issue"`
	Failed   bool             `json:"failed"`
	Handlers []HandlerSummary `json:"handlers"`
}

// HandlerSummary is one handler outcome within a RunSummary.
type HandlerSummary struct {
	Name       string `json:"name"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func summarize(event *github.Context, result *dispatcher.Result) RunSummary {
	s := RunSummary{
		Delivery: event.DeliveryID,
		Event:    event.GetEventName(),
		Action:   event.GetEventAction(),
		Repo:     event.GetRepositoryFullName(),
		Issue:    event.GetIssueNumber(),
		Failed:   result.Failed(),
		Handlers: make([]HandlerSummary, 0, len(result.Outcomes)),
	}
	for _, o := range result.Outcomes {
		hs := HandlerSummary{Name: o.Handler, DurationMS: o.Duration.Milliseconds()}
		if o.Err != nil {
			hs.Error = o.Err.Error()
		}
		s.Handlers = append(s.Handlers, hs)
	}
	return s
}
