package testing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"sync"

	gh "github.com/google/go-github/v66/github"
)

// Issue is the fake server's view of a remote issue or pull request.
type Issue struct {
	Number      int
	State       string
	Locked      bool
	Labels      []string
	Assignees   []string
	PullRequest bool
}

// Comment is the fake server's view of a remote issue comment.
type Comment struct {
	ID   int64
	Body string
	User string
}

// Call records one request received by the fake server.
type Call struct {
	Method string
	Path   string
	Body   map[string]any
	Raw    []byte
}

var (
	reIssue        = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/(\d+)$`)
	reComment      = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/comments/(\d+)$`)
	reReactions    = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/comments/(\d+)/reactions$`)
	reLabels       = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/(\d+)/labels$`)
	reLabel        = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/(\d+)/labels/(.+)$`)
	reLock         = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/(\d+)/lock$`)
	reAssignees    = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/(\d+)/assignees$`)
	reComments     = regexp.MustCompile(`^/repos/[^/]+/[^/]+/issues/(\d+)/comments$`)
	reUpdateBranch = regexp.MustCompile(`^/repos/[^/]+/[^/]+/pulls/(\d+)/update-branch$`)
)

// Server is an in-memory GitHub REST fake backed by httptest. It keeps issue
// state, applies mutations, and records every call so tests can assert on
// remote side effects.
type Server struct {
	mu       sync.Mutex
	issues   map[int]*Issue
	comments map[int64]*Comment
	failures map[string]int
	calls    []Call
	nextID   int64

	srv *httptest.Server
}

// NewServer starts a fake GitHub server. Call Close when done.
func NewServer() *Server {
	s := &Server{
		issues:   make(map[int]*Issue),
		comments: make(map[int64]*Comment),
		failures: make(map[string]int),
		nextID:   9000,
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }

// URL returns the server base URL.
func (s *Server) URL() string { return s.srv.URL }

// GitHubClient returns a go-github client pointed at the fake server.
func (s *Server) GitHubClient() *gh.Client {
	client := gh.NewClient(s.srv.Client())
	base, _ := url.Parse(s.srv.URL + "/")
	client.BaseURL = base
	client.UploadURL = base
	return client
}

// AddIssue seeds an issue.
func (s *Server) AddIssue(issue Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if issue.State == "" {
		issue.State = "open"
	}
	cp := issue
	s.issues[issue.Number] = &cp
}

// AddComment seeds a comment.
func (s *Server) AddComment(c Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.comments[c.ID] = &cp
}

// Issue returns a snapshot of an issue's current state.
func (s *Server) Issue(number int) Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if is, ok := s.issues[number]; ok {
		cp := *is
		cp.Labels = slices.Clone(is.Labels)
		cp.Assignees = slices.Clone(is.Assignees)
		return cp
	}
	return Issue{}
}

// Fail makes every request with the given method and path answer status.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Calls returns every recorded request.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Writes returns recorded requests that were not GETs.
func (s *Server) Writes() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

// CallsTo returns recorded requests matching method and path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	var raw []byte
	var body map[string]any
	if r.Body != nil {
		dec := json.NewDecoder(r.Body)
		var v json.RawMessage
		if err := dec.Decode(&v); err == nil {
			raw = v
			_ = json.Unmarshal(v, &body)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Body: body, Raw: raw})

	if status, ok := s.failures[r.Method+" "+r.URL.Path]; ok {
		writeJSON(w, status, map[string]any{"message": http.StatusText(status)})
		return
	}

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && reReactions.MatchString(path):
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1, "content": body["content"]})

	case r.Method == http.MethodGet && reComment.MatchString(path):
		id, _ := strconv.ParseInt(reComment.FindStringSubmatch(path)[1], 10, 64)
		c, ok := s.comments[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": c.ID, "body": c.Body, "user": map[string]any{"login": c.User}})

	case r.Method == http.MethodGet && reIssue.MatchString(path):
		s.withIssue(w, reIssue, path, func(is *Issue) {
			writeJSON(w, http.StatusOK, issueJSON(is))
		})

	case r.Method == http.MethodPost && reLabels.MatchString(path):
		s.withIssue(w, reLabels, path, func(is *Issue) {
			var names []string
			_ = json.Unmarshal(raw, &names)
			for _, n := range names {
				if !slices.Contains(is.Labels, n) {
					is.Labels = append(is.Labels, n)
				}
			}
			writeJSON(w, http.StatusOK, labelsJSON(is.Labels))
		})

	case r.Method == http.MethodDelete && reLabel.MatchString(path):
		name := reLabel.FindStringSubmatch(path)[2]
		s.withIssue(w, reLabel, path, func(is *Issue) {
			idx := slices.Index(is.Labels, name)
			if idx < 0 {
				writeJSON(w, http.StatusNotFound, map[string]any{"message": "Label does not exist"})
				return
			}
			is.Labels = slices.Delete(is.Labels, idx, idx+1)
			writeJSON(w, http.StatusOK, labelsJSON(is.Labels))
		})

	case reLock.MatchString(path) && (r.Method == http.MethodPut || r.Method == http.MethodDelete):
		s.withIssue(w, reLock, path, func(is *Issue) {
			is.Locked = r.Method == http.MethodPut
			w.WriteHeader(http.StatusNoContent)
		})

	case reAssignees.MatchString(path) && (r.Method == http.MethodPost || r.Method == http.MethodDelete):
		s.withIssue(w, reAssignees, path, func(is *Issue) {
			names := stringList(body["assignees"])
			if r.Method == http.MethodPost {
				for _, n := range names {
					if !slices.Contains(is.Assignees, n) {
						is.Assignees = append(is.Assignees, n)
					}
				}
				writeJSON(w, http.StatusCreated, issueJSON(is))
				return
			}
			is.Assignees = slices.DeleteFunc(is.Assignees, func(a string) bool { return slices.Contains(names, a) })
			writeJSON(w, http.StatusOK, issueJSON(is))
		})

	case r.Method == http.MethodPost && reComments.MatchString(path):
		s.withIssue(w, reComments, path, func(is *Issue) {
			s.nextID++
			text, _ := body["body"].(string)
			s.comments[s.nextID] = &Comment{ID: s.nextID, Body: text, User: "triage-bot[bot]"}
			writeJSON(w, http.StatusCreated, map[string]any{"id": s.nextID, "body": text})
		})

	case r.Method == http.MethodPut && reUpdateBranch.MatchString(path):
		s.withIssue(w, reUpdateBranch, path, func(is *Issue) {
			writeJSON(w, http.StatusAccepted, map[string]any{"message": "Updating pull request branch.", "url": "https://github.com/o/r/pull/" + strconv.Itoa(is.Number)})
		})

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	}
}

func (s *Server) withIssue(w http.ResponseWriter, re *regexp.Regexp, path string, fn func(*Issue)) {
	n, _ := strconv.Atoi(re.FindStringSubmatch(path)[1])
	is, ok := s.issues[n]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
		return
	}
	fn(is)
}

func issueJSON(is *Issue) map[string]any {
	assignees := make([]map[string]any, 0, len(is.Assignees))
	for _, a := range is.Assignees {
		assignees = append(assignees, map[string]any{"login": a})
	}
	out := map[string]any{
		"number":    is.Number,
		"state":     is.State,
		"locked":    is.Locked,
		"labels":    labelsJSON(is.Labels),
		"assignees": assignees,
	}
	if is.PullRequest {
		out["pull_request"] = map[string]any{"url": "https://api.github.com/repos/o/r/pulls/" + strconv.Itoa(is.Number)}
	}
	return out
}

func labelsJSON(names []string) []map[string]any {
	out := make([]map[string]any, 0, len(names))
	for _, n := range names {
		out = append(out, map[string]any{"name": n})
	}
	return out
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
