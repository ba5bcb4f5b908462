package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/climbsec/vibecheck/internal/apperr"
	"github.com/climbsec/vibecheck/internal/model"
)

// GitHubTracker implements Tracker against the GitHub Issues REST API.
// No GitHub SDK is used; requests are built and decoded directly with
// net/http and encoding/json.
type GitHubTracker struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	token      string
}

// NewGitHubTracker constructs a GitHubTracker for owner/repo, authenticating
// with token.
func NewGitHubTracker(owner, repo, token string) *GitHubTracker {
	return &GitHubTracker{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://api.github.com/",
		owner:      owner,
		repo:       repo,
		token:      token,
	}
}

// WithBaseURL overrides the default API base URL. Used by tests and by
// GitHub Enterprise deployments.
func (c *GitHubTracker) WithBaseURL(base string) *GitHubTracker {
	cp := *c
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	cp.baseURL = base
	return &cp
}

func (c *GitHubTracker) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *GitHubTracker) do(op string, req *http.Request, v any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.NewTrackerTransient(op, 0, err)
	}
	defer resp.Body.Close()

	rateLimited403 := resp.StatusCode == http.StatusForbidden &&
		(resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != "")
	if resp.StatusCode == http.StatusTooManyRequests || rateLimited403 {
		return apperr.NewTrackerTransient(op, resp.StatusCode, fmt.Errorf("github api %s: %s", req.URL.Path, resp.Status))
	}
	if resp.StatusCode >= 500 {
		return apperr.NewTrackerTransient(op, resp.StatusCode, fmt.Errorf("github api %s: %s", req.URL.Path, resp.Status))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.NewTrackerPermanent(op, resp.StatusCode, fmt.Errorf("github api %s: %s", req.URL.Path, resp.Status))
	}
	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type ghLabel struct {
	Name        string `json:"name"`
	Color       string `json:"color,omitempty"`
	Description string `json:"description,omitempty"`
}

// EnsureLabels idempotently creates any label in specs that the repo
// does not already carry. GitHub returns 422 for a label that already
// exists, which this treats as success rather than a permanent error.
func (c *GitHubTracker) EnsureLabels(ctx context.Context, specs []LabelSpec) error {
	for _, spec := range specs {
		path := fmt.Sprintf("/repos/%s/%s/labels", c.owner, c.repo)
		req, err := c.newRequest(ctx, http.MethodPost, path, nil, ghLabel{
			Name:        spec.Name,
			Color:       spec.Color,
			Description: spec.Description,
		})
		if err != nil {
			return apperr.NewInput("ensureLabels", err)
		}
		if err := c.do("ensureLabels", req, nil); err != nil {
			if perm, ok := asPermanent(err); ok && perm.StatusCode == http.StatusUnprocessableEntity {
				continue // label already exists
			}
			return err
		}
	}
	return nil
}

type ghIssue struct {
	Number int64     `json:"number"`
	State  string    `json:"state"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Labels []ghLabel `json:"labels"`
}

func (g ghIssue) toExisting() *model.ExistingIssue {
	labels := make([]string, 0, len(g.Labels))
	for _, l := range g.Labels {
		labels = append(labels, l.Name)
	}
	state := model.IssueStateOpen
	if g.State == "closed" {
		state = model.IssueStateClosed
	}
	return &model.ExistingIssue{
		Number:   g.Number,
		State:    state,
		Title:    g.Title,
		Body:     g.Body,
		Labels:   labels,
		Metadata: ParseMetadata(g.Body),
	}
}

// SearchIssuesByLabel returns every issue (any state) carrying all of
// labels, paginating through the full result set.
func (c *GitHubTracker) SearchIssuesByLabel(ctx context.Context, labels []string) ([]*model.ExistingIssue, error) {
	var out []*model.ExistingIssue
	pageNum := 1
	for {
		q := url.Values{}
		q.Set("labels", strings.Join(labels, ","))
		q.Set("state", "all")
		q.Set("per_page", "100")
		q.Set("page", strconv.Itoa(pageNum))

		path := fmt.Sprintf("/repos/%s/%s/issues", c.owner, c.repo)
		req, err := c.newRequest(ctx, http.MethodGet, path, q, nil)
		if err != nil {
			return nil, apperr.NewInput("searchIssuesByLabel", err)
		}

		var results []ghIssue
		if err := c.do("searchIssuesByLabel", req, &results); err != nil {
			return nil, err
		}
		for _, g := range results {
			out = append(out, g.toExisting())
		}
		if len(results) < 100 {
			break
		}
		pageNum++
	}
	return out, nil
}

type ghCreateBody struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// CreateIssue creates a new issue and returns its number.
func (c *GitHubTracker) CreateIssue(ctx context.Context, in CreateInput) (int64, error) {
	path := fmt.Sprintf("/repos/%s/%s/issues", c.owner, c.repo)
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, ghCreateBody{
		Title:     in.Title,
		Body:      in.Body,
		Labels:    in.Labels,
		Assignees: in.Assignees,
	})
	if err != nil {
		return 0, apperr.NewInput("createIssue", err)
	}
	var created ghIssue
	if err := c.do("createIssue", req, &created); err != nil {
		return 0, err
	}
	return created.Number, nil
}

type ghUpdateBody struct {
	Title  *string  `json:"title,omitempty"`
	Body   *string  `json:"body,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// UpdateIssue patches an existing issue's title/body/labels.
func (c *GitHubTracker) UpdateIssue(ctx context.Context, in UpdateInput) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d", c.owner, c.repo, in.Number)
	req, err := c.newRequest(ctx, http.MethodPatch, path, nil, ghUpdateBody{
		Title:  in.Title,
		Body:   in.Body,
		Labels: in.Labels,
	})
	if err != nil {
		return apperr.NewInput("updateIssue", err)
	}
	return c.do("updateIssue", req, nil)
}

// CloseIssue closes an issue, optionally leaving a closing comment first.
func (c *GitHubTracker) CloseIssue(ctx context.Context, number int64, comment string) error {
	if comment != "" {
		if err := c.AddIssueComment(ctx, number, comment); err != nil {
			return err
		}
	}
	path := fmt.Sprintf("/repos/%s/%s/issues/%d", c.owner, c.repo, number)
	closed := "closed"
	req, err := c.newRequest(ctx, http.MethodPatch, path, nil, struct {
		State string `json:"state"`
	}{State: closed})
	if err != nil {
		return apperr.NewInput("closeIssue", err)
	}
	return c.do("closeIssue", req, nil)
}

// AddIssueComment posts a comment onto an existing issue.
func (c *GitHubTracker) AddIssueComment(ctx context.Context, number int64, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", c.owner, c.repo, number)
	req, err := c.newRequest(ctx, http.MethodPost, path, nil, struct {
		Body string `json:"body"`
	}{Body: body})
	if err != nil {
		return apperr.NewInput("addIssueComment", err)
	}
	return c.do("addIssueComment", req, nil)
}

func asPermanent(err error) (*apperr.TrackerPermanentError, bool) {
	perm, ok := err.(*apperr.TrackerPermanentError)
	return perm, ok
}
