package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/climbsec/vibecheck/internal/apperr"
	"github.com/climbsec/vibecheck/internal/model"
)

func TestGitHubTracker_SearchIssuesByLabel_Paginates(t *testing.T) {
	var requestedPages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPages = append(requestedPages, r.URL.Query().Get("page"))
		page := r.URL.Query().Get("page")

		var issues []ghIssue
		if page == "1" {
			for i := 0; i < 100; i++ {
				issues = append(issues, ghIssue{Number: int64(i + 1), State: "open", Title: "finding"})
			}
		} else {
			issues = []ghIssue{{Number: 101, State: "closed", Title: "finding"}}
		}
		json.NewEncoder(w).Encode(issues)
	}))
	defer srv.Close()

	trk := NewGitHubTracker("acme", "widgets", "token").WithBaseURL(srv.URL)
	out, err := trk.SearchIssuesByLabel(context.Background(), []string{"vibeCheck"})
	if err != nil {
		t.Fatalf("SearchIssuesByLabel failed: %v", err)
	}
	if len(out) != 101 {
		t.Fatalf("expected 101 issues across two pages, got %d", len(out))
	}
	if len(requestedPages) != 2 {
		t.Fatalf("expected exactly 2 page requests, got %d", len(requestedPages))
	}
	if out[100].State != model.IssueStateClosed {
		t.Fatalf("expected last issue to carry closed state, got %s", out[100].State)
	}
}

func TestGitHubTracker_CreateIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body ghCreateBody
		json.NewDecoder(r.Body).Decode(&body)
		if body.Title != "finding: eslint no-unused-vars" {
			t.Errorf("unexpected title: %q", body.Title)
		}
		json.NewEncoder(w).Encode(ghIssue{Number: 7, State: "open"})
	}))
	defer srv.Close()

	trk := NewGitHubTracker("acme", "widgets", "token").WithBaseURL(srv.URL)
	n, err := trk.CreateIssue(context.Background(), CreateInput{Title: "finding: eslint no-unused-vars", Body: "body"})
	if err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected issue number 7, got %d", n)
	}
}

func TestGitHubTracker_RateLimitedResponseIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	trk := NewGitHubTracker("acme", "widgets", "token").WithBaseURL(srv.URL)
	_, err := trk.CreateIssue(context.Background(), CreateInput{Title: "x"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperr.IsTransient(err) {
		t.Fatalf("expected a transient classification for 429, got %v", err)
	}
}

func TestGitHubTracker_NotFoundIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	trk := NewGitHubTracker("acme", "widgets", "token").WithBaseURL(srv.URL)
	err := trk.UpdateIssue(context.Background(), UpdateInput{Number: 1})
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := asPermanent(err); !ok {
		t.Fatalf("expected a permanent classification for 404, got %v", err)
	}
}

func TestGitHubTracker_EnsureLabels_422TreatedAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	trk := NewGitHubTracker("acme", "widgets", "token").WithBaseURL(srv.URL)
	if err := trk.EnsureLabels(context.Background(), []LabelSpec{{Name: "vibeCheck"}}); err != nil {
		t.Fatalf("expected 422 to be treated as already-exists, got %v", err)
	}
}
