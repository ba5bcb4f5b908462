// Package tracker defines the abstract capability set the reconciler
// consumes to talk to an external issue tracker, plus a concrete
// GitHub-Issues-shaped HTTP implementation and a rate-limiting wrapper.
package tracker

import (
	"context"

	"github.com/climbsec/vibecheck/internal/model"
)

// LabelSpec describes one label the tracker must have before issues
// referencing it can be created.
type LabelSpec struct {
	Name        string
	Color       string
	Description string
}

// CreateInput is the payload for creating a new issue.
type CreateInput struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

// UpdateInput is the payload for updating an existing issue. Nil fields
// are left unchanged.
type UpdateInput struct {
	Number int64
	Title  *string
	Body   *string
	Labels []string
}

// Tracker is the abstract capability set spec.md §4.4 requires. The
// reconciler depends only on this interface, never on a concrete
// transport, so its decision logic can be tested without mocking HTTP.
type Tracker interface {
	EnsureLabels(ctx context.Context, specs []LabelSpec) error
	SearchIssuesByLabel(ctx context.Context, labels []string) ([]*model.ExistingIssue, error)
	CreateIssue(ctx context.Context, in CreateInput) (int64, error)
	UpdateIssue(ctx context.Context, in UpdateInput) error
	CloseIssue(ctx context.Context, number int64, comment string) error
	AddIssueComment(ctx context.Context, number int64, body string) error
}
