package tracker

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/climbsec/vibecheck/internal/apperr"
	"github.com/climbsec/vibecheck/internal/model"
)

const (
	maxBackoffAttempts = 5
	baseBackoff        = 500 * time.Millisecond
	maxBackoff         = 30 * time.Second
)

// RateLimited wraps a Tracker with a pacing discipline: every call waits
// on a token bucket before executing, and transient failures are retried
// with capped exponential backoff before surfacing as permanent.
type RateLimited struct {
	inner   Tracker
	limiter *rate.Limiter
}

// NewRateLimited wraps inner with a limiter admitting ratePerSecond
// calls per second, bursting up to burst.
func NewRateLimited(inner Tracker, ratePerSecond float64, burst int) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// WithRateLimit paces a single tracker call through the limiter and
// retries transient failures with exponential backoff up to
// maxBackoffAttempts before surfacing the error as permanent.
func (r *RateLimited) WithRateLimit(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	backoff := baseBackoff

	for attempt := 0; attempt < maxBackoffAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return apperr.NewTrackerPermanent(op, 0, err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !apperr.IsTransient(err) {
			return err
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return apperr.NewTrackerPermanent(op, 0, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return apperr.AsPermanent(lastErr)
}

func (r *RateLimited) EnsureLabels(ctx context.Context, specs []LabelSpec) error {
	return r.WithRateLimit(ctx, "ensureLabels", func(ctx context.Context) error {
		return r.inner.EnsureLabels(ctx, specs)
	})
}

func (r *RateLimited) SearchIssuesByLabel(ctx context.Context, labels []string) ([]*model.ExistingIssue, error) {
	var out []*model.ExistingIssue
	err := r.WithRateLimit(ctx, "searchIssuesByLabel", func(ctx context.Context) error {
		issues, err := r.inner.SearchIssuesByLabel(ctx, labels)
		out = issues
		return err
	})
	return out, err
}

func (r *RateLimited) CreateIssue(ctx context.Context, in CreateInput) (int64, error) {
	var number int64
	err := r.WithRateLimit(ctx, "createIssue", func(ctx context.Context) error {
		n, err := r.inner.CreateIssue(ctx, in)
		number = n
		return err
	})
	return number, err
}

func (r *RateLimited) UpdateIssue(ctx context.Context, in UpdateInput) error {
	return r.WithRateLimit(ctx, "updateIssue", func(ctx context.Context) error {
		return r.inner.UpdateIssue(ctx, in)
	})
}

func (r *RateLimited) CloseIssue(ctx context.Context, number int64, comment string) error {
	return r.WithRateLimit(ctx, "closeIssue", func(ctx context.Context) error {
		return r.inner.CloseIssue(ctx, number, comment)
	})
}

func (r *RateLimited) AddIssueComment(ctx context.Context, number int64, body string) error {
	return r.WithRateLimit(ctx, "addIssueComment", func(ctx context.Context) error {
		return r.inner.AddIssueComment(ctx, number, body)
	})
}
