// Package syncrun wires the pure core (scoring, fingerprinting, dedup,
// reconciliation, rendering) to a Tracker adapter, executing the
// reconciler's emitted operations and producing the run's stats record.
package syncrun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/climbsec/vibecheck/internal/apperr"
	"github.com/climbsec/vibecheck/internal/dedup"
	"github.com/climbsec/vibecheck/internal/fingerprint"
	"github.com/climbsec/vibecheck/internal/model"
	"github.com/climbsec/vibecheck/internal/reconcile"
	"github.com/climbsec/vibecheck/internal/render"
	"github.com/climbsec/vibecheck/internal/score"
	"github.com/climbsec/vibecheck/internal/tracker"
)

var requiredLabels = []tracker.LabelSpec{
	{Name: "vibeCheck", Color: "5319e7", Description: "Synchronized static-analysis finding"},
}

// Options configures a single reconciliation run.
type Options struct {
	Repo         model.Repo
	RunNumber    int64
	Config       model.IssueConfig
	BranchPrefix string
	DryRun       bool
	Now          time.Time
	Logger       *slog.Logger
}

// Run scores, fingerprints, dedups, and reconciles raw findings against
// the tracker's existing issue set, then executes the resulting
// operations (unless DryRun). It returns the run's stats record.
func Run(ctx context.Context, trk tracker.Tracker, raw []*model.RawFinding, opts Options) (reconcile.Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Repo.Owner == "" {
		return reconcile.Stats{}, apperr.NewInput("validate run context", fmt.Errorf("run context missing repo owner"))
	}

	findings, err := scoreAndFingerprint(raw)
	if err != nil {
		return reconcile.Stats{}, err
	}
	findings = dedup.Dedup(findings)
	reconcile.SortFindings(findings)

	if !opts.DryRun {
		if err := trk.EnsureLabels(ctx, requiredLabels); err != nil {
			logger.Warn("ensureLabels failed", "error", err)
			if apperr.IsPermanent(err) {
				return reconcile.Stats{}, err
			}
		}
	}

	existing, err := trk.SearchIssuesByLabel(ctx, []string{opts.Config.Label})
	if err != nil {
		return reconcile.Stats{}, err
	}

	result := reconcile.Reconcile(findings, existing, opts.Config, opts.RunNumber)

	if opts.DryRun {
		logger.Info("dry run: skipping tracker mutations", "ops", len(result.Ops))
		return result.Stats, nil
	}

	var permanentErrs int
	for _, op := range result.Ops {
		if err := execute(ctx, trk, op, opts); err != nil {
			logger.Error("tracker operation failed", "op", op.Kind, "reason", op.Reason, "error", err)
			if apperr.IsPermanent(err) {
				permanentErrs++
				continue
			}
			return result.Stats, err
		}
	}
	if permanentErrs > 0 {
		return result.Stats, fmt.Errorf("%d tracker operation(s) failed permanently", permanentErrs)
	}
	return result.Stats, nil
}

func execute(ctx context.Context, trk tracker.Tracker, op reconcile.Op, opts Options) error {
	renderCtx := render.Context{
		Repo:         opts.Repo,
		RunNumber:    opts.RunNumber,
		Timestamp:    opts.Now,
		BranchPrefix: opts.BranchPrefix,
	}

	switch op.Kind {
	case reconcile.OpCreate:
		title := render.Title(opts.Config.Label, op.Finding)
		body := render.Body(op.Finding, renderCtx)
		labels := render.Labels(opts.Config.Label, op.Finding)
		_, err := trk.CreateIssue(ctx, tracker.CreateInput{
			Title:     title,
			Body:      body,
			Labels:    labels,
			Assignees: opts.Config.Assignees,
		})
		return err

	case reconcile.OpUpdate:
		title := render.Title(opts.Config.Label, op.Finding)
		body := render.Body(op.Finding, renderCtx)
		labels := render.Labels(opts.Config.Label, op.Finding)
		return trk.UpdateIssue(ctx, tracker.UpdateInput{
			Number: op.Issue.Number,
			Title:  &title,
			Body:   &body,
			Labels: labels,
		})

	case reconcile.OpClose:
		return trk.CloseIssue(ctx, op.Issue.Number, op.Comment)

	case reconcile.OpComment:
		return trk.AddIssueComment(ctx, op.Issue.Number, op.Comment)
	}
	return fmt.Errorf("unknown op kind %q", op.Kind)
}

func scoreAndFingerprint(raw []*model.RawFinding) ([]*model.Finding, error) {
	out := make([]*model.Finding, 0, len(raw))
	for _, r := range raw {
		if len(r.Locations) == 0 {
			return nil, apperr.NewInput("validate finding", fmt.Errorf("finding %s/%s has no locations", r.Tool, r.RuleID))
		}
		f := classify(r)
		fingerprint.Assign(f)
		out = append(out, f)
	}
	return out, nil
}

func classify(r *model.RawFinding) *model.Finding {
	locationCount := r.LocationCount
	if locationCount == 0 {
		locationCount = len(r.Locations)
	}

	result := score.Classify(score.Input{
		Tool:             r.Tool,
		RuleID:           r.RuleID,
		NativeSeverity:   r.NativeSeverity,
		NativeConfidence: r.NativeConfidence,
		LocationCount:    locationCount,
		HasAutofix:       r.HasAutofix,
		RulesetToken:     r.RulesetToken,
		Category:         r.Category,
		Rank:             r.Rank,
		DuplicatedLines:  r.DuplicatedLines,
		DuplicatedTokens: r.DuplicatedTokens,
	})

	return &model.Finding{
		Tool:         r.Tool,
		RuleID:       r.RuleID,
		Title:        r.Title,
		Message:      r.Message,
		Severity:     result.Severity,
		Confidence:   result.Confidence,
		Effort:       result.Effort,
		Layer:        result.Layer,
		Autofix:      result.Autofix,
		Locations:    r.Locations,
		Evidence:     r.Evidence,
		SuggestedFix: r.SuggestedFix,
	}
}
