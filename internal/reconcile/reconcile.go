// Package reconcile implements the reconciler state machine: given the
// current run's deduplicated findings and the tracker's existing issue
// set, it decides what to create, update, close, or skip, as a pure
// function. The tracker adapter executes the resulting operations.
package reconcile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/climbsec/vibecheck/internal/model"
)

// OpKind enumerates the tracker mutations the reconciler can emit.
type OpKind string

const (
	OpCreate  OpKind = "create"
	OpUpdate  OpKind = "update"
	OpClose   OpKind = "close"
	OpComment OpKind = "comment"
)

// Op is a single tracker mutation to execute, in emission order.
type Op struct {
	Kind    OpKind
	Finding *model.Finding        // set for create/update
	Issue   *model.ExistingIssue  // set for update/close/comment
	Comment string                // set for close/comment
	Reason  string                // human-readable reason, for logs
}

// Stats tallies the outcome of a single reconciliation run, per spec.md §4.5/§6.
type Stats struct {
	Created               int
	Updated               int
	Closed                int
	SkippedBelowThreshold int
	SkippedDuplicate      int
	SkippedMaxReached     int
}

// Result is the full output of Reconcile: the ordered ops to execute
// plus the resulting stats.
type Result struct {
	Ops   []Op
	Stats Stats
}

var sublinterTools = map[string]bool{
	"yamllint": true, "markdownlint": true, "checkov": true,
	"osv-scanner": true, "prettier": true,
}

var titleToolRuleRe = regexp.MustCompile(`^\[[^\]]+\]\s+(\S+):\s+(\S+)`)
var sublinterTokenRe = regexp.MustCompile(`^(\S+):`)
var singleRuleTitleRe = regexp.MustCompile(`^\[[^\]]+\]\s+(\S+):\s+\S+`)

// sublinterToken extracts the sublinter name from a finding's own title,
// e.g. "osv-scanner: GHSA-xxxx ..." -> "osv-scanner". Mirrors the colon
// cutoff titleToolRuleRe/singleRuleTitleRe use on rendered issue titles,
// so a hyphenated name like osv-scanner is captured whole.
func sublinterToken(title string) string {
	m := sublinterTokenRe.FindStringSubmatch(title)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// indices are the three fallback lookup tables built once from the
// existing issue set, probed in order: fingerprint -> tool/rule -> sublinter.
type indices struct {
	byFingerprint map[string]*model.ExistingIssue
	byToolRule    map[string]*model.ExistingIssue
	bySublinter   map[string]*model.ExistingIssue
}

func buildIndices(existing []*model.ExistingIssue) *indices {
	idx := &indices{
		byFingerprint: make(map[string]*model.ExistingIssue),
		byToolRule:    make(map[string]*model.ExistingIssue),
		bySublinter:   make(map[string]*model.ExistingIssue),
	}
	for _, issue := range existing {
		if issue.Metadata.HasMetadata && issue.Metadata.Fingerprint != "" {
			idx.byFingerprint[issue.Metadata.Fingerprint] = issue
		}
		if m := titleToolRuleRe.FindStringSubmatch(issue.Title); m != nil {
			key := toolRuleKey(strings.ToLower(m[1]), strings.ToLower(m[2]))
			idx.byToolRule[key] = issue
		}
		if m := singleRuleTitleRe.FindStringSubmatch(issue.Title); m != nil {
			token := strings.ToLower(m[1])
			if sublinterTools[token] {
				idx.bySublinter[sublinterKey(token)] = issue
			}
		}
	}
	return idx
}

func toolRuleKey(tool, rule string) string { return tool + "\x00" + rule }
func sublinterKey(token string) string     { return "trunk\x00" + token }

// lookup probes the three tiers in order and returns the matched issue
// and whether the match was a fallback (not a direct fingerprint hit).
func (idx *indices) lookup(f *model.Finding) (*model.ExistingIssue, bool) {
	if issue, ok := idx.byFingerprint[f.Fingerprint]; ok {
		return issue, false
	}
	if issue, ok := idx.byToolRule[toolRuleKey(strings.ToLower(string(f.Tool)), strings.ToLower(f.RuleID))]; ok {
		return issue, true
	}
	if f.Tool == model.ToolTrunk {
		token := sublinterToken(f.Title)
		if issue, ok := idx.bySublinter[sublinterKey(token)]; ok {
			return issue, true
		}
	}
	return nil, false
}

// Reconcile is the pure decision function spec.md §9 calls for:
// (findings, existing, config, runNumber) -> ops[] + stats. findings
// must already be deduplicated and sorted into the deterministic
// processing order.
func Reconcile(findings []*model.Finding, existing []*model.ExistingIssue, cfg model.IssueConfig, runNumber int64) Result {
	var result Result
	idx := buildIndices(existing)
	seenFingerprints := make(map[string]bool)
	createdCount := 0

	for _, f := range findings {
		if !f.Severity.AtLeast(cfg.SeverityThreshold) || !f.Confidence.AtLeast(cfg.ConfidenceThreshold) {
			result.Stats.SkippedBelowThreshold++
			continue
		}

		seenFingerprints[f.Fingerprint] = true

		matched, isFallback := idx.lookup(f)
		if matched != nil && isFallback {
			priorFingerprint := matched.Metadata.Fingerprint
			idx.byFingerprint[f.Fingerprint] = matched
			if priorFingerprint != "" {
				seenFingerprints[priorFingerprint] = true
			}
		}

		if matched != nil {
			if matched.State == model.IssueStateOpen {
				result.Ops = append(result.Ops, Op{Kind: OpUpdate, Finding: f, Issue: matched, Reason: "matched existing open issue"})
				result.Stats.Updated++
			}
			// closed issue: no reopen, no op.
			continue
		}

		if createdCount >= cfg.MaxNewPerRun {
			result.Stats.SkippedMaxReached++
			continue
		}
		result.Ops = append(result.Ops, Op{Kind: OpCreate, Finding: f, Reason: "no existing issue matched"})
		createdCount++
		result.Stats.Created++
	}

	if cfg.CloseResolved {
		closedThisRun := make(map[int64]bool)
		applyFlapProtection(existing, seenFingerprints, runNumber, &result, closedThisRun)
		applySupersession(findings, existing, seenFingerprints, &result, closedThisRun)
		applyDuplicateCollapse(cfg.Label, existing, closedThisRun, &result)
	}

	return result
}

func applyFlapProtection(existing []*model.ExistingIssue, seen map[string]bool, runNumber int64, result *Result, closedThisRun map[int64]bool) {
	for _, issue := range existing {
		if issue.State != model.IssueStateOpen {
			continue
		}
		if !issue.Metadata.HasMetadata || issue.Metadata.Fingerprint == "" {
			continue
		}
		if seen[issue.Metadata.Fingerprint] {
			continue
		}
		consecutiveMisses := runNumber - issue.Metadata.LastSeenRun
		if consecutiveMisses >= model.FlapProtectionRuns {
			result.Ops = append(result.Ops, Op{
				Kind:    OpClose,
				Issue:   issue,
				Comment: "Finding no longer detected; closing as resolved.",
				Reason:  "flap protection: consecutive misses exceeded threshold",
			})
			result.Stats.Closed++
			closedThisRun[issue.Number] = true
		} else {
			remaining := model.FlapProtectionRuns - consecutiveMisses
			result.Ops = append(result.Ops, Op{
				Kind:    OpComment,
				Issue:   issue,
				Comment: fmt.Sprintf("Finding was not detected this run. Will auto-close after %d more consecutive miss(es).", remaining),
				Reason:  "flap protection: grace period",
			})
		}
	}
}

var mergedTitleMarkers = []string{"issues across", "occurrences)"}

func applySupersession(findings []*model.Finding, existing []*model.ExistingIssue, seen map[string]bool, result *Result, closedThisRun map[int64]bool) {
	mergedSublinters := make(map[string]bool)
	for _, f := range findings {
		if f.Tool != model.ToolTrunk {
			continue
		}
		if !isMergedFinding(f) {
			continue
		}
		token := sublinterToken(f.Title)
		mergedSublinters[token] = true
	}

	for _, issue := range existing {
		if issue.State != model.IssueStateOpen || closedThisRun[issue.Number] {
			continue
		}
		if issue.Metadata.Fingerprint != "" && seen[issue.Metadata.Fingerprint] {
			continue
		}
		m := singleRuleTitleRe.FindStringSubmatch(issue.Title)
		if m == nil {
			continue
		}
		token := strings.ToLower(m[1])
		if !mergedSublinters[token] {
			continue
		}
		result.Ops = append(result.Ops, Op{
			Kind:    OpClose,
			Issue:   issue,
			Comment: "Superseded by a consolidated finding covering this sublinter.",
			Reason:  "supersession: consolidated into a merged finding",
		})
		result.Stats.Closed++
		closedThisRun[issue.Number] = true
	}
}

func isMergedFinding(f *model.Finding) bool {
	if strings.Contains(f.RuleID, "+") {
		return true
	}
	for _, marker := range mergedTitleMarkers {
		if strings.Contains(f.Title, marker) {
			return true
		}
	}
	return false
}

var (
	occurrencesSuffixRe = regexp.MustCompile(`\s*\(\d+\s+occurrences\)\s*$`)
	inFileSuffixRe      = regexp.MustCompile(`\s+in\s+\S+\s*$`)
	titleWhitespaceRe   = regexp.MustCompile(`\s+`)
)

// normalizeTitle implements spec.md §4.5(c)'s title normalization:
// lowercase, strip the "[label]" prefix, drop occurrence-count and
// trailing-file suffixes, collapse whitespace.
func normalizeTitle(label, title string) string {
	t := strings.ToLower(title)
	prefix := "[" + strings.ToLower(label) + "]"
	t = strings.TrimPrefix(t, prefix)
	t = occurrencesSuffixRe.ReplaceAllString(t, "")
	t = inFileSuffixRe.ReplaceAllString(t, "")
	t = titleWhitespaceRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

func applyDuplicateCollapse(label string, existing []*model.ExistingIssue, closedThisRun map[int64]bool, result *Result) {
	groups := make(map[string][]*model.ExistingIssue)
	order := make([]string, 0)

	for _, issue := range existing {
		if issue.State != model.IssueStateOpen || closedThisRun[issue.Number] {
			continue
		}
		key := normalizeTitle(label, issue.Title)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], issue)
	}

	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Number > group[j].Number })
		keep := group[0]
		for _, dup := range group[1:] {
			result.Ops = append(result.Ops, Op{
				Kind:    OpClose,
				Issue:   dup,
				Comment: fmt.Sprintf("Duplicate of #%d.", keep.Number),
				Reason:  "duplicate collapse: normalized title collision",
			})
			result.Stats.Closed++
			result.Stats.SkippedDuplicate++
			closedThisRun[dup.Number] = true
		}
	}
}

// CompareFindingsForSort implements the deterministic processing order:
// severity desc, confidence desc, canonical path asc, canonical line asc.
func CompareFindingsForSort(a, b *model.Finding) bool {
	if a.Severity.Rank() != b.Severity.Rank() {
		return a.Severity.Rank() > b.Severity.Rank()
	}
	if a.Confidence.Rank() != b.Confidence.Rank() {
		return a.Confidence.Rank() > b.Confidence.Rank()
	}
	ca, cb := a.Canonical(), b.Canonical()
	if ca.Path != cb.Path {
		return ca.Path < cb.Path
	}
	return ca.StartLine < cb.StartLine
}

// SortFindings sorts findings in place by CompareFindingsForSort.
func SortFindings(findings []*model.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return CompareFindingsForSort(findings[i], findings[j])
	})
}
