// Package render produces the deterministic Markdown title and body for
// a tracker issue, plus the hidden machine-readable markers that carry
// fingerprint and run metadata across the create->read->update cycle.
package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/climbsec/vibecheck/internal/fingerprint"
	"github.com/climbsec/vibecheck/internal/model"
	"github.com/climbsec/vibecheck/internal/tracker"
)

var titleCaser = cases.Title(language.Und)

const maxInlineLocations = 10
const maxSnippets = 3
const maxSnippetLines = 50

func severityEmoji(sev model.Severity) string {
	switch sev {
	case model.SeverityCritical:
		return "🔴"
	case model.SeverityHigh:
		return "🟠"
	case model.SeverityMedium:
		return "🟡"
	case model.SeverityLow:
		return "🔵"
	default:
		return "⚪"
	}
}

func autofixLine(level model.AutofixLevel) string {
	switch level {
	case model.AutofixSafe:
		return "✅ Safe autofix available"
	case model.AutofixRequiresReview:
		return "⚠️ Autofix requires review"
	default:
		return "Manual fix required"
	}
}

// Context carries the repo/run information the body needs beyond the
// finding itself.
type Context struct {
	Repo         model.Repo
	RunNumber    int64
	Timestamp    time.Time
	BranchPrefix string
}

// Body renders the deterministic Markdown body for f under ctx.
func Body(f *model.Finding, ctx Context) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s **%s** severity, **%s** confidence, **%s** effort\n\n",
		severityEmoji(f.Severity), titleCaser.String(string(f.Severity)), titleCaser.String(string(f.Confidence)), f.Effort))

	b.WriteString(f.Message)
	b.WriteString("\n\n")

	writeDetailsTable(&b, f)

	if f.Severity == model.SeverityCritical || f.Severity == model.SeverityHigh {
		b.WriteString(fmt.Sprintf("\n> **This is a %s-severity finding and should be prioritized.**\n\n", f.Severity))
	}

	writeLocationSection(&b, f, ctx.Repo)
	writeCodeSamples(&b, f)
	writeHowToFix(&b, f)
	writeReferences(&b, f)
	writeMetadata(&b, f, ctx)

	b.WriteString("\n")
	b.WriteString(tracker.FingerprintMarker(f.Fingerprint))
	b.WriteString("\n")
	b.WriteString(tracker.RunMetadataMarker(ctx.RunNumber, ctx.Timestamp))
	b.WriteString("\n")

	return b.String()
}

func writeDetailsTable(b *strings.Builder, f *model.Finding) {
	b.WriteString("**Details**\n\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("|---|---|\n")
	b.WriteString(fmt.Sprintf("| Tool | %s |\n", f.Tool))

	rule := f.RuleID
	if url := RuleURL(f.Tool, f.RuleID); url != "" {
		if strings.Contains(url, "](") {
			rule = url // already a composite markdown link list, from merged rule ids
		} else {
			rule = fmt.Sprintf("[%s](%s)", f.RuleID, url)
		}
	}
	b.WriteString(fmt.Sprintf("| Rule | %s |\n", rule))
	b.WriteString(fmt.Sprintf("| Layer | %s |\n", f.Layer))
	b.WriteString(fmt.Sprintf("| Autofix | %s |\n", autofixLine(f.Autofix)))
	b.WriteString("\n")
}

func blobURL(repo model.Repo, path string, start, end int) string {
	host := repo.Host
	if host == "" {
		host = "github.com"
	}
	anchor := fmt.Sprintf("#L%d", start)
	if end > start {
		anchor = fmt.Sprintf("#L%d-L%d", start, end)
	}
	return fmt.Sprintf("https://%s/%s/%s/blob/%s/%s%s", host, repo.Owner, repo.Name, repo.Commit, path, anchor)
}

func writeLocationSection(b *strings.Builder, f *model.Finding, repo model.Repo) {
	b.WriteString("**Location**\n\n")
	canonical := f.Canonical()
	b.WriteString(fmt.Sprintf("- %s\n", blobURL(repo, canonical.Path, canonical.StartLine, canonical.EndLine)))

	rest := f.Locations[1:]
	if len(rest) > 0 {
		if len(rest) <= maxInlineLocations {
			for _, loc := range rest {
				b.WriteString(fmt.Sprintf("- %s\n", blobURL(repo, loc.Path, loc.StartLine, loc.EndLine)))
			}
		} else {
			b.WriteString("\n<details><summary>All locations</summary>\n\n")
			for _, loc := range f.Locations {
				b.WriteString(fmt.Sprintf("- %s\n", blobURL(repo, loc.Path, loc.StartLine, loc.EndLine)))
			}
			b.WriteString("\n</details>\n")
		}
	}

	if len(f.Locations) >= 5 {
		writePrioritizationHint(b, f)
	}
	b.WriteString("\n")
}

func writePrioritizationHint(b *strings.Builder, f *model.Finding) {
	counts := make(map[string]int)
	for _, loc := range f.Locations {
		counts[loc.Path]++
	}
	var busiest string
	var busiestCount int
	for _, path := range f.UniqueFiles() {
		if counts[path] > busiestCount {
			busiest = path
			busiestCount = counts[path]
		}
	}
	files := f.UniqueFiles()
	if len(files) > 3 {
		first, last := minMaxPath(files)
		b.WriteString(fmt.Sprintf("\n> Most occurrences (%d) are in `%s`; affected files span `%s` to `%s`.\n", busiestCount, busiest, first, last))
	} else {
		b.WriteString(fmt.Sprintf("\n> Most occurrences (%d) are in `%s`.\n", busiestCount, busiest))
	}
}

func minMaxPath(paths []string) (string, string) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	return sorted[0], sorted[len(sorted)-1]
}

func writeCodeSamples(b *strings.Builder, f *model.Finding) {
	if f.Evidence == nil || f.Evidence.Snippet == "" {
		return
	}
	snippets := strings.Split(f.Evidence.Snippet, "---")
	heading := "Code Sample"
	if len(snippets) > 1 {
		heading = "Code Samples"
	}
	b.WriteString(fmt.Sprintf("**%s**\n\n", heading))

	shown := snippets
	if len(shown) > maxSnippets {
		shown = shown[:maxSnippets]
	}
	for _, snippet := range shown {
		b.WriteString("```\n")
		b.WriteString(truncateSnippet(snippet))
		b.WriteString("\n```\n\n")
	}
	if len(snippets) > maxSnippets {
		b.WriteString(fmt.Sprintf("_%d more sample(s) omitted._\n\n", len(snippets)-maxSnippets))
	}
}

func truncateSnippet(snippet string) string {
	lines := strings.Split(strings.TrimSpace(snippet), "\n")
	if len(lines) <= maxSnippetLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:maxSnippetLines], "\n") + "\n... (truncated)"
}

func defaultSuggestedFix(f *model.Finding) *model.SuggestedFix {
	return &model.SuggestedFix{
		Goal:       fmt.Sprintf("Resolve the %s finding reported by %s.", f.RuleID, f.Tool),
		Steps:      []string{fmt.Sprintf("Review the %s location(s) flagged above.", f.Tool), "Apply the appropriate fix or suppression."},
		Acceptance: []string{fmt.Sprintf("%s no longer reports %s at this location.", f.Tool, f.RuleID)},
	}
}

func writeHowToFix(b *strings.Builder, f *model.Finding) {
	fix := f.SuggestedFix
	if fix == nil {
		fix = defaultSuggestedFix(f)
	}
	b.WriteString("**How to Fix**\n\n")
	b.WriteString(fmt.Sprintf("Goal: %s\n\n", fix.Goal))
	b.WriteString("Steps:\n\n")
	for i, step := range fix.Steps {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
	}
	b.WriteString("\nDone when:\n\n")
	for _, a := range fix.Acceptance {
		b.WriteString(fmt.Sprintf("- [ ] %s\n", a))
	}
	b.WriteString("\n")
}

func writeReferences(b *strings.Builder, f *model.Finding) {
	if f.Evidence == nil || len(f.Evidence.Links) == 0 {
		return
	}
	var links []string
	for _, l := range f.Evidence.Links {
		if strings.HasPrefix(l, "http") {
			links = append(links, l)
		}
	}
	if len(links) == 0 {
		return
	}
	b.WriteString("**References**\n\n")
	for _, l := range links {
		b.WriteString(fmt.Sprintf("- %s\n", l))
	}
	b.WriteString("\n")
}

func writeMetadata(b *strings.Builder, f *model.Finding, ctx Context) {
	full := f.Fingerprint
	short := fingerprint.Short(full)
	commitShort := ctx.Repo.Commit
	if len(commitShort) > 12 {
		commitShort = commitShort[:12]
	}
	host := ctx.Repo.Host
	if host == "" {
		host = "github.com"
	}
	commitURL := fmt.Sprintf("https://%s/%s/%s/commit/%s", host, ctx.Repo.Owner, ctx.Repo.Name, ctx.Repo.Commit)
	branch := fmt.Sprintf("%s/fix-%s", ctx.BranchPrefix, short)

	b.WriteString("<details><summary>Metadata</summary>\n\n")
	b.WriteString(fmt.Sprintf("- Fingerprint: `%s` (full: `%s`)\n", short, full))
	b.WriteString(fmt.Sprintf("- Commit: [`%s`](%s)\n", commitShort, commitURL))
	b.WriteString(fmt.Sprintf("- Run: %d\n", ctx.RunNumber))
	b.WriteString(fmt.Sprintf("- Timestamp: %s\n", ctx.Timestamp.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("- Suggested branch: `%s`\n", branch))
	b.WriteString("\n</details>\n")
}
