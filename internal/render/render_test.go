package render

import (
	"strings"
	"testing"
	"time"

	"github.com/climbsec/vibecheck/internal/fingerprint"
	"github.com/climbsec/vibecheck/internal/model"
)

func sampleFinding() *model.Finding {
	f := &model.Finding{
		Tool:       model.ToolESLint,
		RuleID:     "no-unused-vars",
		Title:      "'x' is defined but never used",
		Message:    "'x' is defined but never used.",
		Severity:   model.SeverityMedium,
		Confidence: model.ConfidenceHigh,
		Effort:     model.EffortSmall,
		Layer:      model.LayerCode,
		Autofix:    model.AutofixNone,
		Locations:  []model.Location{{Path: "src/a.ts", StartLine: 42}},
	}
	fingerprint.Assign(f)
	return f
}

// Property 9: every generated title has length <= 100.
func TestTitle_NeverExceedsMaxLength(t *testing.T) {
	f := sampleFinding()
	f.Title = strings.Repeat("a very long finding title describing the same defect over and over ", 5)
	got := Title("vibeCheck", f)
	if len(got) > 100 {
		t.Fatalf("title length %d exceeds 100: %q", len(got), got)
	}
}

func TestTitle_ShortFindingUnchanged(t *testing.T) {
	f := sampleFinding()
	got := Title("vibeCheck", f)
	want := "[vibeCheck] 'x' is defined but never used in src/a.ts"
	if got != want {
		t.Fatalf("Title() = %q, want %q", got, want)
	}
}

func TestTitle_LocationHintTiers(t *testing.T) {
	f := sampleFinding()
	f.Locations = append(f.Locations, model.Location{Path: "src/b.ts", StartLine: 1})
	got := locationHint(f)
	if got != " in src/a.ts +1 more" {
		t.Fatalf("locationHint() = %q", got)
	}

	f.Locations = append(f.Locations, model.Location{Path: "src/c.ts", StartLine: 1}, model.Location{Path: "src/d.ts", StartLine: 1})
	got = locationHint(f)
	if got != "" {
		t.Fatalf("expected empty location hint at 4+ files, got %q", got)
	}
}

// Property 10: label completeness.
func TestLabels_Completeness(t *testing.T) {
	f := sampleFinding()
	f.Autofix = model.AutofixSafe
	labels := Labels("vibeCheck", f)

	want := []string{"vibeCheck", "severity:medium", "confidence:high", "effort:S", "layer:code", "tool:eslint", "autofix:safe"}
	for _, w := range want {
		found := false
		for _, l := range labels {
			if l == w {
				found = true
			}
		}
		if !found {
			t.Fatalf("missing expected label %q in %v", w, labels)
		}
	}
}

func TestLabels_NoAutofixSafeWhenNotSafe(t *testing.T) {
	f := sampleFinding()
	f.Autofix = model.AutofixNone
	labels := Labels("vibeCheck", f)
	for _, l := range labels {
		if l == "autofix:safe" {
			t.Fatalf("did not expect autofix:safe label on a non-safe finding")
		}
	}
}

func TestBody_ContainsFingerprintAndLocationAnchor(t *testing.T) {
	f := sampleFinding()
	ctx := Context{
		Repo:         model.Repo{Owner: "acme", Name: "widgets", Commit: "abc123def456", Host: "github.com"},
		RunNumber:    7,
		Timestamp:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		BranchPrefix: "vibecheck",
	}
	body := Body(f, ctx)

	if !strings.Contains(body, fingerprint.Short(f.Fingerprint)) {
		t.Fatalf("expected body to contain short fingerprint")
	}
	if !strings.Contains(body, "#L42") {
		t.Fatalf("expected body to contain line-anchored URL, got: %s", body)
	}
	if !strings.Contains(body, "vibecheck:fingerprint=") {
		t.Fatalf("expected body to contain the fingerprint marker")
	}
	if !strings.Contains(body, "vibecheck:run") {
		t.Fatalf("expected body to contain the run metadata marker")
	}
}

func TestBody_Idempotent(t *testing.T) {
	f := sampleFinding()
	ctx := Context{
		Repo:      model.Repo{Owner: "acme", Name: "widgets", Commit: "abc123", Host: "github.com"},
		RunNumber: 1,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	a := Body(f, ctx)
	b := Body(f, ctx)
	if a != b {
		t.Fatalf("expected byte-identical output across calls")
	}
}

func locationsFinding(n int) *model.Finding {
	f := sampleFinding()
	f.Locations = nil
	for i := 0; i < n; i++ {
		f.Locations = append(f.Locations, model.Location{Path: "src/a.ts", StartLine: i + 1})
	}
	fingerprint.Assign(f)
	return f
}

func sampleCtx() Context {
	return Context{
		Repo:      model.Repo{Owner: "acme", Name: "widgets", Commit: "abc123", Host: "github.com"},
		RunNumber: 1,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// 11 total locations -> 10 remaining after the canonical one, which must
// still render inline per spec.md §4.6 ("inline (<=10) or collapsible (>10)").
func TestBody_ElevenLocationsRenderInline(t *testing.T) {
	f := locationsFinding(11)
	body := Body(f, sampleCtx())
	if strings.Contains(body, "<details><summary>All locations</summary>") {
		t.Fatalf("expected 11 total locations (10 remainder) to render inline, not collapsible:\n%s", body)
	}
	if strings.Count(body, "#L") < 11 {
		t.Fatalf("expected all 11 locations to be listed")
	}
}

// 12 total locations -> 11 remaining, over the inline threshold.
func TestBody_TwelveLocationsRenderCollapsible(t *testing.T) {
	f := locationsFinding(12)
	body := Body(f, sampleCtx())
	if !strings.Contains(body, "<details><summary>All locations</summary>") {
		t.Fatalf("expected 12 total locations (11 remainder) to render as a collapsible block:\n%s", body)
	}
}

func TestBody_PrioritizationHintAtFiveLocations(t *testing.T) {
	f := locationsFinding(5)
	body := Body(f, sampleCtx())
	if !strings.Contains(body, "Most occurrences") {
		t.Fatalf("expected a prioritization hint at 5+ locations:\n%s", body)
	}
}

func TestBody_NoPrioritizationHintBelowFiveLocations(t *testing.T) {
	f := locationsFinding(4)
	body := Body(f, sampleCtx())
	if strings.Contains(body, "Most occurrences") {
		t.Fatalf("did not expect a prioritization hint below 5 locations:\n%s", body)
	}
}

func TestBody_CodeSamplesTruncateWithFooter(t *testing.T) {
	f := sampleFinding()
	f.Evidence = &model.Evidence{
		Snippet: strings.Join([]string{"sample one", "sample two", "sample three", "sample four"}, "---"),
	}
	body := Body(f, sampleCtx())
	if !strings.Contains(body, "Code Samples") {
		t.Fatalf("expected plural 'Code Samples' heading for multiple snippets:\n%s", body)
	}
	if !strings.Contains(body, "1 more sample(s) omitted") {
		t.Fatalf("expected a footer noting the omitted 4th sample:\n%s", body)
	}
	if strings.Contains(body, "sample four") {
		t.Fatalf("expected the 4th sample beyond maxSnippets to be omitted:\n%s", body)
	}
}

func TestBody_SingleCodeSampleSingularHeading(t *testing.T) {
	f := sampleFinding()
	f.Evidence = &model.Evidence{Snippet: "only sample"}
	body := Body(f, sampleCtx())
	if !strings.Contains(body, "**Code Sample**\n\n") {
		t.Fatalf("expected singular 'Code Sample' heading for one snippet:\n%s", body)
	}
	if strings.Contains(body, "Code Samples") {
		t.Fatalf("did not expect the plural heading for a single snippet:\n%s", body)
	}
}

func TestBody_ReferencesOnlyHTTPLinks(t *testing.T) {
	f := sampleFinding()
	f.Evidence = &model.Evidence{Links: []string{"https://example.com/doc", "not-a-url", "ftp://example.com/x"}}
	body := Body(f, sampleCtx())
	if !strings.Contains(body, "https://example.com/doc") {
		t.Fatalf("expected the http(s) link to be rendered:\n%s", body)
	}
	if strings.Contains(body, "not-a-url") || strings.Contains(body, "ftp://example.com/x") {
		t.Fatalf("expected non-http(s) links to be filtered out:\n%s", body)
	}
}

func TestBody_NoReferencesSectionWithoutLinks(t *testing.T) {
	f := sampleFinding()
	body := Body(f, sampleCtx())
	if strings.Contains(body, "**References**") {
		t.Fatalf("did not expect a references section with no evidence links:\n%s", body)
	}
}
