package render

import (
	"fmt"

	"github.com/climbsec/vibecheck/internal/dedup"
	"github.com/climbsec/vibecheck/internal/model"
)

// Labels computes the full label set for f, per spec.md §4.6: base
// label plus severity/confidence/effort/layer/tool facets, autofix:safe
// when applicable, and demo when any location is a test fixture.
func Labels(baseLabel string, f *model.Finding) []string {
	labels := []string{
		baseLabel,
		fmt.Sprintf("severity:%s", f.Severity),
		fmt.Sprintf("confidence:%s", f.Confidence),
		fmt.Sprintf("effort:%s", f.Effort),
		fmt.Sprintf("layer:%s", f.Layer),
		fmt.Sprintf("tool:%s", f.Tool),
	}
	if f.Autofix == model.AutofixSafe {
		labels = append(labels, "autofix:safe")
	}
	if dedup.IsTestFixture(f) {
		labels = append(labels, "demo")
	}
	return labels
}
