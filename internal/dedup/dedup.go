// Package dedup collapses a finding stream down to one entry per
// fingerprint, merging locations from every group member.
package dedup

import (
	"strconv"
	"strings"

	"github.com/climbsec/vibecheck/internal/fingerprint"
	"github.com/climbsec/vibecheck/internal/model"
)

// testFixturePathTokens are path substrings that mark a location as
// belonging to a test fixture rather than production source.
var testFixturePathTokens = []string{
	"testdata/", "fixtures/", "/test/fixtures/", "__fixtures__/",
}

// IsTestFixture reports whether any of the finding's locations live
// under a recognized test-fixture path.
func IsTestFixture(f *model.Finding) bool {
	for _, loc := range f.Locations {
		p := strings.ToLower(loc.Path)
		for _, tok := range testFixturePathTokens {
			if strings.Contains(p, tok) {
				return true
			}
		}
	}
	return false
}

// Dedup groups findings by fingerprint, preserving first-occurrence
// order, and merges each group's locations (deduplicated by
// path+startLine) onto the group's first member.
func Dedup(findings []*model.Finding) []*model.Finding {
	if len(findings) == 0 {
		return nil
	}

	order := make([]string, 0, len(findings))
	groups := make(map[string]*model.Finding, len(findings))
	locSeen := make(map[string]map[string]bool, len(findings))

	for _, f := range findings {
		if f.Fingerprint == "" {
			fingerprint.Assign(f)
		}
		fp := f.Fingerprint

		head, ok := groups[fp]
		if !ok {
			merged := *f
			merged.Locations = nil
			head = &merged
			groups[fp] = head
			order = append(order, fp)
			locSeen[fp] = make(map[string]bool)
		}

		for _, loc := range f.Locations {
			key := loc.Path + "\x00" + strconv.Itoa(loc.StartLine)
			if locSeen[fp][key] {
				continue
			}
			locSeen[fp][key] = true
			head.Locations = append(head.Locations, loc)
		}
	}

	out := make([]*model.Finding, 0, len(order))
	for _, fp := range order {
		out = append(out, groups[fp])
	}
	return out
}
