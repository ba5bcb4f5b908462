package tracker

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/climbsec/vibecheck/internal/model"
)

var (
	fingerprintMarkerRe = regexp.MustCompile(`<!--\s*vibecheck:fingerprint=(sha256:[0-9a-f]{64})\s*-->`)
	runMetadataMarkerRe = regexp.MustCompile(`<!--\s*vibecheck:run\s+runNumber=(\d+)\s+timestamp=(\S+)\s*-->`)
)

// FingerprintMarker renders the hidden HTML comment carrying a finding's
// full fingerprint. The anchor token "vibecheck:fingerprint=" must stay
// in sync with fingerprintMarkerRe.
func FingerprintMarker(fingerprint string) string {
	return fmt.Sprintf("<!-- vibecheck:fingerprint=%s -->", fingerprint)
}

// RunMetadataMarker renders the hidden HTML comment carrying the run
// number and ISO-8601 UTC timestamp an issue was last touched at.
func RunMetadataMarker(runNumber int64, at time.Time) string {
	return fmt.Sprintf("<!-- vibecheck:run runNumber=%d timestamp=%s -->", runNumber, at.UTC().Format(time.RFC3339))
}

// ParseMetadata recovers an issue's fingerprint and last-seen run number
// from its body markers. A body with no parseable markers yields a
// zero-value IssueMetadata with HasMetadata=false; it is never an error
// — the issue simply enters fallback matching.
func ParseMetadata(body string) model.IssueMetadata {
	var meta model.IssueMetadata

	if m := fingerprintMarkerRe.FindStringSubmatch(body); m != nil {
		meta.Fingerprint = m[1]
		meta.HasMetadata = true
	}

	if m := runMetadataMarkerRe.FindStringSubmatch(body); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			meta.LastSeenRun = n
			meta.HasMetadata = true
		}
	}

	return meta
}
