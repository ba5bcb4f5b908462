// Package fingerprint computes the stable content-addressed identity of
// a Finding: a digest over its semantic identity that tolerates minor
// code drift (line shifts within a bucket, cosmetic message changes)
// while remaining sensitive to anything that changes what the finding
// actually is.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/climbsec/vibecheck/internal/model"
)

const bucketSize = 20

var (
	numeralRe       = regexp.MustCompile(`\d+`)
	quotedLiteralRe = regexp.MustCompile(`"[^"]*"|'[^']*'`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// Bucket returns the line bucket a startLine falls into. Two lines in
// the same bucket are considered drift-equivalent for fingerprinting.
func Bucket(startLine int) int {
	return startLine / bucketSize
}

// normalizeMessage lowercases, collapses whitespace, and strips numerals
// and quoted literals so that cosmetic message changes do not perturb
// the fingerprint.
func normalizeMessage(msg string) string {
	msg = quotedLiteralRe.ReplaceAllString(msg, "")
	msg = numeralRe.ReplaceAllString(msg, "")
	msg = strings.ToLower(msg)
	msg = whitespaceRe.ReplaceAllString(msg, " ")
	return strings.TrimSpace(msg)
}

// Full computes the full fingerprint of a finding, in the form
// "sha256:<64-hex>".
func Full(f *model.Finding) string {
	canonical := f.Canonical()
	key := strings.Join([]string{
		string(f.Tool),
		f.RuleID,
		canonical.Path,
		fmt.Sprintf("%d", Bucket(canonical.StartLine)),
		normalizeMessage(f.Message),
	}, "\x00")
	sum := sha256.Sum256([]byte(key))
	return "sha256:" + fmt.Sprintf("%x", sum)
}

// Short returns the 12-hex-character display form of a full fingerprint
// (the "sha256:" prefix and trailing digest truncated).
func Short(full string) string {
	hex := strings.TrimPrefix(full, "sha256:")
	if len(hex) < 12 {
		return hex
	}
	return hex[:12]
}

// Assign computes and sets f.Fingerprint from f's current fields.
func Assign(f *model.Finding) {
	f.Fingerprint = Full(f)
}
