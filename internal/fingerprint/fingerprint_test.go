package fingerprint

import (
	"testing"

	"github.com/climbsec/vibecheck/internal/model"
)

func testFinding(tool model.Tool, rule, path string, line int, msg string) *model.Finding {
	return &model.Finding{
		Tool:    tool,
		RuleID:  rule,
		Message: msg,
		Locations: []model.Location{
			{Path: path, StartLine: line},
		},
	}
}

func TestFull_StableUnderDriftWithinBucket(t *testing.T) {
	a := testFinding(model.ToolESLint, "no-unused-vars", "src/a.ts", 42, "'x' is defined but never used.")
	b := testFinding(model.ToolESLint, "no-unused-vars", "src/a.ts", 48, "'x' is defined but never used.")

	if Bucket(42) != Bucket(48) {
		t.Fatalf("expected same bucket, got %d and %d", Bucket(42), Bucket(48))
	}
	if Full(a) != Full(b) {
		t.Fatalf("expected stable fingerprint under drift, got %q and %q", Full(a), Full(b))
	}
}

func TestFull_ChangesAcrossBucket(t *testing.T) {
	a := testFinding(model.ToolESLint, "no-unused-vars", "src/a.ts", 42, "msg")
	b := testFinding(model.ToolESLint, "no-unused-vars", "src/a.ts", 61, "msg")

	if Bucket(42) == Bucket(61) {
		t.Fatalf("expected different buckets, both were %d", Bucket(42))
	}
	if Full(a) == Full(b) {
		t.Fatalf("expected fingerprint to change across bucket boundary")
	}
}

func TestFull_SensitiveToTool(t *testing.T) {
	a := testFinding(model.ToolESLint, "r", "p.ts", 1, "m")
	b := testFinding(model.ToolTSC, "r", "p.ts", 1, "m")
	if Full(a) == Full(b) {
		t.Fatalf("expected fingerprint to differ when tool differs")
	}
}

func TestFull_SensitiveToRuleID(t *testing.T) {
	a := testFinding(model.ToolESLint, "no-unused-vars", "p.ts", 1, "m")
	b := testFinding(model.ToolESLint, "no-var", "p.ts", 1, "m")
	if Full(a) == Full(b) {
		t.Fatalf("expected fingerprint to differ when ruleId differs")
	}
}

func TestFull_SensitiveToPath(t *testing.T) {
	a := testFinding(model.ToolESLint, "r", "src/a.ts", 1, "m")
	b := testFinding(model.ToolESLint, "r", "src/b.ts", 1, "m")
	if Full(a) == Full(b) {
		t.Fatalf("expected fingerprint to differ when canonical path differs")
	}
}

func TestFull_InsensitiveToNumeralsAndQuotedLiterals(t *testing.T) {
	a := testFinding(model.ToolESLint, "r", "p.ts", 1, "'foo' is defined but never used 3 times")
	b := testFinding(model.ToolESLint, "r", "p.ts", 1, "'bar' is defined but never used 7 times")
	if Full(a) != Full(b) {
		t.Fatalf("expected fingerprint to be stable across numeral/literal-only message changes")
	}
}

func TestFull_HasSha256Prefix(t *testing.T) {
	f := testFinding(model.ToolESLint, "r", "p.ts", 1, "m")
	got := Full(f)
	if got[:7] != "sha256:" {
		t.Fatalf("expected sha256: prefix, got %q", got)
	}
	if len(got) != len("sha256:")+64 {
		t.Fatalf("expected 64 hex chars after prefix, got %q (len %d)", got, len(got))
	}
}

func TestShort_TwelveHexChars(t *testing.T) {
	f := testFinding(model.ToolESLint, "r", "p.ts", 1, "m")
	short := Short(Full(f))
	if len(short) != 12 {
		t.Fatalf("expected 12-char short fingerprint, got %q (len %d)", short, len(short))
	}
}
