// Package score implements the pure, total scoring and classification
// functions of the per-tool tables: severity, confidence, layer, effort,
// and autofix level, derived from a tool's native output shape.
package score

import (
	"strings"

	"github.com/climbsec/vibecheck/internal/model"
)

// securityTokens are substrings of a rule id that imply a security layer
// regardless of tool.
var securityTokens = []string{
	"security", "xss", "injection", "csrf", "sql", "xxe", "ssrf", "auth",
	"crypto", "secret", "password", "eval", "dangerous", "hardcoded",
	"random", "prototype", "pollution", "vulnerable",
}

// safeESLintRules are the whitespace/style rules whose autofix never
// changes program semantics.
var safeESLintRules = map[string]bool{
	"semi": true, "quotes": true, "indent": true, "comma-dangle": true,
	"no-extra-semi": true, "no-trailing-spaces": true, "eol-last": true,
	"space-before-function-paren": true, "object-curly-spacing": true,
	"array-bracket-spacing": true, "prefer-const": true, "no-var": true,
}

var safeRuffPrefixes = []string{"I", "W", "E1", "E2", "E3", "E7", "Q", "COM", "UP"}

// Input is the tool-native signal available at scoring time, already
// shaped by the out-of-scope per-tool parser into the common fields the
// tables key on.
type Input struct {
	Tool             model.Tool
	RuleID           string
	NativeSeverity   string // e.g. bandit's HIGH/MEDIUM/LOW, pmd priority as string, etc.
	NativeConfidence string
	LocationCount    int
	HasAutofix       bool
	RulesetToken     string // pmd ruleset, e.g. "errorprone"
	Category         string // spotbugs category, e.g. "SECURITY", "CORRECTNESS"
	Rank             int    // spotbugs numeric rank
	DuplicatedLines  int    // jscpd magnitude signal
	DuplicatedTokens int    // jscpd magnitude signal
}

// Result is the fully classified finding shape the scorer produces.
type Result struct {
	Severity   model.Severity
	Confidence model.Confidence
	Layer      model.Layer
	Effort     model.Effort
	Autofix    model.AutofixLevel
}

// Classify runs every stage of the per-tool table against in and returns
// the normalized classification.
func Classify(in Input) Result {
	sev, conf := severityAndConfidence(in)
	return Result{
		Severity:   sev,
		Confidence: conf,
		Layer:      layer(in),
		Effort:     effort(in),
		Autofix:    autofix(in),
	}
}

func severityAndConfidence(in Input) (model.Severity, model.Confidence) {
	switch in.Tool {
	case model.ToolTSC:
		return model.SeverityHigh, model.ConfidenceHigh

	case model.ToolJSCPD:
		return jscpdSeverity(in), model.ConfidenceHigh

	case model.ToolDependencyCruiser:
		return dependencyCruiserSeverity(in)

	case model.ToolKnip:
		return knipSeverity(in)

	case model.ToolSemgrep:
		return semgrepSeverity(in)

	case model.ToolRuff:
		return ruffSeverity(in)

	case model.ToolMypy:
		return mypySeverity(in), model.ConfidenceHigh

	case model.ToolBandit:
		return banditSeverity(in)

	case model.ToolPMD:
		return pmdSeverity(in)

	case model.ToolSpotBugs:
		return spotbugsSeverity(in)
	}
	return model.SeverityMedium, model.ConfidenceMedium
}

func jscpdSeverity(in Input) model.Severity {
	switch {
	case in.DuplicatedLines >= 50 || in.DuplicatedTokens >= 500:
		return model.SeverityHigh
	case in.DuplicatedLines >= 20 || in.DuplicatedTokens >= 200:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

func dependencyCruiserSeverity(in Input) (model.Severity, model.Confidence) {
	switch in.RuleID {
	case "cycle", "not-allowed", "forbidden":
		return model.SeverityHigh, model.ConfidenceHigh
	case "orphan", "reachable":
		return model.SeverityMedium, model.ConfidenceMedium
	}
	return model.SeverityMedium, model.ConfidenceMedium
}

func knipSeverity(in Input) (model.Severity, model.Confidence) {
	switch in.RuleID {
	case "dependencies", "devDependencies":
		return model.SeverityHigh, model.ConfidenceHigh
	case "exports":
		return model.SeverityMedium, model.ConfidenceMedium
	case "files":
		return model.SeverityMedium, model.ConfidenceHigh
	}
	return model.SeverityMedium, model.ConfidenceMedium
}

func semgrepSeverity(in Input) (model.Severity, model.Confidence) {
	sev := model.Severity(strings.ToLower(in.NativeSeverity))
	conf := model.Confidence(strings.ToLower(in.NativeConfidence))
	if sev.Rank() < 0 {
		sev = model.SeverityMedium
	}
	if conf.Rank() < 0 {
		conf = model.ConfidenceMedium
	}
	return sev, conf
}

func ruffSeverity(in Input) (model.Severity, model.Confidence) {
	rule := in.RuleID
	switch {
	case strings.HasPrefix(rule, "E9"):
		return model.SeverityCritical, model.ConfidenceHigh
	case strings.HasPrefix(rule, "F4"), strings.HasPrefix(rule, "F8"):
		return model.SeverityHigh, model.ConfidenceHigh
	case strings.HasPrefix(rule, "S"):
		return model.SeverityHigh, model.ConfidenceMedium
	case strings.HasPrefix(rule, "E"), strings.HasPrefix(rule, "F"):
		return model.SeverityHigh, model.ConfidenceHigh
	case strings.HasPrefix(rule, "W"):
		return model.SeverityMedium, model.ConfidenceMedium
	case strings.HasPrefix(rule, "C"), strings.HasPrefix(rule, "N"), strings.HasPrefix(rule, "D"):
		return model.SeverityLow, model.ConfidenceLow
	case strings.HasPrefix(rule, "B"):
		return model.SeverityMedium, model.ConfidenceMedium
	}
	return model.SeverityMedium, model.ConfidenceMedium
}

func mypySeverity(in Input) model.Severity {
	rule := strings.ToLower(in.RuleID)
	switch {
	case strings.Contains(rule, "import"):
		return model.SeverityMedium
	case strings.Contains(rule, "note"):
		return model.SeverityLow
	default:
		return model.SeverityHigh
	}
}

func banditSeverity(in Input) (model.Severity, model.Confidence) {
	var sev model.Severity
	switch strings.ToUpper(in.NativeSeverity) {
	case "HIGH":
		sev = model.SeverityCritical
	case "MEDIUM":
		sev = model.SeverityHigh
	case "LOW":
		sev = model.SeverityMedium
	default:
		sev = model.SeverityMedium
	}
	var conf model.Confidence
	switch strings.ToUpper(in.NativeConfidence) {
	case "HIGH":
		conf = model.ConfidenceHigh
	case "MEDIUM":
		conf = model.ConfidenceMedium
	case "LOW":
		conf = model.ConfidenceLow
	default:
		conf = model.ConfidenceMedium
	}
	return sev, conf
}

func pmdSeverity(in Input) (model.Severity, model.Confidence) {
	var sev model.Severity
	switch in.NativeSeverity {
	case "1":
		sev = model.SeverityCritical
	case "2":
		sev = model.SeverityHigh
	case "3":
		sev = model.SeverityMedium
	case "4", "5":
		sev = model.SeverityLow
	default:
		sev = model.SeverityMedium
	}
	ruleset := strings.ToLower(in.RulesetToken)
	var conf model.Confidence
	switch {
	case ruleset == "errorprone":
		conf = model.ConfidenceHigh
	case ruleset == "security" || ruleset == "bestpractices":
		conf = model.ConfidenceMedium
	case ruleset == "design" || ruleset == "codestyle":
		conf = model.ConfidenceLow
	default:
		conf = model.ConfidenceMedium
	}
	return sev, conf
}

func spotbugsSeverity(in Input) (model.Severity, model.Confidence) {
	var sev model.Severity
	switch in.Category {
	case "SECURITY":
		if in.Rank <= 4 {
			sev = model.SeverityCritical
		} else {
			sev = model.SeverityHigh
		}
	case "CORRECTNESS":
		switch {
		case in.Rank <= 4:
			sev = model.SeverityCritical
		case in.Rank <= 9:
			sev = model.SeverityHigh
		default:
			sev = model.SeverityMedium
		}
	default:
		switch {
		case in.Rank <= 4:
			sev = model.SeverityCritical
		case in.Rank <= 9:
			sev = model.SeverityHigh
		case in.Rank <= 14:
			sev = model.SeverityMedium
		default:
			sev = model.SeverityLow
		}
	}
	var conf model.Confidence
	switch in.NativeConfidence {
	case "1":
		conf = model.ConfidenceHigh
	case "2":
		conf = model.ConfidenceMedium
	case "3":
		conf = model.ConfidenceLow
	default:
		conf = model.ConfidenceMedium
	}
	return sev, conf
}

func layer(in Input) model.Layer {
	rule := strings.ToLower(in.RuleID)

	if in.Tool == model.ToolBandit {
		return model.LayerSecurity
	}
	if in.Tool == model.ToolSpotBugs {
		if in.Category == "SECURITY" {
			return model.LayerSecurity
		}
		if containsAny(rule, []string{"security", "sql", "xss"}) {
			return model.LayerSecurity
		}
		return model.LayerCode
	}
	if strings.HasPrefix(in.RuleID, "GHSA-") || strings.HasPrefix(in.RuleID, "CVE-") || strings.HasPrefix(in.RuleID, "CWE-") {
		return model.LayerSecurity
	}
	if in.Tool == model.ToolTrunk && (strings.Contains(in.RuleID, "GHSA") || strings.Contains(in.RuleID, "CVE")) {
		return model.LayerSecurity
	}
	if containsAny(rule, securityTokens) {
		return model.LayerSecurity
	}
	if in.Tool == model.ToolRuff && strings.HasPrefix(in.RuleID, "S") {
		return model.LayerSecurity
	}
	if in.Tool == model.ToolDependencyCruiser || in.Tool == model.ToolKnip {
		return model.LayerArchitecture
	}
	if containsAny(rule, []string{"import", "dependency", "cycle"}) {
		return model.LayerArchitecture
	}
	return model.LayerCode
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func effort(in Input) model.Effort {
	if in.HasAutofix {
		return model.EffortSmall
	}
	if in.LocationCount > 3 {
		return model.EffortLarge
	}
	if in.LocationCount > 1 {
		return model.EffortMedium
	}

	rule := strings.ToLower(in.RuleID)
	switch in.Tool {
	case model.ToolJSCPD:
		return model.EffortMedium
	case model.ToolDependencyCruiser:
		if in.RuleID == "cycle" {
			return model.EffortLarge
		}
		return model.EffortMedium
	case model.ToolKnip:
		return model.EffortSmall
	case model.ToolTSC, model.ToolMypy:
		return model.EffortMedium
	case model.ToolESLint, model.ToolPrettier:
		return model.EffortSmall
	case model.ToolRuff:
		if strings.HasPrefix(in.RuleID, "N") || strings.HasPrefix(in.RuleID, "D") {
			return model.EffortSmall
		}
		return model.EffortMedium
	case model.ToolBandit:
		if strings.Contains(rule, "hardcoded") && strings.Contains(rule, "secret") {
			return model.EffortSmall
		}
		return model.EffortMedium
	case model.ToolPMD:
		if strings.Contains(rule, "unused") || strings.Contains(rule, "empty") {
			return model.EffortSmall
		}
		return model.EffortMedium
	case model.ToolSpotBugs:
		return model.EffortMedium
	}
	return model.EffortMedium
}

func autofix(in Input) model.AutofixLevel {
	switch in.Tool {
	case model.ToolPrettier:
		return model.AutofixSafe
	case model.ToolESLint:
		if !in.HasAutofix {
			return model.AutofixNone
		}
		if safeESLintRules[in.RuleID] {
			return model.AutofixSafe
		}
		return model.AutofixRequiresReview
	case model.ToolTrunk:
		if in.HasAutofix {
			return model.AutofixRequiresReview
		}
		return model.AutofixNone
	case model.ToolRuff:
		if !in.HasAutofix {
			return model.AutofixNone
		}
		for _, p := range safeRuffPrefixes {
			if strings.HasPrefix(in.RuleID, p) {
				return model.AutofixSafe
			}
		}
		return model.AutofixRequiresReview
	}
	if in.HasAutofix {
		return model.AutofixRequiresReview
	}
	return model.AutofixNone
}
