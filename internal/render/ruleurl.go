package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/climbsec/vibecheck/internal/model"
)

var (
	cweRe           = regexp.MustCompile(`^CWE-(\d+)`)
	ghsaRe          = regexp.MustCompile(`^GHSA-`)
	cveRe           = regexp.MustCompile(`^CVE-`)
	checkovRe       = regexp.MustCompile(`^CKV_[A-Z0-9_]+$`)
	markdownlintRe  = regexp.MustCompile(`^MD\d{3}$`)
	shellcheckRe    = regexp.MustCompile(`^SC\d{4}$`)
	eslintSimpleRe  = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	typescriptEsRe  = regexp.MustCompile(`^@typescript-eslint/`)
)

var yamllintRules = map[string]bool{
	"braces": true, "brackets": true, "colons": true, "commas": true,
	"comments": true, "comments-indentation": true, "document-end": true,
	"document-start": true, "empty-lines": true, "empty-values": true,
	"hyphens": true, "indentation": true, "key-duplicates": true,
	"key-ordering": true, "line-length": true, "new-line-at-end-of-file": true,
	"new-lines": true, "octal-values": true, "quoted-strings": true,
	"trailing-spaces": true, "truthy": true,
}

// RuleURL resolves a best-effort documentation URL for (tool, ruleId). It
// never errors; an unresolvable rule yields an empty string and the
// renderer falls back to plain code.
func RuleURL(tool model.Tool, ruleID string) string {
	if strings.Contains(ruleID, "+") {
		parts := strings.Split(ruleID, "+")
		links := make([]string, 0, len(parts))
		resolved := false
		for _, p := range parts {
			if u := RuleURL(tool, p); u != "" {
				links = append(links, fmt.Sprintf("[%s](%s)", p, u))
				resolved = true
			} else {
				links = append(links, p)
			}
		}
		if !resolved {
			return ""
		}
		return strings.Join(links, ", ")
	}

	if tool == model.ToolTrunk {
		return trunkRuleURL(ruleID)
	}

	switch tool {
	case model.ToolESLint:
		return eslintRuleURL(ruleID)
	case model.ToolSemgrep:
		return fmt.Sprintf("https://semgrep.dev/r/%s", ruleID)
	case model.ToolRuff:
		return fmt.Sprintf("https://docs.astral.sh/ruff/rules/%s", strings.ToLower(rulefiedRuffName(ruleID)))
	case model.ToolMypy:
		return "https://mypy.readthedocs.io/en/stable/error_code_list.html"
	case model.ToolBandit:
		return fmt.Sprintf("https://bandit.readthedocs.io/en/latest/plugins/%s.html", strings.ToLower(ruleID))
	case model.ToolPMD:
		return fmt.Sprintf("https://docs.pmd-code.org/latest/pmd_rules_java.html#%s", strings.ToLower(ruleID))
	case model.ToolSpotBugs:
		return fmt.Sprintf("https://spotbugs.readthedocs.io/en/stable/bugDescriptions.html#%s", ruleID)
	}

	return genericSecurityURL(ruleID)
}

// trunkRuleURL handles trunk's composite nature: the ruleId shape alone
// determines which underlying sublinter's doc-URL template applies.
func trunkRuleURL(ruleID string) string {
	switch {
	case ghsaRe.MatchString(ruleID):
		return fmt.Sprintf("https://github.com/advisories/%s", ruleID)
	case cveRe.MatchString(ruleID):
		return fmt.Sprintf("https://nvd.nist.gov/vuln/detail/%s", ruleID)
	case cweRe.MatchString(ruleID):
		if m := cweRe.FindStringSubmatch(ruleID); m != nil {
			return fmt.Sprintf("https://cwe.mitre.org/data/definitions/%s.html", m[1])
		}
	case checkovRe.MatchString(ruleID):
		return fmt.Sprintf("https://www.checkov.io/5.Policy%%20Index/%s.html", ruleID)
	case markdownlintRe.MatchString(ruleID):
		return fmt.Sprintf("https://github.com/DavidAnson/markdownlint/blob/main/doc/rules/%s.md", ruleID)
	case shellcheckRe.MatchString(ruleID):
		return fmt.Sprintf("https://www.shellcheck.net/wiki/%s", ruleID)
	case yamllintRules[ruleID]:
		return fmt.Sprintf("https://yamllint.readthedocs.io/en/stable/rules.html#module-yamllint.rules.%s", strings.ReplaceAll(ruleID, "-", "_"))
	case typescriptEsRe.MatchString(ruleID):
		name := strings.TrimPrefix(ruleID, "@typescript-eslint/")
		return fmt.Sprintf("https://typescript-eslint.io/rules/%s", name)
	case eslintSimpleRe.MatchString(ruleID):
		return eslintRuleURL(ruleID)
	}
	return genericSecurityURL(ruleID)
}

func eslintRuleURL(ruleID string) string {
	if typescriptEsRe.MatchString(ruleID) {
		return fmt.Sprintf("https://typescript-eslint.io/rules/%s", strings.TrimPrefix(ruleID, "@typescript-eslint/"))
	}
	return fmt.Sprintf("https://eslint.org/docs/latest/rules/%s", ruleID)
}

func genericSecurityURL(ruleID string) string {
	if ghsaRe.MatchString(ruleID) {
		return fmt.Sprintf("https://github.com/advisories/%s", ruleID)
	}
	if cveRe.MatchString(ruleID) {
		return fmt.Sprintf("https://nvd.nist.gov/vuln/detail/%s", ruleID)
	}
	if m := cweRe.FindStringSubmatch(ruleID); m != nil {
		return fmt.Sprintf("https://cwe.mitre.org/data/definitions/%s.html", m[1])
	}
	return ""
}

// rulefiedRuffName strips nothing today but exists so the ruff URL
// template has a single place to adjust if ruff's doc slug convention
// changes (it mirrors the rule code verbatim as of ruff's current docs).
func rulefiedRuffName(ruleID string) string {
	return ruleID
}
