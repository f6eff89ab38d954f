package gateway

import (
	"regexp"
	"strings"

	"meshgate/pkg/logging"
)

// regexMetaChars are the characters whose presence marks a configured pattern
// as a regular expression rather than an exact-match literal.
const regexMetaChars = `.*+?[]{}()^$|\`

// patternRule is one compiled filter pattern. A rule is either a literal
// (re == nil) or a regex. A pattern that looks like a regex but fails to
// compile degrades to a literal matching its own text.
type patternRule struct {
	raw string
	re  *regexp.Regexp
}

// compilePattern classifies and compiles a single configured pattern string.
func compilePattern(pattern string) patternRule {
	rule := patternRule{raw: pattern}
	if !strings.ContainsAny(pattern, regexMetaChars) {
		return rule
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logging.Warn("Filter", "Pattern %q is not a valid regex, matching it literally: %v", pattern, err)
		return rule
	}
	rule.re = re
	return rule
}

// compilePatterns compiles a configured pattern list in order.
func compilePatterns(patterns []string) []patternRule {
	rules := make([]patternRule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, compilePattern(p))
	}
	return rules
}

// isRegex reports whether the rule carries a compiled regex.
func (r patternRule) isRegex() bool {
	return r.re != nil
}

// matchesExact reports whether candidate equals the rule's literal text.
// Regex rules never match exactly; exact matching is reserved for literals so
// the precedence tiers stay disjoint.
func (r patternRule) matchesExact(candidate string) bool {
	return r.re == nil && r.raw == candidate
}

// matchesRegex reports whether the rule's regex matches candidate.
func (r patternRule) matchesRegex(candidate string) bool {
	return r.re != nil && r.re.MatchString(candidate)
}
