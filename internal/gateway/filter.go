package gateway

// capabilityFilter decides whether a discovered capability is exposed as a
// tool. Patterns are compiled once at construction; evaluation is pure and
// safe for concurrent use without locking.
type capabilityFilter struct {
	include []patternRule
	exclude []patternRule
}

// newCapabilityFilter compiles the configured include/exclude pattern lists.
func newCapabilityFilter(include, exclude []string) *capabilityFilter {
	return &capabilityFilter{
		include: compilePatterns(include),
		exclude: compilePatterns(exclude),
	}
}

// isAllowed evaluates the filter over the agent name, skill name, and derived
// tool id. Precedence is fixed, first match wins:
//
//  1. exact exclude match → reject
//  2. exact include match → accept
//  3. regex exclude match → reject
//  4. regex include match → accept
//  5. default: accept only when no include patterns are configured
//
// Exact exclusion outranks exact inclusion, which outranks any regex rule, so
// an operator can always pin a single tool in or out regardless of the
// broader regex patterns.
func (f *capabilityFilter) isAllowed(agentName, skillName, toolID string) bool {
	candidates := [3]string{agentName, skillName, toolID}

	for _, rule := range f.exclude {
		for _, c := range candidates {
			if rule.matchesExact(c) {
				return false
			}
		}
	}
	for _, rule := range f.include {
		for _, c := range candidates {
			if rule.matchesExact(c) {
				return true
			}
		}
	}
	for _, rule := range f.exclude {
		for _, c := range candidates {
			if rule.matchesRegex(c) {
				return false
			}
		}
	}
	for _, rule := range f.include {
		for _, c := range candidates {
			if rule.matchesRegex(c) {
				return true
			}
		}
	}
	return len(f.include) == 0
}
