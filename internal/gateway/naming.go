package gateway

import "strings"

// toolIDSeparator joins the sanitized agent and skill halves of a tool id.
const toolIDSeparator = "_"

// sanitizeName lower-cases s and collapses every run of non-alphanumeric
// characters to a single separator, trimming leading and trailing separators.
// The result depends only on the input, so re-registering an unchanged agent
// always yields the same ids.
func sanitizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSep := false
	for _, r := range strings.ToLower(s) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteString(toolIDSeparator)
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// makeToolID derives the protocol-facing tool id for an (agent, skill) pair.
func makeToolID(agentName, skillName string) string {
	return sanitizeName(agentName) + toolIDSeparator + sanitizeName(skillName)
}
