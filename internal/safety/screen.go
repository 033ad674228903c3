// Package safety records user messages that mention crisis topics so a person
// can review them. It never changes what the user sees.
package safety

import (
	"regexp"
	"strings"
)

// crisisPatterns are matched case-insensitively on word boundaries.
var crisisPatterns = []struct {
	label string
	re    *regexp.Regexp
}{
	{"suicide", regexp.MustCompile(`(?i)\bsuicid(e|al)\b`)},
	{"self-harm", regexp.MustCompile(`(?i)\bself[- ]?harm(ing)?\b`)},
	{"self-harm", regexp.MustCompile(`(?i)\b(cut|cutting|hurt|hurting) myself\b`)},
	{"end-life", regexp.MustCompile(`(?i)\b(kill|killing) myself\b`)},
	{"end-life", regexp.MustCompile(`(?i)\bend (my|it all|my life)\b`)},
	{"end-life", regexp.MustCompile(`(?i)\b(don'?t|do not) want to (live|be alive|wake up)\b`)},
	{"overdose", regexp.MustCompile(`(?i)\boverdos(e|ing)\b`)},
}

// Screen returns the distinct crisis labels found in text, in table order.
func Screen(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range crisisPatterns {
		if seen[p.label] {
			continue
		}
		if p.re.MatchString(text) {
			seen[p.label] = true
			out = append(out, p.label)
		}
	}
	return out
}

func joinLabels(labels []string) string {
	return strings.Join(labels, ",")
}
