// ABOUTME: Converts a raw fragment of lightweight markup into HTML for the editor
// ABOUTME: Applies a fixed ordered list of line-oriented substitutions

package document

import (
	"regexp"
	"strings"
)

// rule is one match-and-replace pass.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// formatRules are applied in order. Headings run before emphasis so "#"
// lines are claimed first, and the line-break pass runs last so it cannot
// split a tag produced by an earlier pass.
var formatRules = []rule{
	{regexp.MustCompile(`(?m)^# (.*)$`), "<h1>${1}</h1>"},
	{regexp.MustCompile(`(?m)^## (.*)$`), "<h2>${1}</h2>"},
	{regexp.MustCompile(`(?m)^### (.*)$`), "<h3>${1}</h3>"},
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "<strong>${1}</strong>"},
	{regexp.MustCompile(`\*(.*?)\*`), "<em>${1}</em>"},
	{regexp.MustCompile(`(?m)^- (.*)$`), "<li>${1}</li>"},
	{regexp.MustCompile(`\n`), "<br/>"},
}

// Format renders a raw fragment. Unknown markup passes through untouched and
// the output depends only on the input.
func Format(fragment string) string {
	out := strings.ReplaceAll(fragment, "\r\n", "\n")
	for _, r := range formatRules {
		out = r.pattern.ReplaceAllString(out, r.replacement)
	}
	return out
}
