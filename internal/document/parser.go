// ABOUTME: Extracts the [UPDATE EDITOR] instruction block from a raw assistant reply
// ABOUTME: Returns the cleaned chat message and at most one raw document fragment

package document

import (
	"regexp"
	"strings"
)

const (
	// StartMarker opens an instruction block inside an assistant reply.
	StartMarker = "[UPDATE EDITOR]"
	// EndMarker closes an instruction block.
	EndMarker = "[/UPDATE EDITOR]"
)

// blockPattern matches start...end non-greedily across lines.
var blockPattern = regexp.MustCompile(`(?s)` + regexp.QuoteMeta(StartMarker) + `(.*?)` + regexp.QuoteMeta(EndMarker))

// fencePattern matches a code fence with an optional info string (```markdown).
var fencePattern = regexp.MustCompile("```([A-Za-z0-9_+-]*)")

// adjacentEmptyFence matches an opener directly followed by a closer. The
// closer must not carry an info string, or it is really the next opener.
var adjacentEmptyFence = regexp.MustCompile("```(?:markdown)?\\s*```([^A-Za-z0-9_+-]|$)")

// Extraction is the result of splitting a raw reply into transcript text and
// document content.
type Extraction struct {
	// Message is the reply with every instruction block and any orphaned
	// empty code fence removed, then trimmed. May be empty.
	Message string
	// Fragment is the trimmed interior of the first instruction block.
	// Empty when the reply carried no usable block.
	Fragment string
}

// HasFragment reports whether the reply carried a non-empty instruction block.
func (e Extraction) HasFragment() bool {
	return e.Fragment != ""
}

// Extract splits a raw assistant reply. It never fails: a reply without a
// complete start/end pair is passed through as the message, trimmed.
func Extract(raw string) Extraction {
	var fragment string
	if m := blockPattern.FindStringSubmatch(raw); m != nil {
		fragment = strings.TrimSpace(stripMarkers(m[1]))
	}

	cleaned := blockPattern.ReplaceAllString(raw, "")
	cleaned = stripEmptyFences(cleaned)

	return Extraction{
		Message:  strings.TrimSpace(cleaned),
		Fragment: fragment,
	}
}

// stripMarkers removes stray markers left inside a block body, e.g. an
// unbalanced second start marker. The document must never contain one.
func stripMarkers(s string) string {
	s = strings.ReplaceAll(s, StartMarker, "")
	return strings.ReplaceAll(s, EndMarker, "")
}

// stripEmptyFences removes code fence pairs whose body is only whitespace.
// Fences are paired in order of appearance so a closing fence is only ever
// matched with its own opener. An odd fence count means some fence is
// unpaired, so pairing is abandoned and only adjacent empty fences go.
func stripEmptyFences(s string) string {
	locs := fencePattern.FindAllStringIndex(s, -1)
	if len(locs) < 2 {
		return s
	}
	if len(locs)%2 == 1 {
		return adjacentEmptyFence.ReplaceAllString(s, "${1}")
	}

	var b strings.Builder
	last := 0
	for i := 0; i+1 < len(locs); i += 2 {
		open, closing := locs[i], locs[i+1]
		if strings.TrimSpace(s[open[1]:closing[0]]) != "" {
			continue
		}
		b.WriteString(s[last:open[0]])
		last = closing[0] + len("```")
	}
	b.WriteString(s[last:])
	return b.String()
}
