// ABOUTME: Tests for fragment markup to HTML formatting
// ABOUTME: Verifies rule ordering, pass-through of unknown markup and determinism

package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "heading and bold",
			in:   "# General\n**Goal:** detect fraud",
			want: "<h1>General</h1><br/><strong>Goal:</strong> detect fraud",
		},
		{
			name: "heading levels",
			in:   "# One\n## Two\n### Three",
			want: "<h1>One</h1><br/><h2>Two</h2><br/><h3>Three</h3>",
		},
		{
			name: "italic",
			in:   "an *important* note",
			want: "an <em>important</em> note",
		},
		{
			name: "bold before italic",
			in:   "**bold** and *italic*",
			want: "<strong>bold</strong> and <em>italic</em>",
		},
		{
			name: "list items",
			in:   "- Python\n- Spark",
			want: "<li>Python</li><br/><li>Spark</li>",
		},
		{
			name: "heading marker needs a space",
			in:   "#hashtag",
			want: "#hashtag",
		},
		{
			name: "four hashes pass through",
			in:   "#### Deep",
			want: "#### Deep",
		},
		{
			name: "unknown markup untouched",
			in:   "1. first\n> quote\n`code`",
			want: "1. first<br/>> quote<br/>`code`",
		},
		{
			name: "crlf line endings",
			in:   "# A\r\nB",
			want: "<h1>A</h1><br/>B",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestFormat_Idempotent(t *testing.T) {
	in := "## Data\n- **PII:** none\n- *retention* 30d"

	first := Format(in)
	second := Format(in)

	assert.Equal(t, first, second)
}
