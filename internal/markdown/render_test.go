package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	r := NewRenderer()

	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{
			name:     "bold and paragraphs",
			input:    "**Error generating answer:** timeout\n\nRelevant context:",
			contains: []string{"<strong>Error generating answer:</strong>", "<p>Relevant context:</p>"},
		},
		{
			name:     "list",
			input:    "Findings:\n\n- revenue grew\n- costs fell",
			contains: []string{"<ul>", "<li>revenue grew</li>", "<li>costs fell</li>"},
		},
		{
			name:     "hard wraps",
			input:    "[Page 2]\nThe capital of France is Paris.",
			contains: []string{"[Page 2]<br>"},
		},
		{
			name:     "table",
			input:    "| Quarter | Revenue |\n|---|---|\n| Q3 | 4.2M |",
			contains: []string{"<table>", "<td>Q3</td>"},
		},
		{
			name:     "heading ids",
			input:    "## Summary",
			contains: []string{`<h2 id="summary">Summary</h2>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Render(tt.input)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestRender_EscapesRawHTML(t *testing.T) {
	out, err := NewRenderer().Render(`<script>alert("x")</script>`)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestRender_Empty(t *testing.T) {
	out, err := NewRenderer().Render("")
	require.NoError(t, err)
	assert.Empty(t, out)
}
