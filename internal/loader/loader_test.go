package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextParser(t *testing.T) {
	in := "Quarterly update\n\nRevenue grew 12 percent.\nMargins held.\n\n\nGuidance unchanged.\n"

	doc, err := (&TextParser{}).Parse(strings.NewReader(in), "update.txt")
	require.NoError(t, err)

	assert.Equal(t, "Quarterly update", doc.Title)
	assert.Equal(t, "text", doc.Format)
	assert.Equal(t, "Quarterly update\n\nRevenue grew 12 percent.\nMargins held.\n\nGuidance unchanged.", doc.Text)
}

func TestMarkdownParser(t *testing.T) {
	in := "# Earnings Call\n\nIntro with *emphasis* and `code`.\n\n- first item\n- second item\n"

	doc, err := (&MarkdownParser{}).Parse(strings.NewReader(in), "call.md")
	require.NoError(t, err)

	assert.Equal(t, "Earnings Call", doc.Title)
	assert.Equal(t, "markdown", doc.Format)
	assert.Contains(t, doc.Text, "Intro with emphasis and code.")
	assert.Contains(t, doc.Text, "first item")
	assert.Contains(t, doc.Text, "second item")
	assert.NotContains(t, doc.Text, "*")
	assert.NotContains(t, doc.Text, "#")
}

func TestHTMLParser(t *testing.T) {
	in := `<html><head><title>Filing Summary</title><style>p{color:red}</style></head>
<body>
<nav>Home | About</nav>
<h1>Annual Report</h1>
<p>Net income rose   sharply.</p>
<script>alert("x")</script>
<ul><li>Segment A</li><li>Segment B</li></ul>
<footer>Copyright</footer>
</body></html>`

	doc, err := (&HTMLParser{}).Parse(strings.NewReader(in), "filing.html")
	require.NoError(t, err)

	assert.Equal(t, "Filing Summary", doc.Title)
	assert.Equal(t, "html", doc.Format)
	assert.Equal(t, "Annual Report\n\nNet income rose sharply.\n\nSegment A\n\nSegment B", doc.Text)
}

func TestHTMLParser_TitleFallsBackToHeading(t *testing.T) {
	doc, err := (&HTMLParser{}).Parse(strings.NewReader(`<body><h1>Only Heading</h1><p>x</p></body>`), "a.html")
	require.NoError(t, err)
	assert.Equal(t, "Only Heading", doc.Title)
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{"text", "notes.txt", false},
		{"upper-case markdown", "README.MD", false},
		{"html", "page.htm", false},
		{"pdf", "report.pdf", false},
		{"docx", "memo.docx", false},
		{"legacy doc", "memo.doc", true},
		{"no extension", "Makefile", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ForFile(tt.file)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				assert.False(t, Supported(tt.file))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
			assert.True(t, Supported(tt.file))
		})
	}
}

func TestRegistry_TitleFallback(t *testing.T) {
	doc, err := Registry{}.Parse("reports/q3-results.md", strings.NewReader("no heading here"))
	require.NoError(t, err)

	assert.Equal(t, "q3-results", doc.Title)
	assert.Equal(t, "no heading here", doc.Text)
}

func TestRegistry_Unsupported(t *testing.T) {
	_, err := Registry{}.Parse("image.png", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
