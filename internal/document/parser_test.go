package document

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fyerfyer/fund-info-parser/internal/models"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTempFile(t *testing.T, content, ext string) string {
	path := filepath.Join(t.TempDir(), "filing"+ext)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

// createTempPDF 生成每个元素一页的PDF
func createTempPDF(t *testing.T, pages ...string) string {
	path := filepath.Join(t.TempDir(), "filing.pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	for _, text := range pages {
		pdf.AddPage()
		pdf.MultiCell(0, 10, text, "", "", false)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("Failed to write PDF: %v", err)
	}
	return path
}

func TestPlainTextParser(t *testing.T) {
	content := "ACME WIDGET ETF - SUMMARY\nObjective.\fSecond page."
	file := createTempFile(t, content, ".txt")

	parser := NewPlainTextParser()
	pages, err := parser.Parse(file)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "ACME WIDGET ETF - SUMMARY\nObjective.", pages[0])
	assert.Equal(t, "Second page.", pages[1])
}

func TestMarkdownParser(t *testing.T) {
	content := "# Title\n\nThis is a **markdown** file.\n\n- Item 1\n- Item 2"
	file := createTempFile(t, content, ".md")

	parser := NewMarkdownParser()
	pages, err := parser.Parse(file)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	text := pages[0]
	assert.Contains(t, text, "This is a markdown file.")
	assert.Contains(t, text, "Item 1")
	assert.True(t, strings.HasPrefix(text, "Title\n"), "heading should be its own line: %q", text)
}

func TestHTMLParser(t *testing.T) {
	content := `<html><head><title>497K</title><style>p {color: red}</style></head>
<body>
<p>GENERAL&nbsp;INFORMATION</p>
<script>var x = 1;</script>
<hr style="page-break-after: always">
<p><b>ACME 2X LONG WIDGET ETF</b> – SUMMARY</p>
<table><tr><td>Management Fee</td><td>0.75%</td></tr></table>
<div style="page-break-before:always">DEF SHORT GADGET FUND – SUMMARY</div>
<p>Société   Générale
   exposure</p>
</body></html>`
	file := createTempFile(t, content, ".htm")

	parser := NewHTMLParser()
	pages, err := parser.Parse(file)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, "GENERAL INFORMATION", pages[0])
	assert.Equal(t, "ACME 2X LONG WIDGET ETF – SUMMARY\nManagement Fee\n0.75%", pages[1])
	assert.Equal(t, "DEF SHORT GADGET FUND – SUMMARY\nSociété Générale exposure", pages[2])

	for _, page := range pages {
		assert.NotContains(t, page, "var x")
		assert.NotContains(t, page, "color: red")
		assert.NotContains(t, page, "497K")
	}

	// 解析结果可以直接交给切分器
	blocks := NewBlockSplitter().Split("filing.htm", pages)
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[0].Text, "0.75%")
}

func TestPDFParser(t *testing.T) {
	file := createTempPDF(t, "ACME WIDGET ETF - SUMMARY\nThis is a PDF test.", "Second page (continued).")

	parser := NewPDFParser()
	pages, err := parser.Parse(file)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Contains(t, pages[0], "ACME WIDGET ETF - SUMMARY")
	assert.Contains(t, pages[0], "PDF test")
	assert.Contains(t, pages[1], "Second page (continued).")

	blocks := NewBlockSplitter().Split(filepath.Base(file), pages)
	require.Len(t, blocks, 1)
	assert.Contains(t, blocks[0].Text, "Second page")
}

func TestParserFactory(t *testing.T) {
	txtFile := createTempFile(t, "plain text", ".txt")
	mdFile := createTempFile(t, "# Markdown", ".md")
	htmlFile := createTempFile(t, "<p>HTML content</p>", ".html")
	pdfFile := createTempPDF(t, "PDF content")

	tests := []struct {
		file     string
		expected string
	}{
		{txtFile, "plain text"},
		{mdFile, "Markdown"},
		{htmlFile, "HTML content"},
		{pdfFile, "PDF content"},
	}

	for _, tt := range tests {
		t.Run(filepath.Ext(tt.file), func(t *testing.T) {
			parser, err := ParserFactory(tt.file)
			require.NoError(t, err)

			pages, err := parser.Parse(tt.file)
			require.NoError(t, err)
			assert.Contains(t, strings.Join(pages, "\n"), tt.expected)
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		_, err := ParserFactory("filing.docx")
		assert.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrUnsupportedDocument))
	})

	t.Run("missing file", func(t *testing.T) {
		parser, err := ParserFactory(filepath.Join(t.TempDir(), "missing.pdf"))
		require.NoError(t, err)
		_, err = parser.Parse(filepath.Join(t.TempDir(), "missing.pdf"))
		assert.Error(t, err)
	})
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, PDF, DetectContentType("a/B.PDF"))
	assert.Equal(t, HTML, DetectContentType("d497k.htm"))
	assert.Equal(t, HTML, DetectContentType("d497k.html"))
	assert.Equal(t, Markdown, DetectContentType("notes.markdown"))
	assert.Equal(t, PlainText, DetectContentType("pages.txt"))
	assert.Equal(t, Unknown, DetectContentType("archive.zip"))
}
