package document

import (
	"regexp"
	"strings"
	"testing"

	"github.com/fyerfyer/fund-info-parser/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// joinBlocks 拼接所有块文本
func joinBlocks(blocks []models.FundBlock) string {
	var b strings.Builder
	for _, block := range blocks {
		b.WriteString(block.Text)
	}
	return b.String()
}

// TestBlockSplitterTwoFunds 测试双基金申报文件的切分
func TestBlockSplitterTwoFunds(t *testing.T) {
	splitter := NewBlockSplitter()
	pages := []string{
		"PREAMBLE\nACME 2X LONG WIDGET ETF – SUMMARY\nObjective: ...",
		"DEF SHORT GADGET FUND – SUMMARY\nObjective: ...",
	}

	blocks := splitter.Split("filing.pdf", pages)
	require.Len(t, blocks, 2)

	assert.True(t, strings.HasPrefix(blocks[0].Text, "ACME 2X LONG WIDGET ETF – SUMMARY"))
	assert.True(t, strings.HasPrefix(blocks[1].Text, "DEF SHORT GADGET FUND – SUMMARY"))
	assert.Equal(t, "ACME 2X LONG WIDGET ETF – SUMMARY", blocks[0].Heading)
	assert.Equal(t, "DEF SHORT GADGET FUND – SUMMARY", blocks[1].Heading)

	for i, block := range blocks {
		assert.Equal(t, "filing.pdf", block.SourceID)
		assert.Equal(t, i, block.Index)
		assert.Equal(t, models.HashText(block.Text), block.SHA1)
	}

	// 页面以换行拼接，前言被丢弃
	full := strings.Join(pages, "\n")
	assert.Equal(t, strings.TrimPrefix(full, "PREAMBLE\n"), joinBlocks(blocks))
}

// TestBlockSplitterNoHeadings 测试没有标题的文本
func TestBlockSplitterNoHeadings(t *testing.T) {
	splitter := NewBlockSplitter()

	t.Run("plain prose", func(t *testing.T) {
		blocks := splitter.Split("a.pdf", []string{"This filing has no fund headings.", "Nothing here either."})
		assert.Empty(t, blocks)
		assert.NotNil(t, blocks)
	})

	t.Run("empty pages", func(t *testing.T) {
		assert.Empty(t, splitter.Split("a.pdf", []string{"", ""}))
		assert.Empty(t, splitter.Split("a.pdf", nil))
	})

	t.Run("lowercase name is not a heading", func(t *testing.T) {
		assert.Empty(t, splitter.SplitText("a.pdf", "\nthe acme widget fund – summary\n"))
	})

	t.Run("short name is not a heading", func(t *testing.T) {
		assert.Empty(t, splitter.SplitText("a.pdf", "\nABC ETF – SUMMARY\n"))
	})

	t.Run("missing summary marker", func(t *testing.T) {
		assert.Empty(t, splitter.SplitText("a.pdf", "\nACME WIDGET ETF\nObjective: grow\n"))
	})
}

// TestBlockSplitterNHeadings 测试N个标题产生N个块且无缝隙
func TestBlockSplitterNHeadings(t *testing.T) {
	splitter := NewBlockSplitter()

	names := []string{"ALPHA BULL 3X ETF", "BETA BEAR -1X FUND", "GAMMA INCOME TRUST", "DELTA S&P 500 ETF", "EPSILON U.S. BOND FUND"}
	var b strings.Builder
	b.WriteString("GENERAL INFORMATION\nThis prospectus covers several funds.\n")
	preambleLen := b.Len()
	for i, name := range names {
		b.WriteString(name)
		if i%2 == 0 {
			b.WriteString(" – SUMMARY\n")
		} else {
			b.WriteString(" - Summary\n")
		}
		b.WriteString("Investment Objective: the fund seeks daily results.\nFees and Expenses: 0.95%\n")
	}
	text := b.String()

	blocks := splitter.SplitText("multi.htm", text)
	require.Len(t, blocks, len(names))

	for i, block := range blocks {
		assert.True(t, strings.HasPrefix(block.Text, names[i]), "block %d should start with %q", i, names[i])
		assert.True(t, strings.HasPrefix(block.Text, block.Heading))
	}
	assert.Equal(t, text[preambleLen:], joinBlocks(blocks))
}

// TestBlockSplitterEdgeCases 测试边界情况
func TestBlockSplitterEdgeCases(t *testing.T) {
	splitter := NewBlockSplitter()

	t.Run("adjacent headings are not merged", func(t *testing.T) {
		text := "intro\nFIRST WIDGET ETF – SUMMARY\nSECOND WIDGET ETF – SUMMARY\nbody"
		blocks := splitter.SplitText("a.pdf", text)
		require.Len(t, blocks, 2)
		assert.Equal(t, "FIRST WIDGET ETF – SUMMARY\n", blocks[0].Text)
		assert.True(t, strings.HasPrefix(blocks[1].Text, "SECOND WIDGET ETF – SUMMARY"))
	})

	t.Run("heading at start of text", func(t *testing.T) {
		blocks := splitter.SplitText("a.pdf", "ACME WIDGET FUND - SUMMARY\nbody")
		require.Len(t, blocks, 1)
		assert.Equal(t, "ACME WIDGET FUND - SUMMARY\nbody", blocks[0].Text)
	})

	t.Run("summary marker on following line", func(t *testing.T) {
		text := "intro\nACME LONG WIDGET ETF\n(the \"Fund\")\n– SUMMARY\nbody"
		blocks := splitter.SplitText("a.pdf", text)
		require.Len(t, blocks, 1)
		assert.Equal(t, "ACME LONG WIDGET ETF\n(the \"Fund\")\n– SUMMARY", blocks[0].Heading)
	})

	t.Run("all caps body line mentioning the fund", func(t *testing.T) {
		text := "intro\nALPHA BULL ETF – SUMMARY\nbody\nFEES AND EXPENSES OF THE FUND\nrow\n" +
			"BRAVO BEAR ETF – SUMMARY\nbody\nABOUT THE TRUST\nCHARLIE FUND – SUMMARY\nlast"
		blocks := splitter.SplitText("a.pdf", text)
		require.Len(t, blocks, 3)

		assert.Equal(t, "ALPHA BULL ETF – SUMMARY", blocks[0].Heading)
		assert.Equal(t, "ALPHA BULL ETF – SUMMARY\nbody\nFEES AND EXPENSES OF THE FUND\nrow\n", blocks[0].Text)
		assert.Equal(t, "BRAVO BEAR ETF – SUMMARY", blocks[1].Heading)
		assert.Equal(t, "BRAVO BEAR ETF – SUMMARY\nbody\nABOUT THE TRUST\n", blocks[1].Text)
		assert.Equal(t, "CHARLIE FUND – SUMMARY", blocks[2].Heading)
		assert.Equal(t, strings.TrimPrefix(text, "intro\n"), joinBlocks(blocks))
	})

	t.Run("dash before vehicle keyword", func(t *testing.T) {
		blocks := splitter.SplitText("a.pdf", "\nGRANITESHARES META –ETF – SUMMARY\nbody")
		require.Len(t, blocks, 1)
	})

	t.Run("identical blocks share a hash", func(t *testing.T) {
		text := "\nACME WIDGET ETF – SUMMARY\nsame\nACME WIDGET ETF – SUMMARY\nsame\n"
		blocks := splitter.SplitText("a.pdf", text)
		require.Len(t, blocks, 2)
		assert.Equal(t, blocks[0].Text, blocks[1].Text)
		assert.Equal(t, blocks[0].SHA1, blocks[1].SHA1)
	})

	t.Run("custom heading pattern", func(t *testing.T) {
		custom := NewBlockSplitter(WithHeadingPattern(regexp.MustCompile(`(?m)^Fund \d+:`)))
		blocks := custom.SplitText("a.txt", "x\nFund 1: a\nFund 2: b")
		require.Len(t, blocks, 2)
		assert.Equal(t, "Fund 1: a\n", blocks[0].Text)
	})
}
