package document

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// 块级元素前后插入换行，行内元素直接拼接
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "body": true,
	"br": true, "caption": true, "center": true, "dd": true, "div": true, "dl": true,
	"dt": true, "figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "html": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true, "tbody": true,
	"td": true, "tfoot": true, "th": true, "thead": true, "tr": true, "ul": true,
}

// 不产生可见文本的元素
var skippedElements = map[string]bool{
	"#comment": true, "head": true, "noscript": true, "script": true, "style": true,
	"template": true,
}

var (
	pageBreakBeforePattern = regexp.MustCompile(`(?i)(?:page-break-before|break-before)\s*:\s*(?:always|page)`)
	pageBreakAfterPattern  = regexp.MustCompile(`(?i)(?:page-break-after|break-after)\s*:\s*(?:always|page)`)
)

// textWalker 遍历HTML节点树并收集可见文本
// CSS分页样式(page-break-before/after)作为页边界
type textWalker struct {
	pages        []string
	lines        []string
	line         strings.Builder
	pendingSpace bool
}

// extractPages 从goquery文档中提取按页排列的可见文本
func extractPages(doc *goquery.Document) []string {
	w := &textWalker{}
	w.walk(doc.Selection)
	w.pageBreak()

	if len(w.pages) == 0 {
		return []string{""}
	}
	return w.pages
}

func (w *textWalker) walk(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		if name == "#text" {
			w.write(s.Text())
			return
		}
		if skippedElements[name] {
			return
		}

		style := s.AttrOr("style", "")
		if pageBreakBeforePattern.MatchString(style) {
			w.pageBreak()
		}

		block := blockElements[name]
		if block {
			w.lineBreak()
		}
		w.walk(s)
		if block {
			w.lineBreak()
		}

		if pageBreakAfterPattern.MatchString(style) {
			w.pageBreak()
		}
	})
}

// write 追加一段行内文本，连续空白折叠为单个空格
func (w *textWalker) write(text string) {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	if text == "" {
		return
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		if w.line.Len() > 0 {
			w.pendingSpace = true
		}
		return
	}

	first, _ := utf8.DecodeRuneInString(text)
	if w.line.Len() > 0 && (w.pendingSpace || unicode.IsSpace(first)) {
		w.line.WriteByte(' ')
	}
	w.line.WriteString(strings.Join(fields, " "))

	last, _ := utf8.DecodeLastRuneInString(text)
	w.pendingSpace = unicode.IsSpace(last)
}

func (w *textWalker) lineBreak() {
	if s := strings.TrimSpace(w.line.String()); s != "" {
		w.lines = append(w.lines, s)
	}
	w.line.Reset()
	w.pendingSpace = false
}

func (w *textWalker) pageBreak() {
	w.lineBreak()
	if len(w.lines) == 0 {
		return
	}
	w.pages = append(w.pages, strings.Join(w.lines, "\n"))
	w.lines = nil
}
