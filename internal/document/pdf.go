package document

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFParser PDF文档解析器
type PDFParser struct{}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser() Parser {
	return &PDFParser{}
}

// Parse 解析PDF文件并按页提取文本
func (p *PDFParser) Parse(filePath string) ([]string, error) {
	return parseFile(p, filePath, "pdf")
}

// ParseReader 从Reader解析PDF内容
// pdfcpu 负责校验和页数，ledongthuc/pdf 负责按页解码文本（含字体编码和ToUnicode）
// 没有可解码文本的页面返回空字符串
func (p *PDFParser) ParseReader(r io.Reader, filename string) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf content: %w", err)
	}

	pageCount, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to validate PDF %s: %w", filename, err)
	}

	reader, err := openPDF(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", filename, err)
	}

	pages := make([]string, pageCount)
	for i := 1; i <= pageCount && i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages[i-1] = pageText(page)
	}
	return pages, nil
}

// openPDF 损坏的文件可能让解码器panic
func openPDF(data []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			reader = nil
			err = fmt.Errorf("panic while reading PDF: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pageText 按内容流顺序拼接字形，基线变化时换行
func pageText(page pdf.Page) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()
	return joinGlyphs(page.Content().Text)
}

// joinGlyphs 把定位后的字形还原为行文本
// 同一行内出现明显的水平间隔时补一个空格
func joinGlyphs(glyphs []pdf.Text) string {
	var (
		b     strings.Builder
		line  strings.Builder
		prev  pdf.Text
		first = true
	)

	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(s)
		}
		line.Reset()
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if !first {
			size := math.Max(math.Abs(prev.FontSize), 1)
			switch {
			case math.Abs(g.Y-prev.Y) > size/2:
				flush()
			case g.X-(prev.X+prev.W) > size/5 && !strings.HasSuffix(line.String(), " ") && g.S != " ":
				line.WriteByte(' ')
			}
		}
		line.WriteString(g.S)
		prev = g
		first = false
	}
	flush()

	return b.String()
}
