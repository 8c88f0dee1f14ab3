package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/fund-info-parser/internal/models"
)

// Parser 文档解析器接口
// 负责将不同格式的申报文件解析为按页排列的纯文本
type Parser interface {
	// Parse 解析文档，返回每页文本
	Parse(filePath string) ([]string, error)

	// ParseReader 从Reader解析文档，返回每页文本
	// filename用于确定文档类型
	ParseReader(r io.Reader, filename string) ([]string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// HTML 文档类型(EDGAR .htm 申报文件)
	HTML ContentType = "html"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// ParserFactory 解析器工厂函数，根据文件类型创建对应的解析器
func ParserFactory(filePath string) (Parser, error) {
	contentType := DetectContentType(filePath)

	switch contentType {
	case PDF:
		return NewPDFParser(), nil
	case HTML:
		return NewHTMLParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedDocument, filepath.Ext(filePath))
	}
}

// DetectContentType 根据文件扩展名检测内容类型
func DetectContentType(filePath string) ContentType {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".pdf":
		return PDF
	case ".htm", ".html":
		return HTML
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	default:
		return Unknown
	}
}

// parseFile 打开文件并交给ParseReader处理
func parseFile(p Parser, filePath, kind string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file: %w", kind, err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}
