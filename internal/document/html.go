package document

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// HTMLParser HTML申报文件解析器(EDGAR .htm)
type HTMLParser struct{}

// NewHTMLParser 创建一个新的HTML解析器
func NewHTMLParser() Parser {
	return &HTMLParser{}
}

// Parse 解析HTML文件并提取可见文本
func (p *HTMLParser) Parse(filePath string) ([]string, error) {
	return parseFile(p, filePath, "html")
}

// ParseReader 从Reader解析HTML内容
func (p *HTMLParser) ParseReader(r io.Reader, filename string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html %s: %w", filename, err)
	}
	return extractPages(doc), nil
}
