package document

import (
	"fmt"
	"io"
	"strings"
)

// PlainTextParser 纯文本解析器
// 换页符(\f)视为页边界，与pdftotext的输出约定一致
type PlainTextParser struct{}

// NewPlainTextParser 创建一个新的纯文本解析器
func NewPlainTextParser() Parser {
	return &PlainTextParser{}
}

// Parse 解析纯文本文件
func (p *PlainTextParser) Parse(filePath string) ([]string, error) {
	return parseFile(p, filePath, "text")
}

// ParseReader 从Reader解析纯文本
func (p *PlainTextParser) ParseReader(r io.Reader, filename string) ([]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	return strings.Split(text, "\f"), nil
}
