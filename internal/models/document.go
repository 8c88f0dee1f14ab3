package models

import (
	"path/filepath"
	"strings"
)

// Document 已解析的源文档
// Pages 按页序保存文本，不可读的页面为空字符串
type Document struct {
	ID    string   // 文档标识，取源文件名
	Path  string   // 源文件路径
	Pages []string // 每页文本
}

// NewDocument 根据文件路径和页面文本创建文档
func NewDocument(path string, pages []string) Document {
	return Document{
		ID:    filepath.Base(path),
		Path:  path,
		Pages: pages,
	}
}

// Text 返回以换行符拼接的全文
func (d Document) Text() string {
	return strings.Join(d.Pages, "\n")
}
