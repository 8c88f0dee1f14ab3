package models

import "errors"

var (
	// ErrNoDocuments 没有可处理的文档
	ErrNoDocuments = errors.New("no documents to process")

	// ErrUnsupportedDocument 不支持的文档类型
	ErrUnsupportedDocument = errors.New("unsupported document type")
)
