package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyerfyer/fund-info-parser/internal/models"
	"github.com/sirupsen/logrus"
)

// userPromptTemplate json_object 模式要求消息中出现 "json"
const userPromptTemplate = "Extract the fund data as json.\n---\n%s\n---"

// Extractor 基于大模型的基金字段抽取器
type Extractor struct {
	client    Client
	schema    *Schema
	maxTokens int // 0 表示不限制
	logger    *logrus.Logger
}

// ExtractorOption 抽取器选项
type ExtractorOption func(*Extractor)

// WithSchema 设置抽取模式
func WithSchema(schema *Schema) ExtractorOption {
	return func(e *Extractor) {
		if schema != nil {
			e.schema = schema
		}
	}
}

// WithMaxTokens 限制每个基金块的生成Token数
func WithMaxTokens(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

// WithExtractorLogger 设置日志记录器
func WithExtractorLogger(logger *logrus.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExtractor 创建抽取器
func NewExtractor(client Client, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		client: client,
		schema: DefaultSchema(),
		logger: logrus.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract 对单个基金块调用模型并解析字段
// model 为空时使用客户端的默认模型
func (e *Extractor) Extract(ctx context.Context, blockText, model string) (models.FundRecord, error) {
	if strings.TrimSpace(blockText) == "" {
		return models.FundRecord{}, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	messages := []Message{
		{Role: RoleSystem, Content: e.schema.SystemPrompt()},
		{Role: RoleUser, Content: fmt.Sprintf(userPromptTemplate, blockText)},
	}

	opts := []ChatOption{WithJSONObject()}
	if model != "" {
		opts = append(opts, WithChatModel(model))
	}
	if e.maxTokens > 0 {
		opts = append(opts, WithChatMaxTokens(e.maxTokens))
	}

	resp, err := e.client.Chat(ctx, messages, opts...)
	if err != nil {
		return models.FundRecord{}, err
	}

	fields, err := e.schema.Decode(resp.Text)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"model":   resp.ModelName,
			"content": compactJSON(resp.Text),
		}).Debug("Model returned malformed content")
		return models.FundRecord{}, err
	}

	e.logger.WithFields(logrus.Fields{
		"model":    resp.ModelName,
		"attempts": resp.Attempts,
		"tokens":   resp.TokenCount,
	}).Debug("Fund block extracted")

	return models.FundRecord{Fields: fields}, nil
}
