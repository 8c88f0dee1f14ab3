package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	// OpenAI 兼容接口的默认地址
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	chatCompletionsPath  = "/chat/completions"
)

// OpenAIClient OpenAI 兼容的 chat/completions 客户端
// 仅对限流(429)和连接失败做指数退避重试，受总时间预算约束
type OpenAIClient struct {
	apiKey     string         // API密钥
	baseURL    string         // API基础URL
	model      string         // 默认模型
	httpClient *http.Client   // HTTP客户端
	retry      RetryConfig    // 重试配置
	logger     *logrus.Logger // 日志记录器
}

// NewOpenAIClient 创建新的OpenAI客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	// 验证API密钥
	if cfg.APIKey == "" {
		return nil, NewLLMError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      cfg.Retry,
		logger:     logger,
	}, nil
}

// Name 返回默认模型名称
func (c *OpenAIClient) Name() string {
	return c.model
}

// Chat 发送对话请求
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	opts := &ChatOptions{}
	for _, opt := range options {
		opt(opts)
	}

	model := opts.Model
	if model == "" {
		model = c.model
	}

	req := &ChatCompletionRequest{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: opts.MaxTokens,
	}
	if opts.JSONObject {
		req.ResponseFormat = &ResponseFormat{Type: ResponseTypeJSON}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, WrapError(err, ErrCodeInvalidRequest, "failed to marshal request")
	}

	var (
		resp     *ChatCompletionResponse
		attempts int
	)
	operation := func() error {
		attempts++
		r, err := c.sendRequest(ctx, payload)
		if err != nil {
			var llmErr LLMError
			if errors.As(err, &llmErr) && llmErr.Transient() {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.WithFields(logrus.Fields{
			"model":   model,
			"attempt": attempts,
			"wait":    wait.String(),
		}).WithError(err).Debug("Transient LLM failure, backing off")
	}

	err = backoff.RetryNotify(operation, backoff.WithContext(c.retry.newBackOff(), ctx), notify)
	if err != nil {
		return nil, c.finalError(ctx, err, attempts)
	}

	return c.processResponse(resp, model, attempts)
}

// finalError 整理重试结束后的错误
func (c *OpenAIClient) finalError(ctx context.Context, err error, attempts int) error {
	var llmErr LLMError
	if errors.As(err, &llmErr) {
		if !llmErr.Transient() {
			return err
		}
		return LLMError{
			Code:    ErrCodeRetryExhausted,
			Message: fmt.Sprintf("%s after %d attempts", ErrMsgRetryExhausted, attempts),
			Err:     err,
		}
	}
	// 退避等待期间被取消
	if ctx.Err() != nil {
		return LLMError{Code: ErrCodeTimeout, Message: ErrMsgTimeout, Err: err}
	}
	return err
}

// sendRequest 发送一次HTTP请求并解析响应，不做重试
func (c *OpenAIClient) sendRequest(ctx context.Context, payload []byte) (*ChatCompletionResponse, error) {
	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+chatCompletionsPath,
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, WrapError(err, ErrCodeInvalidRequest, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// 调用方取消不是连接失败
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, LLMError{Code: ErrCodeTimeout, Message: ErrMsgTimeout, Err: ctxErr}
		}
		return nil, LLMError{Code: ErrCodeNetworkError, Message: ErrMsgNetworkError, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, LLMError{Code: ErrCodeTimeout, Message: ErrMsgTimeout, Err: ctxErr}
		}
		return nil, LLMError{Code: ErrCodeNetworkError, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body)
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, LLMError{
			Code:    ErrCodeMalformedResponse,
			Message: "failed to parse response envelope",
			Err:     err,
		}
	}

	return &chatResp, nil
}

// statusError 把非200状态码映射为错误码
func statusError(status int, body []byte) error {
	message := strings.TrimSpace(string(body))
	var code string

	var apiErr APIErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
		if s, ok := apiErr.Error.Code.(string); ok {
			code = s
		}
	}
	message = fmt.Sprintf("API error (status %d): %s", status, message)

	switch {
	case status == http.StatusTooManyRequests:
		return NewLLMError(ErrCodeRateLimited, message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewLLMError(ErrCodeInvalidAPIKey, message)
	case code == "context_length_exceeded":
		return NewLLMError(ErrCodeContextTooLong, message)
	case code == "content_filter":
		return NewLLMError(ErrCodeContentFilter, message)
	case status == http.StatusServiceUnavailable:
		return NewLLMError(ErrCodeModelOverload, message)
	case status >= 500:
		return NewLLMError(ErrCodeServerError, message)
	default:
		return NewLLMError(ErrCodeInvalidRequest, message)
	}
}

// processResponse 把接口响应转换为统一响应
func (c *OpenAIClient) processResponse(resp *ChatCompletionResponse, model string, attempts int) (*Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, NewLLMError(ErrCodeMalformedResponse, "empty choices in response")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return nil, NewLLMError(ErrCodeContentFilter, ErrMsgContentFilter)
	}

	name := resp.Model
	if name == "" {
		name = model
	}

	return &Response{
		Text:         choice.Message.Content,
		ModelName:    name,
		TokenCount:   resp.Usage.TotalTokens,
		FinishReason: choice.FinishReason,
		Attempts:     attempts,
		FinishTime:   time.Now(),
	}, nil
}

// 在包初始化时注册OpenAI客户端
func init() {
	RegisterClient("openai", NewOpenAIClient)
}
