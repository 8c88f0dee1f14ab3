package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient 限流或连接失败，可以退避重试
	ErrTransient = errors.New("transient transport failure")

	// ErrMalformedResponse 模型返回的内容不是合法的JSON对象
	ErrMalformedResponse = errors.New("malformed model response")
)

// LLMError 大模型调用错误类型
type LLMError struct {
	Code    int    // 错误码
	Message string // 错误消息
	Err     error  // 底层错误(可选)
}

// Error 实现error接口
func (e LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm error (code=%d): %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("llm error (code=%d): %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e LLMError) Unwrap() error {
	return e.Err
}

// Is 将错误码映射到ErrTransient和ErrMalformedResponse
func (e LLMError) Is(target error) bool {
	switch target {
	case ErrTransient:
		return e.Transient() || e.Code == ErrCodeRetryExhausted
	case ErrMalformedResponse:
		return e.Code == ErrCodeMalformedResponse
	}
	return false
}

// Transient 是否为可重试的瞬时错误
func (e LLMError) Transient() bool {
	return e.Code == ErrCodeRateLimited || e.Code == ErrCodeNetworkError
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey     = 1001 // 无效的API密钥
	ErrCodeInvalidRequest    = 1002 // 无效的请求
	ErrCodeNetworkError      = 1003 // 网络连接错误
	ErrCodeRateLimited       = 1004 // 请求频率超限
	ErrCodeServerError       = 1005 // 服务器错误
	ErrCodeTimeout           = 1006 // 请求超时或被取消
	ErrCodeEmptyPrompt       = 1007 // 提示词为空
	ErrCodeContentFilter     = 1008 // 内容安全过滤
	ErrCodeModelOverload     = 1009 // 模型过载
	ErrCodeContextTooLong    = 1010 // 上下文过长
	ErrCodeMalformedResponse = 1011 // 响应不是合法JSON对象
	ErrCodeRetryExhausted    = 1012 // 重试时间预算耗尽
)

// 错误消息常量
const (
	ErrMsgInvalidAPIKey     = "invalid API key"
	ErrMsgInvalidRequest    = "invalid request parameters"
	ErrMsgRateLimited       = "too many requests, rate limit exceeded"
	ErrMsgServerError       = "server error occurred"
	ErrMsgTimeout           = "request timed out"
	ErrMsgEmptyPrompt       = "prompt cannot be empty"
	ErrMsgNetworkError      = "network connection error"
	ErrMsgContentFilter     = "content filtered due to safety concerns"
	ErrMsgModelOverload     = "model is currently overloaded"
	ErrMsgContextTooLong    = "context length exceeds model's maximum"
	ErrMsgMalformedResponse = "response is not a valid JSON object"
	ErrMsgRetryExhausted    = "retry budget exhausted"
)

// NewLLMError 创建新的大模型错误
func NewLLMError(code int, message string) LLMError {
	return LLMError{
		Code:    code,
		Message: message,
	}
}

// WrapError 包装普通错误为LLM错误
func WrapError(err error, code int, message string) LLMError {
	if err == nil {
		return LLMError{Code: code, Message: message}
	}

	// 如果已经是LLMError类型，则直接返回
	var llmErr LLMError
	if errors.As(err, &llmErr) {
		return llmErr
	}

	return LLMError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
