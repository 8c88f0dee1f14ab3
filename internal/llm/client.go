package llm

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Client 大模型客户端接口
// 负责处理与大语言模型的交互
type Client interface {
	// Chat 发送对话消息并返回模型回复
	Chat(ctx context.Context, messages []Message, options ...ChatOption) (*Response, error)

	// Name 返回默认模型名称
	Name() string
}

// Config 大模型客户端配置
// 每次运行构造一次，显式传入客户端
type Config struct {
	APIKey  string         // API密钥
	BaseURL string         // API基础URL
	Model   string         // 默认模型名称
	Timeout time.Duration  // 单次HTTP请求超时时间
	Retry   RetryConfig    // 瞬时错误的退避重试配置
	Logger  *logrus.Logger // 日志记录器
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL: defaultOpenAIBaseURL,
		Model:   ModelO4Mini,
		Timeout: 60 * time.Second,
		Retry:   DefaultRetryConfig(),
	}
}

// Option 客户端配置选项函数类型
type Option func(*Config)

// WithAPIKey 设置API密钥
func WithAPIKey(apiKey string) Option {
	return func(c *Config) {
		c.APIKey = apiKey
	}
}

// WithBaseURL 设置API基础URL
func WithBaseURL(url string) Option {
	return func(c *Config) {
		if url != "" {
			c.BaseURL = url
		}
	}
}

// WithModel 设置模型名称
func WithModel(model string) Option {
	return func(c *Config) {
		if model != "" {
			c.Model = model
		}
	}
}

// WithTimeout 设置请求超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithRetry 设置重试配置
func WithRetry(retry RetryConfig) Option {
	return func(c *Config) {
		c.Retry = retry
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// NewConfig 创建一个新的配置并应用选项
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// ChatOption 聊天请求的选项
type ChatOption func(*ChatOptions)

// ChatOptions 聊天请求的选项集合
type ChatOptions struct {
	Model      string // 覆盖默认模型
	JSONObject bool   // 要求返回单个JSON对象
	MaxTokens  *int   // 最大生成Token数
}

// WithChatModel 设置本次请求使用的模型
func WithChatModel(model string) ChatOption {
	return func(o *ChatOptions) {
		o.Model = model
	}
}

// WithJSONObject 启用JSON对象响应模式
func WithJSONObject() ChatOption {
	return func(o *ChatOptions) {
		o.JSONObject = true
	}
}

// WithChatMaxTokens 设置聊天请求的最大Token数
func WithChatMaxTokens(tokens int) ChatOption {
	return func(o *ChatOptions) {
		o.MaxTokens = &tokens
	}
}

// Factory 大模型客户端工厂函数类型
type Factory func(opts ...Option) (Client, error)

// 注册的大模型客户端工厂函数
var clientFactories = make(map[string]Factory)

// RegisterClient 注册大模型客户端工厂函数
func RegisterClient(name string, factory Factory) {
	clientFactories[name] = factory
}

// NewClient 根据名称创建大模型客户端
func NewClient(name string, opts ...Option) (Client, error) {
	factory, exists := clientFactories[name]
	if !exists {
		return nil, NewLLMError(
			ErrCodeInvalidRequest,
			"llm client type not registered: "+name)
	}
	return factory(opts...)
}
