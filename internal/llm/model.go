package llm

import "time"

// MessageRole 消息角色类型
type MessageRole string

const (
	// RoleSystem 系统角色
	RoleSystem MessageRole = "system"
	// RoleUser 用户角色
	RoleUser MessageRole = "user"
	// RoleAssistant 助手角色
	RoleAssistant MessageRole = "assistant"
)

// Message 对话消息结构
type Message struct {
	Role    MessageRole `json:"role"`           // 角色
	Content string      `json:"content"`        // 内容
	Name    string      `json:"name,omitempty"` // 可选名称标识
}

// ResponseFormat 响应格式约束
type ResponseFormat struct {
	Type string `json:"type"` // text 或 json_object
}

// ChatCompletionRequest chat/completions 请求结构
type ChatCompletionRequest struct {
	Model               string          `json:"model"`                           // 模型名称
	Messages            []Message       `json:"messages"`                        // 对话消息
	ResponseFormat      *ResponseFormat `json:"response_format,omitempty"`       // 响应格式
	MaxCompletionTokens *int            `json:"max_completion_tokens,omitempty"` // 最大生成Token数
}

// ChatCompletionResponse chat/completions 响应结构
type ChatCompletionResponse struct {
	ID      string       `json:"id"`      // 请求ID
	Model   string       `json:"model"`   // 实际使用的模型
	Choices []ChatChoice `json:"choices"` // 候选回复
	Usage   ChatUsage    `json:"usage"`   // Token用量
}

// ChatChoice 候选回复
type ChatChoice struct {
	Index        int     `json:"index"`         // 序号
	FinishReason string  `json:"finish_reason"` // 结束原因
	Message      Message `json:"message"`       // 消息内容
}

// ChatUsage Token用量
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// APIErrorResponse 接口错误响应
type APIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Response 统一的响应结构
type Response struct {
	Text         string    // 生成的文本
	ModelName    string    // 使用的模型名称
	TokenCount   int       // 使用的token数
	FinishReason string    // 结束原因
	Attempts     int       // 实际发送的请求次数(含重试)
	FinishTime   time.Time // 完成时间
}

// Model 常用模型名称
const (
	ModelO4Mini    = "o4-mini"     // 默认抽取模型
	ModelO3        = "o3"          // 推理模型
	ModelGPT4o     = "gpt-4o"      // 通用模型
	ModelGPT4oMini = "gpt-4o-mini" // 低成本模型
	ModelGPT41     = "gpt-4.1"     // 长上下文模型
)

// 响应格式类型
const (
	ResponseTypeText = "text"
	ResponseTypeJSON = "json_object"
)
