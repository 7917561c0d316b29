package llm

import "time"

// Payload 一次分析请求的内容
// 每次调用时构建，不做持久化
type Payload struct {
	SystemPrompt  string // 固定的评估规则
	UserContent   string // 包含来源与正文的用户内容
	Truncated     bool   // 正文是否被截断
	RubricVersion string // 评估规则版本
}

// Response 统一的响应结构
type Response struct {
	Text       string    // 模型返回的原始文本
	TokenCount int       // 使用的token数
	ModelName  string    // 使用的模型名称
	FinishTime time.Time // 完成时间
}

// ModelInfo 可用模型信息
type ModelInfo struct {
	Name             string `json:"name"`
	DisplayName      string `json:"display_name,omitempty"`
	Description      string `json:"description,omitempty"`
	InputTokenLimit  int    `json:"input_token_limit,omitempty"`
	OutputTokenLimit int    `json:"output_token_limit,omitempty"`
}

// 提供方名称
const (
	ProviderGemini     = "gemini"
	ProviderGeminiREST = "gemini-rest"
	ProviderOpenAI     = "openai"
)

// Model 常用模型名称
const (
	ModelGemini3ProPreview = "gemini-3-pro-preview" // 默认的评估模型
	ModelGemini25Pro       = "gemini-2.5-pro"
	ModelGemini25Flash     = "gemini-2.5-flash"

	DefaultModel = ModelGemini3ProPreview
)

// generateContentMethod 支持文本生成的模型方法名
const generateContentMethod = "generateContent"
