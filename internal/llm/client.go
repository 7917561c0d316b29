package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Client 大模型分析客户端接口
// 负责把评估提示词发送给远端模型并返回原始文本
type Client interface {
	// Analyze 发送系统提示词与用户内容，返回模型的原始回复
	Analyze(ctx context.Context, payload Payload) (*Response, error)

	// Name 返回模型名称
	Name() string
}

// ModelLister 可以列出可用模型的客户端
type ModelLister interface {
	// ListModels 返回当前凭证可用且支持generateContent的模型
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Config 大模型客户端配置
type Config struct {
	APIKey      string        // API密钥
	BaseURL     string        // API基础URL，为空时使用各提供方的默认地址
	Model       string        // 模型名称
	Timeout     time.Duration // 请求超时时间，0表示不设置
	MaxTokens   int           // 最大生成Token数，0表示使用模型默认值
	Temperature float32       // 采样温度，0表示使用模型默认值
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Model: DefaultModel,
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
		c.BaseURL = url
	}
}

// WithModel 设置模型名称
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout 设置请求超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithMaxTokens 设置最大生成Token数
func WithMaxTokens(tokens int) Option {
	return func(c *Config) {
		c.MaxTokens = tokens
	}
}

// WithTemperature 设置采样温度
func WithTemperature(temp float32) Option {
	return func(c *Config) {
		c.Temperature = temp
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

// validate 检查凭证和模型名称，缺失时返回配置错误
func (c *Config) validate(provider string) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return NewConfigurationError(fmt.Sprintf("%s API key is not configured", provider))
	}
	if strings.TrimSpace(c.Model) == "" {
		return NewConfigurationError(fmt.Sprintf("%s model name is not configured", provider))
	}
	return nil
}

// Factory 大模型客户端工厂函数类型
type Factory func(opts ...Option) (Client, error)

var (
	factoriesMu     sync.RWMutex
	clientFactories = make(map[string]Factory)
)

// RegisterClient 注册大模型客户端工厂函数
func RegisterClient(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	clientFactories[name] = factory
}

// Providers 返回已注册的提供方名称
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(clientFactories))
	for name := range clientFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClient 根据名称创建大模型客户端
func NewClient(name string, opts ...Option) (Client, error) {
	factoriesMu.RLock()
	factory, exists := clientFactories[name]
	factoriesMu.RUnlock()

	if !exists {
		return nil, NewConfigurationError(
			fmt.Sprintf("llm provider not registered: %s (available: %s)", name, strings.Join(Providers(), ", ")))
	}
	return factory(opts...)
}
