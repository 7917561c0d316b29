package llm

import "context"

// UnconfiguredClient 在凭证缺失时占位的客户端
// 服务照常启动，只有发起分析时才返回配置错误
type UnconfiguredClient struct {
	model string
	err   *ConfigurationError
}

// NewUnconfiguredClient 创建占位客户端
func NewUnconfiguredClient(model string, err *ConfigurationError) *UnconfiguredClient {
	if err == nil {
		err = NewConfigurationError("API key is not configured")
	}
	return &UnconfiguredClient{model: model, err: err}
}

// Name 返回模型名称
func (c *UnconfiguredClient) Name() string {
	return c.model
}

// Analyze 始终返回配置错误，不发出任何请求
func (c *UnconfiguredClient) Analyze(ctx context.Context, payload Payload) (*Response, error) {
	return nil, c.err
}

// ListModels 始终返回配置错误
func (c *UnconfiguredClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return nil, c.err
}
