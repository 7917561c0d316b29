package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient 兼容OpenAI接口的客户端实现
type OpenAIClient struct {
	client      *openai.Client
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// NewOpenAIClient 创建OpenAI兼容客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if err := cfg.validate("OpenAI"); err != nil {
		return nil, err
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	// 如果指定了自定义端点，则使用它
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.model
}

// Analyze 以system和user两条消息发起一次对话补全
func (c *OpenAIClient) Analyze(ctx context.Context, payload Payload) (*Response, error) {
	if strings.TrimSpace(payload.UserContent) == "" {
		return nil, NewServiceError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt, nil)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: payload.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: payload.UserContent},
		},
		Temperature: c.temperature,
	}
	if c.maxTokens > 0 {
		// 推理模型只接受MaxCompletionTokens
		if isReasoningModel(c.model) {
			req.MaxCompletionTokens = c.maxTokens
		} else {
			req.MaxTokens = c.maxTokens
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, NewServiceError(ErrCodeEmptyResponse, ErrMsgEmptyResponse, nil)
	}

	return &Response{
		Text:       resp.Choices[0].Message.Content,
		TokenCount: resp.Usage.TotalTokens,
		ModelName:  c.model,
		FinishTime: time.Now(),
	}, nil
}

// ListModels 列出端点提供的模型
func (c *OpenAIClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	models := make([]ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, ModelInfo{
			Name:        m.ID,
			Description: m.OwnedBy,
		})
	}
	return models, nil
}

// classifyOpenAIError 将go-openai错误转换为ServiceError
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := codeForStatus(apiErr.HTTPStatusCode)
		return NewServiceError(code, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		code := codeForStatus(reqErr.HTTPStatusCode)
		return NewServiceError(code, messageForCode(code), err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewServiceError(ErrCodeTimeout, ErrMsgTimeout, err)
	}

	return NewServiceError(ErrCodeNetworkError, ErrMsgNetworkError, err)
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// 在包初始化时注册OpenAI客户端
func init() {
	RegisterClient(ProviderOpenAI, NewOpenAIClient)
}
