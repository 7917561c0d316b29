package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiClient 基于Gemini官方SDK的客户端实现
type GeminiClient struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// NewGeminiClient 创建新的Gemini客户端
func NewGeminiClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if err := cfg.validate("Gemini"); err != nil {
		return nil, err
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.BaseURL))
	}

	client, err := genai.NewClient(context.Background(), clientOpts...)
	if err != nil {
		return nil, NewConfigurationError("failed to create Gemini client: " + err.Error())
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name 返回模型名称
func (c *GeminiClient) Name() string {
	return c.model
}

// Analyze 把系统提示词和用户内容作为两个文本片段发送
func (c *GeminiClient) Analyze(ctx context.Context, payload Payload) (*Response, error) {
	if strings.TrimSpace(payload.UserContent) == "" {
		return nil, NewServiceError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt, nil)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	model := c.client.GenerativeModel(c.model)
	if c.maxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.maxTokens))
	}
	if c.temperature > 0 {
		model.SetTemperature(c.temperature)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(payload.SystemPrompt), genai.Text(payload.UserContent))
	if err != nil {
		return nil, classifyGeminiError(err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return nil, err
	}

	result := &Response{
		Text:       text,
		ModelName:  c.model,
		FinishTime: time.Now(),
	}
	if resp.UsageMetadata != nil {
		result.TokenCount = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

// ListModels 列出支持generateContent的模型
func (c *GeminiClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo

	iter := c.client.ListModels(ctx)
	for {
		m, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classifyGeminiError(err)
		}
		if !supportsGenerateContent(m.SupportedGenerationMethods) {
			continue
		}
		models = append(models, ModelInfo{
			Name:             strings.TrimPrefix(m.Name, "models/"),
			DisplayName:      m.DisplayName,
			Description:      m.Description,
			InputTokenLimit:  int(m.InputTokenLimit),
			OutputTokenLimit: int(m.OutputTokenLimit),
		})
	}

	return models, nil
}

// Close 释放底层连接
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse 拼接第一个候选结果中的所有文本片段
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", NewServiceError(ErrCodeEmptyResponse, "no candidates in response", nil)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", NewServiceError(ErrCodeEmptyResponse, "no content in response", nil)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", NewServiceError(ErrCodeEmptyResponse, "no text parts in response", nil)
	}

	return strings.Join(parts, ""), nil
}

// classifyGeminiError 将SDK错误转换为ServiceError
func classifyGeminiError(err error) error {
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return NewServiceError(ErrCodeContentFilter, ErrMsgContentFilter, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		code := codeForStatus(apiErr.Code)
		return NewServiceError(code, messageForCode(code), err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewServiceError(ErrCodeTimeout, ErrMsgTimeout, err)
	}

	return NewServiceError(ErrCodeServerError, "Gemini request failed", err)
}

func supportsGenerateContent(methods []string) bool {
	for _, m := range methods {
		if m == generateContentMethod {
			return true
		}
	}
	return false
}

// 在包初始化时注册Gemini客户端
func init() {
	RegisterClient(ProviderGemini, NewGeminiClient)
}
