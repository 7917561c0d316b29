package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// Gemini REST API端点
	defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	// 列出模型时的分页大小
	listModelsPageSize = 100
)

// GeminiRESTClient 直接调用generateContent REST接口的Gemini客户端
type GeminiRESTClient struct {
	apiKey      string       // API密钥
	baseURL     string       // API端点
	model       string       // 模型名称
	httpClient  *http.Client // HTTP客户端
	maxTokens   int          // 最大生成Token数
	temperature float32      // 温度参数
}

// geminiPart 内容片段
type geminiPart struct {
	Text string `json:"text"`
}

// geminiContent 一轮内容
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiGenerationConfig 生成参数
type geminiGenerationConfig struct {
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	Temperature     *float32 `json:"temperature,omitempty"`
}

// geminiRequest generateContent请求结构
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

// geminiResponse generateContent响应结构
type geminiResponse struct {
	Candidates []struct {
		Content      *geminiContent `json:"content"`
		FinishReason string         `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata *struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// geminiErrorResponse 错误响应结构
type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// geminiModelsResponse 模型列表响应结构
type geminiModelsResponse struct {
	Models []struct {
		Name                       string   `json:"name"`
		DisplayName                string   `json:"displayName"`
		Description                string   `json:"description"`
		InputTokenLimit            int      `json:"inputTokenLimit"`
		OutputTokenLimit           int      `json:"outputTokenLimit"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
	NextPageToken string `json:"nextPageToken"`
}

// NewGeminiRESTClient 创建新的Gemini REST客户端
func NewGeminiRESTClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)
	if err := cfg.validate("Gemini"); err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiEndpoint
	}

	return &GeminiRESTClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       cfg.Model,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name 返回模型名称
func (c *GeminiRESTClient) Name() string {
	return c.model
}

// Analyze 调用generateContent，系统提示词与用户内容作为同一轮的两个片段
func (c *GeminiRESTClient) Analyze(ctx context.Context, payload Payload) (*Response, error) {
	if strings.TrimSpace(payload.UserContent) == "" {
		return nil, NewServiceError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt, nil)
	}

	req := &geminiRequest{
		Contents: []geminiContent{
			{
				Role: "user",
				Parts: []geminiPart{
					{Text: payload.SystemPrompt},
					{Text: payload.UserContent},
				},
			},
		},
	}
	if c.maxTokens > 0 || c.temperature > 0 {
		genCfg := &geminiGenerationConfig{}
		if c.maxTokens > 0 {
			maxTokens := c.maxTokens
			genCfg.MaxOutputTokens = &maxTokens
		}
		if c.temperature > 0 {
			temp := c.temperature
			genCfg.Temperature = &temp
		}
		req.GenerationConfig = genCfg
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, NewServiceError(ErrCodeInvalidRequest, "failed to marshal request", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	body, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, NewServiceError(ErrCodeServerError, "failed to parse response", err)
	}

	return c.processResponse(&geminiResp)
}

// ListModels 分页列出支持generateContent的模型
func (c *GeminiRESTClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	pageToken := ""

	for {
		query := url.Values{}
		query.Set("pageSize", fmt.Sprintf("%d", listModelsPageSize))
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		body, err := c.do(ctx, http.MethodGet, c.baseURL+"/models?"+query.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var page geminiModelsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, NewServiceError(ErrCodeServerError, "failed to parse model list", err)
		}

		for _, m := range page.Models {
			if !supportsGenerateContent(m.SupportedGenerationMethods) {
				continue
			}
			models = append(models, ModelInfo{
				Name:             strings.TrimPrefix(m.Name, "models/"),
				DisplayName:      m.DisplayName,
				Description:      m.Description,
				InputTokenLimit:  m.InputTokenLimit,
				OutputTokenLimit: m.OutputTokenLimit,
			})
		}

		if page.NextPageToken == "" {
			return models, nil
		}
		pageToken = page.NextPageToken
	}
}

// do 发送请求并返回2xx响应体，其余情况转换为ServiceError
// 不做重试，失败直接返回给调用方
func (c *GeminiRESTClient) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, NewServiceError(ErrCodeInvalidRequest, "failed to create request", err)
	}

	httpReq.Header.Set("x-goog-api-key", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, NewServiceError(ErrCodeTimeout, ErrMsgTimeout, err)
		}
		return nil, NewServiceError(ErrCodeNetworkError, ErrMsgNetworkError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewServiceError(ErrCodeServerError, "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		code := codeForStatus(resp.StatusCode)

		// 尝试解析错误响应
		var errResp geminiErrorResponse
		if jsonErr := json.Unmarshal(respBody, &errResp); jsonErr == nil && errResp.Error.Message != "" {
			return nil, NewServiceError(code,
				fmt.Sprintf("API error: %s (%s)", errResp.Error.Message, errResp.Error.Status), nil)
		}

		return nil, NewServiceError(code,
			fmt.Sprintf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	return respBody, nil
}

// processResponse 处理generateContent的响应
func (c *GeminiRESTClient) processResponse(resp *geminiResponse) (*Response, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, NewServiceError(ErrCodeContentFilter,
			fmt.Sprintf("%s: %s", ErrMsgContentFilter, resp.PromptFeedback.BlockReason), nil)
	}
	if len(resp.Candidates) == 0 {
		return nil, NewServiceError(ErrCodeEmptyResponse, "no candidates in response", nil)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return nil, NewServiceError(ErrCodeEmptyResponse,
			fmt.Sprintf("no content in response (finish reason: %s)", candidate.FinishReason), nil)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return nil, NewServiceError(ErrCodeEmptyResponse, ErrMsgEmptyResponse, nil)
	}

	result := &Response{
		Text:       sb.String(),
		ModelName:  c.model,
		FinishTime: time.Now(),
	}
	if resp.UsageMetadata != nil {
		result.TokenCount = resp.UsageMetadata.TotalTokenCount
	}
	return result, nil
}

// 在包初始化时注册Gemini REST客户端
func init() {
	RegisterClient(ProviderGeminiREST, NewGeminiRESTClient)
}
