package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAITestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOpenAIClient(
		WithAPIKey("sk-test"),
		WithModel("gpt-4o-mini"),
		WithBaseURL(server.URL+"/v1"),
		WithMaxTokens(256),
	)
	require.NoError(t, err)
	return client
}

func TestOpenAIAnalyze(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, 256, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "rubric", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "document", req.Messages[1].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "report"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
		}`))
	})

	resp, err := client.Analyze(context.Background(), Payload{SystemPrompt: "rubric", UserContent: "document"})
	require.NoError(t, err)
	assert.Equal(t, "report", resp.Text)
	assert.Equal(t, 12, resp.TokenCount)
	assert.Equal(t, "gpt-4o-mini", resp.ModelName)
}

func TestOpenAIAnalyzeAPIError(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit reached", "type": "requests", "code": "rate_limit_exceeded"}}`))
	})

	_, err := client.Analyze(context.Background(), Payload{SystemPrompt: "rubric", UserContent: "document"})
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrCodeRateLimited, svcErr.Code)
	assert.Contains(t, svcErr.Message, "Rate limit reached")
}

func TestOpenAIAnalyzeNoChoices(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	})

	_, err := client.Analyze(context.Background(), Payload{SystemPrompt: "rubric", UserContent: "document"})
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, ErrCodeEmptyResponse, svcErr.Code)
}

func TestOpenAIListModels(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "list", "data": [{"id": "gpt-4o-mini", "object": "model", "owned_by": "openai"}]}`))
	})

	models, err := client.(ModelLister).ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "gpt-4o-mini", models[0].Name)
}

func TestIsReasoningModel(t *testing.T) {
	assert.True(t, isReasoningModel("o3-mini"))
	assert.True(t, isReasoningModel("gpt-5"))
	assert.False(t, isReasoningModel("gpt-4o"))
}
