package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fyerfyer/tclass-evaluator/api"
	"github.com/fyerfyer/tclass-evaluator/api/handler"
	"github.com/fyerfyer/tclass-evaluator/api/middleware"
	"github.com/fyerfyer/tclass-evaluator/internal/cache"
	"github.com/fyerfyer/tclass-evaluator/internal/document"
	"github.com/fyerfyer/tclass-evaluator/internal/llm"
	"github.com/fyerfyer/tclass-evaluator/internal/services"
	"github.com/fyerfyer/tclass-evaluator/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	e2eModel = "gemini-e2e"

	// 模型返回的完整分析文本
	modelAnswer = "## Summary\n# T5-2. Native Architect\n> **\"custom attention\"**\n\n" +
		`__JSON_START__{"weight_score": 9, "arch_score": 8, "tokenizer_score": 6, "data_score": 7, "infra_score": 4}__JSON_END__`

	modelCardPage = `<html><head><title>Card</title><style>body{}</style></head>
<body><h1>Model Card</h1><p>Pre-trained from scratch on 2T tokens.</p><script>var x = 1;</script></body></html>`
)

// 端到端测试环境
// 应用服务运行在真实的HTTP服务器上，模型提供方和被抓取的网页由同一个假服务器提供
type e2eTestEnv struct {
	AppServer      *httptest.Server
	UpstreamServer *httptest.Server
	Redis          *miniredis.Miniredis
	ModelCalls     *int32
	FailModel      *atomic.Bool
}

// 设置测试环境
func setupE2ETestEnv(t *testing.T) *e2eTestEnv {
	t.Helper()

	// 设置测试模式
	gin.SetMode(gin.TestMode)
	middleware.GetLogger().SetLevel(logrus.WarnLevel)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	env := &e2eTestEnv{
		ModelCalls: new(int32),
		FailModel:  new(atomic.Bool),
	}

	// 假的Gemini REST接口和网页
	env.UpstreamServer = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/pages/model-card":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, modelCardPage)
		case r.URL.Path == "/v1beta/models/"+e2eModel+":generateContent":
			atomic.AddInt32(env.ModelCalls, 1)
			w.Header().Set("Content-Type", "application/json")
			if env.FailModel.Load() {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = io.WriteString(w, `{"error":{"code":503,"message":"model overloaded","status":"UNAVAILABLE"}}`)
				return
			}
			resp := map[string]interface{}{
				"candidates": []map[string]interface{}{{
					"content": map[string]interface{}{
						"role":  "model",
						"parts": []map[string]string{{"text": modelAnswer}},
					},
					"finishReason": "STOP",
				}},
			}
			_ = json.NewEncoder(w).Encode(resp)
		case r.URL.Path == "/v1beta/models":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"models": [
				{"name": "models/`+e2eModel+`", "displayName": "Gemini E2E", "supportedGenerationMethods": ["generateContent"]},
				{"name": "models/embedding-001", "supportedGenerationMethods": ["embedContent"]}
			]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(env.UpstreamServer.Close)

	// Redis缓存同时保存分析结果和会话
	env.Redis = miniredis.RunT(t)
	cacheService, err := cache.NewCache(cache.Config{
		Type:       cache.TypeRedis,
		RedisAddr:  env.Redis.Addr(),
		KeyPrefix:  "tclass:",
		DefaultTTL: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cacheService.Close() })

	client, err := llm.NewClient(llm.ProviderGeminiREST,
		llm.WithAPIKey("e2e-key"),
		llm.WithModel(e2eModel),
		llm.WithBaseURL(env.UpstreamServer.URL+"/v1beta"),
		llm.WithTimeout(5*time.Second),
	)
	require.NoError(t, err)

	fetcher := document.NewURLFetcher(document.WithFetchTimeout(5 * time.Second))
	documentService := services.NewDocumentService(document.NewExtractor(fetcher), services.WithLogger(logger))
	analysisService := services.NewAnalysisService(client, cacheService, services.WithAnalysisLogger(logger))
	evaluationService := services.NewEvaluationService(documentService, analysisService, services.WithEvaluationLogger(logger))

	router, err := api.SetupRouter(api.Handlers{
		Document: handler.NewDocumentHandler(evaluationService, services.DefaultMaxUploadSize),
		Analysis: handler.NewAnalysisHandler(evaluationService),
		Session:  handler.NewSessionHandler(evaluationService),
		Page:     handler.NewPageHandler(evaluationService, services.DefaultMaxUploadSize),
	}, session.NewStore(cacheService, time.Hour), middleware.SessionOptions{})
	require.NoError(t, err)

	env.AppServer = httptest.NewServer(router)
	t.Cleanup(env.AppServer.Close)

	return env
}

// newHTTPClient 创建带Cookie的HTTP客户端，模拟一个浏览器
func newHTTPClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func readEnvelope(t *testing.T, resp *http.Response, data interface{}) envelope {
	t.Helper()
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func postJSON(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

type analysisData struct {
	Model        string             `json:"model"`
	Source       string             `json:"source"`
	ReportHTML   string             `json:"report_html"`
	Scores       map[string]float64 `json:"scores"`
	ScoreParseOK bool               `json:"score_parse_ok"`
	Cached       bool               `json:"cached"`
	Chart        *struct {
		Data []struct {
			R []float64 `json:"r"`
		} `json:"data"`
	} `json:"chart"`
}

// TestEvaluationWorkflow 抓取网页、分析、再次分析命中缓存、导出PDF
func TestEvaluationWorkflow(t *testing.T) {
	env := setupE2ETestEnv(t)
	client := newHTTPClient(t)
	base := env.AppServer.URL

	// 1. 抓取网页
	resp := postJSON(t, client, base+"/api/documents/url", `{"url": "`+env.UpstreamServer.URL+`/pages/model-card"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		Source  string `json:"source"`
		Preview string `json:"preview"`
	}
	readEnvelope(t, resp, &doc)
	assert.True(t, strings.HasPrefix(doc.Source, "URL: "), doc.Source)
	assert.Contains(t, doc.Preview, "Pre-trained from scratch")
	assert.NotContains(t, doc.Preview, "var x")

	// 2. 第一次分析调用模型
	resp, err := client.Post(base+"/api/analysis", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first analysisData
	readEnvelope(t, resp, &first)

	assert.Equal(t, e2eModel, first.Model)
	assert.False(t, first.Cached)
	assert.True(t, first.ScoreParseOK)
	assert.Equal(t, 9.0, first.Scores["weight_score"])
	assert.Contains(t, first.ReportHTML, "<blockquote>")
	require.NotNil(t, first.Chart)
	require.Len(t, first.Chart.Data, 1)
	assert.Equal(t, []float64{9, 8, 6, 7, 4, 9}, first.Chart.Data[0].R)
	assert.Equal(t, int32(1), atomic.LoadInt32(env.ModelCalls))

	// 3. 相同文档再次分析命中Redis缓存
	resp, err = client.Post(base+"/api/analysis", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second analysisData
	readEnvelope(t, resp, &second)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Scores, second.Scores)
	assert.Equal(t, int32(1), atomic.LoadInt32(env.ModelCalls))

	// 另一个浏览器分析同一网页也直接使用缓存
	other := newHTTPClient(t)
	resp = postJSON(t, other, base+"/api/documents/url", `{"url": "`+env.UpstreamServer.URL+`/pages/model-card"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp, err = other.Post(base+"/api/analysis", "application/json", nil)
	require.NoError(t, err)
	var shared analysisData
	readEnvelope(t, resp, &shared)
	assert.True(t, shared.Cached)
	assert.Equal(t, int32(1), atomic.LoadInt32(env.ModelCalls))

	// 4. 导出PDF
	resp, err = client.Get(base + "/api/analysis/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "tclass-")
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))

	// 会话保存在Redis中
	assert.NotEmpty(t, env.Redis.Keys())
}

// TestProviderFailure 模型调用失败返回502，且不缓存失败结果
func TestProviderFailure(t *testing.T) {
	env := setupE2ETestEnv(t)
	client := newHTTPClient(t)
	base := env.AppServer.URL

	resp := postJSON(t, client, base+"/api/documents/url", `{"url": "`+env.UpstreamServer.URL+`/pages/model-card"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	env.FailModel.Store(true)
	resp, err := client.Post(base+"/api/analysis", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	failed := readEnvelope(t, resp, nil)
	assert.Contains(t, failed.Message, "model overloaded")

	// 模型恢复后重新请求
	env.FailModel.Store(false)
	resp, err = client.Post(base+"/api/analysis", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result analysisData
	readEnvelope(t, resp, &result)
	assert.False(t, result.Cached)
	assert.Equal(t, int32(2), atomic.LoadInt32(env.ModelCalls))
}

// TestUnreachablePage 网页抓取失败返回422
func TestUnreachablePage(t *testing.T) {
	env := setupE2ETestEnv(t)
	client := newHTTPClient(t)

	resp := postJSON(t, client, env.AppServer.URL+"/api/documents/url", `{"url": "`+env.UpstreamServer.URL+`/pages/missing"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	failed := readEnvelope(t, resp, nil)
	assert.Contains(t, failed.Message, "404")
	assert.Equal(t, int32(0), atomic.LoadInt32(env.ModelCalls))
}

// TestListModels 列出提供方支持generateContent的模型
func TestListModels(t *testing.T) {
	env := setupE2ETestEnv(t)
	client := newHTTPClient(t)

	resp, err := client.Get(env.AppServer.URL + "/api/models")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data struct {
		Current string `json:"current"`
		Models  []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	readEnvelope(t, resp, &data)
	assert.Equal(t, e2eModel, data.Current)
	require.Len(t, data.Models, 1)
	assert.Equal(t, e2eModel, data.Models[0].Name)
}

// TestIndexPage 首页可以直接访问
func TestIndexPage(t *testing.T) {
	env := setupE2ETestEnv(t)

	resp, err := newHTTPClient(t).Get(env.AppServer.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Sovereign AI T-Class Evaluator")
	assert.Contains(t, string(body), e2eModel)
}
