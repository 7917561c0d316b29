package services

import (
	"context"
	"time"

	"github.com/fyerfyer/tclass-evaluator/internal/cache"
	"github.com/fyerfyer/tclass-evaluator/internal/document"
	"github.com/fyerfyer/tclass-evaluator/internal/llm"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const analysisKeyPrefix = "analysis"

// AnalysisResult 一次模型调用的原始结果
type AnalysisResult struct {
	Text      string // 模型返回的原始文本
	Model     string // 使用的模型
	Truncated bool   // 发送前内容是否被截断
	Cached    bool   // 是否命中缓存
}

// AnalysisService 分析服务
// 对同一 (文本, 来源) 的调用结果做记忆化，并合并并发的相同请求
type AnalysisService struct {
	client   llm.Client
	cache    cache.Cache
	cacheTTL time.Duration
	group    singleflight.Group
	logger   *logrus.Logger
}

// AnalysisOption 分析服务配置选项
type AnalysisOption func(*AnalysisService)

// NewAnalysisService 创建分析服务
// 未提供缓存时使用内存缓存
func NewAnalysisService(client llm.Client, c cache.Cache, opts ...AnalysisOption) *AnalysisService {
	s := &AnalysisService{
		client:   client,
		cache:    c,
		cacheTTL: cache.NoExpiration,
		logger:   logrus.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cache == nil {
		memCache, err := cache.NewMemoryCache(cache.DefaultConfig())
		if err == nil {
			s.cache = memCache
		}
	}

	return s
}

// WithCacheTTL 设置结果缓存时间，默认不过期
func WithCacheTTL(ttl time.Duration) AnalysisOption {
	return func(s *AnalysisService) {
		s.cacheTTL = ttl
	}
}

// WithAnalysisLogger 设置日志记录器
func WithAnalysisLogger(logger *logrus.Logger) AnalysisOption {
	return func(s *AnalysisService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Model 返回当前使用的模型名称
func (s *AnalysisService) Model() string {
	return s.client.Name()
}

// Client 返回底层分析客户端
func (s *AnalysisService) Client() llm.Client {
	return s.client
}

// CacheKey 计算文档对应的缓存键
func CacheKey(doc document.Document) string {
	return cache.HashKey(analysisKeyPrefix, doc.Content, doc.Source)
}

// Analyze 分析文档
// 相同的 (文本, 来源) 只会调用一次远程服务，失败的结果不会被缓存
func (s *AnalysisService) Analyze(ctx context.Context, doc document.Document) (*AnalysisResult, error) {
	key := CacheKey(doc)
	payload := llm.ComposePrompt(doc)

	if text, ok := s.lookup(key); ok {
		s.logger.WithFields(logrus.Fields{
			"source": doc.Source,
			"model":  s.client.Name(),
		}).Info("Analysis served from cache")
		return &AnalysisResult{
			Text:      text,
			Model:     s.client.Name(),
			Truncated: payload.Truncated,
			Cached:    true,
		}, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// 等待期间其他请求可能已经写入缓存
		if text, ok := s.lookup(key); ok {
			return flightResult{text: text, cached: true}, nil
		}

		// 共享的请求不随首个调用方取消
		start := time.Now()
		resp, err := s.client.Analyze(context.WithoutCancel(ctx), payload)
		if err != nil {
			return nil, err
		}

		s.logger.WithFields(logrus.Fields{
			"source":    doc.Source,
			"model":     resp.ModelName,
			"tokens":    resp.TokenCount,
			"truncated": payload.Truncated,
			"duration":  time.Since(start).String(),
		}).Info("Analysis completed")

		if s.cache != nil {
			if err := s.cache.Set(key, resp.Text, s.cacheTTL); err != nil {
				s.logger.WithError(err).Warn("Failed to cache analysis result")
			}
		}
		return flightResult{text: resp.Text}, nil
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"source": doc.Source,
			"model":  s.client.Name(),
		}).WithError(err).Error("Analysis failed")
		return nil, err
	}

	res := v.(flightResult)
	return &AnalysisResult{
		Text:      res.text,
		Model:     s.client.Name(),
		Truncated: payload.Truncated,
		Cached:    res.cached,
	}, nil
}

type flightResult struct {
	text   string
	cached bool
}

// lookup 读取缓存，缓存故障按未命中处理
func (s *AnalysisService) lookup(key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	text, found, err := s.cache.Get(key)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to read analysis cache")
		return "", false
	}
	return text, found
}
