package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyerfyer/tclass-evaluator/api"
	"github.com/fyerfyer/tclass-evaluator/api/handler"
	"github.com/fyerfyer/tclass-evaluator/api/middleware"
	appconfig "github.com/fyerfyer/tclass-evaluator/config"
	"github.com/fyerfyer/tclass-evaluator/internal/cache"
	"github.com/fyerfyer/tclass-evaluator/internal/document"
	"github.com/fyerfyer/tclass-evaluator/internal/llm"
	"github.com/fyerfyer/tclass-evaluator/internal/services"
	"github.com/fyerfyer/tclass-evaluator/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// 命令行参数，显式设置时覆盖配置文件
type flags struct {
	ConfigFile string // 配置文件路径
	EnvFile    string // .env文件路径
	Port       int    // 服务端口
	Mode       string // 运行模式 (debug/release)
	LogLevel   string // 日志级别
}

func main() {
	// 解析命令行参数
	f := parseFlags()

	// 加载.env（不存在时忽略）
	if err := godotenv.Load(f.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		middleware.GetLogger().WithError(err).Warn("Failed to load env file")
	}

	cfg, err := appconfig.Load(f.ConfigFile)
	if err != nil {
		middleware.GetLogger().Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, f)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化日志
	logCloser := middleware.ConfigureLogger(middleware.LogOptions{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer logCloser.Close()

	logger := middleware.GetLogger()
	logger.Info("Starting Sovereign AI T-Class Evaluator...")

	// 创建缓存服务
	cacheService, err := setupCache(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}
	defer cacheService.Close()

	// 创建大语言模型客户端，凭证缺失时服务照常启动
	llmClient := setupLLM(cfg, logger)

	// 初始化业务服务
	fetcher := document.NewURLFetcher(
		document.WithFetchTimeout(cfg.Fetch.Timeout),
		document.WithUserAgent(cfg.Fetch.UserAgent),
	)
	documentService := services.NewDocumentService(
		document.NewExtractor(fetcher),
		services.WithMaxUploadSize(cfg.Server.MaxUploadSize()),
		services.WithLogger(logger),
	)
	analysisService := services.NewAnalysisService(
		llmClient,
		cacheService,
		services.WithAnalysisLogger(logger),
	)
	evaluationService := services.NewEvaluationService(
		documentService,
		analysisService,
		services.WithFontPath(cfg.Export.FontPath),
		services.WithEvaluationLogger(logger),
	)
	sessionStore := session.NewStore(cacheService, cfg.Session.TTL)

	// 初始化API处理器并设置路由
	r, err := api.SetupRouter(api.Handlers{
		Document: handler.NewDocumentHandler(evaluationService, cfg.Server.MaxUploadSize()),
		Analysis: handler.NewAnalysisHandler(evaluationService),
		Session:  handler.NewSessionHandler(evaluationService),
		Page:     handler.NewPageHandler(evaluationService, cfg.Server.MaxUploadSize()),
	}, sessionStore, middleware.SessionOptions{Secure: cfg.Server.SecureCookies})
	if err != nil {
		logger.Fatalf("Failed to set up router: %v", err)
	}

	// 启动HTTP服务器
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 优雅关闭
	go func() {
		logger.WithFields(logrus.Fields{
			"address":  srv.Addr,
			"provider": cfg.LLM.Provider,
			"model":    llmClient.Name(),
			"cache":    cfg.Cache.Type,
		}).Info("Server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// 创建带超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// 优雅关闭服务器
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() flags {
	f := flags{}

	flag.StringVar(&f.ConfigFile, "config", "", "Path to config file (default: ./config.yaml or ./config/config.yaml)")
	flag.StringVar(&f.EnvFile, "env", ".env", "Path to .env file")
	flag.IntVar(&f.Port, "port", 8080, "Server port")
	flag.StringVar(&f.Mode, "mode", "release", "Run mode (debug/release)")
	flag.StringVar(&f.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")

	flag.Parse()
	return f
}

// applyFlags 用命令行上显式设置的参数覆盖配置
func applyFlags(cfg *appconfig.Config, f flags) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "port":
			cfg.Server.Port = f.Port
		case "mode":
			cfg.Server.Mode = f.Mode
		case "log-level":
			cfg.Log.Level = f.LogLevel
		}
	})
}

// setupCache 设置缓存服务
// 分析结果和会话共用同一个缓存，通过键前缀区分
func setupCache(cfg *appconfig.Config) (cache.Cache, error) {
	return cache.NewCache(cache.Config{
		Type:            cfg.Cache.Type,
		RedisAddr:       cfg.Cache.Address,
		RedisPassword:   cfg.Cache.Password,
		RedisDB:         cfg.Cache.DB,
		KeyPrefix:       cfg.Cache.KeyPrefix,
		DefaultTTL:      24 * time.Hour,
		CleanupInterval: cfg.Cache.CleanupInterval,
		MaxEntries:      cfg.Cache.MaxEntries,
	})
}

// setupLLM 设置大语言模型客户端
// 凭证或模型缺失时返回占位客户端，分析时才报告配置错误
func setupLLM(cfg *appconfig.Config, logger *logrus.Logger) llm.Client {
	opts := []llm.Option{
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithModel(cfg.LLM.Model),
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
	}

	client, err := llm.NewClient(cfg.LLM.Provider, opts...)
	if err != nil {
		var configErr *llm.ConfigurationError
		if !errors.As(err, &configErr) {
			configErr = llm.NewConfigurationError(err.Error())
		}
		logger.WithFields(logrus.Fields{
			"provider": cfg.LLM.Provider,
			"model":    cfg.LLM.Model,
		}).WithError(err).Warn("LLM client is not configured, analysis requests will fail until credentials are provided")
		return llm.NewUnconfiguredClient(cfg.LLM.Model, configErr)
	}

	return client
}
