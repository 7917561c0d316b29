package api

import (
	"fmt"

	"github.com/fyerfyer/tclass-evaluator/api/handler"
	"github.com/fyerfyer/tclass-evaluator/api/middleware"
	"github.com/fyerfyer/tclass-evaluator/internal/session"
	"github.com/fyerfyer/tclass-evaluator/web"
	"github.com/gin-gonic/gin"
)

// Handlers 路由使用的全部处理器
type Handlers struct {
	Document *handler.DocumentHandler
	Analysis *handler.AnalysisHandler
	Session  *handler.SessionHandler
	Page     *handler.PageHandler
}

// SetupRouter 设置API路由
// 配置页面和所有的API端点并应用中间件
func SetupRouter(h Handlers, sessions *session.Store, sessionOpts middleware.SessionOptions) (*gin.Engine, error) {
	router := gin.New()

	// 应用全局中间件
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	// 在调试模式下记录请求体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to load page templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	// 单页界面 - GET /
	router.GET("/", h.Page.Index)

	api := router.Group("/api")
	{
		// 健康检查 - GET /api/health
		api.GET("/health", h.Page.Health)

		// 可用模型 - GET /api/models
		api.GET("/models", h.Analysis.ListModels)

		// 以下接口依赖浏览器会话
		scoped := api.Group("", middleware.Session(sessions, sessionOpts))

		docGroup := scoped.Group("/documents")
		{
			// 上传文件 - POST /api/documents/pdf
			docGroup.POST("/pdf", h.Document.UploadDocument)

			// 抓取网页 - POST /api/documents/url
			docGroup.POST("/url", h.Document.ExtractURL)
		}

		analysisGroup := scoped.Group("/analysis")
		{
			// 运行评估 - POST /api/analysis
			analysisGroup.POST("", h.Analysis.Analyze)

			// 导出PDF - GET /api/analysis/export
			analysisGroup.GET("/export", h.Analysis.Export)
		}

		// 会话状态 - GET /api/session
		scoped.GET("/session", h.Session.GetSession)

		// 清空会话 - DELETE /api/session
		scoped.DELETE("/session", h.Session.ResetSession)
	}

	return router, nil
}
