package handler

import (
	"net/http"

	"github.com/fyerfyer/tclass-evaluator/api/model"
	"github.com/fyerfyer/tclass-evaluator/internal/llm"
	"github.com/fyerfyer/tclass-evaluator/internal/services"
	"github.com/fyerfyer/tclass-evaluator/web"
	"github.com/gin-gonic/gin"
)

// PageTitle 页面标题
const PageTitle = "Sovereign AI T-Class Evaluator 2.0"

// PageHandler 提供单页界面和健康检查
type PageHandler struct {
	evaluationService *services.EvaluationService
	maxUploadSize     int64
}

// NewPageHandler 创建页面处理器
func NewPageHandler(evaluationService *services.EvaluationService, maxUploadSize int64) *PageHandler {
	return &PageHandler{
		evaluationService: evaluationService,
		maxUploadSize:     maxUploadSize,
	}
}

// Index 渲染单页界面
// GET /
func (h *PageHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, web.IndexTemplate, web.PageData{
		Title:         PageTitle,
		Model:         h.evaluationService.Model(),
		RubricVersion: llm.RubricVersion,
		MaxUploadMB:   h.maxUploadSize >> 20,
	})
}

// Health 健康检查
// GET /api/health
func (h *PageHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.HealthResponse{
		Status:        "ok",
		Model:         h.evaluationService.Model(),
		RubricVersion: llm.RubricVersion,
	}))
}
