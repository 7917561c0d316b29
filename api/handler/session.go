package handler

import (
	"net/http"

	"github.com/fyerfyer/tclass-evaluator/api/middleware"
	"github.com/fyerfyer/tclass-evaluator/api/model"
	"github.com/fyerfyer/tclass-evaluator/internal/services"
	"github.com/gin-gonic/gin"
)

// SessionHandler 处理会话状态查询
type SessionHandler struct {
	evaluationService *services.EvaluationService
}

// NewSessionHandler 创建新的会话处理器
func NewSessionHandler(evaluationService *services.EvaluationService) *SessionHandler {
	return &SessionHandler{evaluationService: evaluationService}
}

// GetSession 返回当前文档摘要和最近一次评估结果
// GET /api/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess := middleware.GetSession(c)

	resp := model.SessionResponse{ID: sess.ID}
	if sess.HasDocument() {
		resp.Document = toDocumentResponse(*sess.Document)
	}
	if eval, err := h.evaluationService.LastEvaluation(sess); err == nil {
		resp.Analysis = toAnalysisResponse(eval)
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// ResetSession 清除当前文档和评估结果
// DELETE /api/session
func (h *SessionHandler) ResetSession(c *gin.Context) {
	sess := middleware.GetSession(c)
	sess.Reset()

	if err := middleware.CommitSession(c); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.SessionResponse{ID: sess.ID}))
}
