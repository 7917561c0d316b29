package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/tclass-evaluator/api/middleware"
	"github.com/fyerfyer/tclass-evaluator/api/model"
	"github.com/fyerfyer/tclass-evaluator/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AnalysisHandler 处理分析相关的API请求
type AnalysisHandler struct {
	evaluationService *services.EvaluationService // 评估服务
	logger            *logrus.Logger              // 日志记录器
}

// NewAnalysisHandler 创建新的分析处理器
func NewAnalysisHandler(evaluationService *services.EvaluationService) *AnalysisHandler {
	return &AnalysisHandler{
		evaluationService: evaluationService,
		logger:            middleware.GetLogger(),
	}
}

// Analyze 对会话中的文档执行评估
// POST /api/analysis
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	sess := middleware.GetSession(c)

	eval, err := h.evaluationService.EvaluateSession(c.Request.Context(), sess)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	if err := middleware.CommitSession(c); err != nil {
		middleware.HandleError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		middleware.FieldTraceID: middleware.GetTraceID(c),
		"source":                eval.Source,
		"cached":                eval.Cached,
		"score_parse_ok":        eval.Result.ScoreParseOK,
	}).Info("Evaluation finished")

	c.JSON(http.StatusOK, model.NewSuccessResponse(toAnalysisResponse(eval)))
}

// Export 导出最近一次评估结果为PDF
// GET /api/analysis/export
func (h *AnalysisHandler) Export(c *gin.Context) {
	sess := middleware.GetSession(c)

	var buf bytes.Buffer
	if err := h.evaluationService.Export(&buf, sess); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(sess.Analysis.Source)))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// ListModels 列出当前凭证可用的模型
// GET /api/models
func (h *AnalysisHandler) ListModels(c *gin.Context) {
	models, err := h.evaluationService.ListModels(c.Request.Context())
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ModelListResponse{
		Current: h.evaluationService.Model(),
		Models:  models,
	}))
}

// exportFilename 根据来源生成下载文件名
func exportFilename(source string) string {
	name := source
	if i := strings.Index(source, ": "); i >= 0 {
		name = source[i+2:]
	}
	name = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if strings.Trim(name, "_") == "" {
		name = "report"
	}
	return "tclass-" + name + ".pdf"
}

// toAnalysisResponse 转换为分析响应
func toAnalysisResponse(eval *services.Evaluation) *model.AnalysisResponse {
	warnings := eval.Result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &model.AnalysisResponse{
		Model:          eval.Model,
		Source:         eval.Source,
		ReportMarkdown: eval.Result.MarkdownReport,
		ReportHTML:     eval.ReportHTML,
		Scores:         eval.Result.Scores,
		ScoreParseOK:   eval.Result.ScoreParseOK,
		Warnings:       warnings,
		Chart:          eval.Chart,
		Cached:         eval.Cached,
		Truncated:      eval.Truncated,
		AnalyzedAt:     eval.AnalyzedAt,
	}
}
