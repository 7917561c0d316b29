package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fyerfyer/tclass-evaluator/api/middleware"
	"github.com/fyerfyer/tclass-evaluator/api/model"
	"github.com/fyerfyer/tclass-evaluator/internal/document"
	"github.com/fyerfyer/tclass-evaluator/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DocumentHandler 处理文档提取相关的API请求
type DocumentHandler struct {
	evaluationService *services.EvaluationService // 评估服务
	maxUploadSize     int64                       // 上传大小上限
	logger            *logrus.Logger              // 日志记录器
}

// NewDocumentHandler 创建新的文档处理器
func NewDocumentHandler(evaluationService *services.EvaluationService, maxUploadSize int64) *DocumentHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = services.DefaultMaxUploadSize
	}
	return &DocumentHandler{
		evaluationService: evaluationService,
		maxUploadSize:     maxUploadSize,
		logger:            middleware.GetLogger(),
	}
}

// UploadDocument 上传文件并提取文本
// POST /api/documents/pdf
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	// 多留1MB给multipart的其他部分
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+1<<20)

	var req model.DocumentUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Invalid document upload request")
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.HandleError(c, middleware.NewTooLargeError(
				fmt.Sprintf("file exceeds the upload size limit of %d MB", h.maxUploadSize>>20)))
			return
		}
		middleware.HandleError(c, middleware.NewValidationError("a file must be uploaded in the 'file' field"))
		return
	}

	filename := req.File.Filename
	if document.DetectContentType(filename) == document.Unknown {
		middleware.HandleError(c, middleware.NewValidationError("unsupported file type, expected .pdf, .md, .markdown or .txt"))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"filename": filename,
		}).Error("Failed to open uploaded file")
		middleware.HandleError(c, middleware.NewInternalError("failed to open the uploaded file"))
		return
	}
	defer file.Close()

	sess := middleware.GetSession(c)
	doc, err := h.evaluationService.IngestUpload(c.Request.Context(), sess, file, filename)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	if err := middleware.CommitSession(c); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(toDocumentResponse(doc)))
}

// ExtractURL 抓取网页并提取文本
// POST /api/documents/url
func (h *DocumentHandler) ExtractURL(c *gin.Context) {
	var req model.URLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Invalid URL request")
		middleware.HandleError(c, bindError(err))
		return
	}

	sess := middleware.GetSession(c)
	doc, err := h.evaluationService.IngestURL(c.Request.Context(), sess, req.URL)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	if err := middleware.CommitSession(c); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(toDocumentResponse(doc)))
}

// toDocumentResponse 转换为文档响应
func toDocumentResponse(doc document.Document) *model.DocumentResponse {
	return &model.DocumentResponse{
		Source:  doc.Source,
		Type:    string(doc.Type),
		Length:  doc.Length(),
		Preview: document.Preview(doc.Content, services.PreviewChars),
	}
}
