package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/fyerfyer/tclass-evaluator/api/model"
	"github.com/fyerfyer/tclass-evaluator/internal/document"
	"github.com/fyerfyer/tclass-evaluator/internal/llm"
	"github.com/fyerfyer/tclass-evaluator/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// 定义应用中的错误类型常量
const (
	ErrorTypeValidation    = "VALIDATION_ERROR"    // 输入验证错误
	ErrorTypeNotFound      = "NOT_FOUND_ERROR"     // 资源不存在错误
	ErrorTypeConflict      = "CONFLICT_ERROR"      // 会话状态不满足操作条件
	ErrorTypeExtraction    = "EXTRACTION_ERROR"    // 文本提取错误
	ErrorTypeConfiguration = "CONFIGURATION_ERROR" // 模型凭证或配置缺失
	ErrorTypeService       = "SERVICE_ERROR"       // 远程模型服务错误
	ErrorTypeInternal      = "INTERNAL_ERROR"      // 内部服务器错误
)

// AppError 应用错误结构体
type AppError struct {
	Type    string // 错误类型
	Message string // 错误消息
	Details string // 详细错误信息
	Code    int    // HTTP状态码
}

// Error 实现error接口的方法
func (e AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewValidationError 创建输入验证错误
func NewValidationError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusBadRequest,
	}
}

// NewTooLargeError 创建请求体超过大小上限的错误
func NewTooLargeError(message string) AppError {
	return AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusRequestEntityTooLarge,
	}
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(message string) AppError {
	return AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

// NewConflictError 创建会话状态冲突错误
func NewConflictError(message string) AppError {
	return AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Code:    http.StatusConflict,
	}
}

// NewInternalError 创建内部服务器错误
func NewInternalError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusInternalServerError,
	}
}

// ClassifyError 把各层的错误映射为应用错误
func ClassifyError(err error) AppError {
	var (
		appErr     AppError
		appErrPtr  *AppError
		extractErr *document.ExtractionError
		configErr  *llm.ConfigurationError
		serviceErr *llm.ServiceError
		validErrs  validator.ValidationErrors
	)

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &appErrPtr):
		return *appErrPtr
	case errors.As(err, &extractErr):
		return AppError{Type: ErrorTypeExtraction, Message: extractErr.Error(), Code: http.StatusUnprocessableEntity}
	case errors.As(err, &configErr):
		return AppError{Type: ErrorTypeConfiguration, Message: configErr.Error(), Code: http.StatusServiceUnavailable}
	case errors.As(err, &serviceErr):
		return AppError{Type: ErrorTypeService, Message: serviceErr.Error(), Code: http.StatusBadGateway}
	case errors.As(err, &validErrs):
		return NewValidationError("invalid request parameters", validationDetails(validErrs)...)
	case errors.Is(err, services.ErrNoDocument), errors.Is(err, services.ErrNoAnalysis):
		return NewConflictError(err.Error())
	default:
		return NewInternalError("internal server error", err.Error())
	}
}

// validationDetails 生成字段级的校验失败说明
func validationDetails(errs validator.ValidationErrors) []string {
	details := make([]string, 0, len(errs))
	for _, fe := range errs {
		details = append(details, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return details
}

// ErrorHandler 统一错误处理中间件
// 恢复panic，并把处理器记录的最后一个错误转换为统一响应
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 捕获 panic
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					FieldError:   err,
					"stack":      string(debug.Stack()),
					FieldPath:    c.Request.URL.Path,
					FieldTraceID: GetTraceID(c),
				}).Error("Panic recovered in API request")

				errResp := model.NewErrorResponse(http.StatusInternalServerError, "An unexpected error occurred")
				// 在开发环境中可以返回详细错误
				if gin.Mode() == gin.DebugMode {
					errResp.Message = fmt.Sprintf("Panic: %v", err)
				}
				errResp.TraceID = GetTraceID(c)

				c.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
			}
		}()

		// 处理请求
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		// 取最后一个错误进行处理
		err := c.Errors.Last().Err
		appErr := ClassifyError(err)
		traceID := GetTraceID(c)

		entry := log.WithFields(logrus.Fields{
			"error_type": appErr.Type,
			FieldStatus:  appErr.Code,
			FieldTraceID: traceID,
			FieldPath:    c.Request.URL.Path,
		})
		if appErr.Type == ErrorTypeInternal {
			entry.WithError(err).Error(appErr.Message)
		} else {
			entry.WithError(err).Warn(appErr.Message)
		}

		message := appErr.Message
		if appErr.Details != "" && (appErr.Type != ErrorTypeInternal || gin.Mode() == gin.DebugMode) {
			message = appErr.Message + ": " + appErr.Details
		}

		errResp := model.NewErrorResponse(appErr.Code, message)
		errResp.TraceID = traceID

		if !c.Writer.Written() {
			c.JSON(appErr.Code, errResp)
		}
		c.Abort()
	}
}

// HandleError 在处理器中使用的错误处理辅助函数
func HandleError(c *gin.Context, err error) {
	// 添加错误到上下文中
	_ = c.Error(err)
}
