package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError 凭证或模型未配置
// 请求不会发出，调用方应提示用户补全配置
type ConfigurationError struct {
	Message string
}

// Error 实现error接口
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("llm configuration error: %s", e.Message)
}

// NewConfigurationError 创建配置错误
func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{Message: message}
}

// ServiceError 远端模型调用错误类型
type ServiceError struct {
	Code    int    // 错误码
	Message string // 错误消息
	Cause   error  // 原始错误
}

// Error 实现error接口
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm error (code=%d): %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("llm error (code=%d): %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey  = 1001 // 无效的API密钥
	ErrCodeInvalidRequest = 1002 // 无效的请求
	ErrCodeNetworkError   = 1003 // 网络连接错误
	ErrCodeRateLimited    = 1004 // 请求频率超限
	ErrCodeServerError    = 1005 // 服务器错误
	ErrCodeTimeout        = 1006 // 请求超时
	ErrCodeEmptyPrompt    = 1007 // 提示词为空
	ErrCodeContentFilter  = 1008 // 内容安全过滤
	ErrCodeModelOverload  = 1009 // 模型过载
	ErrCodeContextTooLong = 1010 // 上下文过长
	ErrCodeEmptyResponse  = 1011 // 模型返回空内容
)

// 错误消息常量
const (
	ErrMsgInvalidAPIKey  = "invalid API key"
	ErrMsgInvalidRequest = "invalid request parameters"
	ErrMsgRateLimited    = "too many requests, rate limit exceeded"
	ErrMsgServerError    = "server error occurred"
	ErrMsgTimeout        = "request timed out"
	ErrMsgEmptyPrompt    = "prompt cannot be empty"
	ErrMsgNetworkError   = "network connection error"
	ErrMsgContentFilter  = "content filtered due to safety concerns"
	ErrMsgModelOverload  = "model is currently overloaded"
	ErrMsgContextTooLong = "context length exceeds model's maximum"
	ErrMsgEmptyResponse  = "model returned no usable text"
)

// NewServiceError 创建新的远端调用错误
func NewServiceError(code int, message string, cause error) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapError 包装普通错误为ServiceError
func WrapError(err error, code int) error {
	if err == nil {
		return NewServiceError(code, "unknown error", nil)
	}

	// 已经是分类过的错误则直接返回
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewServiceError(ErrCodeTimeout, ErrMsgTimeout, err)
	}

	return NewServiceError(code, messageForCode(code), err)
}

// IsConfigurationError 判断是否为配置错误
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsServiceError 判断是否为远端调用错误
func IsServiceError(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr)
}

// codeForStatus 将HTTP状态码映射为错误码
func codeForStatus(status int) int {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeInvalidAPIKey
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case status == http.StatusServiceUnavailable:
		return ErrCodeModelOverload
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrCodeTimeout
	case status == http.StatusRequestEntityTooLarge:
		return ErrCodeContextTooLong
	case status >= 400 && status < 500:
		return ErrCodeInvalidRequest
	default:
		return ErrCodeServerError
	}
}

func messageForCode(code int) string {
	switch code {
	case ErrCodeInvalidAPIKey:
		return ErrMsgInvalidAPIKey
	case ErrCodeInvalidRequest:
		return ErrMsgInvalidRequest
	case ErrCodeNetworkError:
		return ErrMsgNetworkError
	case ErrCodeRateLimited:
		return ErrMsgRateLimited
	case ErrCodeTimeout:
		return ErrMsgTimeout
	case ErrCodeEmptyPrompt:
		return ErrMsgEmptyPrompt
	case ErrCodeContentFilter:
		return ErrMsgContentFilter
	case ErrCodeModelOverload:
		return ErrMsgModelOverload
	case ErrCodeContextTooLong:
		return ErrMsgContextTooLong
	case ErrCodeEmptyResponse:
		return ErrMsgEmptyResponse
	default:
		return ErrMsgServerError
	}
}
