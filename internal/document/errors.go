package document

import (
	"errors"
	"fmt"
)

// ExtractionError 文本提取错误
// 包括PDF损坏、URL不可达、非2xx响应以及请求超时等情况
type ExtractionError struct {
	Source  string // 出错的来源（文件名或URL）
	Message string // 可直接展示给用户的错误描述
	Cause   error  // 底层错误
}

// Error 实现error接口
func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to extract text from %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to extract text from %s: %s", e.Source, e.Message)
}

// Unwrap 返回底层错误
func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// NewExtractionError 创建文本提取错误
func NewExtractionError(source, message string, cause error) *ExtractionError {
	return &ExtractionError{
		Source:  source,
		Message: message,
		Cause:   cause,
	}
}

// IsExtractionError 判断错误链中是否包含文本提取错误
func IsExtractionError(err error) bool {
	var extractErr *ExtractionError
	return errors.As(err, &extractErr)
}
