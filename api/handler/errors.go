package handler

import (
	"errors"

	"github.com/fyerfyer/tclass-evaluator/api/middleware"
	"github.com/go-playground/validator/v10"
)

// bindError 请求绑定失败统一按输入错误处理
func bindError(err error) error {
	var validErrs validator.ValidationErrors
	if errors.As(err, &validErrs) {
		return err
	}
	return middleware.NewValidationError("invalid request body", err.Error())
}
