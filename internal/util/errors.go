package util

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind 业务错误分类，控制器据此映射 HTTP 状态码
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindForbidden         ErrorKind = "forbidden"
	KindNotFound          ErrorKind = "not_found"
	KindInvalidState      ErrorKind = "invalid_state"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindInternal          ErrorKind = "internal"
)

// AppError 服务层统一错误。内部错误对外只暴露固定文案，细节只进日志。
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindInvalidState, KindInvalidTransition:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func Validation(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ForbiddenErr(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFoundErr(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidState 当前生命周期状态不允许该操作，文案回显当前/期望状态便于排查
func InvalidState(current, expected string) *AppError {
	return &AppError{
		Kind:    KindInvalidState,
		Message: fmt.Sprintf("当前状态不允许该操作（当前：%s，要求：%s）", current, expected),
	}
}

// InvalidTransition 落实状态机不存在 from→to 这条边
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("非法的落实状态迁移：%s → %s", from, to),
	}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "内部服务错误", Err: err}
}

// AsAppError 提取业务错误，其它错误一律按内部错误处理
func AsAppError(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
