// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"
	"fmt"
)

// 错误类别。服务层用 fmt.Errorf("%w: ...") 包装，handler 通过 errors.Is 映射为 HTTP 状态码。
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
)

// Error 携带面向用户的消息和内部原因。Error() 只返回消息，原因仅用于日志。
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Is 让 errors.Is(err, ErrNotFound) 这类判断作用于 Kind。
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind error, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func validationError(format string, args ...interface{}) error {
	return newError(ErrValidation, nil, format, args...)
}

func unauthorizedError(cause error, msg string) error {
	return newError(ErrUnauthorized, cause, "%s", msg)
}

func notFoundError(format string, args ...interface{}) error {
	return newError(ErrNotFound, nil, format, args...)
}

func conflictError(cause error, msg string) error {
	return newError(ErrConflict, cause, "%s", msg)
}

// upstreamError 包装外部存储的失败，对外只暴露通用消息。
func upstreamError(cause error, msg string) error {
	return newError(ErrUpstream, cause, "%s", msg)
}
