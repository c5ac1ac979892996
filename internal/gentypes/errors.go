package gentypes

import (
	"errors"
	"net/http"
)

// ErrorKind 区分错误的类别，决定返回给调用方的状态码。
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnsupportedMedia
	KindUploadTooLarge
	KindProvider
	KindIO
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindUnsupportedMedia:
		return "UnsupportedMediaError"
	case KindUploadTooLarge:
		return "UploadTooLargeError"
	case KindProvider:
		return "ProviderError"
	case KindIO:
		return "IOError"
	case KindNotFound:
		return "NotFoundError"
	default:
		return "InternalError"
	}
}

// Error 是服务层和传输层共享的错误类型。
// Message 面向用户，Detail 为底层原因（可选）。
type Error struct {
	Kind    ErrorKind
	Message string
	Detail  error
}

func (e *Error) Error() string {
	if e.Detail != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Detail.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Detail }

func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewUnsupportedMediaError(msg string) *Error {
	return &Error{Kind: KindUnsupportedMedia, Message: msg}
}

func NewUploadTooLargeError(msg string) *Error {
	return &Error{Kind: KindUploadTooLarge, Message: msg}
}

func NewProviderError(msg string, detail error) *Error {
	return &Error{Kind: KindProvider, Message: msg, Detail: detail}
}

func NewIOError(msg string, detail error) *Error {
	return &Error{Kind: KindIO, Message: msg, Detail: detail}
}

func NewNotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// KindOf 返回错误链中第一个 *Error 的类别。
func KindOf(err error) ErrorKind {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return KindInternal
}

// StatusOf 把错误映射为 HTTP 状态码。
func StatusOf(err error) int {
	switch KindOf(err) {
	case KindValidation, KindUnsupportedMedia:
		return http.StatusBadRequest
	case KindUploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
