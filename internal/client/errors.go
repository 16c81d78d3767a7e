package client

import (
	"errors"
	"fmt"
)

// 错误码与服务端 srv_error 约定保持一致
const (
	ErrorCodeBadRequest = "BAD_REQUEST"
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeConflict   = "CONFLICT"
	ErrorCodeInternal   = "INTERNAL"
	ErrorCodeForbidden  = "FORBIDDEN"
	ErrorCodeNoSession  = "NO_SESSION"

	// 客户端本地错误码
	ErrorCodeBadPayload = "BAD_PAYLOAD"
	ErrorCodeTransport  = "TRANSPORT"
)

// APIError 服务端错误信封 {code, message}，附带 HTTP 状态码
type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("请求失败(%d)", e.Status)
}

// AsAPIError 提取错误链中的 APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// newTransportError 网络层错误：请求未得到任何响应
func newTransportError(err error) *APIError {
	return &APIError{
		Code:    ErrorCodeTransport,
		Message: "网络请求失败: " + err.Error(),
	}
}

// newPayloadError 响应体无法按约定结构解析
func newPayloadError(status int, err error) *APIError {
	return &APIError{
		Code:    ErrorCodeBadPayload,
		Message: "响应数据解析失败: " + err.Error(),
		Status:  status,
	}
}
