package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 定义错误类型，便于分类和过滤
type ErrorType string

const (
	// ErrorTypeHTTP HTTP 请求错误
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeStream SSE 流式通道错误
	ErrorTypeStream ErrorType = "stream"
	// ErrorTypeSession 会话存储错误
	ErrorTypeSession ErrorType = "session"
	// ErrorTypeRedis Redis 错误
	ErrorTypeRedis ErrorType = "redis"
	// ErrorTypeValidation 本地校验错误
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypePayment 支付/权益校验错误
	ErrorTypePayment ErrorType = "payment"
	// ErrorTypeTimeout 超时错误
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeInternal 内部错误
	ErrorTypeInternal ErrorType = "internal"
)

// RecordError 记录错误，添加统一的错误类型和详情
func RecordError(span trace.Span, err error, errorType ErrorType) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)

	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", err.Error()),
	)

	span.SetStatus(codes.Error, err.Error())
}

// RecordErrorWithInfo 记录错误并附加额外属性
func RecordErrorWithInfo(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)

	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", err.Error()),
	)

	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}

	span.SetStatus(codes.Error, err.Error())
}

// RecordHTTPError 专门记录 HTTP 错误，带状态码属性
func RecordHTTPError(span trace.Span, err error, statusCode int) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)

	span.SetAttributes(
		attribute.String("error.type", string(ErrorTypeHTTP)),
		attribute.String("error.message", err.Error()),
		attribute.Int("http.status_code", statusCode),
	)

	span.SetStatus(codes.Error, err.Error())
}
