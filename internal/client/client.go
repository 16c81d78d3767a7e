package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wxt-client-go/internal/logger"
	"wxt-client-go/internal/tracing"
)

// API 路径常量，与服务端 http_srv 的路由表一一对应
const (
	APIHealthy           = "/api/health"
	APILoadHobbies       = "/api/hobbies"
	APILoadProducts      = "/api/products"
	APITestFlow          = "/api/test_flow"
	APITestBasicInfo     = "/api/tests/basic_info"
	APISSEQuestionSub    = "/api/sub/question/"
	APISSEReportSub      = "/api/sub/report/"
	APISubmitTest        = "/api/test_submit"
	APIGenerateReport    = "/api/generate_report"
	APIFinishReport      = "/api/finish_report"
	APIInviteVerify      = "/api/invites/verify"
	APIInviteRedeem      = "/api/invites/redeem"
	APIPayNativeCreate   = "/api/pay/wechat/native/create"
	APIPayOrderStatus    = "/api/pay/wechat/order-status"
	APIWeChatSignStatus  = "/api/auth/wx/status"
	APIWeChatSignIn      = "/api/wechat_signin"
	APIWeChatLogOut      = "/api/auth/logout"
	APIWeChatMyProfile   = "/api/auth/profile"
	APIWeChatUpdProfile  = "/api/user/update_profile"
	APILoadCurrentPlan   = "/api/products/current"
)

// Client 测评服务的 HTTP 传输层。
// 会话凭证依赖 cookie，由内部 cookie jar 自动携带。
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        zerolog.Logger
	tracer     trace.Tracer
}

// New 创建传输客户端；timeout 只作用于普通请求，SSE 连接单独建立
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("无效的服务地址 %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("无效的服务地址 %q: 缺少 scheme 或 host", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("创建 cookie jar 失败: %w", err)
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		log:    logger.Component("ApiClient"),
		tracer: otel.Tracer("wxt-client-go/client"),
	}, nil
}

// HTTPClient 暴露底层 http.Client，供 SSE 订阅复用同一个 cookie jar
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Endpoint 拼接完整的请求地址
func (c *Client) Endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// request 统一的 JSON 往返：body 编码、错误信封解析、otel span。
// 2xx 且响应体为空时 out 保持原值返回 nil。
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "http "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", tracing.SafeAttributeValue("path", path, tracing.MaxURLLength)),
		))
	defer span.End()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeInternal)
			return fmt.Errorf("编码请求体失败: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Endpoint(path, query), reader)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return fmt.Errorf("构造请求失败: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Err(err).Str("path", path).Msg("http request failed")
		tErr := newTransportError(err)
		tracing.RecordError(span, tErr, tracing.ErrorTypeHTTP)
		return tErr
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		tErr := newTransportError(err)
		tracing.RecordError(span, tErr, tracing.ErrorTypeHTTP)
		return tErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := c.decodeError(resp.StatusCode, payload)
		c.log.Warn().Str("path", path).Int("status", resp.StatusCode).
			Str("code", apiErr.Code).Str("message", apiErr.Message).
			Msg("api business error")
		span.SetAttributes(attribute.String("http.response_summary",
			tracing.SafeAttributeValue("body", string(bytes.TrimSpace(payload)), tracing.MaxBodyLength)))
		tracing.RecordHTTPError(span, apiErr, resp.StatusCode)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		pErr := newPayloadError(resp.StatusCode, err)
		tracing.RecordError(span, pErr, tracing.ErrorTypeHTTP)
		return pErr
	}
	return nil
}

// decodeError 解析非 2xx 响应的 {code, message} 信封；无法解析时退化为原始文本
func (c *Client) decodeError(status int, payload []byte) *APIError {
	apiErr := &APIError{Status: status}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, apiErr); err == nil && (apiErr.Message != "" || apiErr.Code != "") {
			apiErr.Status = status
			return apiErr
		}
		apiErr.Message = strings.TrimSpace(string(trimmed))
		return apiErr
	}

	apiErr.Message = http.StatusText(status)
	return apiErr
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	return c.request(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.request(ctx, http.MethodGet, path, query, nil, out)
}

// Health 探活
func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, APIHealthy, nil, nil)
}
