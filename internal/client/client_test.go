package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, 5*time.Second)
	require.NoError(t, err, "创建客户端失败")
	return c
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := New("not-a-url", time.Second)
	assert.Error(t, err, "缺少 scheme 的地址应当被拒绝")

	_, err = New("://bad", time.Second)
	assert.Error(t, err)
}

func TestRequestDecodesErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    ErrorCodeNotFound,
			"message": "测评记录不存在",
		})
	})

	err := c.getJSON(context.Background(), "/api/anything", nil, nil)
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok, "业务错误应当是 APIError")
	assert.Equal(t, ErrorCodeNotFound, apiErr.Code)
	assert.Equal(t, "测评记录不存在", apiErr.Message)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestRequestNonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	})

	err := c.getJSON(context.Background(), "/api/anything", nil, nil)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "service unavailable", apiErr.Message, "无法解析的错误体应当退化为原始文本")
}

func TestRequestEmptyBodyLeavesOutUntouched(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	out := CommonResult{Ok: true, Msg: "初始值"}
	err := c.getJSON(context.Background(), "/api/anything", nil, &out)
	require.NoError(t, err, "空响应体的 2xx 应当返回 nil")
	assert.Equal(t, "初始值", out.Msg, "空响应体不应覆盖 out")
}

func TestRequestBadPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{broken"))
	})

	var out CommonResult
	err := c.getJSON(context.Background(), "/api/anything", nil, &out)
	require.Error(t, err)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeBadPayload, apiErr.Code, "坏响应体应当归类为 BAD_PAYLOAD")
}

func TestRequestCarriesRequestID(t *testing.T) {
	var seen string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Health(context.Background()))
	assert.NotEmpty(t, seen, "每个请求都应携带 X-Request-Id")
}

func TestClientPersistsCookies(t *testing.T) {
	var secondCookie string
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "abc123", Path: "/"})
		} else {
			if ck, err := r.Cookie("session_id"); err == nil {
				secondCookie = ck.Value
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Health(context.Background()))
	require.NoError(t, c.Health(context.Background()))
	assert.Equal(t, "abc123", secondCookie, "后续请求应当自动携带会话 cookie")
}

func TestEndpointJoinsPathAndQuery(t *testing.T) {
	c, err := New("http://example.com/base/", time.Second)
	require.NoError(t, err)

	got := c.Endpoint(APITestFlow, nil)
	assert.Equal(t, "http://example.com/base/api/test_flow", got)
}
