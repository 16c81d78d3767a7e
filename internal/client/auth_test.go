package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryWxSignStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, APIWeChatSignStatus, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(WxSignStatusResponse{
			Status:   WxSignStatusOK,
			UID:      "u-1",
			NickName: "小明",
		})
	})

	resp, err := c.QueryWxSignStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WxSignStatusOK, resp.Status)
	assert.Equal(t, "u-1", resp.UID)
}

func TestQueryWxSignStatusExpired(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(WxSignStatusResponse{Status: WxSignStatusExpired})
	})

	resp, err := c.QueryWxSignStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, WxSignStatusExpired, resp.Status, "过期会话应当原样透出 status")
	assert.Empty(t, resp.UID)
}

func TestWechatSignInSetsSessionCookie(t *testing.T) {
	var laterCookie string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case APIWeChatSignIn:
			var req WechatSignInRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "wx-code-1", req.Code)
			http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "sess-9", Path: "/"})
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(WxSignStatusResponse{Status: WxSignStatusOK, UID: "u-9"})
		default:
			if ck, err := r.Cookie("session_id"); err == nil {
				laterCookie = ck.Value
			}
			w.WriteHeader(http.StatusOK)
		}
	})

	resp, err := c.WechatSignIn(context.Background(), &WechatSignInRequest{Code: "wx-code-1"})
	require.NoError(t, err)
	assert.Equal(t, "u-9", resp.UID)

	require.NoError(t, c.Health(context.Background()))
	assert.Equal(t, "sess-9", laterCookie, "登录下发的会话 cookie 应当在后续请求自动携带")
}

func TestLogout(t *testing.T) {
	var path, method string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, APIWeChatLogOut, path)
	assert.Equal(t, http.MethodPost, method)
}

func TestMyProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, APIWeChatMyProfile, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(UserProfile{
			UID:        "u-2",
			NickName:   "小红",
			SchoolName: "第一中学",
		})
	})

	profile, err := c.MyProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-2", profile.UID)
	assert.Equal(t, "第一中学", profile.SchoolName)
}

func TestUpdateProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, APIWeChatUpdProfile, r.URL.Path)
		var req UpdateProfileRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "第二中学", req.SchoolName)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(UserProfile{UID: "u-3", SchoolName: req.SchoolName})
	})

	profile, err := c.UpdateProfile(context.Background(), &UpdateProfileRequest{SchoolName: "第二中学"})
	require.NoError(t, err)
	assert.Equal(t, "第二中学", profile.SchoolName)
}

func TestAuthUnauthorizedEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    ErrorCodeNoSession,
			"message": "请先验证邀请码或登录",
		})
	})

	_, err := c.MyProfile(context.Background())
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeNoSession, apiErr.Code)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
