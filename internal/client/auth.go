package client

import (
	"context"
)

// 微信扫码登录状态
const (
	WxSignStatusPending = "pending"
	WxSignStatusOK      = "ok"
	WxSignStatusExpired = "expired"
)

// WxSignStatusResponse 登录状态应答；status == ok 时携带用户信息
type WxSignStatusResponse struct {
	Status      string `json:"status"`
	IsNew       *bool  `json:"is_new,omitempty"`
	UID         string `json:"uid,omitempty"`
	NickName    string `json:"nick_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	AppID       string `json:"appid,omitempty"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// QueryWxSignStatus 查询当前 cookie 会话的登录状态
func (c *Client) QueryWxSignStatus(ctx context.Context) (*WxSignStatusResponse, error) {
	var resp WxSignStatusResponse
	if err := c.getJSON(ctx, APIWeChatSignStatus, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WechatSignInRequest 微信登录回调（扫码后由客户端转交 code）
type WechatSignInRequest struct {
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
}

// WechatSignIn 完成微信登录，成功后服务端通过 Set-Cookie 下发会话
func (c *Client) WechatSignIn(ctx context.Context, req *WechatSignInRequest) (*WxSignStatusResponse, error) {
	var resp WxSignStatusResponse
	if err := c.postJSON(ctx, APIWeChatSignIn, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout 退出登录，使服务端会话失效
func (c *Client) Logout(ctx context.Context) error {
	return c.postJSON(ctx, APIWeChatLogOut, nil, nil)
}

// UserProfile 用户基本资料（报告抬头使用）
type UserProfile struct {
	UID        string `json:"uid"`
	NickName   string `json:"nick_name,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	StudyID    string `json:"study_id,omitempty"`
	SchoolName string `json:"school_name,omitempty"`
	Province   string `json:"province,omitempty"`
	City       string `json:"city,omitempty"`
}

// MyProfile 拉取当前用户资料
func (c *Client) MyProfile(ctx context.Context) (*UserProfile, error) {
	var resp UserProfile
	if err := c.getJSON(ctx, APIWeChatMyProfile, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProfileRequest 资料修改表单，零值字段不提交
type UpdateProfileRequest struct {
	NickName   string `json:"nick_name,omitempty"`
	StudyID    string `json:"study_id,omitempty"`
	SchoolName string `json:"school_name,omitempty"`
	Province   string `json:"province,omitempty"`
	City       string `json:"city,omitempty"`
}

// UpdateProfile 修改当前用户资料，返回修改后的完整资料
func (c *Client) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*UserProfile, error) {
	var resp UserProfile
	if err := c.postJSON(ctx, APIWeChatUpdProfile, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
