package client

import (
	"context"
	"net/url"
)

// 邀请码校验失败原因
const (
	InviteReasonUsed     = "used"
	InviteReasonExpired  = "expired"
	InviteReasonNotFound = "not_found"
)

// VerifyInviteRequest 邀请码校验
type VerifyInviteRequest struct {
	InviteCode   string `json:"invite_code"`
	BusinessType string `json:"business_type"`
}

// VerifyInviteResponse 校验结果；失败时 reason 给出可机读的原因
type VerifyInviteResponse struct {
	Ok       bool   `json:"ok"`
	Reason   string `json:"reason,omitempty"`
	PublicID string `json:"public_id,omitempty"`
}

// VerifyInvite 校验邀请码是否可用
func (c *Client) VerifyInvite(ctx context.Context, req *VerifyInviteRequest) (*VerifyInviteResponse, error) {
	var resp VerifyInviteResponse
	if err := c.postJSON(ctx, APIInviteVerify, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type redeemInviteRequest struct {
	InviteCode string `json:"invite_code"`
	PublicID   string `json:"public_id,omitempty"`
}

// RedeemInvite 核销邀请码，作为付费之外的解锁报告途径
func (c *Client) RedeemInvite(ctx context.Context, inviteCode, publicID string) (*CommonResult, error) {
	var resp CommonResult
	req := &redeemInviteRequest{InviteCode: inviteCode, PublicID: publicID}
	if err := c.postJSON(ctx, APIInviteRedeem, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NativeCreateOrderRequest 创建微信 Native 支付订单
type NativeCreateOrderRequest struct {
	BusinessType string `json:"business_type"`
	PlanKey      string `json:"plan_key"`
	PublicID     string `json:"public_id,omitempty"`
}

// NativeCreateOrderResponse 下单结果；code_url 用于生成付款二维码
type NativeCreateOrderResponse struct {
	Ok          bool   `json:"ok"`
	OrderID     string `json:"order_id,omitempty"`
	CodeURL     string `json:"code_url,omitempty"`
	Amount      int64  `json:"amount,omitempty"` // 单位：分
	Description string `json:"description,omitempty"`
	ErrMessage  string `json:"err_message,omitempty"`
}

// CreateNativeOrder 向后端申请微信 Native 订单
func (c *Client) CreateNativeOrder(ctx context.Context, req *NativeCreateOrderRequest) (*NativeCreateOrderResponse, error) {
	var resp NativeCreateOrderResponse
	if err := c.postJSON(ctx, APIPayNativeCreate, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OrderStatusResponse 支付单状态
type OrderStatusResponse struct {
	Paid bool `json:"paid"`
	// SUCCESS / NOTPAY / CLOSED / REFUND ...
	TradeState string `json:"trade_state,omitempty"`
}

// QueryOrderStatus 查询支付单状态，供轮询使用
func (c *Client) QueryOrderStatus(ctx context.Context, orderID string) (*OrderStatusResponse, error) {
	query := url.Values{}
	query.Set("order_id", orderID)

	var resp OrderStatusResponse
	if err := c.getJSON(ctx, APIPayOrderStatus, query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PlanInfo 产品档位信息
type PlanInfo struct {
	PlanKey     string `json:"plan_key"`
	Title       string `json:"title,omitempty"`
	Amount      int64  `json:"amount"` // 单位：分
	Description string `json:"description,omitempty"`
	HasPaid     bool   `json:"has_paid"`
}

type currentPlanRequest struct {
	PublicID string `json:"public_id"`
}

// QueryCurrentPlan 查询当前试卷对应的产品档位与支付状态
func (c *Client) QueryCurrentPlan(ctx context.Context, publicID string) (*PlanInfo, error) {
	var resp PlanInfo
	req := &currentPlanRequest{PublicID: publicID}
	if err := c.postJSON(ctx, APILoadCurrentPlan, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
