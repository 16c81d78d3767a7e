package client

import (
	"context"
)

// TestFlowRequest 创建或恢复测试流程
type TestFlowRequest struct {
	BusinessType string `json:"business_type"`
	PublicID     string `json:"public_id,omitempty"`
	InviteCode   string `json:"invite_code,omitempty"`
	WechatOpenID string `json:"wechat_openid,omitempty"`
}

// TestFlowResponse 流程应答：记录 + 全量阶段表 + 当前所处阶段
type TestFlowResponse struct {
	Record       *TestRecord `json:"record"`
	Steps        []FlowStep  `json:"steps"`
	CurrentStage string      `json:"current_stage"`
	CurrentIndex int         `json:"current_index"`
}

// FetchTestFlow 创建/恢复一次测试流程
func (c *Client) FetchTestFlow(ctx context.Context, req *TestFlowRequest) (*TestFlowResponse, error) {
	var resp TestFlowResponse
	if err := c.postJSON(ctx, APITestFlow, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BasicInfoRequest 基本信息表单
type BasicInfoRequest struct {
	PublicID string `json:"public_id"`
	Grade    string `json:"grade"`
	Mode     string `json:"mode"`
	Hobby    string `json:"hobby,omitempty"`
}

// SubmitBasicInfo 提交年级/模式/爱好，应答携带下一阶段
func (c *Client) SubmitBasicInfo(ctx context.Context, req *BasicInfoRequest) (*CommonResult, error) {
	var resp CommonResult
	if err := c.postJSON(ctx, APITestBasicInfo, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitTestRequest 单个阶段的答案提交
type SubmitTestRequest struct {
	PublicID     string       `json:"public_id"`
	BusinessType string       `json:"business_type"`
	TestType     string       `json:"test_type"`
	Answers      []AnswerItem `json:"answers"`
}

// SubmitTest 提交一个阶段的全部答案，应答携带服务端裁定的下一阶段
func (c *Client) SubmitTest(ctx context.Context, req *SubmitTestRequest) (*CommonResult, error) {
	var resp CommonResult
	if err := c.postJSON(ctx, APISubmitTest, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
