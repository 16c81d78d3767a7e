package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"wxt-client-go/internal/client"
	"wxt-client-go/internal/config"
	"wxt-client-go/internal/flow"
	"wxt-client-go/internal/logger"
	"wxt-client-go/internal/session"
)

// InviteError 邀请码核销失败，Reason 用于展示针对性的文案
type InviteError struct {
	Reason string
}

func (e *InviteError) Error() string {
	switch e.Reason {
	case client.InviteReasonUsed:
		return "邀请码已被使用"
	case client.InviteReasonExpired:
		return "邀请码已过期"
	case client.InviteReasonNotFound:
		return "邀请码不存在"
	default:
		return "邀请码不可用"
	}
}

// Report 一份可展示的完整报告：评分参数 + AI 文案
type Report struct {
	Raw *client.ReportRawData
	AI  *client.AIReportPayload
}

// Orchestrator 报告阶段的编排器：先确认付费/邀请码资格，
// 再拉取报告参数与 AI 文案，最后归档并重置会话。
type Orchestrator struct {
	api    *client.Client
	store  *session.Store
	poller *PaymentPoller

	// 流式拉取 AI 文案时的进度缓冲
	Progress *flow.ProgressLog
	log      zerolog.Logger
}

func NewOrchestrator(api *client.Client, store *session.Store, paymentCfg *config.PaymentConfig) *Orchestrator {
	return &Orchestrator{
		api:      api,
		store:    store,
		poller:   NewPaymentPoller(api, paymentCfg),
		Progress: flow.NewProgressLog(0, 0),
		log:      logger.Component("ReportStage"),
	}
}

func (o *Orchestrator) record() (*client.TestRecord, error) {
	rec := o.store.Record()
	if rec == nil || rec.PublicID == "" {
		return nil, &flow.FlowError{Reason: flow.ReasonMissingRecord, Message: "没有进行中的测评记录，请回到首页重新开始"}
	}
	return rec, nil
}

// CheckEntitlement 查询当前档位与支付状态。
// 返回的 PlanInfo.HasPaid 为 false 时调用方应引导付费或邀请码。
func (o *Orchestrator) CheckEntitlement(ctx context.Context) (*client.PlanInfo, error) {
	rec, err := o.record()
	if err != nil {
		return nil, err
	}
	return o.api.QueryCurrentPlan(ctx, rec.PublicID)
}

// RedeemInvite 校验并核销邀请码，成功后即获得报告资格
func (o *Orchestrator) RedeemInvite(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("邀请码不能为空")
	}
	rec, err := o.record()
	if err != nil {
		return err
	}

	verified, err := o.api.VerifyInvite(ctx, &client.VerifyInviteRequest{
		InviteCode:   code,
		BusinessType: rec.BusinessType,
	})
	if err != nil {
		return err
	}
	if !verified.Ok {
		return &InviteError{Reason: verified.Reason}
	}

	res, err := o.api.RedeemInvite(ctx, code, rec.PublicID)
	if err != nil {
		return err
	}
	if !res.Ok {
		return fmt.Errorf("邀请码核销失败: %s", res.Msg)
	}
	o.log.Info().Msg("邀请码核销成功")
	return nil
}

// CreateOrder 创建微信 Native 支付单，返回用于生成二维码的 code_url
func (o *Orchestrator) CreateOrder(ctx context.Context, planKey string) (*client.NativeCreateOrderResponse, error) {
	rec, err := o.record()
	if err != nil {
		return nil, err
	}

	order, err := o.api.CreateNativeOrder(ctx, &client.NativeCreateOrderRequest{
		BusinessType: rec.BusinessType,
		PlanKey:      planKey,
		PublicID:     rec.PublicID,
	})
	if err != nil {
		return nil, err
	}
	if !order.Ok {
		return nil, fmt.Errorf("创建支付单失败: %s", order.ErrMessage)
	}
	return order, nil
}

// AwaitPayment 轮询支付单直到确认到账或超时
func (o *Orchestrator) AwaitPayment(ctx context.Context, orderID string) error {
	return o.poller.Wait(ctx, orderID)
}

// Load 拉取完整报告。评分参数走普通请求；AI 文案若已内联在
// ai_content 里则直接解析，否则打开报告流式通道等 done 帧。
func (o *Orchestrator) Load(ctx context.Context) (*Report, error) {
	rec, err := o.record()
	if err != nil {
		return nil, err
	}

	raw, err := o.api.GenerateReport(ctx, rec.PublicID, rec.BusinessType)
	if err != nil {
		return nil, err
	}

	var aiJSON string
	if raw.AIContent != "" {
		aiJSON = raw.AIContent
	} else {
		aiJSON, err = o.streamNarrative(ctx, rec.PublicID)
		if err != nil {
			return nil, err
		}
	}

	var ai client.AIReportPayload
	if err := json.Unmarshal([]byte(aiJSON), &ai); err != nil {
		return nil, fmt.Errorf("解析 AI 报告载荷失败: %w", err)
	}

	o.log.Info().Str("mode", raw.Mode).Msg("报告已就绪")
	return &Report{Raw: raw, AI: &ai}, nil
}

// streamNarrative 走报告 SSE 通道拉取 AI 文案，阻塞到终止事件
func (o *Orchestrator) streamNarrative(ctx context.Context, publicID string) (string, error) {
	type outcome struct {
		payload string
		err     error
	}
	result := make(chan outcome, 1)

	sub := o.api.SubscribeReport(publicID, client.SubscriptionOptions{
		OnMessage: func(chunk string) {
			o.Progress.Append(chunk)
		},
		OnDone: func(payload string) {
			result <- outcome{payload: payload}
		},
		OnError: func(err error) {
			result <- outcome{err: err}
		},
	})
	sub.Start(ctx)

	select {
	case <-ctx.Done():
		sub.Stop()
		return "", ctx.Err()
	case out := <-result:
		o.Progress.Flush()
		if out.err != nil {
			return "", out.err
		}
		return out.payload, nil
	}
}

// Finish 归档本次报告并清空本地会话
func (o *Orchestrator) Finish(ctx context.Context) error {
	rec, err := o.record()
	if err != nil {
		return err
	}
	if err := o.api.FinishReport(ctx, rec.PublicID, rec.BusinessType); err != nil {
		return err
	}
	return o.store.Reset(ctx)
}
