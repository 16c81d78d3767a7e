package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"wxt-client-go/internal/client"
	"wxt-client-go/internal/config"
	"wxt-client-go/internal/logger"
	"wxt-client-go/internal/tracing"
)

// ErrPaymentTimeout 轮询次数用尽仍未确认到账
var ErrPaymentTimeout = errors.New("支付确认超时，请稍后在订单页查看")

// PaymentPoller 轮询微信支付单状态。
// 间隔按指数退避增长直到上限，轮询次数有硬上限，
// 避免被遗忘的页面无限轮询下去。
type PaymentPoller struct {
	api *client.Client
	cfg *config.PaymentConfig
	log zerolog.Logger
}

func NewPaymentPoller(api *client.Client, cfg *config.PaymentConfig) *PaymentPoller {
	return &PaymentPoller{
		api: api,
		cfg: cfg,
		log: logger.Component("PaymentPoller"),
	}
}

// Wait 阻塞到支付成功、次数用尽或 ctx 取消。
// 第一次查询立即发出，之后按退避间隔等待。
func (p *PaymentPoller) Wait(ctx context.Context, orderID string) error {
	if orderID == "" {
		err := fmt.Errorf("订单号不能为空")
		tracing.RecordError(trace.SpanFromContext(ctx), err, tracing.ErrorTypeValidation)
		return err
	}

	interval := p.cfg.PollInitialInterval()
	maxInterval := p.cfg.PollMaxInterval()
	maxAttempts := p.cfg.MaxAttempts()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := p.api.QueryOrderStatus(ctx, orderID)
		if err != nil {
			// 单次查询失败不终止轮询，下一轮再试
			p.log.Warn().Err(err).Int("attempt", attempt).Msg("查询支付单状态失败")
		} else {
			if status.Paid {
				p.log.Info().Str("order_id", orderID).Int("attempt", attempt).Msg("支付确认成功")
				return nil
			}
			if status.TradeState == "CLOSED" || status.TradeState == "REVOKED" {
				terr := fmt.Errorf("支付单已关闭: %s", status.TradeState)
				tracing.RecordError(trace.SpanFromContext(ctx), terr, tracing.ErrorTypePayment)
				return terr
			}
		}

		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		interval *= 2
		if interval > maxInterval {
			interval = maxInterval
		}
	}

	p.log.Warn().Str("order_id", orderID).Int("attempts", maxAttempts).Msg("支付确认超时")
	tracing.RecordError(trace.SpanFromContext(ctx), ErrPaymentTimeout, tracing.ErrorTypeTimeout)
	return ErrPaymentTimeout
}
