package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxt-client-go/internal/client"
	"wxt-client-go/internal/config"
)

func fastPaymentConfig(maxAttempts int) *config.PaymentConfig {
	return &config.PaymentConfig{
		PollInitialIntervalMS: 5,
		PollMaxIntervalMS:     20,
		PollMaxAttempts:       maxAttempts,
	}
}

func orderStatusServer(t *testing.T, respond func(attempt int32) client.OrderStatusResponse) (*client.Client, *int32) {
	t.Helper()
	var attempts int32
	mux := http.NewServeMux()
	mux.HandleFunc(client.APIPayOrderStatus, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(respond(n))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, 5*time.Second)
	require.NoError(t, err)
	return c, &attempts
}

func TestPaymentPollerSucceeds(t *testing.T) {
	c, attempts := orderStatusServer(t, func(attempt int32) client.OrderStatusResponse {
		if attempt >= 3 {
			return client.OrderStatusResponse{Paid: true, TradeState: "SUCCESS"}
		}
		return client.OrderStatusResponse{Paid: false, TradeState: "NOTPAY"}
	})

	poller := NewPaymentPoller(c, fastPaymentConfig(10))
	err := poller.Wait(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(attempts), "到账后应当立即停止轮询")
}

func TestPaymentPollerGivesUpAfterMaxAttempts(t *testing.T) {
	c, attempts := orderStatusServer(t, func(int32) client.OrderStatusResponse {
		return client.OrderStatusResponse{Paid: false, TradeState: "NOTPAY"}
	})

	poller := NewPaymentPoller(c, fastPaymentConfig(4))
	err := poller.Wait(context.Background(), "order-2")
	assert.ErrorIs(t, err, ErrPaymentTimeout)
	assert.Equal(t, int32(4), atomic.LoadInt32(attempts), "轮询次数应当恰好等于上限")
}

func TestPaymentPollerStopsOnClosedOrder(t *testing.T) {
	c, attempts := orderStatusServer(t, func(int32) client.OrderStatusResponse {
		return client.OrderStatusResponse{Paid: false, TradeState: "CLOSED"}
	})

	poller := NewPaymentPoller(c, fastPaymentConfig(10))
	err := poller.Wait(context.Background(), "order-3")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPaymentTimeout, "已关闭的订单应当立即失败而不是等到超时")
	assert.Equal(t, int32(1), atomic.LoadInt32(attempts))
}

func TestPaymentPollerHonorsContextCancel(t *testing.T) {
	c, _ := orderStatusServer(t, func(int32) client.OrderStatusResponse {
		return client.OrderStatusResponse{Paid: false, TradeState: "NOTPAY"}
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	poller := NewPaymentPoller(c, &config.PaymentConfig{
		PollInitialIntervalMS: 500,
		PollMaxAttempts:       100,
	})
	err := poller.Wait(ctx, "order-4")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPaymentPollerRejectsEmptyOrderID(t *testing.T) {
	c, _ := orderStatusServer(t, func(int32) client.OrderStatusResponse {
		return client.OrderStatusResponse{}
	})
	poller := NewPaymentPoller(c, fastPaymentConfig(3))
	assert.Error(t, poller.Wait(context.Background(), ""))
}
