package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wxt-client-go/internal/logger"
	"wxt-client-go/internal/tracing"
)

// SSE 事件名，与服务端 sse_event_pub 约定一致
const (
	sseEventMessage = "message"
	sseEventError   = "app-error"
	sseEventDone    = "done"
)

// SubscriptionOptions 订阅回调。所有回调都在订阅自己的读取协程里被调用。
type SubscriptionOptions struct {
	OnOpen    func()
	OnMessage func(chunk string)
	OnError   func(err error)
	OnDone    func(payload string)
	OnClose   func()
}

type subscriptionState int

const (
	subStateIdle subscriptionState = iota
	subStateConnecting
	subStateOpen
	subStateTerminating
	subStateClosed
)

// Subscription 一条服务端推送通道。
// 语义约定：
//   - Start 幂等，连接存活期间重复调用不会建立第二条连接；
//   - done / app-error / 传输层错误都会终结本条通道，不自动重连；
//   - Stop 之后不再触发任何回调。
type Subscription struct {
	target string
	opts   SubscriptionOptions
	jar    http.CookieJar
	log    zerolog.Logger
	tracer trace.Tracer

	mu          sync.Mutex
	state       subscriptionState
	cancel      context.CancelFunc
	lastEventID string
	eventCount  int
}

// SubscribeQuestions 构造题目通道订阅：/api/sub/question/{public_id}?business_type=&test_type=
func (c *Client) SubscribeQuestions(publicID, businessType, testType string, opts SubscriptionOptions) *Subscription {
	query := url.Values{}
	query.Set("business_type", businessType)
	query.Set("test_type", testType)

	return c.newSubscription(APISSEQuestionSub+publicID, query, opts)
}

// SubscribeReport 构造报告通道订阅：/api/sub/report/{public_id}
func (c *Client) SubscribeReport(publicID string, opts SubscriptionOptions) *Subscription {
	return c.newSubscription(APISSEReportSub+publicID, nil, opts)
}

func (c *Client) newSubscription(path string, query url.Values, opts SubscriptionOptions) *Subscription {
	return &Subscription{
		target: c.Endpoint(path, query),
		opts:   opts,
		jar:    c.httpClient.Jar,
		log:    logger.Component("SSE").With().Str("target", tracing.TruncateString(path, tracing.MaxURLLength)).Logger(),
		tracer: otel.Tracer("wxt-client-go/sse"),
	}
}

// Start 建立连接。已有存活连接时是 no-op，防止重复挂载产生双订阅。
func (s *Subscription) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state == subStateConnecting || s.state == subStateOpen || s.state == subStateTerminating {
		s.mu.Unlock()
		s.log.Debug().Msg("subscription already active, ignore start")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.state = subStateConnecting
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(runCtx)
}

// Stop 立即关闭连接，之后不再触发任何回调。可从任意状态调用。
func (s *Subscription) Stop() {
	s.mu.Lock()
	if s.state == subStateClosed {
		s.mu.Unlock()
		return
	}
	s.state = subStateClosed
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.log.Debug().Msg("subscription stopped")
}

// LastEventID 最近一个事件 id，仅用于界面日志展示，协议本身不可续传
func (s *Subscription) LastEventID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEventID
}

// EventCount 本条通道已派发的事件帧数（含 done）
func (s *Subscription) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eventCount
}

func (s *Subscription) run(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "sse subscribe",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("sse.target", tracing.SafeAttributeValue("target", s.target, tracing.MaxURLLength))))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.target, nil)
	if err != nil {
		s.failWith(fmt.Errorf("构造订阅请求失败: %w", err), span)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// 长连接：不设置超时，生命周期由 ctx 与 Stop 控制
	httpClient := &http.Client{Jar: s.jar}
	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return // Stop 主动取消，不回调
		}
		s.failWith(fmt.Errorf("订阅连接失败: %w", err), span)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		s.failWith(&APIError{
			Code:    ErrorCodeTransport,
			Message: fmt.Sprintf("订阅被拒绝: %s", resp.Status),
			Status:  resp.StatusCode,
		}, span)
		return
	}

	if !s.transition(subStateConnecting, subStateOpen) {
		return
	}
	s.log.Debug().Msg("sse connection opened")
	if s.opts.OnOpen != nil {
		s.opts.OnOpen()
	}

	s.readLoop(ctx, resp, span)
}

// readLoop 解析 SSE 帧：event/data/id 字段，空行分帧，data 多行以 \n 连接
func (s *Subscription) readLoop(ctx context.Context, resp *http.Response, span trace.Span) {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	eventName := sseEventMessage
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" { // 一帧结束
			if len(dataLines) > 0 {
				data := strings.Join(dataLines, "\n")
				if terminal := s.dispatch(eventName, data, span); terminal {
					return
				}
			}
			eventName = sseEventMessage
			dataLines = dataLines[:0]
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "id:"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "id:"))
			s.mu.Lock()
			s.lastEventID = id
			s.mu.Unlock()
		case strings.HasPrefix(line, ":"):
			// 注释行（心跳），忽略
		}
	}

	if ctx.Err() != nil {
		return // Stop 主动取消
	}

	err := scanner.Err()
	if err == nil {
		// 服务端没有发 done 就断开，视为传输层错误
		err = errors.New("连接在 done 之前被服务端关闭")
	}
	s.failWith(err, span)
}

// dispatch 处理一帧。返回 true 表示通道已终结，读取循环应退出。
func (s *Subscription) dispatch(eventName, data string, span trace.Span) bool {
	switch eventName {
	case sseEventDone:
		if !s.transition(subStateOpen, subStateTerminating) {
			return true
		}
		s.mu.Lock()
		s.eventCount++
		s.mu.Unlock()
		s.log.Debug().Int("bytes", len(data)).Msg("sse done frame received")
		if s.opts.OnDone != nil {
			s.opts.OnDone(data)
		}
		s.closeTerminated()
		return true

	case sseEventError:
		msg := data
		if msg == "" {
			msg = "服务器返回未知错误"
		}
		appErr := errors.New(msg)
		tracing.RecordErrorWithInfo(span, appErr, tracing.ErrorTypeStream,
			attribute.String("sse.error_message", tracing.SafeAttributeValue("message", msg, tracing.DefaultMaxLength)))
		if !s.transition(subStateOpen, subStateTerminating) {
			return true
		}
		s.log.Warn().Str("message", tracing.SafeChunk(msg)).Msg("sse app-error frame received")
		if s.opts.OnError != nil {
			s.opts.OnError(appErr)
		}
		s.closeTerminated()
		return true

	default: // 未命名事件与 message 等价
		s.mu.Lock()
		open := s.state == subStateOpen
		if open {
			s.eventCount++
		}
		s.mu.Unlock()
		if open && s.opts.OnMessage != nil {
			s.opts.OnMessage(data)
		}
		return false
	}
}

// failWith 传输层/协议层错误：回调 OnError 后终结通道
func (s *Subscription) failWith(err error, span trace.Span) {
	tracing.RecordError(span, err, tracing.ErrorTypeStream)

	s.mu.Lock()
	active := s.state == subStateConnecting || s.state == subStateOpen
	if active {
		s.state = subStateTerminating
	}
	s.mu.Unlock()
	if !active {
		return
	}

	s.log.Warn().Err(err).Msg("sse channel error")
	if s.opts.OnError != nil {
		s.opts.OnError(err)
	}
	s.closeTerminated()
}

// closeTerminated Terminating -> Closed，触发 OnClose
func (s *Subscription) closeTerminated() {
	s.mu.Lock()
	if s.state != subStateTerminating {
		s.mu.Unlock()
		return
	}
	s.state = subStateClosed
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if s.opts.OnClose != nil {
		s.opts.OnClose()
	}
}

// transition 仅当处于 from 状态时迁移到 to
func (s *Subscription) transition(from, to subscriptionState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}
