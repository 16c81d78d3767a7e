package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"wxt-client-go/internal/client"
	"wxt-client-go/internal/logger"
	"wxt-client-go/internal/tracing"
)

// Store 测评会话的内存状态加持久化。
// 每次写操作立即落盘，后写覆盖先写；读操作返回副本，调用方改不到内部状态。
type Store struct {
	mu      sync.Mutex
	state   State
	storage Storage
	log     zerolog.Logger
}

// NewStore 从持久化后端恢复会话。坏快照不报错，记日志后用空会话兜底。
func NewStore(ctx context.Context, storage Storage) (*Store, error) {
	if storage == nil {
		return nil, fmt.Errorf("会话存储后端不能为空")
	}

	s := &Store{
		state:   defaultState(),
		storage: storage,
		log:     logger.Component("TestSession"),
	}

	data, err := storage.Load(ctx)
	switch {
	case err == ErrNotFound:
		// 首次使用，空会话
	case err != nil:
		return nil, err
	default:
		var restored State
		if uerr := json.Unmarshal(data, &restored); uerr != nil {
			s.log.Warn().Err(uerr).Msg("会话快照损坏，重置为空会话")
		} else {
			s.state = restored
		}
	}
	s.state.normalize()
	return s, nil
}

// Record 当前测评记录，没有进行中的测评时返回 nil
func (s *Store) Record() *client.TestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Record == nil {
		return nil
	}
	rec := *s.state.Record
	return &rec
}

// SetRecord 整体替换测评记录；rec 为 nil 时是 no-op，清空只能走 Reset
func (s *Store) SetRecord(ctx context.Context, rec *client.TestRecord) error {
	if rec == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.state.Record = &cp
	return s.persistLocked(ctx)
}

// SetTestFlow 写入服务端下发的流程步骤和当前进度
func (s *Store) SetTestFlow(ctx context.Context, steps []client.FlowStep, currentStage string, currentIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Steps = append([]client.FlowStep(nil), steps...)
	s.state.CurrentStage = currentStage
	s.state.CurrentIndex = currentIndex
	return s.persistLocked(ctx)
}

func (s *Store) Steps() []client.FlowStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]client.FlowStep(nil), s.state.Steps...)
}

func (s *Store) CurrentStage() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentStage, s.state.CurrentIndex
}

func (s *Store) SetCurrentStage(ctx context.Context, stage string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentStage = stage
	s.state.CurrentIndex = index
	return s.persistLocked(ctx)
}

// SetNextRouteItem 记录完成 stage 之后应当进入的步骤下标。
// 同一个 stage 重复写入后写覆盖先写；stage 为空时是 no-op。
func (s *Store) SetNextRouteItem(ctx context.Context, stage string, index int) error {
	if stage == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.NextRoute[stage] = index
	return s.persistLocked(ctx)
}

// NextRouteIndex 查询完成 stage 之后的步骤下标
func (s *Store) NextRouteIndex(stage string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.state.NextRoute[stage]
	return idx, ok
}

// SaveStageAnswers 整体覆盖一个阶段的答案。传入 map 会被深拷贝，
// 调用方之后的修改不影响会话内的快照。
func (s *Store) SaveStageAnswers(ctx context.Context, key string, answers map[int]client.AnswerItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Answers[key] = copyAnswers(answers)
	return s.persistLocked(ctx)
}

// LoadStageAnswers 取一个阶段的答案副本，没有时返回空 map
func (s *Store) LoadStageAnswers(key string) map[int]client.AnswerItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAnswers(s.state.Answers[key])
}

// Reset 清空会话并删掉持久化快照，测评结束或换号登录时调用
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = defaultState()
	if err := s.storage.Clear(ctx); err != nil {
		tracing.RecordError(trace.SpanFromContext(ctx), err, tracing.ErrorTypeSession)
		return err
	}
	s.log.Debug().Msg("会话已重置")
	return nil
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	if err := s.storage.Save(ctx, data); err != nil {
		s.log.Err(err).Msg("会话落盘失败")
		tracing.RecordError(trace.SpanFromContext(ctx), err, tracing.ErrorTypeSession)
		return err
	}
	return nil
}
