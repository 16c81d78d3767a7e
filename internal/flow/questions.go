package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"wxt-client-go/internal/client"
	"wxt-client-go/internal/logger"
	"wxt-client-go/internal/session"
)

// DefaultPageSize 每页展示的题目数
const DefaultPageSize = 5

// QuestionStage 一次量表阶段的编排器：拉题、收集答案、翻页、提交。
// 一个实例对应一次阶段访问，换阶段或换业务线时重建。
type QuestionStage struct {
	api      *client.Client
	store    *session.Store
	business string
	stage    string
	pageSize int

	questions []client.Question
	byID      map[int]client.Question
	answers   map[int]client.AnswerItem
	pageIndex int
	loaded    bool

	Progress *ProgressLog
	log      zerolog.Logger
}

func NewQuestionStage(api *client.Client, store *session.Store, businessType, stage string) *QuestionStage {
	return &QuestionStage{
		api:      api,
		store:    store,
		business: businessType,
		stage:    stage,
		pageSize: DefaultPageSize,
		Progress: NewProgressLog(0, 0),
		log:      logger.Component("QuestionStage").With().Str("stage", stage).Logger(),
	}
}

// answerKey 本阶段答案在会话里的复合键
func (q *QuestionStage) answerKey() string {
	rec := q.store.Record()
	if rec == nil {
		return ""
	}
	return session.AnswerKey(q.business, q.stage, rec.PublicID)
}

// checkPreconditions 进入阶段前的本地校验，失败意味着会话损坏或过期
func (q *QuestionStage) checkPreconditions() error {
	rec := q.store.Record()
	if rec == nil || rec.PublicID == "" {
		return newFlowError(ReasonMissingRecord, "没有进行中的测评记录，请回到首页重新开始")
	}
	if len(q.store.Steps()) == 0 {
		return newFlowError(ReasonEmptyFlow, "测评流程为空，请回到首页重新开始")
	}
	if !IsScaleStage(q.stage) {
		return newFlowError(ReasonUnknownStage, "未知的测评阶段 %q", q.stage)
	}
	return nil
}

// Load 通过流式通道拉取本阶段题目，并按
// 服务端答案 > 本地缓存 > 空白 的优先级恢复作答进度。
// 阻塞到 done / app-error / 传输错误为止，ctx 取消时主动断开。
func (q *QuestionStage) Load(ctx context.Context) error {
	if err := q.checkPreconditions(); err != nil {
		return err
	}
	rec := q.store.Record()

	type outcome struct {
		payload string
		err     error
	}
	result := make(chan outcome, 1)

	sub := q.api.SubscribeQuestions(rec.PublicID, q.business, q.stage, client.SubscriptionOptions{
		OnMessage: func(chunk string) {
			q.Progress.Append(chunk)
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
		return ctx.Err()
	case out := <-result:
		q.Progress.Flush()
		if out.err != nil {
			return out.err
		}
		return q.applyPayload(ctx, out.payload)
	}
}

func (q *QuestionStage) applyPayload(ctx context.Context, payload string) error {
	var parsed client.QuestionsPayload
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return fmt.Errorf("解析题目载荷失败: %w", err)
	}
	if len(parsed.Questions) == 0 {
		return fmt.Errorf("服务端没有返回任何题目")
	}

	q.questions = parsed.Questions
	q.byID = make(map[int]client.Question, len(parsed.Questions))
	for _, question := range parsed.Questions {
		q.byID[question.ID] = question
	}

	// 答案恢复：先铺本地缓存，再用服务端答案覆盖，未知题目 id 丢弃
	merged := make(map[int]client.AnswerItem)
	for id, item := range q.store.LoadStageAnswers(q.answerKey()) {
		if _, ok := q.byID[id]; ok {
			merged[id] = item
		}
	}
	for _, item := range parsed.Answers {
		if _, ok := q.byID[item.ID]; ok {
			merged[item.ID] = item
		}
	}
	q.answers = merged
	q.pageIndex = 0
	q.loaded = true

	q.log.Info().Int("questions", len(q.questions)).Int("restored", len(merged)).Msg("题目已就绪")
	return q.store.SaveStageAnswers(ctx, q.answerKey(), merged)
}

// Questions 全部题目
func (q *QuestionStage) Questions() []client.Question {
	return append([]client.Question(nil), q.questions...)
}

// PageCount 总页数
func (q *QuestionStage) PageCount() int {
	if len(q.questions) == 0 {
		return 0
	}
	return (len(q.questions) + q.pageSize - 1) / q.pageSize
}

// PageIndex 当前页(从 0 开始)
func (q *QuestionStage) PageIndex() int {
	return q.pageIndex
}

// CurrentPage 当前页的题目
func (q *QuestionStage) CurrentPage() []client.Question {
	start := q.pageIndex * q.pageSize
	if start >= len(q.questions) {
		return nil
	}
	end := start + q.pageSize
	if end > len(q.questions) {
		end = len(q.questions)
	}
	return append([]client.Question(nil), q.questions[start:end]...)
}

// AnswerValue 某题当前的作答，未作答时 ok 为 false
func (q *QuestionStage) AnswerValue(questionID int) (int, bool) {
	item, ok := q.answers[questionID]
	return item.Value, ok
}

// SetAnswer 记录一次作答并写穿到会话。分值限定 1..5。
func (q *QuestionStage) SetAnswer(ctx context.Context, questionID, value int) error {
	if !q.loaded {
		return fmt.Errorf("题目尚未加载")
	}
	if value < 1 || value > 5 {
		return fmt.Errorf("分值 %d 超出范围 [1,5]", value)
	}
	if _, ok := q.byID[questionID]; !ok {
		return fmt.Errorf("题目 %d 不属于当前阶段", questionID)
	}
	q.answers[questionID] = client.AnswerItem{ID: questionID, Value: value}
	return q.store.SaveStageAnswers(ctx, q.answerKey(), q.answers)
}

// Next 校验当前页并翻页。当前页有未作答题目时不翻页，
// 返回这些题目 id；已在最后一页且全部作答时 finished 为 true，
// 由调用方触发 Submit。
func (q *QuestionStage) Next() (unanswered []int, finished bool) {
	for _, question := range q.CurrentPage() {
		if _, ok := q.answers[question.ID]; !ok {
			unanswered = append(unanswered, question.ID)
		}
	}
	if len(unanswered) > 0 {
		sort.Ints(unanswered)
		return unanswered, false
	}

	if q.pageIndex >= q.PageCount()-1 {
		return nil, true
	}
	q.pageIndex++
	return nil, false
}

// Prev 回到上一页，已在首页时不动
func (q *QuestionStage) Prev() {
	if q.pageIndex > 0 {
		q.pageIndex--
	}
}

// Submit 提交本阶段全部答案。提交前按量表种类给答案重新挂上
// 维度/学科元数据，服务端不必回查题库。成功后把服务端裁定的
// 下一阶段写回会话。失败时本地答案原样保留，重试就是再次提交。
func (q *QuestionStage) Submit(ctx context.Context) (*client.CommonResult, error) {
	if !q.loaded {
		return nil, fmt.Errorf("题目尚未加载")
	}

	items := make([]client.AnswerItem, 0, len(q.questions))
	for _, question := range q.questions {
		answer, ok := q.answers[question.ID]
		if !ok {
			return nil, fmt.Errorf("题目 %d 尚未作答", question.ID)
		}
		items = append(items, q.tagAnswer(question, answer.Value))
	}

	rec := q.store.Record()
	res, err := q.api.SubmitTest(ctx, &client.SubmitTestRequest{
		PublicID:     rec.PublicID,
		BusinessType: q.business,
		TestType:     q.stage,
		Answers:      items,
	})
	if err != nil {
		return nil, err
	}
	if !res.Ok {
		return nil, fmt.Errorf("提交被拒绝: %s", res.Msg)
	}

	if err := q.store.SetNextRouteItem(ctx, q.stage, res.NextRid); err != nil {
		return nil, err
	}
	if err := q.store.SetCurrentStage(ctx, res.NextRoute, res.NextRid); err != nil {
		return nil, err
	}
	q.log.Info().Str("next", res.NextRoute).Int("index", res.NextRid).Msg("阶段提交成功")
	return res, nil
}

// tagAnswer 按量表种类重挂元数据
func (q *QuestionStage) tagAnswer(question client.Question, value int) client.AnswerItem {
	item := client.AnswerItem{ID: question.ID, Value: value}
	switch q.stage {
	case StageRIASEC:
		item.Dimension = question.Dimension
	case StageASC:
		item.Subject = question.Subject
		item.SubjectLabel = question.SubjectLabel
		item.Reverse = question.Reverse
		item.Subtype = question.Subtype
	case StageOCEAN:
		item.Dimension = question.Dimension
		item.Reverse = question.Reverse
	case StageMotivation:
		item.Dimension = question.Dimension
	}
	return item
}

// FollowNextRoute 按提交应答里的下一阶段执行导航
func (q *QuestionStage) FollowNextRoute(nav Navigator, res *client.CommonResult) error {
	if res == nil || res.NextRoute == "" {
		return newFlowError(ReasonUnknownStage, "服务端没有给出下一阶段")
	}
	return PushStageRoute(nav, q.business, res.NextRoute)
}
