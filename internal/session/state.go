package session

import (
	"fmt"

	"wxt-client-go/internal/client"
)

// State 一次测评的本地会话快照，整体序列化持久化。
// Answers 的外层键是 AnswerKey 生成的复合键，内层键是题目 id。
type State struct {
	Record       *client.TestRecord                   `json:"record,omitempty"`
	Steps        []client.FlowStep                    `json:"steps,omitempty"`
	CurrentStage string                               `json:"current_stage,omitempty"`
	CurrentIndex int                                  `json:"current_index"`
	NextRoute    map[string]int                       `json:"next_route_item,omitempty"`
	Answers      map[string]map[int]client.AnswerItem `json:"answers,omitempty"`
}

func defaultState() State {
	return State{
		NextRoute: map[string]int{},
		Answers:   map[string]map[int]client.AnswerItem{},
	}
}

// AnswerKey 阶段答案的复合键：业务线、阶段、测评记录三者共同定位一份答案
func AnswerKey(businessType, stage, publicID string) string {
	return fmt.Sprintf("%s:%s:%s", businessType, stage, publicID)
}

// normalize 旧快照或手工编辑过的文件可能缺字段，补齐到可用状态
func (s *State) normalize() {
	if s.NextRoute == nil {
		s.NextRoute = map[string]int{}
	}
	if s.Answers == nil {
		s.Answers = map[string]map[int]client.AnswerItem{}
	}
	for key, m := range s.Answers {
		if m == nil {
			s.Answers[key] = map[int]client.AnswerItem{}
		}
	}
}

func copyAnswers(src map[int]client.AnswerItem) map[int]client.AnswerItem {
	dst := make(map[int]client.AnswerItem, len(src))
	for id, item := range src {
		dst[id] = item
	}
	return dst
}
