package flow

import "fmt"

// 流程一致性错误原因。这类错误说明本地会话已经损坏或过期，
// 统一的处理方式是带提示回到入口页，而不是原地重试。
const (
	ReasonMissingRecord = "missing_record"
	ReasonEmptyFlow     = "empty_flow"
	ReasonUnknownStage  = "unknown_stage"
	ReasonBadInput      = "bad_input"
)

// FlowError 进入网络请求之前在本地就能发现的流程错误
type FlowError struct {
	Reason  string
	Message string
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func newFlowError(reason, format string, args ...any) *FlowError {
	return &FlowError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// IsFlowError err 是否为流程一致性错误
func IsFlowError(err error) (*FlowError, bool) {
	fe, ok := err.(*FlowError)
	return fe, ok
}
