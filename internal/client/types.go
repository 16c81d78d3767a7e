package client

// 选科模式
const (
	Mode33  = "3+3"
	Mode312 = "3+1+2"
)

// IsValidMode 校验选科模式
func IsValidMode(mode string) bool {
	return mode == Mode33 || mode == Mode312
}

// 年级取值与服务端约定一致
const (
	GradeChuEr  = "初二"
	GradeChuSan = "初三"
	GradeGaoYi  = "高一"
)

// IsValidGrade 校验年级
func IsValidGrade(grade string) bool {
	switch grade {
	case GradeChuEr, GradeChuSan, GradeGaoYi:
		return true
	default:
		return false
	}
}

// TestRecord 服务端返回的测试记录 DTO
type TestRecord struct {
	PublicID     string `json:"public_id"`
	BusinessType string `json:"business_type"`
	PayOrderID   string `json:"pay_order_id,omitempty"`
	WechatID     string `json:"wechat_id,omitempty"`
	Grade        string `json:"grade,omitempty"`
	Mode         string `json:"mode"`
	Hobby        string `json:"hobby,omitempty"`
	Status       int    `json:"status"`
	CreatedAt    string `json:"created_at"`
}

// FlowStep 测试流程中的一个阶段
type FlowStep struct {
	Stage string `json:"stage"`
	Title string `json:"title"`
}

// CommonResult 服务端通用应答信封
type CommonResult struct {
	Ok        bool   `json:"ok"`
	Msg       string `json:"msg,omitempty"`
	NextRoute string `json:"next_route,omitempty"`
	NextRid   int    `json:"next_route_index,omitempty"`
}

// Question 单个题目。维度词汇随量表不同：
//   - RIASEC / OCEAN / MOTIVATION 使用 dimension
//   - ASC 使用 subject / subject_label / subtype
type Question struct {
	ID           int    `json:"id"`
	Text         string `json:"text"`
	Dimension    string `json:"dimension,omitempty"`
	Subject      string `json:"subject,omitempty"`
	SubjectLabel string `json:"subject_label,omitempty"`
	Reverse      bool   `json:"reverse,omitempty"`
	Subtype      string `json:"subtype,omitempty"`
}

// AnswerItem 提交答案时的单项，提交前由客户端补齐量表元数据，
// 服务端无需再回查题库
type AnswerItem struct {
	ID int `json:"id"`

	// RIASEC / OCEAN 公共的维度字段
	Dimension string `json:"dimension,omitempty"`

	// ASC 专用：学科编码 & 标签
	Subject      string `json:"subject,omitempty"`
	SubjectLabel string `json:"subject_label,omitempty"`

	// ASC / OCEAN 专用：是否反向题
	Reverse bool `json:"reverse,omitempty"`

	// ASC 专用：题目子类型（Comparison / Efficacy / ...）
	Subtype string `json:"subtype,omitempty"`

	// 通用答案值：1 ~ 5
	Value int `json:"value"`
}

// QuestionsPayload 题目 SSE 通道 done 帧的载荷
type QuestionsPayload struct {
	Questions []Question   `json:"questions"`
	Answers   []AnswerItem `json:"answers,omitempty"`
}
