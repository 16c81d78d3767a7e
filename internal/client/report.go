package client

import (
	"context"
	"encoding/json"
)

// SubjectScore 单科兴趣/能力匹配数据
type SubjectScore struct {
	Subject      string  `json:"subject"`
	InterestZ    float64 `json:"interest_z"`
	AbilityZ     float64 `json:"ability_z"`
	ZGap         float64 `json:"zgap"`
	AbilityShare float64 `json:"ability_share"`
	Fit          float64 `json:"fit"`
	FitScore     float64 `json:"fit_score,omitempty"`
}

// CommonBlock 与模式无关的整体得分
type CommonBlock struct {
	GlobalCosine      float64        `json:"global_cosine"`
	QualityScore      float64        `json:"quality_score"`
	GlobalCosineScore float64        `json:"global_cosine_score,omitempty"`
	QualityScoreScore float64        `json:"quality_score_score,omitempty"`
	Subjects          []SubjectScore `json:"subjects"`
}

// RadarBlock 雷达图数据：各科兴趣/能力百分位
type RadarBlock struct {
	Subjects    []string  `json:"subjects"`
	InterestPct []float64 `json:"interest_pct"`
	AbilityPct  []float64 `json:"ability_pct"`
}

// CommonScore 通用得分区块
type CommonScore struct {
	Common CommonBlock `json:"common"`
	Radar  RadarBlock  `json:"radar"`
}

// Combo33 3+3 模式下的一个推荐组合
type Combo33 struct {
	Subjects       []string `json:"subjects"`
	AvgFit         float64  `json:"avg_fit"`
	MinAbility     float64  `json:"min_ability"`
	Rarity         float64  `json:"rarity"`
	RiskPenalty    float64  `json:"risk_penalty"`
	Score          float64  `json:"score"`
	ComboCosine    float64  `json:"combo_cosine"`
	RecommendScore float64  `json:"recommend_score,omitempty"`
}

// Recommend33 3+3 模式的推荐结果
type Recommend33 struct {
	TopCombinations []Combo33 `json:"top_combinations"`
}

// Combo312 3+1+2 模式下锚点科目的一个辅科组合
type Combo312 struct {
	Aux1        string  `json:"aux1"`
	Aux2        string  `json:"aux2"`
	AvgFit      float64 `json:"avg_fit"`
	MinFit      float64 `json:"min_fit"`
	ComboCos    float64 `json:"combo_cos"`
	AuxAbility  float64 `json:"auxAbility"`
	Coverage    float64 `json:"coverage"`
	MixPenalty  float64 `json:"mix_penalty"`
	S23         float64 `json:"s23"`
	SFinalCombo float64 `json:"s_final_combo"`
	ComboScore  float64 `json:"combo_score,omitempty"`
}

// Anchor312 3+1+2 模式下的锚点科目（物理或历史）
type Anchor312 struct {
	Subject      string     `json:"subject"`
	Fit          float64    `json:"fit"`
	AbilityNorm  float64    `json:"ability_norm"`
	TermFit      float64    `json:"term_fit"`
	TermAbility  float64    `json:"term_ability"`
	TermCoverage float64    `json:"term_coverage"`
	S1           float64    `json:"s1"`
	Combos       []Combo312 `json:"combos"`
	SFinal       float64    `json:"s_final"`
	SFinalScore  float64    `json:"s_final_score,omitempty"`
}

// Recommend312 锚点键（如 anchor_phy / anchor_his）到锚点数据的映射
type Recommend312 map[string]Anchor312

// ReportRawData /api/generate_report 的完整应答：
// 用户抬头信息 + 评分参数 + 可选的内联 AI 文案
type ReportRawData struct {
	UID        string `json:"uid"`
	NickName   string `json:"nick_name,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	StudyID    string `json:"study_id,omitempty"`
	SchoolName string `json:"school_name,omitempty"`
	Province   string `json:"province,omitempty"`
	City       string `json:"city,omitempty"`

	Mode        string `json:"mode"`
	GeneratedAt string `json:"generated_at"`
	ExpiredAt   string `json:"expired_at"`

	CommonScore  CommonScore   `json:"common_score"`
	Recommend33  *Recommend33  `json:"recommend_33"`
	Recommend312 *Recommend312 `json:"recommend_312"`

	// AI 文案若已生成则内联返回，否则客户端需走报告 SSE 通道
	AIContent string `json:"ai_content,omitempty"`
}

// ComboDetail AI 对单个组合的解读
type ComboDetail struct {
	ComboName        string `json:"combo_name"`
	ComboDescription string `json:"combo_description"`
	ComboAdvice      string `json:"combo_advice"`
}

// CommonSection AI 报告的通用段落
type CommonSection struct {
	ReportValidityText  string `json:"report_validity_text"`
	SubjectsSummaryText string `json:"subjects_summary_text"`
}

// FinalAIReport AI 报告的总结段落
type FinalAIReport struct {
	Mode                string `json:"mode"`
	ReportValidity      string `json:"report_validity"`
	CoreTrends          string `json:"core_trends"`
	ModeStrategy        string `json:"mode_strategy"`
	StudentView         string `json:"student_view"`
	ParentView          string `json:"parent_view"`
	RiskDiagnosis       string `json:"risk_diagnosis"`
	StrategicConclusion string `json:"strategic_conclusion"`
}

// AIReportPayload 报告 SSE 通道 done 帧（或内联 ai_content）的载荷。
// mode_section 的结构随模式不同，由 report 包按模式再解析。
type AIReportPayload struct {
	CommonSection CommonSection   `json:"common_section"`
	ModeSection   json.RawMessage `json:"mode_section"`
	FinalReport   FinalAIReport   `json:"final_report"`
}

type generateReportRequest struct {
	PublicID     string `json:"public_id"`
	BusinessType string `json:"business_type"`
}

// GenerateReport 计算/获取报告参数；AI 文案可能内联在 ai_content 中
func (c *Client) GenerateReport(ctx context.Context, publicID, businessType string) (*ReportRawData, error) {
	var resp ReportRawData
	req := &generateReportRequest{PublicID: publicID, BusinessType: businessType}
	if err := c.postJSON(ctx, APIGenerateReport, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FinishReport 结束本次报告，服务端归档后客户端应重置会话
func (c *Client) FinishReport(ctx context.Context, publicID, businessType string) error {
	req := &generateReportRequest{PublicID: publicID, BusinessType: businessType}
	return c.postJSON(ctx, APIFinishReport, req, nil)
}
