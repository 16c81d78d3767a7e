package report

import (
	"encoding/json"
	"fmt"
	"sort"

	"wxt-client-go/internal/client"
)

// 推荐组合的档位标签与配色主题，按排名次序取用
var (
	rankLabels = []string{"第一档", "第二档", "第三档"}
	rankThemes = []string{"primary", "blue", "yellow"}
)

// RankedCombo 3+3 模式下排好名次的一个推荐组合
type RankedCombo struct {
	Subjects  []string
	Score     float64
	RankLabel string
	Theme     string
}

func combo33Score(c client.Combo33) float64 {
	if c.RecommendScore != 0 {
		return c.RecommendScore
	}
	return c.Score
}

// BuildMode33View 3+3 模式的组合榜单：按推荐分降序，挂上档位标签。
// 纯转换，不触网也不写会话。
func BuildMode33View(rec *client.Recommend33) []RankedCombo {
	if rec == nil || len(rec.TopCombinations) == 0 {
		return nil
	}

	combos := append([]client.Combo33(nil), rec.TopCombinations...)
	sort.SliceStable(combos, func(i, j int) bool {
		return combo33Score(combos[i]) > combo33Score(combos[j])
	})

	out := make([]RankedCombo, 0, len(combos))
	for i, c := range combos {
		tier := i
		if tier >= len(rankLabels) {
			tier = len(rankLabels) - 1
		}
		out = append(out, RankedCombo{
			Subjects:  append([]string(nil), c.Subjects...),
			Score:     combo33Score(c),
			RankLabel: rankLabels[tier],
			Theme:     rankThemes[tier],
		})
	}
	return out
}

// 3+1+2 模式的锚点键
const (
	AnchorKeyPhysics = "anchor_phy"
	AnchorKeyHistory = "anchor_his"
)

// AnchorStrip 3+1+2 模式下一个锚点科目(物理/历史)的推荐条
type AnchorStrip struct {
	Key     string
	Subject string
	Score   float64
	Combos  []client.Combo312
}

func combo312Score(c client.Combo312) float64 {
	if c.ComboScore != 0 {
		return c.ComboScore
	}
	return c.SFinalCombo
}

// BuildMode312View 3+1+2 模式的锚点视图，物理在前历史在后，
// 各锚点内的辅科组合按组合分降序
func BuildMode312View(rec *client.Recommend312) []AnchorStrip {
	if rec == nil {
		return nil
	}

	var out []AnchorStrip
	for _, key := range []string{AnchorKeyPhysics, AnchorKeyHistory} {
		anchor, ok := (*rec)[key]
		if !ok {
			continue
		}
		combos := append([]client.Combo312(nil), anchor.Combos...)
		sort.SliceStable(combos, func(i, j int) bool {
			return combo312Score(combos[i]) > combo312Score(combos[j])
		})
		score := anchor.SFinalScore
		if score == 0 {
			score = anchor.SFinal
		}
		out = append(out, AnchorStrip{
			Key:     key,
			Subject: anchor.Subject,
			Score:   score,
			Combos:  combos,
		})
	}
	return out
}

// RadarSeries 图表组件可以直接消费的雷达图序列
type RadarSeries struct {
	Subjects []string
	Interest []float64
	Ability  []float64
}

func BuildRadarSeries(r *client.RadarBlock) RadarSeries {
	if r == nil {
		return RadarSeries{}
	}
	return RadarSeries{
		Subjects: append([]string(nil), r.Subjects...),
		Interest: append([]float64(nil), r.InterestPct...),
		Ability:  append([]float64(nil), r.AbilityPct...),
	}
}

// Mode33Section 3+3 模式下 AI 文案的组合解读
type Mode33Section struct {
	Combos []client.ComboDetail `json:"combos"`
}

// Mode312Section 3+1+2 模式下按锚点分组的组合解读
type Mode312Section struct {
	Physics []client.ComboDetail `json:"physics"`
	History []client.ComboDetail `json:"history"`
}

// ParseModeSection 按模式解析 AI 文案里结构不同的 mode_section
func ParseModeSection(mode string, raw json.RawMessage) (*Mode33Section, *Mode312Section, error) {
	if len(raw) == 0 {
		return nil, nil, nil
	}
	switch mode {
	case client.Mode33:
		var section Mode33Section
		if err := json.Unmarshal(raw, &section); err != nil {
			return nil, nil, fmt.Errorf("解析 3+3 组合解读失败: %w", err)
		}
		return &section, nil, nil
	case client.Mode312:
		var section Mode312Section
		if err := json.Unmarshal(raw, &section); err != nil {
			return nil, nil, fmt.Errorf("解析 3+1+2 组合解读失败: %w", err)
		}
		return nil, &section, nil
	default:
		return nil, nil, fmt.Errorf("未知的选科模式 %q", mode)
	}
}
