package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxt-client-go/internal/client"
)

func TestBuildMode33ViewRanksAndLabels(t *testing.T) {
	rec := &client.Recommend33{
		TopCombinations: []client.Combo33{
			{Subjects: []string{"史", "政", "地"}, Score: 0.45},
			{Subjects: []string{"物", "化", "生"}, Score: 0.92},
			{Subjects: []string{"物", "化", "地"}, Score: 0.80},
			{Subjects: []string{"物", "生", "地"}, Score: 0.71},
		},
	}

	ranked := BuildMode33View(rec)
	require.Len(t, ranked, 4)

	assert.Equal(t, []string{"物", "化", "生"}, ranked[0].Subjects, "应当按推荐分降序")
	assert.Equal(t, "第一档", ranked[0].RankLabel)
	assert.Equal(t, "primary", ranked[0].Theme)

	assert.Equal(t, "第二档", ranked[1].RankLabel)
	assert.Equal(t, "blue", ranked[1].Theme)

	assert.Equal(t, "第三档", ranked[2].RankLabel)
	assert.Equal(t, "yellow", ranked[2].Theme)
	assert.Equal(t, "第三档", ranked[3].RankLabel, "第三名之后沿用第三档")
	assert.Equal(t, "yellow", ranked[3].Theme)
}

func TestBuildMode33ViewPrefersRecommendScore(t *testing.T) {
	rec := &client.Recommend33{
		TopCombinations: []client.Combo33{
			{Subjects: []string{"A"}, Score: 0.9, RecommendScore: 60},
			{Subjects: []string{"B"}, Score: 0.1, RecommendScore: 95},
		},
	}
	ranked := BuildMode33View(rec)
	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"B"}, ranked[0].Subjects, "有换算分时应当按换算分排序")
	assert.Equal(t, 95.0, ranked[0].Score)
}

func TestBuildMode33ViewEmpty(t *testing.T) {
	assert.Nil(t, BuildMode33View(nil))
	assert.Nil(t, BuildMode33View(&client.Recommend33{}))
}

func TestBuildMode312ViewAnchorsOrdered(t *testing.T) {
	rec := &client.Recommend312{
		AnchorKeyHistory: client.Anchor312{
			Subject: "历史",
			SFinal:  0.6,
			Combos: []client.Combo312{
				{Aux1: "政", Aux2: "地", SFinalCombo: 0.5},
			},
		},
		AnchorKeyPhysics: client.Anchor312{
			Subject: "物理",
			SFinal:  0.8,
			Combos: []client.Combo312{
				{Aux1: "生", Aux2: "地", SFinalCombo: 0.4},
				{Aux1: "化", Aux2: "生", SFinalCombo: 0.9},
			},
		},
	}

	strips := BuildMode312View(rec)
	require.Len(t, strips, 2)

	assert.Equal(t, "物理", strips[0].Subject, "物理锚点应当排在前面")
	assert.Equal(t, "历史", strips[1].Subject)

	require.Len(t, strips[0].Combos, 2)
	assert.Equal(t, "化", strips[0].Combos[0].Aux1, "锚点内组合应当按组合分降序")
}

func TestBuildMode312ViewMissingAnchor(t *testing.T) {
	rec := &client.Recommend312{
		AnchorKeyPhysics: client.Anchor312{Subject: "物理"},
	}
	strips := BuildMode312View(rec)
	require.Len(t, strips, 1, "缺失的锚点应当跳过而不是报错")
	assert.Equal(t, AnchorKeyPhysics, strips[0].Key)

	assert.Nil(t, BuildMode312View(nil))
}

func TestBuildRadarSeriesCopies(t *testing.T) {
	block := &client.RadarBlock{
		Subjects:    []string{"物理", "历史"},
		InterestPct: []float64{88, 42},
		AbilityPct:  []float64{75, 60},
	}
	series := BuildRadarSeries(block)
	assert.Equal(t, block.Subjects, series.Subjects)
	assert.Equal(t, block.InterestPct, series.Interest)

	// 修改序列不应影响原始数据
	series.Interest[0] = 0
	assert.Equal(t, 88.0, block.InterestPct[0])

	empty := BuildRadarSeries(nil)
	assert.Empty(t, empty.Subjects)
}

func TestParseModeSection(t *testing.T) {
	raw33, _ := json.Marshal(Mode33Section{
		Combos: []client.ComboDetail{{ComboName: "物化生"}},
	})
	s33, s312, err := ParseModeSection(client.Mode33, raw33)
	require.NoError(t, err)
	require.NotNil(t, s33)
	assert.Nil(t, s312)
	assert.Equal(t, "物化生", s33.Combos[0].ComboName)

	raw312, _ := json.Marshal(Mode312Section{
		Physics: []client.ComboDetail{{ComboName: "物+化生"}},
	})
	s33, s312, err = ParseModeSection(client.Mode312, raw312)
	require.NoError(t, err)
	assert.Nil(t, s33)
	require.NotNil(t, s312)
	assert.Equal(t, "物+化生", s312.Physics[0].ComboName)

	_, _, err = ParseModeSection("4+4", raw33)
	assert.Error(t, err, "未知模式应当报错")

	s33, s312, err = ParseModeSection(client.Mode33, nil)
	require.NoError(t, err, "空 mode_section 不是错误")
	assert.Nil(t, s33)
	assert.Nil(t, s312)
}
