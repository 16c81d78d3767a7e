package flow

// 阶段标识，服务端在 steps 与 next_route 里下发同一套词表
const (
	StageBasicInfo  = "basic-info"
	StageRIASEC     = "riasec"
	StageASC        = "asc"
	StageOCEAN      = "ocean"
	StageMotivation = "motivation"
	StageReport     = "report"
)

// 业务线(产品档位)
const (
	BusinessBasic  = "basic"
	BusinessPro    = "pro"
	BusinessAdv    = "adv"
	BusinessSchool = "school"
)

// scaleStages 带题目的量表阶段。basic-info 与 report 界面形态不同，不在其中。
var scaleStages = map[string]bool{
	StageRIASEC:     true,
	StageASC:        true,
	StageOCEAN:      true,
	StageMotivation: true,
}

// IsScaleStage stage 是否为量表题目阶段
func IsScaleStage(stage string) bool {
	return scaleStages[stage]
}

var businessTypes = map[string]bool{
	BusinessBasic:  true,
	BusinessPro:    true,
	BusinessAdv:    true,
	BusinessSchool: true,
}

// IsBusinessType typ 是否为已知业务线
func IsBusinessType(typ string) bool {
	return businessTypes[typ]
}
