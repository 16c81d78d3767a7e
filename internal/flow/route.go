package flow

import "fmt"

// 路由名。首末阶段界面形态不同，各自有独立路由，中间量表阶段共用一个。
const (
	RouteNameBasicInfo  = "basic-info"
	RouteNameAssessment = "assessment"
	RouteNameReport     = "report"
)

// Route 解析出的导航目标
type Route struct {
	Name string
	Path string
}

// Navigator 执行导航的一方。终端实现切换界面，测试里用记录器替身。
type Navigator interface {
	Push(route Route) error
}

// ResolveStageRoute 把服务端下发的抽象阶段名解析成导航目标。
// 新增中间量表阶段时这里不需要改动。
func ResolveStageRoute(businessType, stage string) (Route, error) {
	if businessType == "" || stage == "" {
		return Route{}, newFlowError(ReasonBadInput, "业务线(%q)或阶段(%q)为空，无法导航", businessType, stage)
	}

	switch stage {
	case StageBasicInfo:
		return Route{
			Name: RouteNameBasicInfo,
			Path: fmt.Sprintf("/assessment/%s/basic-info", businessType),
		}, nil
	case StageReport:
		return Route{
			Name: RouteNameReport,
			Path: fmt.Sprintf("/assessment/%s/report", businessType),
		}, nil
	default:
		return Route{
			Name: RouteNameAssessment,
			Path: fmt.Sprintf("/assessment/%s/%s", businessType, stage),
		}, nil
	}
}

// PushStageRoute 解析并执行导航，入参为空时不导航直接报错
func PushStageRoute(nav Navigator, businessType, stage string) error {
	route, err := ResolveStageRoute(businessType, stage)
	if err != nil {
		return err
	}
	return nav.Push(route)
}
