package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"wxt-client-go/internal/catalog"
	"wxt-client-go/internal/client"
	"wxt-client-go/internal/config"
	"wxt-client-go/internal/flow"
	"wxt-client-go/internal/logger"
	"wxt-client-go/internal/report"
	"wxt-client-go/internal/session"
	"wxt-client-go/internal/tracing"
)

var version = "1.0.0" //nolint:gochecknoglobals

const usage = `用法: wxt-cli [flags] [command]

命令:
  start    创建或恢复一次测评并逐阶段作答(默认)
  status   查看登录状态与当前测评进度
  report   直接进入报告阶段(需要已完成全部量表)
  reset    丢弃本地会话，下次 start 从头开始
`

func main() {
	var (
		configPath   string
		businessType string
		publicID     string
		showVersion  bool
	)
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，留空则在常见位置查找")
	pflag.StringVarP(&businessType, "business-type", "b", flow.BusinessBasic, "业务线: basic/pro/adv/school")
	pflag.StringVar(&publicID, "public-id", "", "指定要恢复的试卷编号，留空用本地会话里的")
	pflag.BoolVarP(&showVersion, "version", "v", false, "输出版本号")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if showVersion {
		fmt.Println("wxt-cli", version)
		return
	}

	command := "start"
	if args := pflag.Args(); len(args) > 0 {
		command = args[0]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "加载配置失败:", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logger)
	log := logger.Component("Main")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Tracing.Enabled {
		shutdown, terr := tracing.Init(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
		if terr != nil {
			log.Warn().Err(terr).Msg("链路上报初始化失败，继续运行")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	if !flow.IsBusinessType(businessType) {
		fmt.Fprintf(os.Stderr, "未知业务线 %q\n", businessType)
		os.Exit(1)
	}

	app, err := newApp(ctx, cfg, businessType)
	if err != nil {
		log.Err(err).Msg("初始化失败")
		os.Exit(1)
	}
	app.publicID = publicID

	var cmdErr error
	switch command {
	case "start":
		cmdErr = app.run(ctx)
	case "status":
		cmdErr = app.runStatus(ctx)
	case "report":
		cmdErr = app.runReport(ctx)
	case "reset":
		cmdErr = app.runReset(ctx)
	default:
		pflag.Usage()
		os.Exit(2)
	}

	if cmdErr != nil {
		if ctx.Err() != nil {
			fmt.Println("\n已中断，作答进度已保存，下次启动继续。")
			return
		}
		log.Err(cmdErr).Msg("测评流程异常结束")
		fmt.Fprintln(os.Stderr, "出错了:", cmdErr)
		os.Exit(1)
	}
}

// app 终端版测评流程驱动器，同时充当路由导航器
type app struct {
	cfg      *config.Config
	api      *client.Client
	store    *session.Store
	catalog  *catalog.Service
	business string
	publicID string
	in       *bufio.Reader
}

func newApp(ctx context.Context, cfg *config.Config, businessType string) (*app, error) {
	api, err := client.New(cfg.Server.BaseURL, cfg.Server.RequestTimeout())
	if err != nil {
		return nil, err
	}

	var storage session.Storage
	switch cfg.Session.Backend {
	case "redis":
		storage, err = session.NewRedisStorage(&cfg.Redis, cfg.Session.RedisKeyPrefix+businessType, cfg.Session.TTL())
	default:
		storage, err = session.NewFileStorage(cfg.Session.FilePath)
	}
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(ctx, storage)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		api:      api,
		store:    store,
		catalog:  catalog.New(api, &cfg.Catalog),
		business: businessType,
		in:       bufio.NewReader(os.Stdin),
	}, nil
}

// Push 实现 flow.Navigator，终端里导航就是打印目的地
func (a *app) Push(route flow.Route) error {
	fmt.Printf("\n==> %s\n", route.Path)
	return nil
}

// checkAuth 查询登录状态并打印，供 status 与流程入口复用
func (a *app) checkAuth(ctx context.Context) (*client.WxSignStatusResponse, error) {
	status, err := a.api.QueryWxSignStatus(ctx)
	if err != nil {
		return nil, err
	}
	switch status.Status {
	case client.WxSignStatusOK:
		fmt.Printf("登录状态: 已登录 (%s)\n", status.NickName)
	case client.WxSignStatusExpired:
		fmt.Println("登录状态: 会话已过期，部分操作可能需要重新登录")
	default:
		fmt.Println("登录状态: 未登录")
	}
	return status, nil
}

// runStatus 打印登录状态与本地会话里的测评进度
func (a *app) runStatus(ctx context.Context) error {
	if _, err := a.checkAuth(ctx); err != nil {
		return err
	}

	rec := a.store.Record()
	if rec == nil {
		fmt.Println("没有进行中的测评。")
		return nil
	}
	fmt.Printf("试卷编号: %s  业务线: %s\n", rec.PublicID, rec.BusinessType)

	currStage, currIdx := a.store.CurrentStage()
	for i, step := range a.store.Steps() {
		marker := "  "
		if step.Stage == currStage || i == currIdx {
			marker = "->"
		}
		fmt.Printf(" %s %d. %s\n", marker, i+1, step.Title)
	}
	return nil
}

// runReset 丢弃本地会话与持久化快照
func (a *app) runReset(ctx context.Context) error {
	if err := a.store.Reset(ctx); err != nil {
		return err
	}
	fmt.Println("本地会话已清空。")
	return nil
}

// run 驱动完整流程：创建/恢复 -> 逐阶段作答 -> 报告
func (a *app) run(ctx context.Context) error {
	if _, err := a.checkAuth(ctx); err != nil {
		return err
	}

	rec := a.store.Record()
	req := &client.TestFlowRequest{BusinessType: a.business}
	if rec != nil && rec.BusinessType == a.business {
		req.PublicID = rec.PublicID
	}
	if a.publicID != "" {
		req.PublicID = a.publicID
	}

	resp, err := a.api.FetchTestFlow(ctx, req)
	if err != nil {
		return err
	}
	if err := a.store.SetRecord(ctx, resp.Record); err != nil {
		return err
	}
	if err := a.store.SetTestFlow(ctx, resp.Steps, resp.CurrentStage, resp.CurrentIndex); err != nil {
		return err
	}

	fmt.Println("测评流程:")
	for i, step := range resp.Steps {
		marker := "  "
		if step.Stage == resp.CurrentStage {
			marker = "->"
		}
		fmt.Printf(" %s %d. %s\n", marker, i+1, step.Title)
	}

	stage := resp.CurrentStage
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := flow.PushStageRoute(a, a.business, stage); err != nil {
			return err
		}

		switch stage {
		case flow.StageBasicInfo:
			stage, err = a.runBasicInfo(ctx)
		case flow.StageReport:
			return a.runReport(ctx)
		default:
			stage, err = a.runQuestionStage(ctx, stage)
		}
		if err != nil {
			return err
		}
		if stage == "" {
			return fmt.Errorf("服务端没有给出下一阶段")
		}
	}
}

func (a *app) runBasicInfo(ctx context.Context) (string, error) {
	rec := a.store.Record()
	if rec == nil {
		return "", fmt.Errorf("没有进行中的测评记录")
	}

	grade := a.prompt("年级 (初二/初三/高一): ")
	if !client.IsValidGrade(grade) {
		return "", fmt.Errorf("不支持的年级 %q", grade)
	}
	mode := a.prompt("选科模式 (3+3 / 3+1+2): ")
	if mode != client.Mode33 && mode != client.Mode312 {
		return "", fmt.Errorf("不支持的选科模式 %q", mode)
	}

	hobby := ""
	if hobbies, err := a.catalog.Hobbies(ctx); err == nil && len(hobbies) > 0 {
		fmt.Println("爱好候选:", strings.Join(hobbies, "、"))
		hobby = a.prompt("爱好 (可留空): ")
	}

	res, err := a.api.SubmitBasicInfo(ctx, &client.BasicInfoRequest{
		PublicID: rec.PublicID,
		Grade:    grade,
		Mode:     mode,
		Hobby:    hobby,
	})
	if err != nil {
		return "", err
	}
	if !res.Ok {
		return "", fmt.Errorf("基本信息提交失败: %s", res.Msg)
	}

	rec.Grade, rec.Mode, rec.Hobby = grade, mode, hobby
	if err := a.store.SetRecord(ctx, rec); err != nil {
		return "", err
	}
	if err := a.store.SetNextRouteItem(ctx, flow.StageBasicInfo, res.NextRid); err != nil {
		return "", err
	}
	return res.NextRoute, nil
}

func (a *app) runQuestionStage(ctx context.Context, stageName string) (string, error) {
	stage := flow.NewQuestionStage(a.api, a.store, a.business, stageName)

	fmt.Println("正在拉取题目 ...")
	if err := stage.Load(ctx); err != nil {
		return "", err
	}
	for _, line := range stage.Progress.Lines() {
		fmt.Println("  ", line)
	}

	for {
		fmt.Printf("\n-- 第 %d/%d 页 --\n", stage.PageIndex()+1, stage.PageCount())
		for _, q := range stage.CurrentPage() {
			current := " "
			if v, ok := stage.AnswerValue(q.ID); ok {
				current = strconv.Itoa(v)
			}
			fmt.Printf("[%s] %d. %s\n", current, q.ID, q.Text)
		}

		line := a.prompt("作答 (题号=分值，p 上一页，n 下一页): ")
		switch line {
		case "p":
			stage.Prev()
		case "n":
			unanswered, finished := stage.Next()
			if len(unanswered) > 0 {
				fmt.Println("以下题目未作答:", unanswered)
				continue
			}
			if finished {
				res, err := stage.Submit(ctx)
				if err != nil {
					fmt.Println("提交失败:", err, "(可再按 n 重试)")
					continue
				}
				return res.NextRoute, nil
			}
		default:
			id, value, err := parseAnswer(line)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := stage.SetAnswer(ctx, id, value); err != nil {
				fmt.Println(err)
			}
		}
	}
}

func (a *app) runReport(ctx context.Context) error {
	o := report.NewOrchestrator(a.api, a.store, &a.cfg.Payment)

	plan, err := o.CheckEntitlement(ctx)
	if err != nil {
		return err
	}
	if !plan.HasPaid {
		if err := a.runEntitlement(ctx, o, plan); err != nil {
			return err
		}
	}

	fmt.Println("正在生成报告 ...")
	rep, err := o.Load(ctx)
	if err != nil {
		return err
	}
	for _, line := range o.Progress.Lines() {
		fmt.Println("  ", line)
	}

	a.printReport(rep)

	if a.prompt("\n完成并归档本次测评? (y/N): ") == "y" {
		if err := o.Finish(ctx); err != nil {
			return err
		}
		fmt.Println("已归档，感谢使用。")
	}
	return nil
}

func (a *app) runEntitlement(ctx context.Context, o *report.Orchestrator, plan *client.PlanInfo) error {
	fmt.Printf("报告需要解锁: %s，价格 %.2f 元\n", plan.Title, float64(plan.Amount)/100)

	if code := a.prompt("输入邀请码直接解锁，留空走微信支付: "); code != "" {
		return o.RedeemInvite(ctx, code)
	}

	order, err := o.CreateOrder(ctx, plan.PlanKey)
	if err != nil {
		return err
	}
	fmt.Println("请用微信扫码支付:", order.CodeURL)
	fmt.Println("等待支付确认 ...")
	return o.AwaitPayment(ctx, order.OrderID)
}

func (a *app) printReport(rep *report.Report) {
	raw := rep.Raw
	fmt.Printf("\n========== 选科推荐报告 (%s) ==========\n", raw.Mode)

	radar := report.BuildRadarSeries(&raw.CommonScore.Radar)
	for i, subject := range radar.Subjects {
		fmt.Printf("%-4s 兴趣 %5.1f  能力 %5.1f\n", subject, radar.Interest[i], radar.Ability[i])
	}

	switch raw.Mode {
	case client.Mode33:
		for _, combo := range report.BuildMode33View(raw.Recommend33) {
			fmt.Printf("[%s] %s  %.1f\n", combo.RankLabel, strings.Join(combo.Subjects, "+"), combo.Score)
		}
	case client.Mode312:
		for _, strip := range report.BuildMode312View(raw.Recommend312) {
			fmt.Printf("锚点 %s  %.1f\n", strip.Subject, strip.Score)
			for _, c := range strip.Combos {
				fmt.Printf("    %s + %s\n", c.Aux1, c.Aux2)
			}
		}
	}

	ai := rep.AI
	fmt.Println("\n--- 报告解读 ---")
	fmt.Println(ai.CommonSection.ReportValidityText)
	fmt.Println(ai.CommonSection.SubjectsSummaryText)
	if s33, s312, err := report.ParseModeSection(raw.Mode, ai.ModeSection); err == nil {
		if s33 != nil {
			for _, d := range s33.Combos {
				fmt.Printf("\n%s\n%s\n%s\n", d.ComboName, d.ComboDescription, d.ComboAdvice)
			}
		}
		if s312 != nil {
			for _, d := range append(s312.Physics, s312.History...) {
				fmt.Printf("\n%s\n%s\n%s\n", d.ComboName, d.ComboDescription, d.ComboAdvice)
			}
		}
	}
	fmt.Println("\n--- 结论 ---")
	fmt.Println(ai.FinalReport.StrategicConclusion)
}

func (a *app) prompt(label string) string {
	fmt.Print(label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

// parseAnswer 解析 "题号=分值"
func parseAnswer(line string) (int, int, error) {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("格式应当是 题号=分值，例如 3=5")
	}
	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("题号 %q 不是数字", parts[0])
	}
	value, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("分值 %q 不是数字", parts[1])
	}
	return id, value, nil
}
