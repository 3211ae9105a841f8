package service

import (
	"context"
	"errors"
	"fmt"

	"curfew-report/internal/config"
	"curfew-report/internal/domain"
	"curfew-report/internal/repository"

	"go.uber.org/zap"
)

// 运行结果状态
const (
	RunStatusSuccess = "success"
	RunStatusFailure = "failure"
)

// RunRequest 一次流水线运行的请求
type RunRequest struct {
	Buildings []string `json:"buildings"` // 楼栋编号列表
	Username  string   `json:"username"`  // 操作员身份，决定输出目录
	StartTime string   `json:"startTime"` // HH:MM:SS，为空用配置默认值
	EndTime   string   `json:"endTime"`   // HH:MM:SS，为空用配置默认值
	StartDate string   `json:"startDate"` // YYYY-MM-DD，仅影响文件名，可为空
	EndDate   string   `json:"endDate"`   // YYYY-MM-DD，仅影响文件名，可为空
}

// RunResult 流水线运行的结构化结果
// 所有组件级错误都在这里收敛，调用方只看 Status，不接触原始错误
type RunResult struct {
	Status       string `json:"status"`
	ArtifactPath string `json:"fileName,omitempty"`
	Message      string `json:"msg,omitempty"`
}

// recordFetcher 楼栋记录拉取接口（测试和扩展用）
type recordFetcher interface {
	FetchBuilding(ctx context.Context, token string, q domain.BuildingQuery, window domain.QueryWindow) ([]domain.AccessRecord, error)
}

// artifactCompiler 报表编排接口（测试和扩展用）
type artifactCompiler interface {
	Compile(groups []domain.BuildingRecords, rc *RunConfig, operator string, window domain.QueryWindow) (string, error)
}

// Pipeline 晚归数据流水线编排器
// 状态流转：登录 -> 按楼栋顺序拉取 -> 归一化 -> 编排报表
// 任一阶段失败即终止并返回 failure 结果，登录态资源在所有路径上都被释放
type Pipeline struct {
	configRepo repository.ConfigRepository
	portalCfg  config.PortalConfig
	logger     *zap.Logger

	newSession SessionFactory
	newFetcher func(rc *RunConfig) recordFetcher
	compiler   artifactCompiler
}

// NewPipeline 创建流水线
// 默认使用无头浏览器登录和 resty 分页客户端
func NewPipeline(configRepo repository.ConfigRepository, portalCfg config.PortalConfig, resultsRoot string, logger *zap.Logger) *Pipeline {
	p := &Pipeline{
		configRepo: configRepo,
		portalCfg:  portalCfg,
		logger:     logger,
		compiler:   NewReportCompiler(resultsRoot, logger),
	}
	p.newSession = func(username, password string) SessionAcquirer {
		return NewChromeSessionAcquirer(portalCfg, username, password, logger)
	}
	p.newFetcher = func(rc *RunConfig) recordFetcher {
		return NewPortalClient(portalCfg.BaseURL, rc.PageSize, rc.Groups, logger)
	}
	return p
}

// Run 执行一次完整的数据采集与报表编排
func (p *Pipeline) Run(ctx context.Context, req RunRequest) RunResult {
	rc, err := LoadRunConfig(ctx, p.configRepo, p.logger)
	if err != nil {
		p.logger.Error("failed to load run config", zap.Error(err))
		return failure("读取系统配置失败: " + err.Error())
	}

	// 登录前检查凭据，避免无谓地拉起浏览器
	if rc.Username == "" || rc.Password == "" {
		p.logger.Warn("portal credentials missing", zap.Error(domain.ErrCredentialsMissing))
		return failure("用户信息为空，请检查配置")
	}

	window := domain.QueryWindow{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if window.StartTime == "" {
		window.StartTime = rc.BeginTime
	}
	if window.EndTime == "" {
		window.EndTime = rc.EndTime
	}

	// 解析楼栋编号；未知编号直接失败，不发起任何外部请求
	queries := make([]domain.BuildingQuery, 0, len(req.Buildings))
	for _, number := range req.Buildings {
		internalID, ok := rc.BuildingIDs[number]
		if !ok {
			p.logger.Warn("unknown building number", zap.String("building", number))
			return failure(fmt.Sprintf("未知楼栋编号: %s", number))
		}
		queries = append(queries, domain.BuildingQuery{
			Number:     number,
			InternalID: internalID,
			Label:      rc.LabelFor(number),
		})
	}

	session := p.newSession(rc.Username, rc.Password)
	defer func() {
		if err := session.Close(); err != nil {
			p.logger.Warn("failed to close portal session", zap.Error(err))
		}
	}()

	token, err := session.Acquire(ctx)
	if err != nil {
		p.logger.Error("portal login failed", zap.Error(err))
		return failure("登录失败: " + loginFailureMessage(err))
	}

	// 串行拉取，尊重门禁系统的会话与频率限制；
	// 任一楼栋失败即放弃整次运行（不产出部分结果）
	fetcher := p.newFetcher(rc)
	groups := make([]domain.BuildingRecords, 0, len(queries))
	for _, q := range queries {
		rows, err := fetcher.FetchBuilding(ctx, token, q, window)
		if err != nil {
			p.logger.Error("building fetch failed",
				zap.String("building", q.Number),
				zap.Error(err),
			)
			return failure(fmt.Sprintf("查询楼栋 %s 数据失败: %v", q.Number, err))
		}
		groups = append(groups, domain.BuildingRecords{
			Label:   q.Label,
			Records: NormalizeRecords(rows, q.Label),
		})
	}

	artifactPath, err := p.compiler.Compile(groups, rc, req.Username, window)
	if err != nil {
		if errors.Is(err, domain.ErrNoRecords) {
			return RunResult{Status: RunStatusSuccess, Message: "无晚归数据"}
		}
		p.logger.Error("report compile failed", zap.Error(err))
		return failure("生成报表失败: " + err.Error())
	}

	return RunResult{Status: RunStatusSuccess, ArtifactPath: artifactPath}
}

func failure(message string) RunResult {
	return RunResult{Status: RunStatusFailure, Message: message}
}

// loginFailureMessage 把登录错误转换为操作员可读的提示
func loginFailureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrLoginTimeout):
		return "登录后页面加载超时，可能登录失败"
	case errors.Is(err, domain.ErrLoginButtonNotFound):
		return "无法找到登录按钮，请检查页面结构是否变更"
	case errors.Is(err, domain.ErrProtocol):
		return "登录成功但未获取到会话，请联系管理员"
	default:
		return err.Error()
	}
}
