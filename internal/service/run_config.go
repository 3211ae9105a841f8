package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"curfew-report/internal/domain"
	"curfew-report/internal/repository"

	"go.uber.org/zap"
)

// system_config 中的业务配置键
// 键名与历史部署保持一致，升级时无需迁移数据
const (
	cfgKeyUsername       = "tust_username"
	cfgKeyPassword       = "tust_password"
	cfgKeyPageSize       = "pagesize"
	cfgKeyInstituteMap   = "data_cfg"   // 学院全称 -> 简称（JSON）
	cfgKeyBuildingIDs    = "bid_dict"   // 楼栋编号 -> 门禁内部 ID（JSON）
	cfgKeyBuildingLabels = "label_dict" // 楼栋编号 -> 展示标签（JSON）
	cfgKeyClassify       = "classify_cfg"
	cfgKeyBeginTime      = "begin_time"
	cfgKeyEndTime        = "end_time"
	cfgKeyGroupCentral   = "building_group_central"
	cfgKeyGroupWest      = "building_group_west"
	cfgKeyCampusID       = "campus_id"
)

// 门禁系统的固定标识，作为配置默认值
const (
	defaultGroupCentral = "851c0092fe8a5c4969fd9e8e2b5200e9" // 中院（楼栋编号 < 15）
	defaultGroupWest    = "5760ba66b341e2bb968ea7b990fa873d" // 西院（楼栋编号 >= 15）
	defaultCampusID     = "2852cbacb09b6b110f4bb162b636e204"
)

// PortalGroups 门禁系统查询需要携带的固定区域标识
type PortalGroups struct {
	CentralID string // 中院楼群 ID
	WestID    string // 西院楼群 ID
	CampusID  string
}

// RunConfig 一次流水线运行的配置快照
// 运行开始时从 ConfigRepository 读取一次，之后按参数传递，
// 各组件内部不做任何全局配置查找
type RunConfig struct {
	Username string
	Password string
	PageSize int

	BuildingIDs    map[string]string // 楼栋编号 -> 门禁内部 ID
	BuildingLabels map[string]string // 楼栋编号 -> 展示标签（如 "11" -> "11A"）
	InstituteAbbr  map[string]string // 学院全称 -> 简称
	Classify       domain.ClassificationTable

	BeginTime string // 默认窗口起点 HH:MM:SS（昨天）
	EndTime   string // 默认窗口终点 HH:MM:SS（今天）
	Groups    PortalGroups
}

// LabelFor 楼栋编号对应的展示标签，映射缺失时用编号本身
func (rc *RunConfig) LabelFor(number string) string {
	if label, ok := rc.BuildingLabels[number]; ok {
		return label
	}
	return number
}

// DefaultBuildingLabels 默认楼栋标签映射（11/12 号楼各分 A/B 两座等）
func DefaultBuildingLabels() map[string]string {
	return map[string]string{
		"11": "11A", "12": "11B", "13": "12A", "14": "12B",
		"15": "13", "16": "14", "17": "15", "18": "16",
		"19": "17A", "20": "17B",
	}
}

// LoadRunConfig 从 system_config 读取并构造一次运行的配置快照
func LoadRunConfig(ctx context.Context, repo repository.ConfigRepository, logger *zap.Logger) (*RunConfig, error) {
	rc := &RunConfig{
		BuildingLabels: DefaultBuildingLabels(),
		Classify:       domain.DefaultClassificationTable(),
	}

	var err error
	if rc.Username, err = repo.GetConfig(ctx, cfgKeyUsername, ""); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	if rc.Password, err = repo.GetConfig(ctx, cfgKeyPassword, ""); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	pageSizeRaw, err := repo.GetConfig(ctx, cfgKeyPageSize, "20")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	rc.PageSize, err = strconv.Atoi(pageSizeRaw)
	if err != nil || rc.PageSize <= 0 {
		rc.PageSize = 20
	}

	rc.BuildingIDs = loadJSONMap(ctx, repo, cfgKeyBuildingIDs, logger)
	if labels := loadJSONMap(ctx, repo, cfgKeyBuildingLabels, logger); len(labels) > 0 {
		rc.BuildingLabels = labels
	}
	rc.InstituteAbbr = loadJSONMap(ctx, repo, cfgKeyInstituteMap, logger)

	if raw, _ := repo.GetConfig(ctx, cfgKeyClassify, ""); raw != "" {
		var table domain.ClassificationTable
		if err := json.Unmarshal([]byte(raw), &table); err != nil {
			logger.Warn("invalid classification config, using defaults", zap.Error(err))
		} else {
			rc.Classify = table
		}
	}

	rc.BeginTime, _ = repo.GetConfig(ctx, cfgKeyBeginTime, "23:20:00")
	rc.EndTime, _ = repo.GetConfig(ctx, cfgKeyEndTime, "05:30:00")

	rc.Groups.CentralID, _ = repo.GetConfig(ctx, cfgKeyGroupCentral, defaultGroupCentral)
	rc.Groups.WestID, _ = repo.GetConfig(ctx, cfgKeyGroupWest, defaultGroupWest)
	rc.Groups.CampusID, _ = repo.GetConfig(ctx, cfgKeyCampusID, defaultCampusID)

	return rc, nil
}

// loadJSONMap 读取 JSON 对象配置，解析失败时告警并返回空映射
func loadJSONMap(ctx context.Context, repo repository.ConfigRepository, key string, logger *zap.Logger) map[string]string {
	result := map[string]string{}
	raw, err := repo.GetConfig(ctx, key, "")
	if err != nil || raw == "" {
		return result
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		logger.Warn("config value is not valid JSON",
			zap.String("key", key),
			zap.Error(err),
		)
		return map[string]string{}
	}
	return result
}
