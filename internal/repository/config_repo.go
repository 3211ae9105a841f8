package repository

import "context"

// ConfigRepository system_config 表的数据访问接口
// 存放操作员可改的业务配置：门禁系统账号、楼栋映射、学院简称表、
// 分页大小、培养层次判定表、SMTP 参数、调度器开关等
type ConfigRepository interface {
	// GetConfig 读取单个配置值，不存在时返回 def
	GetConfig(ctx context.Context, key, def string) (string, error)

	// AllConfig 读取全部配置（管理页面用）
	AllConfig(ctx context.Context) (map[string]string, error)

	// SetConfig 写入或更新配置值
	SetConfig(ctx context.Context, key, value, description string) error
}
