package repository

import (
	"context"

	"curfew-report/internal/domain"
)

// UserUpdate 用户可更新字段，nil 表示不修改
type UserUpdate struct {
	Password         *string
	Role             *string
	Enabled          *bool
	AllowedBuildings *[]string
}

// UsersRepository users 表的数据访问接口
type UsersRepository interface {
	// GetUser 按用户名查询；不存在时返回 nil
	GetUser(ctx context.Context, username string) (*domain.User, error)

	// ListUsers 查询全部用户（管理页面用）
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// VerifyUser 校验用户名口令；失败（不存在、禁用、口令不符）返回 nil
	VerifyUser(ctx context.Context, username, password string) (*domain.User, error)

	// CreateUser 创建用户；用户名冲突时返回错误
	CreateUser(ctx context.Context, username, password, role string) error

	// UpdateUser 更新用户字段
	UpdateUser(ctx context.Context, username string, update UserUpdate) error

	// DeleteUser 删除用户
	DeleteUser(ctx context.Context, username string) error
}

// OperationLogsRepository operation_logs 表的数据访问接口
type OperationLogsRepository interface {
	// CreateOperationLog 记录一次 Web 端操作
	CreateOperationLog(ctx context.Context, username, action, detail, ipAddress string) error

	// ListOperationLogs 按时间倒序查询操作记录；username 为空时查全部
	ListOperationLogs(ctx context.Context, username string, limit int) ([]*domain.OperationLog, error)
}
