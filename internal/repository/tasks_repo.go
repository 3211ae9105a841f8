package repository

import (
	"context"

	"curfew-report/internal/domain"
)

// EmailTaskUpdate 邮件任务可更新字段，nil 表示不修改
type EmailTaskUpdate struct {
	TaskName       *string
	Buildings      *[]string
	Recipients     *[]string
	SubjectPrefix  *string
	StartTime      *string
	EndTime        *string
	CronExpression *string
	Enabled        *bool
}

// EmailTasksRepository email_tasks 表的数据访问接口
type EmailTasksRepository interface {
	// ListTasks 查询全部任务
	ListTasks(ctx context.Context) ([]*domain.EmailTask, error)

	// ListEnabledTasks 查询启用的任务（调度器加载用）
	ListEnabledTasks(ctx context.Context) ([]*domain.EmailTask, error)

	// GetTask 按 ID 查询；不存在时返回 nil
	GetTask(ctx context.Context, taskID int64) (*domain.EmailTask, error)

	// CreateTask 创建任务，返回新任务 ID
	CreateTask(ctx context.Context, task *domain.EmailTask) (int64, error)

	// UpdateTask 更新任务字段
	UpdateTask(ctx context.Context, taskID int64, update EmailTaskUpdate) error

	// DeleteTask 删除任务
	DeleteTask(ctx context.Context, taskID int64) error
}

// TaskLogsRepository task_logs 表的数据访问接口
type TaskLogsRepository interface {
	// CreateTaskLog 记录一次任务执行的开始，返回日志 ID
	CreateTaskLog(ctx context.Context, taskID int64, username, status string) (string, error)

	// UpdateTaskLog 更新执行结果
	UpdateTaskLog(ctx context.Context, logID, status, filePath, errorMessage string) error

	// ListTaskLogs 按时间倒序查询执行记录；username 为空时查全部
	ListTaskLogs(ctx context.Context, username string, limit int) ([]*domain.TaskLog, error)
}
