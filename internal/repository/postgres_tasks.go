package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"curfew-report/internal/domain"

	"github.com/google/uuid"
)

// PostgresEmailTasksRepository EmailTasksRepository 的 Postgres 实现
type PostgresEmailTasksRepository struct {
	db *sql.DB
}

// NewPostgresEmailTasksRepository 创建 EmailTasksRepository
func NewPostgresEmailTasksRepository(db *sql.DB) *PostgresEmailTasksRepository {
	return &PostgresEmailTasksRepository{db: db}
}

var _ EmailTasksRepository = (*PostgresEmailTasksRepository)(nil)

const emailTaskColumns = `id, task_name, username, buildings, recipients, subject_prefix,
	start_time, end_time, cron_expression, enabled,
	to_char(created_at, 'YYYY-MM-DD HH24:MI:SS'), to_char(updated_at, 'YYYY-MM-DD HH24:MI:SS')`

func scanEmailTask(row interface{ Scan(...any) error }) (*domain.EmailTask, error) {
	var t domain.EmailTask
	var buildings, recipients string
	err := row.Scan(&t.ID, &t.TaskName, &t.Username, &buildings, &recipients, &t.SubjectPrefix,
		&t.StartTime, &t.EndTime, &t.CronExpression, &t.Enabled, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(buildings), &t.Buildings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task buildings: %w", err)
	}
	if err := json.Unmarshal([]byte(recipients), &t.Recipients); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task recipients: %w", err)
	}
	return &t, nil
}

func (r *PostgresEmailTasksRepository) listTasks(ctx context.Context, where string) ([]*domain.EmailTask, error) {
	query := `SELECT ` + emailTaskColumns + ` FROM email_tasks` + where + ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list email tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.EmailTask
	for rows.Next() {
		t, err := scanEmailTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate email task rows: %w", err)
	}
	return tasks, nil
}

// ListTasks 查询全部任务
func (r *PostgresEmailTasksRepository) ListTasks(ctx context.Context) ([]*domain.EmailTask, error) {
	return r.listTasks(ctx, "")
}

// ListEnabledTasks 查询启用的任务
func (r *PostgresEmailTasksRepository) ListEnabledTasks(ctx context.Context) ([]*domain.EmailTask, error) {
	return r.listTasks(ctx, " WHERE enabled = TRUE")
}

// GetTask 按 ID 查询；不存在时返回 nil
func (r *PostgresEmailTasksRepository) GetTask(ctx context.Context, taskID int64) (*domain.EmailTask, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+emailTaskColumns+` FROM email_tasks WHERE id = $1`, taskID)
	t, err := scanEmailTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get email task: %w", err)
	}
	return t, nil
}

// CreateTask 创建任务，返回新任务 ID
func (r *PostgresEmailTasksRepository) CreateTask(ctx context.Context, task *domain.EmailTask) (int64, error) {
	buildings, err := json.Marshal(task.Buildings)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal task buildings: %w", err)
	}
	recipients, err := json.Marshal(task.Recipients)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal task recipients: %w", err)
	}

	startTime := task.StartTime
	if startTime == "" {
		startTime = "23:20:00"
	}
	endTime := task.EndTime
	if endTime == "" {
		endTime = "05:30:00"
	}
	cronExpr := task.CronExpression
	if cronExpr == "" {
		cronExpr = "0 6 * * *"
	}

	var id int64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO email_tasks
		 (task_name, username, buildings, recipients, subject_prefix, start_time, end_time, cron_expression, enabled)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		task.TaskName, task.Username, string(buildings), string(recipients),
		task.SubjectPrefix, startTime, endTime, cronExpr, task.Enabled,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create email task: %w", err)
	}
	return id, nil
}

// UpdateTask 更新任务字段
func (r *PostgresEmailTasksRepository) UpdateTask(ctx context.Context, taskID int64, update EmailTaskUpdate) error {
	set := make([]string, 0, 8)
	args := make([]any, 0, 9)
	idx := 1

	appendSet := func(column string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if update.TaskName != nil {
		appendSet("task_name", *update.TaskName)
	}
	if update.Buildings != nil {
		b, err := json.Marshal(*update.Buildings)
		if err != nil {
			return fmt.Errorf("failed to marshal task buildings: %w", err)
		}
		appendSet("buildings", string(b))
	}
	if update.Recipients != nil {
		b, err := json.Marshal(*update.Recipients)
		if err != nil {
			return fmt.Errorf("failed to marshal task recipients: %w", err)
		}
		appendSet("recipients", string(b))
	}
	if update.SubjectPrefix != nil {
		appendSet("subject_prefix", *update.SubjectPrefix)
	}
	if update.StartTime != nil {
		appendSet("start_time", *update.StartTime)
	}
	if update.EndTime != nil {
		appendSet("end_time", *update.EndTime)
	}
	if update.CronExpression != nil {
		appendSet("cron_expression", *update.CronExpression)
	}
	if update.Enabled != nil {
		appendSet("enabled", *update.Enabled)
	}
	if len(set) == 0 {
		return nil
	}

	set = append(set, "updated_at = now()")
	args = append(args, taskID)
	query := fmt.Sprintf("UPDATE email_tasks SET %s WHERE id = $%d", strings.Join(set, ", "), idx)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update email task %d: %w", taskID, err)
	}
	return nil
}

// DeleteTask 删除任务
func (r *PostgresEmailTasksRepository) DeleteTask(ctx context.Context, taskID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM email_tasks WHERE id = $1`, taskID); err != nil {
		return fmt.Errorf("failed to delete email task %d: %w", taskID, err)
	}
	return nil
}

// PostgresTaskLogsRepository TaskLogsRepository 的 Postgres 实现
type PostgresTaskLogsRepository struct {
	db *sql.DB
}

// NewPostgresTaskLogsRepository 创建 TaskLogsRepository
func NewPostgresTaskLogsRepository(db *sql.DB) *PostgresTaskLogsRepository {
	return &PostgresTaskLogsRepository{db: db}
}

var _ TaskLogsRepository = (*PostgresTaskLogsRepository)(nil)

// CreateTaskLog 记录一次任务执行的开始，返回日志 ID
func (r *PostgresTaskLogsRepository) CreateTaskLog(ctx context.Context, taskID int64, username, status string) (string, error) {
	logID := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO task_logs (id, task_id, username, status) VALUES ($1, $2, $3, $4)`,
		logID, taskID, username, status,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create task log: %w", err)
	}
	return logID, nil
}

// UpdateTaskLog 更新执行结果
func (r *PostgresTaskLogsRepository) UpdateTaskLog(ctx context.Context, logID, status, filePath, errorMessage string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE task_logs
		 SET status = $2, file_path = $3, error_message = $4, updated_at = now()
		 WHERE id = $1`,
		logID, status, filePath, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to update task log %s: %w", logID, err)
	}
	return nil
}

// ListTaskLogs 按时间倒序查询执行记录
func (r *PostgresTaskLogsRepository) ListTaskLogs(ctx context.Context, username string, limit int) ([]*domain.TaskLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, task_id, username, status, file_path, error_message,
		to_char(created_at, 'YYYY-MM-DD HH24:MI:SS'), to_char(updated_at, 'YYYY-MM-DD HH24:MI:SS')
		FROM task_logs`
	args := []any{}
	if username != "" {
		query += ` WHERE username = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, username, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list task logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.TaskLog
	for rows.Next() {
		var l domain.TaskLog
		if err := rows.Scan(&l.ID, &l.TaskID, &l.Username, &l.Status, &l.FilePath, &l.ErrorMessage, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task log row: %w", err)
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task log rows: %w", err)
	}
	return logs, nil
}
