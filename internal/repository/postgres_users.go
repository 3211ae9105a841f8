package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"curfew-report/internal/domain"
)

// PostgresUsersRepository UsersRepository 的 Postgres 实现
type PostgresUsersRepository struct {
	db *sql.DB
}

// NewPostgresUsersRepository 创建 UsersRepository
func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `id, username, password, role, enabled, allowed_buildings,
	to_char(created_at, 'YYYY-MM-DD HH24:MI:SS'), to_char(updated_at, 'YYYY-MM-DD HH24:MI:SS')`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	var allowed string
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.Enabled, &allowed, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	// 空串表示全部楼栋可操作
	if allowed != "" {
		if err := json.Unmarshal([]byte(allowed), &u.AllowedBuildings); err != nil {
			u.AllowedBuildings = nil
		}
	}
	return &u, nil
}

// GetUser 按用户名查询；不存在时返回 nil
func (r *PostgresUsersRepository) GetUser(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListUsers 查询全部用户
func (r *PostgresUsersRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return users, nil
}

// VerifyUser 校验用户名口令；失败返回 nil
func (r *PostgresUsersRepository) VerifyUser(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := r.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.Enabled || u.Password != password {
		return nil, nil
	}
	return u, nil
}

// CreateUser 创建用户
func (r *PostgresUsersRepository) CreateUser(ctx context.Context, username, password, role string) error {
	if role == "" {
		role = "user"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password, role) VALUES ($1, $2, $3)`,
		username, password, role,
	)
	if err != nil {
		return fmt.Errorf("failed to create user %q: %w", username, err)
	}
	return nil
}

// UpdateUser 更新用户字段
func (r *PostgresUsersRepository) UpdateUser(ctx context.Context, username string, update UserUpdate) error {
	set := make([]string, 0, 4)
	args := make([]any, 0, 5)
	idx := 1

	if update.Password != nil {
		set = append(set, fmt.Sprintf("password = $%d", idx))
		args = append(args, *update.Password)
		idx++
	}
	if update.Role != nil {
		set = append(set, fmt.Sprintf("role = $%d", idx))
		args = append(args, *update.Role)
		idx++
	}
	if update.Enabled != nil {
		set = append(set, fmt.Sprintf("enabled = $%d", idx))
		args = append(args, *update.Enabled)
		idx++
	}
	if update.AllowedBuildings != nil {
		// 空列表写空串，表示全部可操作
		val := ""
		if len(*update.AllowedBuildings) > 0 {
			b, err := json.Marshal(*update.AllowedBuildings)
			if err != nil {
				return fmt.Errorf("failed to marshal allowed buildings: %w", err)
			}
			val = string(b)
		}
		set = append(set, fmt.Sprintf("allowed_buildings = $%d", idx))
		args = append(args, val)
		idx++
	}
	if len(set) == 0 {
		return nil
	}

	set = append(set, "updated_at = now()")
	args = append(args, username)
	query := fmt.Sprintf("UPDATE users SET %s WHERE username = $%d", strings.Join(set, ", "), idx)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update user %q: %w", username, err)
	}
	return nil
}

// DeleteUser 删除用户
func (r *PostgresUsersRepository) DeleteUser(ctx context.Context, username string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username); err != nil {
		return fmt.Errorf("failed to delete user %q: %w", username, err)
	}
	return nil
}

// PostgresOperationLogsRepository OperationLogsRepository 的 Postgres 实现
type PostgresOperationLogsRepository struct {
	db *sql.DB
}

// NewPostgresOperationLogsRepository 创建 OperationLogsRepository
func NewPostgresOperationLogsRepository(db *sql.DB) *PostgresOperationLogsRepository {
	return &PostgresOperationLogsRepository{db: db}
}

var _ OperationLogsRepository = (*PostgresOperationLogsRepository)(nil)

// CreateOperationLog 记录一次 Web 端操作
func (r *PostgresOperationLogsRepository) CreateOperationLog(ctx context.Context, username, action, detail, ipAddress string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operation_logs (username, action, detail, ip_address) VALUES ($1, $2, $3, $4)`,
		username, action, detail, ipAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to create operation log: %w", err)
	}
	return nil
}

// ListOperationLogs 按时间倒序查询操作记录
func (r *PostgresOperationLogsRepository) ListOperationLogs(ctx context.Context, username string, limit int) ([]*domain.OperationLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, username, action, detail, ip_address,
		to_char(created_at, 'YYYY-MM-DD HH24:MI:SS')
		FROM operation_logs`
	args := []any{}
	if username != "" {
		query += ` WHERE username = $1 ORDER BY id DESC LIMIT $2`
		args = append(args, username, limit)
	} else {
		query += ` ORDER BY id DESC LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list operation logs: %w", err)
	}
	defer rows.Close()

	var logs []*domain.OperationLog
	for rows.Next() {
		var l domain.OperationLog
		if err := rows.Scan(&l.ID, &l.Username, &l.Action, &l.Detail, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan operation log row: %w", err)
		}
		logs = append(logs, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operation log rows: %w", err)
	}
	return logs, nil
}
