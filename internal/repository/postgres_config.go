package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresConfigRepository ConfigRepository 的 Postgres 实现
type PostgresConfigRepository struct {
	db *sql.DB
}

// NewPostgresConfigRepository 创建 ConfigRepository
func NewPostgresConfigRepository(db *sql.DB) *PostgresConfigRepository {
	return &PostgresConfigRepository{db: db}
}

// 确保实现了接口
var _ ConfigRepository = (*PostgresConfigRepository)(nil)

// GetConfig 读取单个配置值，不存在时返回 def
func (r *PostgresConfigRepository) GetConfig(ctx context.Context, key, def string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM system_config WHERE key = $1`, key,
	).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return def, nil
		}
		return "", fmt.Errorf("failed to get config %q: %w", key, err)
	}
	return value, nil
}

// AllConfig 读取全部配置
func (r *PostgresConfigRepository) AllConfig(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM system_config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list config: %w", err)
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config row: %w", err)
		}
		result[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate config rows: %w", err)
	}
	return result, nil
}

// SetConfig 写入或更新配置值
func (r *PostgresConfigRepository) SetConfig(ctx context.Context, key, value, description string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO system_config (key, value, description, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), now())
		 ON CONFLICT (key)
		 DO UPDATE SET value = EXCLUDED.value,
		               description = COALESCE(EXCLUDED.description, system_config.description),
		               updated_at = now()`,
		key, value, description,
	)
	if err != nil {
		return fmt.Errorf("failed to set config %q: %w", key, err)
	}
	return nil
}
