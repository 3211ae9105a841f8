package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "username", "password", "role", "enabled", "allowed_buildings",
		"to_char", "to_char",
	})
}

// TestVerifyUser 测试口令校验成功
func TestVerifyUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("op1").
		WillReturnRows(userRows().
			AddRow(1, "op1", "secret", "user", true, `["4","5"]`,
				"2025-09-01 10:00:00", "2025-09-01 10:00:00"))

	u, err := repo.VerifyUser(context.Background(), "op1", "secret")
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Equal(t, "op1", u.Username)
	require.Equal(t, []string{"4", "5"}, u.AllowedBuildings)
}

// TestVerifyUser_WrongPassword 测试口令不符返回 nil
func TestVerifyUser_WrongPassword(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("op1").
		WillReturnRows(userRows().
			AddRow(1, "op1", "secret", "user", true, "",
				"2025-09-01 10:00:00", "2025-09-01 10:00:00"))

	u, err := repo.VerifyUser(context.Background(), "op1", "wrong")
	require.NoError(t, err)
	require.Nil(t, u)
}

// TestVerifyUser_Disabled 测试禁用账号无法登录
func TestVerifyUser_Disabled(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("op1").
		WillReturnRows(userRows().
			AddRow(1, "op1", "secret", "user", false, "",
				"2025-09-01 10:00:00", "2025-09-01 10:00:00"))

	u, err := repo.VerifyUser(context.Background(), "op1", "secret")
	require.NoError(t, err)
	require.Nil(t, u)
}

// TestGetUser_NotFound 测试用户不存在返回 nil 而非错误
func TestGetUser_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnRows(userRows())

	u, err := repo.GetUser(context.Background(), "ghost")
	require.NoError(t, err)
	require.Nil(t, u)
}

// TestUpdateUser 测试按需组装 UPDATE 语句
func TestUpdateUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)

	enabled := false
	buildings := []string{"7"}
	mock.ExpectExec(`UPDATE users SET`).
		WithArgs(false, `["7"]`, "op1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateUser(context.Background(), "op1", UserUpdate{
		Enabled:          &enabled,
		AllowedBuildings: &buildings,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestUpdateUser_NoFields 测试空更新直接返回
func TestUpdateUser_NoFields(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresUsersRepository(db)

	err = repo.UpdateUser(context.Background(), "op1", UserUpdate{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
