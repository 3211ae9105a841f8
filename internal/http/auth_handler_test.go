package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"curfew-report/internal/domain"
	"curfew-report/internal/repository"
	"curfew-report/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUsersRepo 内存用户仓储
type fakeUsersRepo struct {
	users map[string]*domain.User
}

func (f *fakeUsersRepo) GetUser(_ context.Context, username string) (*domain.User, error) {
	return f.users[username], nil
}

func (f *fakeUsersRepo) ListUsers(context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsersRepo) VerifyUser(_ context.Context, username, password string) (*domain.User, error) {
	u := f.users[username]
	if u == nil || !u.Enabled || u.Password != password {
		return nil, nil
	}
	return u, nil
}

func (f *fakeUsersRepo) CreateUser(_ context.Context, username, password, role string) error {
	f.users[username] = &domain.User{Username: username, Password: password, Role: role, Enabled: true}
	return nil
}

func (f *fakeUsersRepo) UpdateUser(context.Context, string, repository.UserUpdate) error { return nil }
func (f *fakeUsersRepo) DeleteUser(context.Context, string) error                        { return nil }

// fakeOpLogs 记录操作审计调用
type fakeOpLogs struct {
	actions []string
}

func (f *fakeOpLogs) CreateOperationLog(_ context.Context, _, action, _, _ string) error {
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeOpLogs) ListOperationLogs(context.Context, string, int) ([]*domain.OperationLog, error) {
	return nil, nil
}

func newAuthFixture() (*AuthHandler, *fakeUsersRepo, *fakeOpLogs, *SessionManager) {
	users := &fakeUsersRepo{users: map[string]*domain.User{
		"op1": {Username: "op1", Password: "secret", Role: "user", Enabled: true},
	}}
	opLogs := &fakeOpLogs{}
	sessions := NewSessionManager(store.NewMemoryKV())
	h := NewAuthHandler(users, opLogs, sessions, zap.NewNop())
	return h, users, opLogs, sessions
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

// TestLogin_Success 测试登录成功后写会话 cookie
func TestLogin_Success(t *testing.T) {
	h, _, opLogs, sessions := newAuthFixture()

	w := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"username": "op1", "password": "secret",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, "success", result["type"])

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, "session_id", cookies[0].Name)

	// 会话可被后续请求解析
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	sess, err := sessions.Get(req)
	require.NoError(t, err)
	require.Equal(t, "op1", sess.Username)

	require.Equal(t, []string{"login"}, opLogs.actions)
}

// TestLogin_WrongPassword 测试口令错误不建立会话
func TestLogin_WrongPassword(t *testing.T) {
	h, _, opLogs, _ := newAuthFixture()

	w := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"username": "op1", "password": "wrong",
	})

	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, "error", result["type"])
	require.Empty(t, w.Result().Cookies())
	require.Empty(t, opLogs.actions)
}

// TestLogout 测试登出后会话失效
func TestLogout(t *testing.T) {
	h, _, _, sessions := newAuthFixture()

	loginW := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"username": "op1", "password": "secret",
	})
	cookie := loginW.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.Logout(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	check := httptest.NewRequest(http.MethodGet, "/", nil)
	check.AddCookie(cookie)
	_, err := sessions.Get(check)
	require.ErrorIs(t, err, store.ErrMiss)
}

// TestProfile_Unauthenticated 测试未登录访问返回 401
func TestProfile_Unauthenticated(t *testing.T) {
	h, _, _, _ := newAuthFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	w := httptest.NewRecorder()
	h.Profile(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, float64(ResultSessionExpired), result["code"])
}
