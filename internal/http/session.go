package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"curfew-report/internal/store"

	"github.com/google/uuid"
)

const (
	sessionCookieName = "session_id"
	sessionKeyPrefix  = "session:"
	sessionTTL        = 12 * time.Hour
)

// SessionData 会话中保存的登录态
type SessionData struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// SessionManager 基于 KV 的 Web 会话管理
type SessionManager struct {
	kv store.KV
}

func NewSessionManager(kv store.KV) *SessionManager {
	return &SessionManager{kv: kv}
}

// Create 创建会话并在响应上写 cookie
func (m *SessionManager) Create(ctx context.Context, w http.ResponseWriter, data SessionData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	sessionID := uuid.NewString()
	if err := m.kv.Set(ctx, sessionKeyPrefix+sessionID, string(raw), sessionTTL); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL / time.Second),
	})
	return nil
}

// Get 从请求 cookie 解析会话；未登录或已过期返回 store.ErrMiss
func (m *SessionManager) Get(r *http.Request) (*SessionData, error) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil, store.ErrMiss
	}
	raw, err := m.kv.Get(r.Context(), sessionKeyPrefix+c.Value)
	if err != nil {
		return nil, err
	}
	var data SessionData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, store.ErrMiss
	}
	return &data, nil
}

// Destroy 删除会话并清除 cookie
func (m *SessionManager) Destroy(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		_ = m.kv.Delete(r.Context(), sessionKeyPrefix+c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// requireSession 校验登录态；失败时已写出 401 响应，调用方直接 return
func (m *SessionManager) requireSession(w http.ResponseWriter, r *http.Request) (*SessionData, bool) {
	data, err := m.Get(r)
	if err != nil {
		if !errors.Is(err, store.ErrMiss) {
			writeJSON(w, http.StatusInternalServerError, Fail("会话存储不可用"))
			return nil, false
		}
		writeJSON(w, http.StatusUnauthorized, SessionExpired())
		return nil, false
	}
	return data, true
}

// requireAdmin 校验管理员身份
func (m *SessionManager) requireAdmin(w http.ResponseWriter, r *http.Request) (*SessionData, bool) {
	data, ok := m.requireSession(w, r)
	if !ok {
		return nil, false
	}
	if data.Role != "admin" {
		writeJSON(w, http.StatusForbidden, Fail("无权限执行该操作"))
		return nil, false
	}
	return data, true
}
