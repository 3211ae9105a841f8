package httpapi

import (
	"net/http"

	"curfew-report/internal/repository"

	"go.uber.org/zap"
)

// AuthHandler 登录登出 Handler
type AuthHandler struct {
	users    repository.UsersRepository
	opLogs   repository.OperationLogsRepository
	sessions *SessionManager
	logger   *zap.Logger
}

// NewAuthHandler 创建登录登出 Handler
func NewAuthHandler(users repository.UsersRepository, opLogs repository.OperationLogsRepository, sessions *SessionManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		opLogs:   opLogs,
		sessions: sessions,
		logger:   logger,
	}
}

// Login 用户登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, 1<<20, &reqBody); err != nil || reqBody.Username == "" {
		writeJSON(w, http.StatusOK, Fail("用户名或密码不能为空"))
		return
	}

	user, err := h.users.VerifyUser(ctx, reqBody.Username, reqBody.Password)
	if err != nil {
		h.logger.Error("Login verify failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("登录失败，请稍后重试"))
		return
	}
	if user == nil {
		h.logger.Warn("Login rejected",
			zap.String("username", reqBody.Username),
			zap.String("ip_address", getClientIP(r)),
		)
		writeJSON(w, http.StatusOK, Fail("用户名或密码错误"))
		return
	}

	if err := h.sessions.Create(ctx, w, SessionData{Username: user.Username, Role: user.Role}); err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("登录失败，请稍后重试"))
		return
	}

	if err := h.opLogs.CreateOperationLog(ctx, user.Username, "login", "", getClientIP(r)); err != nil {
		h.logger.Warn("Failed to record login", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"username":         user.Username,
		"role":             user.Role,
		"allowedBuildings": user.AllowedBuildings,
	}))
}

// Logout 退出登录
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// Profile 查询当前登录用户
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	data, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetUser(r.Context(), data.Username)
	if err != nil || user == nil {
		writeJSON(w, http.StatusUnauthorized, SessionExpired())
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"username":         user.Username,
		"role":             user.Role,
		"allowedBuildings": user.AllowedBuildings,
	}))
}
