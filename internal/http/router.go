package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuthRoutes 注册登录登出路由
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/api/v1/auth/login", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Login(w, req)
	})
	r.Handle("/api/v1/auth/logout", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Logout(w, req)
	})
	r.Handle("/api/v1/auth/profile", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Profile(w, req)
	})
}

// RegisterQueryRoutes 注册晚归查询与报表下载路由
func (r *Router) RegisterQueryRoutes(h *QueryHandler) {
	r.Handle("/api/v1/query", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Query(w, req)
	})
	r.Handle("/api/v1/files", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListFiles(w, req)
	})
	r.Handle("/api/v1/download/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		fileName := strings.TrimPrefix(req.URL.Path, "/api/v1/download/")
		if fileName == "" || strings.Contains(fileName, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.Download(w, req, fileName)
	})
}

// RegisterAdminRoutes 注册管理端路由
func (r *Router) RegisterAdminRoutes(h *AdminHandler) {
	r.Handle("/api/v1/admin/users", h.UsersHandler)
	r.Handle("/api/v1/admin/users/", h.UsersHandler)

	r.Handle("/api/v1/admin/config", h.ConfigHandler)

	r.Handle("/api/v1/admin/tasks", h.TasksHandler)
	r.Handle("/api/v1/admin/tasks/", h.TasksHandler)

	r.Handle("/api/v1/admin/task-logs", h.TaskLogsHandler)
	r.Handle("/api/v1/admin/operation-logs", h.OperationLogsHandler)
}
