package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"curfew-report/internal/domain"
	"curfew-report/internal/repository"

	"go.uber.org/zap"
)

// schedulerReloader 调度器重载接口，任务增删改后刷新 cron 条目
type schedulerReloader interface {
	Reload(ctx context.Context) error
}

// taskEnqueuer 手动触发任务用
type taskEnqueuer interface {
	Enqueue(ctx context.Context, task *domain.EmailTask)
}

// AdminHandler 管理端 Handler：用户、系统配置、邮件任务、日志
// 全部操作要求 admin 角色
type AdminHandler struct {
	users     repository.UsersRepository
	configs   repository.ConfigRepository
	tasks     repository.EmailTasksRepository
	taskLogs  repository.TaskLogsRepository
	opLogs    repository.OperationLogsRepository
	scheduler schedulerReloader
	runner    taskEnqueuer
	sessions  *SessionManager
	logger    *zap.Logger
}

// NewAdminHandler 创建管理端 Handler
func NewAdminHandler(
	users repository.UsersRepository,
	configs repository.ConfigRepository,
	tasks repository.EmailTasksRepository,
	taskLogs repository.TaskLogsRepository,
	opLogs repository.OperationLogsRepository,
	scheduler schedulerReloader,
	runner taskEnqueuer,
	sessions *SessionManager,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		users:     users,
		configs:   configs,
		tasks:     tasks,
		taskLogs:  taskLogs,
		opLogs:    opLogs,
		scheduler: scheduler,
		runner:    runner,
		sessions:  sessions,
		logger:    logger,
	}
}

// UsersHandler /api/v1/admin/users 和 /api/v1/admin/users/{username}
func (h *AdminHandler) UsersHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.requireAdmin(w, r); !ok {
		return
	}
	ctx := r.Context()
	username := pathTail(r.URL.Path, "/api/v1/admin/users")

	switch {
	case r.Method == http.MethodGet && username == "":
		users, err := h.users.ListUsers(ctx)
		if err != nil {
			h.logger.Error("Failed to list users", zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("查询用户失败"))
			return
		}
		writeJSON(w, http.StatusOK, Ok(users))

	case r.Method == http.MethodPost && username == "":
		var reqBody struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := readBodyJSON(r, 1<<20, &reqBody); err != nil || reqBody.Username == "" || reqBody.Password == "" {
			writeJSON(w, http.StatusOK, Fail("用户名和密码不能为空"))
			return
		}
		if reqBody.Role == "" {
			reqBody.Role = "user"
		}
		if err := h.users.CreateUser(ctx, reqBody.Username, reqBody.Password, reqBody.Role); err != nil {
			h.logger.Error("Failed to create user", zap.String("username", reqBody.Username), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("创建用户失败，用户名可能已存在"))
			return
		}
		writeJSON(w, http.StatusOK, Ok[any](nil))

	case r.Method == http.MethodPut && username != "":
		var reqBody struct {
			Password         *string   `json:"password"`
			Role             *string   `json:"role"`
			Enabled          *bool     `json:"enabled"`
			AllowedBuildings *[]string `json:"allowedBuildings"`
		}
		if err := readBodyJSON(r, 1<<20, &reqBody); err != nil {
			writeJSON(w, http.StatusOK, Fail("请求格式错误"))
			return
		}
		update := repository.UserUpdate{
			Password:         reqBody.Password,
			Role:             reqBody.Role,
			Enabled:          reqBody.Enabled,
			AllowedBuildings: reqBody.AllowedBuildings,
		}
		if err := h.users.UpdateUser(ctx, username, update); err != nil {
			h.logger.Error("Failed to update user", zap.String("username", username), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("更新用户失败"))
			return
		}
		writeJSON(w, http.StatusOK, Ok[any](nil))

	case r.Method == http.MethodDelete && username != "":
		if err := h.users.DeleteUser(ctx, username); err != nil {
			h.logger.Error("Failed to delete user", zap.String("username", username), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("删除用户失败"))
			return
		}
		writeJSON(w, http.StatusOK, Ok[any](nil))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ConfigHandler /api/v1/admin/config
// GET 返回全部配置；PUT body {key, value, description} 更新单项
func (h *AdminHandler) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireAdmin(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		all, err := h.configs.AllConfig(ctx)
		if err != nil {
			h.logger.Error("Failed to read config", zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("读取配置失败"))
			return
		}
		// 口令类配置不回显
		for _, key := range []string{"tust_password", "sender_password"} {
			if _, exists := all[key]; exists {
				all[key] = "******"
			}
		}
		writeJSON(w, http.StatusOK, Ok(all))

	case http.MethodPut:
		var reqBody struct {
			Key         string `json:"key"`
			Value       string `json:"value"`
			Description string `json:"description"`
		}
		if err := readBodyJSON(r, 1<<20, &reqBody); err != nil || reqBody.Key == "" {
			writeJSON(w, http.StatusOK, Fail("配置键不能为空"))
			return
		}
		if err := h.configs.SetConfig(ctx, reqBody.Key, reqBody.Value, reqBody.Description); err != nil {
			h.logger.Error("Failed to set config", zap.String("key", reqBody.Key), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("保存配置失败"))
			return
		}
		if err := h.opLogs.CreateOperationLog(ctx, sess.Username, "config", reqBody.Key, getClientIP(r)); err != nil {
			h.logger.Warn("Failed to record config change", zap.Error(err))
		}
		writeJSON(w, http.StatusOK, Ok[any](nil))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// TasksHandler /api/v1/admin/tasks 和 /api/v1/admin/tasks/{id}[/run]
func (h *AdminHandler) TasksHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.requireAdmin(w, r); !ok {
		return
	}
	ctx := r.Context()
	tail := pathTail(r.URL.Path, "/api/v1/admin/tasks")

	// /tasks/{id}/run 手动触发
	if strings.HasSuffix(tail, "/run") {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.triggerTask(w, r, strings.TrimSuffix(tail, "/run"))
		return
	}

	switch {
	case r.Method == http.MethodGet && tail == "":
		tasks, err := h.tasks.ListTasks(ctx)
		if err != nil {
			h.logger.Error("Failed to list tasks", zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("查询任务失败"))
			return
		}
		writeJSON(w, http.StatusOK, Ok(tasks))

	case r.Method == http.MethodPost && tail == "":
		var task domain.EmailTask
		if err := readBodyJSON(r, 1<<20, &task); err != nil || task.TaskName == "" || len(task.Buildings) == 0 || len(task.Recipients) == 0 {
			writeJSON(w, http.StatusOK, Fail("任务名称、楼栋和收件人不能为空"))
			return
		}
		taskID, err := h.tasks.CreateTask(ctx, &task)
		if err != nil {
			h.logger.Error("Failed to create task", zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("创建任务失败"))
			return
		}
		h.reloadScheduler(ctx)
		writeJSON(w, http.StatusOK, Ok(map[string]any{"id": taskID}))

	case r.Method == http.MethodPut && tail != "":
		taskID, err := strconv.ParseInt(tail, 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var reqBody struct {
			TaskName       *string   `json:"taskName"`
			Buildings      *[]string `json:"buildings"`
			Recipients     *[]string `json:"recipients"`
			SubjectPrefix  *string   `json:"subjectPrefix"`
			StartTime      *string   `json:"startTime"`
			EndTime        *string   `json:"endTime"`
			CronExpression *string   `json:"cronExpression"`
			Enabled        *bool     `json:"enabled"`
		}
		if err := readBodyJSON(r, 1<<20, &reqBody); err != nil {
			writeJSON(w, http.StatusOK, Fail("请求格式错误"))
			return
		}
		update := repository.EmailTaskUpdate{
			TaskName:       reqBody.TaskName,
			Buildings:      reqBody.Buildings,
			Recipients:     reqBody.Recipients,
			SubjectPrefix:  reqBody.SubjectPrefix,
			StartTime:      reqBody.StartTime,
			EndTime:        reqBody.EndTime,
			CronExpression: reqBody.CronExpression,
			Enabled:        reqBody.Enabled,
		}
		if err := h.tasks.UpdateTask(ctx, taskID, update); err != nil {
			h.logger.Error("Failed to update task", zap.Int64("task_id", taskID), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("更新任务失败"))
			return
		}
		h.reloadScheduler(ctx)
		writeJSON(w, http.StatusOK, Ok[any](nil))

	case r.Method == http.MethodDelete && tail != "":
		taskID, err := strconv.ParseInt(tail, 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := h.tasks.DeleteTask(ctx, taskID); err != nil {
			h.logger.Error("Failed to delete task", zap.Int64("task_id", taskID), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("删除任务失败"))
			return
		}
		h.reloadScheduler(ctx)
		writeJSON(w, http.StatusOK, Ok[any](nil))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) triggerTask(w http.ResponseWriter, r *http.Request, idRaw string) {
	taskID, err := strconv.ParseInt(idRaw, 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	task, err := h.tasks.GetTask(r.Context(), taskID)
	if err != nil {
		h.logger.Error("Failed to load task", zap.Int64("task_id", taskID), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("查询任务失败"))
		return
	}
	if task == nil {
		writeJSON(w, http.StatusOK, Fail("任务不存在"))
		return
	}
	// 入队后立即返回，执行结果看任务日志
	h.runner.Enqueue(context.WithoutCancel(r.Context()), task)
	writeJSON(w, http.StatusOK, Ok(map[string]any{"msg": "任务已触发"}))
}

// TaskLogsHandler /api/v1/admin/task-logs?username=&limit=
func (h *AdminHandler) TaskLogsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.requireAdmin(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	logs, err := h.taskLogs.ListTaskLogs(r.Context(),
		r.URL.Query().Get("username"),
		parseInt(r.URL.Query().Get("limit"), 100),
	)
	if err != nil {
		h.logger.Error("Failed to list task logs", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("查询任务日志失败"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(logs))
}

// OperationLogsHandler /api/v1/admin/operation-logs?username=&limit=
func (h *AdminHandler) OperationLogsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.requireAdmin(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	logs, err := h.opLogs.ListOperationLogs(r.Context(),
		r.URL.Query().Get("username"),
		parseInt(r.URL.Query().Get("limit"), 100),
	)
	if err != nil {
		h.logger.Error("Failed to list operation logs", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("查询操作日志失败"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(logs))
}

func (h *AdminHandler) reloadScheduler(ctx context.Context) {
	if h.scheduler == nil {
		return
	}
	if err := h.scheduler.Reload(ctx); err != nil {
		h.logger.Error("Failed to reload scheduler", zap.Error(err))
	}
}

// pathTail 取 prefix 之后的路径段，去掉前导斜杠
func pathTail(path, prefix string) string {
	tail := strings.TrimPrefix(path, prefix)
	return strings.Trim(tail, "/")
}
