package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"curfew-report/internal/repository"
	"curfew-report/internal/service"

	"go.uber.org/zap"
)

// pipelineRunner 流水线执行接口
type pipelineRunner interface {
	Run(ctx context.Context, req service.RunRequest) service.RunResult
}

// QueryHandler 晚归查询与报表下载 Handler
type QueryHandler struct {
	pipeline    pipelineRunner
	users       repository.UsersRepository
	opLogs      repository.OperationLogsRepository
	sessions    *SessionManager
	resultsRoot string
	logger      *zap.Logger
}

// NewQueryHandler 创建查询 Handler
func NewQueryHandler(pipeline pipelineRunner, users repository.UsersRepository, opLogs repository.OperationLogsRepository, sessions *SessionManager, resultsRoot string, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		pipeline:    pipeline,
		users:       users,
		opLogs:      opLogs,
		sessions:    sessions,
		resultsRoot: resultsRoot,
		logger:      logger,
	}
}

// Query 发起一次晚归查询，同步等待报表生成
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}

	var reqBody struct {
		Buildings []string `json:"buildings"`
		StartTime string   `json:"startTime"`
		EndTime   string   `json:"endTime"`
		StartDate string   `json:"startDate"`
		EndDate   string   `json:"endDate"`
	}
	if err := readBodyJSON(r, 1<<20, &reqBody); err != nil || len(reqBody.Buildings) == 0 {
		writeJSON(w, http.StatusOK, Fail("请选择要查询的楼栋"))
		return
	}

	// 楼栋权限按数据库中的最新配置校验，不信任会话快照
	user, err := h.users.GetUser(ctx, sess.Username)
	if err != nil || user == nil {
		writeJSON(w, http.StatusUnauthorized, SessionExpired())
		return
	}
	for _, number := range reqBody.Buildings {
		if !user.CanQueryBuilding(number) {
			writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("无权查询楼栋 %s", number)))
			return
		}
	}

	detail := fmt.Sprintf("buildings=%s start=%s end=%s",
		strings.Join(reqBody.Buildings, ","), reqBody.StartTime, reqBody.EndTime)
	if err := h.opLogs.CreateOperationLog(ctx, sess.Username, "query", detail, getClientIP(r)); err != nil {
		h.logger.Warn("Failed to record query", zap.Error(err))
	}

	result := h.pipeline.Run(ctx, service.RunRequest{
		Buildings: reqBody.Buildings,
		Username:  sess.Username,
		StartTime: reqBody.StartTime,
		EndTime:   reqBody.EndTime,
		StartDate: reqBody.StartDate,
		EndDate:   reqBody.EndDate,
	})
	if result.Status != service.RunStatusSuccess {
		writeJSON(w, http.StatusOK, Fail(result.Message))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"fileName": filepath.Base(result.ArtifactPath),
		"msg":      result.Message,
	}))
}

// ListFiles 列出当前操作员的历史报表
func (h *QueryHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}

	dir := filepath.Join(h.resultsRoot, sess.Username)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, Ok([]string{}))
			return
		}
		h.logger.Error("Failed to list result files", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("读取报表目录失败"))
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xlsx") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	writeJSON(w, http.StatusOK, Ok(names))
}

// Download 下载报表文件
// 路径形如 /api/v1/download/<fileName>，只允许访问操作员自己的目录
func (h *QueryHandler) Download(w http.ResponseWriter, r *http.Request, fileName string) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}

	// 拒绝任何带路径分隔的文件名，防止目录穿越
	if fileName == "" || fileName != filepath.Base(fileName) || strings.Contains(fileName, "..") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	path := filepath.Join(h.resultsRoot, sess.Username, fileName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := h.opLogs.CreateOperationLog(r.Context(), sess.Username, "download", fileName, getClientIP(r)); err != nil {
		h.logger.Warn("Failed to record download", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", escapeFileName(fileName)))
	http.ServeFile(w, r, path)
}

// escapeFileName RFC 5987 百分号编码，文件名含中文
func escapeFileName(name string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
			c == '.' || c == '-' || c == '_' || c == '(' || c == ')' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}
