package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"curfew-report/internal/domain"
	"curfew-report/internal/service"
	"curfew-report/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeQueryPipeline 返回预置结果
type fakeQueryPipeline struct {
	result   service.RunResult
	requests []service.RunRequest
}

func (f *fakeQueryPipeline) Run(_ context.Context, req service.RunRequest) service.RunResult {
	f.requests = append(f.requests, req)
	return f.result
}

func newQueryFixture(t *testing.T, resultsRoot string) (*QueryHandler, *fakeQueryPipeline, *fakeOpLogs, *http.Cookie) {
	users := &fakeUsersRepo{users: map[string]*domain.User{
		"op1": {Username: "op1", Password: "secret", Role: "user", Enabled: true,
			AllowedBuildings: []string{"4", "5"}},
	}}
	opLogs := &fakeOpLogs{}
	sessions := NewSessionManager(store.NewMemoryKV())
	pipeline := &fakeQueryPipeline{result: service.RunResult{
		Status:       service.RunStatusSuccess,
		ArtifactPath: filepath.Join(resultsRoot, "op1", "report.xlsx"),
	}}
	h := NewQueryHandler(pipeline, users, opLogs, sessions, resultsRoot, zap.NewNop())

	// 建立登录态
	w := httptest.NewRecorder()
	require.NoError(t, sessions.Create(context.Background(), w, SessionData{Username: "op1", Role: "user"}))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return h, pipeline, opLogs, cookies[0]
}

func postQuery(t *testing.T, h *QueryHandler, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(raw))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.Query(w, req)
	return w
}

// TestQuery_Success 测试查询成功返回文件名并记录操作
func TestQuery_Success(t *testing.T) {
	h, pipeline, opLogs, cookie := newQueryFixture(t, t.TempDir())

	w := postQuery(t, h, cookie, map[string]any{
		"buildings": []string{"4"},
		"startTime": "23:00:00",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, "success", result["type"])
	payload := result["result"].(map[string]any)
	require.Equal(t, "report.xlsx", payload["fileName"])

	require.Len(t, pipeline.requests, 1)
	require.Equal(t, "op1", pipeline.requests[0].Username)
	require.Equal(t, "23:00:00", pipeline.requests[0].StartTime)
	require.Equal(t, []string{"query"}, opLogs.actions)
}

// TestQuery_BuildingPermission 测试越权楼栋被拒绝且不触发流水线
func TestQuery_BuildingPermission(t *testing.T) {
	h, pipeline, _, cookie := newQueryFixture(t, t.TempDir())

	w := postQuery(t, h, cookie, map[string]any{
		"buildings": []string{"4", "7"},
	})

	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, "error", result["type"])
	require.Contains(t, result["message"], "7")
	require.Empty(t, pipeline.requests)
}

// TestQuery_Unauthenticated 测试未登录返回 401
func TestQuery_Unauthenticated(t *testing.T) {
	h, pipeline, _, _ := newQueryFixture(t, t.TempDir())

	w := postQuery(t, h, nil, map[string]any{"buildings": []string{"4"}})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Empty(t, pipeline.requests)
}

// TestDownload 测试只能下载操作员自己目录下的文件
func TestDownload(t *testing.T) {
	root := t.TempDir()
	h, _, opLogs, cookie := newQueryFixture(t, root)

	dir := filepath.Join(root, "op1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.xlsx"), []byte("data"), 0o644))
	// 其他操作员目录下的文件
	otherDir := filepath.Join(root, "op2")
	require.NoError(t, os.MkdirAll(otherDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(otherDir, "secret.xlsx"), []byte("data"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/download/report.xlsx", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.Download(w, req, "report.xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"download"}, opLogs.actions)

	// 自己目录中不存在
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/download/secret.xlsx", nil)
	req.AddCookie(cookie)
	h.Download(w, req, "secret.xlsx")
	require.Equal(t, http.StatusNotFound, w.Code)

	// 目录穿越
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/download/x", nil)
	req.AddCookie(cookie)
	h.Download(w, req, "../op2/secret.xlsx")
	require.Equal(t, http.StatusNotFound, w.Code)
}

// TestListFiles 测试历史报表列表只含 xlsx
func TestListFiles(t *testing.T) {
	root := t.TempDir()
	h, _, _, cookie := newQueryFixture(t, root)

	dir := filepath.Join(root, "op1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.xlsx"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.tmp"), nil, 0o644))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	h.ListFiles(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, []any{"a.xlsx"}, result["result"])
}
