package httpapi

// Result 统一响应包装
// - code: 2000 成功，-1 失败，60401 会话失效
// - type: 'success' | 'error'
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
	// ResultSessionExpired 使用 code=60401 + HTTP 401（前端拦截器会跳转登录页）
	ResultSessionExpired = 60401
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

func SessionExpired() Result[any] {
	return Result[any]{Code: ResultSessionExpired, Type: "error", Message: "会话已失效，请重新登录", Result: nil}
}
