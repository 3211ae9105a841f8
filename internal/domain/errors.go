package domain

import "errors"

// 流水线各阶段的错误分类
// 编排层用 errors.Is 归类后转换为结构化结果，不向调用方抛原始错误
var (
	// ErrCredentialsMissing 门禁系统账号或密码为空（登录前检查）
	ErrCredentialsMissing = errors.New("portal credentials missing")

	// ErrLoginTimeout 登录页面加载或登录后确认页超时
	ErrLoginTimeout = errors.New("portal login timed out")

	// ErrLoginButtonNotFound 三种候选选择器都找不到登录按钮（页面结构变更）
	ErrLoginButtonNotFound = errors.New("portal login button not found")

	// ErrProtocol 登录成功但门禁系统未按预期下发会话 cookie
	ErrProtocol = errors.New("portal protocol violation")

	// ErrConfiguration 配置缺失或楼栋编号无法解析
	ErrConfiguration = errors.New("configuration error")

	// ErrFetch 某楼栋的分页查询失败
	ErrFetch = errors.New("building fetch failed")

	// ErrRowFormat 记录的 passTimeText 不符合 YYYY-MM-DD HH:MM:SS 格式
	ErrRowFormat = errors.New("malformed record timestamp")

	// ErrNoRecords 没有任何晚归记录，属于正常的空结果而不是失败
	ErrNoRecords = errors.New("no records to compile")
)
