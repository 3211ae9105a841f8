package service

import "context"

// SessionAcquirer 对门禁系统的登录能力抽象
// 一次流水线运行创建一个实例，期间持有登录态资源（浏览器会话或 HTTP 连接），
// 任何退出路径都必须调用 Close 释放
type SessionAcquirer interface {
	// Acquire 提交登录表单并确认登录成功，返回会话 cookie 值
	// 失败分类见 domain：ErrLoginTimeout / ErrLoginButtonNotFound / ErrProtocol
	Acquire(ctx context.Context) (string, error)

	// Close 释放登录态资源，可重复调用
	Close() error
}

// SessionFactory 按一次运行的凭据创建 SessionAcquirer
// 流水线对具体实现（无头浏览器 / 直接 HTTP 登录）不感知
type SessionFactory func(username, password string) SessionAcquirer
