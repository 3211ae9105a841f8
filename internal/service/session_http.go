package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"curfew-report/internal/config"
	"curfew-report/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HTTPSessionAcquirer 不经浏览器、直接 POST 登录表单的 SessionAcquirer 实现
// 仅在门禁系统支持纯表单登录的部署上可用；流水线通过 SessionFactory
// 选择实现，不感知差异
type HTTPSessionAcquirer struct {
	client   *resty.Client
	loginURL string
	username string
	password string
	logger   *zap.Logger
}

// NewHTTPSessionAcquirer 创建 HTTP 直连登录实现
func NewHTTPSessionAcquirer(portal config.PortalConfig, username, password string, logger *zap.Logger) *HTTPSessionAcquirer {
	client := resty.New().
		SetTimeout(loginWaitTimeout).
		SetHeader("User-Agent", portalUserAgent)

	return &HTTPSessionAcquirer{
		client:   client,
		loginURL: portal.LoginURL,
		username: username,
		password: password,
		logger:   logger,
	}
}

var _ SessionAcquirer = (*HTTPSessionAcquirer)(nil)

// Acquire 提交登录表单，校验响应中的成功标记，返回第一个会话 cookie 值
func (a *HTTPSessionAcquirer) Acquire(ctx context.Context) (string, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": a.username,
			"password": a.password,
		}).
		Post(a.loginURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLoginTimeout, err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("%w: login returned status %d", domain.ErrLoginTimeout, resp.StatusCode())
	}

	// 与浏览器实现相同的成功判据：登录后页面携带系统名
	if !strings.Contains(resp.String(), loginSuccessTitle) {
		a.logger.Warn("login response lacks success marker", zap.Int("status", resp.StatusCode()))
		return "", fmt.Errorf("%w: response lacks success marker", domain.ErrLoginTimeout)
	}

	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return "", fmt.Errorf("%w: no session cookie set after login", domain.ErrProtocol)
	}

	a.logger.Info("portal login succeeded (http)",
		zap.String("login_url", a.loginURL),
		zap.Duration("elapsed", resp.Time().Round(time.Millisecond)),
	)
	return cookies[0].Value, nil
}

// Close HTTP 实现没有持久资源，留空实现满足接口
func (a *HTTPSessionAcquirer) Close() error {
	return nil
}
