package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"curfew-report/internal/config"
	"curfew-report/internal/domain"

	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// 登录成功后页面标题包含的标记
const loginSuccessTitle = "公寓出入安全分析系统"

// 页面加载和登录确认的等待上限
const loginWaitTimeout = 10 * time.Second

// ChromeSessionAcquirer 用无头浏览器驱动门禁系统登录页的 SessionAcquirer 实现
// 登录页依赖 JS 渲染，直接 POST 表单在部分部署上拿不到会话，
// 所以默认走浏览器；HTTP 直连实现见 HTTPSessionAcquirer
type ChromeSessionAcquirer struct {
	loginURL string
	username string
	password string
	headless bool
	logger   *zap.Logger

	cancels []context.CancelFunc
}

// NewChromeSessionAcquirer 创建浏览器登录实现
func NewChromeSessionAcquirer(portal config.PortalConfig, username, password string, logger *zap.Logger) *ChromeSessionAcquirer {
	return &ChromeSessionAcquirer{
		loginURL: portal.LoginURL,
		username: username,
		password: password,
		headless: portal.Headless,
		logger:   logger,
	}
}

var _ SessionAcquirer = (*ChromeSessionAcquirer)(nil)

// Acquire 打开登录页、填写并提交表单、等待登录成功标记，返回会话 cookie 值
func (a *ChromeSessionAcquirer) Acquire(ctx context.Context) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", a.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	a.cancels = append(a.cancels, browserCancel, allocCancel)

	// 打开登录页并等待用户名输入框出现
	loadCtx, loadCancel := context.WithTimeout(browserCtx, loginWaitTimeout)
	defer loadCancel()
	err := chromedp.Run(loadCtx,
		chromedp.Navigate(a.loginURL),
		chromedp.WaitVisible(`input[name="username"]`, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: login page did not load within %s", domain.ErrLoginTimeout, loginWaitTimeout)
		}
		return "", fmt.Errorf("failed to open login page: %w", err)
	}

	if err := chromedp.Run(browserCtx,
		chromedp.SendKeys(`input[name="username"]`, a.username, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, a.password, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("failed to fill login form: %w", err)
	}

	if err := a.clickSubmit(browserCtx); err != nil {
		return "", err
	}

	// 等待登录后页面，以标题中的系统名作为成功标记
	if err := a.waitSuccessTitle(browserCtx); err != nil {
		return "", err
	}

	token, err := a.firstSessionCookie(browserCtx)
	if err != nil {
		return "", err
	}

	a.logger.Info("portal login succeeded", zap.String("login_url", a.loginURL))
	return token, nil
}

// clickSubmit 依次尝试三种候选选择器点击登录按钮
// 页面改版时通常只有按钮结构变化，三种都找不到才认为结构不兼容
func (a *ChromeSessionAcquirer) clickSubmit(ctx context.Context) error {
	selectors := []struct {
		sel string
		by  chromedp.QueryOption
	}{
		{`[name="submit"]`, chromedp.ByQuery},
		{`input[type="submit"]`, chromedp.ByQuery},
		{`//button[@type='submit']`, chromedp.BySearch},
	}
	for _, s := range selectors {
		clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := chromedp.Run(clickCtx, chromedp.Click(s.sel, s.by))
		cancel()
		if err == nil {
			return nil
		}
		a.logger.Debug("submit selector did not match",
			zap.String("selector", s.sel),
			zap.Error(err),
		)
	}
	return fmt.Errorf("%w: none of the submit selectors matched", domain.ErrLoginButtonNotFound)
}

// waitSuccessTitle 轮询页面标题直到出现成功标记或超时
func (a *ChromeSessionAcquirer) waitSuccessTitle(ctx context.Context) error {
	deadline := time.Now().Add(loginWaitTimeout)
	for {
		var title string
		if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
			return fmt.Errorf("failed to read page title: %w", err)
		}
		if strings.Contains(title, loginSuccessTitle) {
			return nil
		}
		if time.Now().After(deadline) {
			a.logger.Warn("post-login page confirmation timed out", zap.String("title", title))
			return fmt.Errorf("%w: post-login title %q lacks marker", domain.ErrLoginTimeout, title)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", domain.ErrLoginTimeout, ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// firstSessionCookie 取门禁系统下发的第一个会话 cookie 的值
func (a *ChromeSessionAcquirer) firstSessionCookie(ctx context.Context) (string, error) {
	var token string
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		if len(cookies) == 0 {
			return fmt.Errorf("%w: no session cookie set after login", domain.ErrProtocol)
		}
		token = cookies[0].Value
		return nil
	}))
	if err != nil {
		return "", err
	}
	return token, nil
}

// Close 关闭浏览器会话，可重复调用
func (a *ChromeSessionAcquirer) Close() error {
	for _, cancel := range a.cancels {
		cancel()
	}
	a.cancels = nil
	return nil
}
