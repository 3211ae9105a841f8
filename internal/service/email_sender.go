package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"curfew-report/internal/domain"
	"curfew-report/internal/repository"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// SMTP 配置键
const (
	cfgKeySMTPServer     = "smtp_server"
	cfgKeySMTPPort       = "smtp_port"
	cfgKeySenderEmail    = "sender_email"
	cfgKeySenderPassword = "sender_password"
	cfgKeySMTPUseTLS     = "smtp_use_tls"
)

// EmailSender 报表邮件发送服务
type EmailSender interface {
	// SendReport 把报表文件作为附件发送给收件人列表
	// 附件文件不存在时跳过该附件并继续发送
	SendReport(ctx context.Context, recipients []string, subject, body string, attachments []string) error
}

type emailSender struct {
	configRepo repository.ConfigRepository
	logger     *zap.Logger
}

// NewEmailSender 创建邮件发送服务
// SMTP 参数每次发送时从系统配置读取，管理员修改后立即生效
func NewEmailSender(configRepo repository.ConfigRepository, logger *zap.Logger) EmailSender {
	return &emailSender{
		configRepo: configRepo,
		logger:     logger,
	}
}

var _ EmailSender = (*emailSender)(nil)

// smtpSettings 一次发送使用的 SMTP 参数快照
type smtpSettings struct {
	server   string
	port     int
	sender   string
	password string
	useTLS   bool
}

func (s *emailSender) loadSettings(ctx context.Context) (*smtpSettings, error) {
	server, err := s.configRepo.GetConfig(ctx, cfgKeySMTPServer, "")
	if err != nil {
		return nil, fmt.Errorf("read smtp_server: %w", err)
	}
	sender, err := s.configRepo.GetConfig(ctx, cfgKeySenderEmail, "")
	if err != nil {
		return nil, fmt.Errorf("read sender_email: %w", err)
	}
	if server == "" || sender == "" {
		return nil, fmt.Errorf("%w: smtp server or sender email not configured", domain.ErrConfiguration)
	}

	password, err := s.configRepo.GetConfig(ctx, cfgKeySenderPassword, "")
	if err != nil {
		return nil, fmt.Errorf("read sender_password: %w", err)
	}
	portRaw, err := s.configRepo.GetConfig(ctx, cfgKeySMTPPort, "465")
	if err != nil {
		return nil, fmt.Errorf("read smtp_port: %w", err)
	}
	port, err := strconv.Atoi(portRaw)
	if err != nil || port <= 0 {
		return nil, fmt.Errorf("%w: invalid smtp_port %q", domain.ErrConfiguration, portRaw)
	}
	useTLSRaw, err := s.configRepo.GetConfig(ctx, cfgKeySMTPUseTLS, "true")
	if err != nil {
		return nil, fmt.Errorf("read smtp_use_tls: %w", err)
	}
	useTLS, _ := strconv.ParseBool(useTLSRaw)

	return &smtpSettings{
		server:   server,
		port:     port,
		sender:   sender,
		password: password,
		useTLS:   useTLS,
	}, nil
}

// SendReport 发送带附件的报表邮件
func (s *emailSender) SendReport(ctx context.Context, recipients []string, subject, body string, attachments []string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("%w: no recipients", domain.ErrConfiguration)
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", settings.sender)
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	attached := 0
	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			s.logger.Warn("attachment missing, skipped",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}
		m.Attach(path, gomail.Rename(filepath.Base(path)))
		attached++
	}

	d := gomail.NewDialer(settings.server, settings.port, settings.sender, settings.password)
	d.SSL = settings.useTLS

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email via %s:%d: %w", settings.server, settings.port, err)
	}

	s.logger.Info("report email sent",
		zap.Strings("recipients", recipients),
		zap.Int("attachments", attached),
	)
	return nil
}
