package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"curfew-report/internal/domain"
	"curfew-report/internal/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 调度器配置键
const (
	cfgKeySchedulerEnabled  = "scheduler_enabled"
	cfgKeySchedulerTimezone = "scheduler_timezone"
)

// Scheduler 按 cron 表达式触发邮件任务
// 任务到点后投入 TaskRunner 的串行队列，调度器本身不执行流水线
type Scheduler struct {
	configRepo repository.ConfigRepository
	tasksRepo  repository.EmailTasksRepository
	runner     *TaskRunner
	logger     *zap.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[int64]cron.EntryID // 任务 ID -> cron 条目
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler 创建调度器
func NewScheduler(configRepo repository.ConfigRepository, tasksRepo repository.EmailTasksRepository, runner *TaskRunner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		configRepo: configRepo,
		tasksRepo:  tasksRepo,
		runner:     runner,
		logger:     logger,
		entries:    make(map[int64]cron.EntryID),
	}
}

// Start 读取配置并加载全部启用的任务
// scheduler_enabled 为 false 时不启动，直接返回 nil
func (s *Scheduler) Start(ctx context.Context) error {
	enabledRaw, err := s.configRepo.GetConfig(ctx, cfgKeySchedulerEnabled, "false")
	if err != nil {
		return fmt.Errorf("read scheduler_enabled: %w", err)
	}
	if enabled, _ := strconv.ParseBool(enabledRaw); !enabled {
		s.logger.Info("scheduler disabled by config")
		return nil
	}

	tzName, err := s.configRepo.GetConfig(ctx, cfgKeySchedulerTimezone, "Asia/Shanghai")
	if err != nil {
		return fmt.Errorf("read scheduler_timezone: %w", err)
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return fmt.Errorf("%w: invalid scheduler_timezone %q: %v", domain.ErrConfiguration, tzName, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(cron.WithLocation(loc))

	if err := s.loadTasksLocked(ctx); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("timezone", tzName),
		zap.Int("tasks", len(s.entries)),
	)
	return nil
}

// Stop 停止调度，等待正在触发的回调返回
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	cancel := s.cancel
	s.cron = nil
	s.entries = make(map[int64]cron.EntryID)
	s.mu.Unlock()

	if c == nil {
		return
	}
	stopCtx := c.Stop()
	<-stopCtx.Done()
	if cancel != nil {
		cancel()
	}
	s.logger.Info("scheduler stopped")
}

// Reload 重新加载全部启用的任务
// 管理端增删改任务后调用，替换现有的全部 cron 条目
func (s *Scheduler) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return nil
	}
	for taskID, entryID := range s.entries {
		s.cron.Remove(entryID)
		delete(s.entries, taskID)
	}
	if err := s.loadTasksLocked(ctx); err != nil {
		return err
	}
	s.logger.Info("scheduler reloaded", zap.Int("tasks", len(s.entries)))
	return nil
}

// ScheduledTaskIDs 当前已注册的任务 ID 列表（状态页用）
func (s *Scheduler) ScheduledTaskIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.entries))
	for taskID := range s.entries {
		ids = append(ids, taskID)
	}
	return ids
}

// loadTasksLocked 注册全部启用的任务；单个任务的表达式非法只告警不中断
func (s *Scheduler) loadTasksLocked(ctx context.Context) error {
	tasks, err := s.tasksRepo.ListEnabledTasks(ctx)
	if err != nil {
		return fmt.Errorf("list enabled tasks: %w", err)
	}
	for _, task := range tasks {
		task := task
		entryID, err := s.cron.AddFunc(task.CronExpression, func() {
			s.runner.Enqueue(s.ctx, task)
		})
		if err != nil {
			s.logger.Warn("invalid cron expression, task skipped",
				zap.Int64("task_id", task.ID),
				zap.String("cron", task.CronExpression),
				zap.Error(err),
			)
			continue
		}
		s.entries[task.ID] = entryID
	}
	return nil
}
