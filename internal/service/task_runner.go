package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"curfew-report/internal/domain"
	"curfew-report/internal/repository"

	"go.uber.org/zap"
)

// pipelineRunner 流水线执行接口（测试用）
type pipelineRunner interface {
	Run(ctx context.Context, req RunRequest) RunResult
}

// TaskRunner 执行邮件任务：跑流水线生成报表，成功后发送邮件，
// 全程写 task_logs 记录状态流转 running -> success / email_failed / failed
type TaskRunner struct {
	pipeline pipelineRunner
	sender   EmailSender
	taskLogs repository.TaskLogsRepository
	logger   *zap.Logger

	// 任务串行队列。门禁系统对并发登录敏感，同一时刻只跑一个任务
	mu        sync.Mutex
	queue     []*domain.EmailTask
	running   bool
	taskDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration)
}

// NewTaskRunner 创建任务执行器
// taskDelay 为队列中相邻任务之间的间隔
func NewTaskRunner(pipeline pipelineRunner, sender EmailSender, taskLogs repository.TaskLogsRepository, taskDelay time.Duration, logger *zap.Logger) *TaskRunner {
	return &TaskRunner{
		pipeline:  pipeline,
		sender:    sender,
		taskLogs:  taskLogs,
		logger:    logger,
		taskDelay: taskDelay,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Enqueue 把任务加入串行队列，队列空闲时立即开始执行
// 调度器触发和手动触发都走这里
func (r *TaskRunner) Enqueue(ctx context.Context, task *domain.EmailTask) {
	r.mu.Lock()
	r.queue = append(r.queue, task)
	if r.running {
		r.mu.Unlock()
		r.logger.Info("task queued",
			zap.Int64("task_id", task.ID),
			zap.Int("queue_len", len(r.queue)),
		)
		return
	}
	r.running = true
	r.mu.Unlock()

	go r.drain(ctx)
}

// drain 依次执行队列中的任务，直到队列清空
func (r *TaskRunner) drain(ctx context.Context) {
	first := true
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.running = false
			r.mu.Unlock()
			return
		}
		task := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()

		if !first {
			r.sleep(ctx, r.taskDelay)
		}
		first = false

		if ctx.Err() != nil {
			r.logger.Warn("task skipped, runner shutting down", zap.Int64("task_id", task.ID))
			continue
		}
		r.RunTask(ctx, task)
	}
}

// RunTask 同步执行一个任务，返回最终状态
func (r *TaskRunner) RunTask(ctx context.Context, task *domain.EmailTask) string {
	r.logger.Info("email task started",
		zap.Int64("task_id", task.ID),
		zap.String("task_name", task.TaskName),
		zap.Strings("buildings", task.Buildings),
	)

	logID, err := r.taskLogs.CreateTaskLog(ctx, task.ID, task.Username, domain.TaskStatusRunning)
	if err != nil {
		// 记录失败不阻止任务执行，只是丢失这次的历史
		r.logger.Error("failed to create task log", zap.Int64("task_id", task.ID), zap.Error(err))
	}

	result := r.pipeline.Run(ctx, RunRequest{
		Buildings: task.Buildings,
		Username:  task.Username,
		StartTime: task.StartTime,
		EndTime:   task.EndTime,
	})

	status := domain.TaskStatusFailed
	errMsg := result.Message
	switch {
	case result.Status != RunStatusSuccess:
		r.logger.Error("email task pipeline failed",
			zap.Int64("task_id", task.ID),
			zap.String("message", result.Message),
		)

	case result.ArtifactPath == "":
		// 窗口内没有晚归记录，不发邮件
		status = domain.TaskStatusSuccess
		r.logger.Info("email task finished without records", zap.Int64("task_id", task.ID))

	default:
		if err := r.sendReportEmail(ctx, task, result.ArtifactPath); err != nil {
			status = domain.TaskStatusEmailFailed
			errMsg = err.Error()
			r.logger.Error("email task send failed",
				zap.Int64("task_id", task.ID),
				zap.Error(err),
			)
		} else {
			status = domain.TaskStatusSuccess
			r.logger.Info("email task finished",
				zap.Int64("task_id", task.ID),
				zap.String("file", result.ArtifactPath),
			)
		}
	}

	if logID != "" {
		if err := r.taskLogs.UpdateTaskLog(ctx, logID, status, result.ArtifactPath, errMsg); err != nil {
			r.logger.Error("failed to update task log", zap.String("log_id", logID), zap.Error(err))
		}
	}
	return status
}

func (r *TaskRunner) sendReportEmail(ctx context.Context, task *domain.EmailTask, artifactPath string) error {
	subject := task.SubjectPrefix
	if subject == "" {
		subject = "公寓学生晚归名单"
	}
	subject = fmt.Sprintf("%s %s", subject, time.Now().Format("2006-01-02"))

	body := fmt.Sprintf("任务「%s」已生成晚归报表，详见附件 %s。", task.TaskName, filepath.Base(artifactPath))
	return r.sender.SendReport(ctx, task.Recipients, subject, body, []string{artifactPath})
}
