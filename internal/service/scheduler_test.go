package service

import (
	"context"
	"testing"

	"curfew-report/internal/domain"
	"curfew-report/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeTasksRepo 内存任务仓储
type fakeTasksRepo struct {
	tasks []*domain.EmailTask
}

func (f *fakeTasksRepo) ListTasks(context.Context) ([]*domain.EmailTask, error) {
	return f.tasks, nil
}

func (f *fakeTasksRepo) ListEnabledTasks(context.Context) ([]*domain.EmailTask, error) {
	var enabled []*domain.EmailTask
	for _, t := range f.tasks {
		if t.Enabled {
			enabled = append(enabled, t)
		}
	}
	return enabled, nil
}

func (f *fakeTasksRepo) GetTask(_ context.Context, taskID int64) (*domain.EmailTask, error) {
	for _, t := range f.tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTasksRepo) CreateTask(_ context.Context, task *domain.EmailTask) (int64, error) {
	f.tasks = append(f.tasks, task)
	return task.ID, nil
}

func (f *fakeTasksRepo) UpdateTask(context.Context, int64, repository.EmailTaskUpdate) error {
	return nil
}

func (f *fakeTasksRepo) DeleteTask(context.Context, int64) error { return nil }

func newTestScheduler(configValues map[string]string, tasks []*domain.EmailTask) *Scheduler {
	repo := &fakeConfigRepo{values: configValues}
	pipeline := &fakePipeline{result: RunResult{Status: RunStatusSuccess}}
	runner := NewTaskRunner(pipeline, &fakeSender{}, &fakeTaskLogs{}, 0, zap.NewNop())
	return NewScheduler(repo, &fakeTasksRepo{tasks: tasks}, runner, zap.NewNop())
}

// TestSchedulerStart_Disabled 测试 scheduler_enabled=false 时不注册任何任务
func TestSchedulerStart_Disabled(t *testing.T) {
	s := newTestScheduler(map[string]string{}, []*domain.EmailTask{
		{ID: 1, CronExpression: "0 6 * * *", Enabled: true},
	})

	require.NoError(t, s.Start(context.Background()))
	require.Empty(t, s.ScheduledTaskIDs())
}

// TestSchedulerStart_InvalidTimezone 测试非法时区返回配置错误
func TestSchedulerStart_InvalidTimezone(t *testing.T) {
	s := newTestScheduler(map[string]string{
		"scheduler_enabled":  "true",
		"scheduler_timezone": "Mars/Olympus",
	}, nil)

	err := s.Start(context.Background())
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

// TestSchedulerStart_RegistersEnabledTasks 测试只注册启用且表达式合法的任务
func TestSchedulerStart_RegistersEnabledTasks(t *testing.T) {
	s := newTestScheduler(map[string]string{
		"scheduler_enabled": "true",
	}, []*domain.EmailTask{
		{ID: 1, CronExpression: "0 6 * * *", Enabled: true},
		{ID: 2, CronExpression: "0 7 * * *", Enabled: false},
		{ID: 3, CronExpression: "not a cron", Enabled: true},
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.ElementsMatch(t, []int64{1}, s.ScheduledTaskIDs())
}

// TestSchedulerReload 测试重载后反映任务变更
func TestSchedulerReload(t *testing.T) {
	tasksRepo := &fakeTasksRepo{tasks: []*domain.EmailTask{
		{ID: 1, CronExpression: "0 6 * * *", Enabled: true},
	}}
	repo := &fakeConfigRepo{values: map[string]string{"scheduler_enabled": "true"}}
	runner := NewTaskRunner(&fakePipeline{result: RunResult{Status: RunStatusSuccess}},
		&fakeSender{}, &fakeTaskLogs{}, 0, zap.NewNop())
	s := NewScheduler(repo, tasksRepo, runner, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	require.ElementsMatch(t, []int64{1}, s.ScheduledTaskIDs())

	tasksRepo.tasks = append(tasksRepo.tasks, &domain.EmailTask{
		ID: 2, CronExpression: "30 6 * * *", Enabled: true,
	})
	require.NoError(t, s.Reload(context.Background()))
	require.ElementsMatch(t, []int64{1, 2}, s.ScheduledTaskIDs())
}
