package services

import (
	"context"
	"time"

	"github.com/madflojo/tasks"
	"go.uber.org/zap"
)

type SchedulerService interface {
	DropTask(taskID string)
	// ScheduleAt runs fn once at the given time, replacing any task with the same id.
	ScheduleAt(taskID string, at time.Time, fn func(ctx context.Context) error) error
	// ScheduleEvery runs fn on a fixed interval, replacing any task with the same id.
	// A run that outlasts the interval delays the next one instead of overlapping it.
	ScheduleEvery(taskID string, interval time.Duration, fn func(ctx context.Context) error) error
	Scheduled(taskID string) bool
	Stop()
}

func NewSchedulerService(scheduler *tasks.Scheduler, log *zap.Logger) SchedulerService {
	return &schedulerService{
		service:   newService(nil, log),
		scheduler: scheduler,
	}
}

type schedulerService struct {
	service
	scheduler *tasks.Scheduler
}

func (s *schedulerService) DropTask(taskID string) {
	s.scheduler.Del(taskID)
}

func (s *schedulerService) ScheduleAt(taskID string, at time.Time, fn func(ctx context.Context) error) error {
	s.scheduler.Del(taskID)
	return s.scheduler.AddWithID(taskID, &tasks.Task{
		TaskContext: tasks.TaskContext{Context: context.Background()},
		RunOnce:     true,
		Interval:    time.Second,
		StartAfter:  at,
		FuncWithTaskContext: func(t tasks.TaskContext) error {
			return s.run(taskID, t.Context, fn)
		},
	})
}

func (s *schedulerService) ScheduleEvery(taskID string, interval time.Duration, fn func(ctx context.Context) error) error {
	s.scheduler.Del(taskID)
	return s.scheduler.AddWithID(taskID, &tasks.Task{
		TaskContext:       tasks.TaskContext{Context: context.Background()},
		Interval:          interval,
		RunSingleInstance: true,
		FuncWithTaskContext: func(t tasks.TaskContext) error {
			return s.run(taskID, t.Context, fn)
		},
		ErrFuncWithTaskContext: func(t tasks.TaskContext, err error) {
			s.log.Error("scheduled task failed", zap.String("task_id", taskID), zap.Error(err))
		},
	})
}

func (s *schedulerService) Scheduled(taskID string) bool {
	_, ok := s.scheduler.Tasks()[taskID]
	return ok
}

func (s *schedulerService) Stop() {
	s.scheduler.Stop()
}

func (s *schedulerService) run(taskID string, ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(ctx); err != nil {
		s.log.Error("running scheduled task", zap.String("task_id", taskID), zap.Error(err))
		return err
	}
	return nil
}
