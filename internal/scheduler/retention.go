package scheduler

import (
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/libraria-al/libraria/internal/tasks"
)

// RetentionScheduler periodically enqueues the access-event cleanup task.
// The deletion itself runs on the task queue so a slow prune never blocks
// the scheduler.
type RetentionScheduler struct {
	taskClient    *tasks.Client
	retentionDays int

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
}

func NewRetentionScheduler(taskClient *tasks.Client, retentionDays int) *RetentionScheduler {
	return &RetentionScheduler{
		taskClient:    taskClient,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

func (s *RetentionScheduler) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		task := tasks.CleanupAccessEventsTask{RetentionDays: s.retentionDays}
		if _, err := s.taskClient.Add(task).Save(); err != nil {
			log.Printf("Failed to enqueue access event cleanup: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Retention scheduler started with schedule %q", schedule)
	return nil
}

func (s *RetentionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false
	log.Printf("Retention scheduler stopped")
}
