// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AhasnaCharumee/BookMate/internal/config"
	"github.com/AhasnaCharumee/BookMate/internal/tasks"
)

// AuditCleanupScheduler periodically enqueues audit event cleanup tasks.
type AuditCleanupScheduler struct {
	client *tasks.Client
	config config.Audit

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewAuditCleanupScheduler creates a new scheduler instance.
func NewAuditCleanupScheduler(client *tasks.Client, cfg config.Audit) *AuditCleanupScheduler {
	return &AuditCleanupScheduler{
		client: client,
		config: cfg,
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *AuditCleanupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.config.CleanupSchedule == "" {
		log.Printf("Audit cleanup scheduler: no schedule configured, skipping")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.CleanupSchedule, func() {
		s.enqueueCleanup()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule audit cleanup job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Audit cleanup scheduler: started with schedule '%s', retaining %d days of events",
		s.config.CleanupSchedule, s.config.RetentionDays)

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *AuditCleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Audit cleanup scheduler: stopped")
}

// RunNow triggers an immediate cleanup.
func (s *AuditCleanupScheduler) RunNow() {
	s.enqueueCleanup()
}

// IsRunning returns whether the scheduler is active.
func (s *AuditCleanupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next cleanup will be enqueued.
func (s *AuditCleanupScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *AuditCleanupScheduler) enqueueCleanup() {
	_, err := s.client.Add(tasks.CleanupAuditEventsTask{
		RetentionDays: s.config.RetentionDays,
	}).Save()
	if err != nil {
		log.Printf("Audit cleanup: failed to enqueue task: %v", err)
		return
	}
	log.Printf("Audit cleanup: task enqueued")
}
