package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"CharityFund/internal/fund"
	"CharityFund/internal/notifier"

	"github.com/robfig/cron/v3"
)

// Sender delivers a text message to operators.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Fund     *fund.Manager
	Notifier Sender
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, fm *fund.Manager, sender Sender) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Fund:     fm,
		Notifier: sender,
		Ctx:      ctx,
	}
}

// RegisterAll registers the snapshot and report tasks.
func (s *Scheduler) RegisterAll(snapshotCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(snapshotCron, s.snapshotTask); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

func (s *Scheduler) snapshotTask() {
	sum, err := s.Fund.RecordSnapshot(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] funding snapshot: %v", err)
		return
	}
	log.Printf("[INFO] funding snapshot: %d/%d projects open, %d unallocated",
		sum.ProjectsOpen, sum.ProjectsTotal, sum.UnallocatedAmount)
}

func (s *Scheduler) reportTask() {
	log.Println("[INFO] running summary report")
	sum, err := s.Fund.Summary(s.Ctx)
	if err != nil {
		log.Printf("[ERROR] summary report: %v", err)
		s.trySend(fmt.Sprintf("❌ Summary report failed: %v", err))
		return
	}
	s.trySend(notifier.FormatSummary(sum))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/summary":
		sum, err := s.Fund.Summary(s.Ctx)
		if err != nil {
			log.Printf("[ERROR] /summary: %v", err)
			return "❌ Could not load summary"
		}
		return notifier.FormatSummary(sum)
	case "/open":
		projects, err := s.Fund.ListProjects(s.Ctx)
		if err != nil {
			log.Printf("[ERROR] /open: %v", err)
			return "❌ Could not load projects"
		}
		return notifier.FormatOpenProjects(projects, time.Now())
	default:
		return "Available commands:\n• /summary\n• /open"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
