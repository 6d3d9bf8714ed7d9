package scheduler

import (
	"context"
	"time"

	"outreach_automation/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const tickTimeout = 1 * time.Minute

// AutomationScheduler drives the recurring scheduling pass. Each cron tick
// runs one SchedulerService evaluation over all due campaigns; overlapping
// runs (cron plus a manual trigger) are safe because the dispatch queue
// deduplicates job ids.
type AutomationScheduler struct {
	cronEngine   *cron.Cron
	schedulerSvc *app.SchedulerService
	logger       *logrus.Logger
	cronSpecTick string
}

func NewAutomationScheduler(
	schedulerSvc *app.SchedulerService,
	logger *logrus.Logger,
	cronSpecTick string, // e.g., "* * * * *" (every minute)
) *AutomationScheduler {
	return &AutomationScheduler{
		cronEngine:   cron.New(cron.WithLocation(time.UTC)),
		schedulerSvc: schedulerSvc,
		logger:       logger,
		cronSpecTick: cronSpecTick,
	}
}

func (s *AutomationScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpecTick, func() {
		ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
		defer cancel()

		result, err := s.schedulerSvc.EvaluateAll(ctx, time.Now().UTC())
		if err != nil {
			s.logger.Errorf("scheduler: tick failed: %v", err)
			return
		}
		if result.EnqueuedJobs > 0 {
			s.logger.Infof("scheduler: tick processed %d campaigns, enqueued %d jobs", result.ProcessedCampaigns, result.EnqueuedJobs)
		} else {
			s.logger.Debugf("scheduler: tick processed %d campaigns, nothing to enqueue", result.ProcessedCampaigns)
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Infof("scheduler: started with tick spec %q", s.cronSpecTick)
	return nil
}

func (s *AutomationScheduler) Stop() {
	s.logger.Info("scheduler: stopping...")
	ctx := s.cronEngine.Stop() // Waits for running jobs.
	<-ctx.Done()
	s.logger.Info("scheduler: stopped")
}
