// internal/app/scheduler_service.go
package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"outreach_automation/internal/domain/campaign"
	"outreach_automation/internal/domain/delivery"
	"outreach_automation/internal/domain/lead"

	"github.com/sirupsen/logrus"
)

// ErrCampaignNotActive is returned when a manual trigger targets a campaign
// that is not in the ACTIVE state.
var ErrCampaignNotActive = fmt.Errorf("only active campaigns can be triggered")

// EvaluationResult summarizes one scheduling pass.
type EvaluationResult struct {
	ProcessedCampaigns int       `json:"processedCampaigns"`
	EnqueuedJobs       int       `json:"enqueuedJobs"`
	CheckedAt          time.Time `json:"checkedAt"`
}

// SchedulerService runs the per-tick admission-control pass. It is pure with
// respect to sends: it only reads store state and enqueues jobs, or flips a
// campaign to COMPLETED once its duration has elapsed. Overlapping passes are
// safe because job ids are deterministic and the queue deduplicates by id;
// the service holds no locks.
type SchedulerService struct {
	campaignRepo campaign.Repository
	leadRepo     lead.Repository
	receiptRepo  delivery.ReceiptRepository
	queue        delivery.Queue
	notifier     delivery.Notifier
	logger       *logrus.Logger
}

func NewSchedulerService(
	campaignRepo campaign.Repository,
	leadRepo lead.Repository,
	receiptRepo delivery.ReceiptRepository,
	queue delivery.Queue,
	notifier delivery.Notifier,
	logger *logrus.Logger,
) *SchedulerService {
	return &SchedulerService{
		campaignRepo: campaignRepo,
		leadRepo:     leadRepo,
		receiptRepo:  receiptRepo,
		queue:        queue,
		notifier:     notifier,
		logger:       logger,
	}
}

// EvaluateAll runs one scheduling pass over every due campaign. An error
// evaluating one campaign is logged and does not abort the rest of the pass.
func (s *SchedulerService) EvaluateAll(ctx context.Context, now time.Time) (*EvaluationResult, error) {
	due, err := s.campaignRepo.ListDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due campaigns: %w", err)
	}

	result := &EvaluationResult{ProcessedCampaigns: len(due), CheckedAt: now}
	for _, c := range due {
		enqueued, err := s.evaluateCampaign(ctx, now, c)
		if err != nil {
			s.logger.Errorf("scheduler: evaluation of campaign %s failed: %v", c.ID, err)
			continue
		}
		result.EnqueuedJobs += enqueued
	}
	return result, nil
}

// EvaluateOne runs a scheduling pass for a single campaign, used by the manual
// trigger endpoint and once after campaign creation.
func (s *SchedulerService) EvaluateOne(ctx context.Context, now time.Time, campaignID string) (*EvaluationResult, error) {
	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != campaign.StatusActive {
		return nil, ErrCampaignNotActive
	}

	enqueued, err := s.evaluateCampaign(ctx, now, c)
	if err != nil {
		return nil, err
	}
	return &EvaluationResult{ProcessedCampaigns: 1, EnqueuedJobs: enqueued, CheckedAt: now}, nil
}

// evaluateCampaign applies the admission-control rules for one campaign and
// enqueues dispatch jobs for the leads allowed to be emailed today.
func (s *SchedulerService) evaluateCampaign(ctx context.Context, now time.Time, c *campaign.Campaign) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return 0, &campaign.ValidationError{Field: "timezone", Reason: err.Error()}
	}
	localNow := now.In(loc)

	offset := campaign.DayOffset(c.StartDateUTC, now, loc)
	if offset < 0 {
		s.logger.Debugf("scheduler: campaign %s has not started yet (day offset %d)", c.ID, offset)
		return 0, nil
	}
	if offset > c.DurationDays {
		return 0, s.completeCampaign(ctx, c, offset)
	}

	if !c.ShouldSendOn(int(localNow.Weekday())) {
		s.logger.Debugf("scheduler: campaign %s does not send on weekday %d", c.ID, int(localNow.Weekday()))
		return 0, nil
	}
	dailyLimit := c.DailyLimit()
	if dailyLimit <= 0 {
		return 0, nil
	}

	// Today's quota consumption is always recomputed from receipts, never from
	// an in-memory counter, so replicas and restarts cannot drift.
	dayStart, dayEnd := campaign.CivilDayWindowUTC(now, loc)
	sentToday, err := s.receiptRepo.CountSentBetween(ctx, c.ID, dayStart, dayEnd)
	if err != nil {
		return 0, fmt.Errorf("failed to count receipts for campaign %s: %w", c.ID, err)
	}
	available := dailyLimit - sentToday
	if available <= 0 {
		s.logger.Debugf("scheduler: campaign %s exhausted its daily quota (%d/%d)", c.ID, sentToday, dailyLimit)
		return 0, nil
	}

	enrolled, err := s.leadRepo.ListByCampaign(ctx, c.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list leads for campaign %s: %w", c.ID, err)
	}
	eligible := selectEligibleLeads(enrolled, c, localNow, loc)
	if len(eligible) > available {
		eligible = eligible[:available]
	}

	enqueued := 0
	for _, cl := range eligible {
		job := delivery.DispatchJob{
			CampaignID:     c.ID,
			CampaignLeadID: cl.ID,
			ScheduledSlot:  cl.EmailsSentCount,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.logger.Errorf("scheduler: failed to enqueue job %s: %v", job.ID(), err)
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		s.logger.Infof("scheduler: campaign %s enqueued %d jobs (sent today %d, limit %d)", c.ID, enqueued, sentToday, dailyLimit)
	}
	return enqueued, nil
}

// selectEligibleLeads filters enrollments that may still be emailed today and
// orders them least-recently-contacted first, never-contacted leads ahead of
// everyone.
func selectEligibleLeads(enrolled []*lead.CampaignLead, c *campaign.Campaign, localNow time.Time, loc *time.Location) []*lead.CampaignLead {
	eligible := make([]*lead.CampaignLead, 0, len(enrolled))
	for _, cl := range enrolled {
		if cl.EmailsSentCount >= c.DurationDays {
			continue
		}
		if cl.LastSentAt.Valid && campaign.SameCivilDay(cl.LastSentAt.Time, localNow, loc) {
			continue
		}
		eligible = append(eligible, cl)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i].LastSentAt, eligible[j].LastSentAt
		if !a.Valid {
			return b.Valid
		}
		if !b.Valid {
			return false
		}
		return a.Time.Before(b.Time)
	})
	return eligible
}

// completeCampaign performs the one scheduler-driven lifecycle transition.
func (s *SchedulerService) completeCampaign(ctx context.Context, c *campaign.Campaign, offset int) error {
	if err := c.TransitionTo(campaign.StatusCompleted); err != nil {
		return fmt.Errorf("failed to complete campaign %s: %w", c.ID, err)
	}
	if err := s.campaignRepo.UpdateStatus(ctx, c.ID, campaign.StatusCompleted); err != nil {
		return fmt.Errorf("failed to persist completion of campaign %s: %w", c.ID, err)
	}
	s.logger.Infof("scheduler: campaign %s completed (day offset %d exceeds duration %d)", c.ID, offset, c.DurationDays)
	if s.notifier != nil {
		s.notifier.CampaignCompleted(c.ID, c.Name)
	}
	return nil
}
