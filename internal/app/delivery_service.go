// internal/app/delivery_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach_automation/internal/domain/delivery"
	"outreach_automation/internal/domain/lead"
	idb "outreach_automation/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// DeliveryService consumes dispatch jobs and guarantees the underlying lead
// receives at most one email per (campaignLead, slot) pair, even when the
// queue redelivers. It never mutates campaign status.
type DeliveryService struct {
	leadRepo    lead.Repository
	receiptRepo delivery.ReceiptRepository
	resolver    delivery.DraftResolver
	mailer      delivery.Mailer
	logger      *logrus.Logger
	now         func() time.Time
}

func NewDeliveryService(
	leadRepo lead.Repository,
	receiptRepo delivery.ReceiptRepository,
	resolver delivery.DraftResolver,
	mailer delivery.Mailer,
	logger *logrus.Logger,
) *DeliveryService {
	return &DeliveryService{
		leadRepo:    leadRepo,
		receiptRepo: receiptRepo,
		resolver:    resolver,
		mailer:      mailer,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ProcessJob handles one dispatch job. A nil or permanent error acknowledges
// the job; any other error lets the queue redeliver with backoff.
func (s *DeliveryService) ProcessJob(ctx context.Context, job delivery.DispatchJob) error {
	cl, err := s.leadRepo.GetCampaignLead(ctx, job.CampaignLeadID)
	if err != nil {
		if errors.Is(err, idb.ErrCampaignLeadNotFound) {
			s.logger.Warnf("delivery: campaign lead %s not found, dropping job %s", job.CampaignLeadID, job.ID())
			return delivery.Permanent(err)
		}
		return fmt.Errorf("failed to load campaign lead %s: %w", job.CampaignLeadID, err)
	}

	// Cheap pre-check; the uniqueness constraint inside CommitSend is the real
	// guard against concurrent redeliveries.
	sent, err := s.receiptRepo.Exists(ctx, cl.ID, job.ScheduledSlot)
	if err != nil {
		return fmt.Errorf("failed to check receipt for job %s: %w", job.ID(), err)
	}
	if sent {
		s.logger.Infof("delivery: slot %d already sent for campaign lead %s", job.ScheduledSlot, cl.ID)
		return nil
	}

	draft, err := s.resolver.ResolveOrGenerate(ctx, job.CampaignID, job.ScheduledSlot, cl.LeadID)
	if err != nil {
		if errors.Is(err, idb.ErrCampaignNotFound) {
			s.logger.Warnf("delivery: campaign %s not found, dropping job %s", job.CampaignID, job.ID())
			return delivery.Permanent(err)
		}
		return fmt.Errorf("failed to resolve draft for job %s: %w", job.ID(), err)
	}
	if !draft.Approved {
		// Not a failure. The slot stays open and the next eligible day's pass
		// enqueues the same job id again.
		s.logger.Infof("delivery: draft for campaign %s slot %d not approved, dropping job", job.CampaignID, job.ScheduledSlot)
		return nil
	}

	l, err := s.leadRepo.GetLead(ctx, cl.LeadID)
	if err != nil {
		if errors.Is(err, idb.ErrLeadNotFound) {
			s.logger.Warnf("delivery: lead %s not found, dropping job %s", cl.LeadID, job.ID())
			return delivery.Permanent(err)
		}
		return fmt.Errorf("failed to load lead %s: %w", cl.LeadID, err)
	}

	messageID, err := s.mailer.Send(ctx, l.Email, draft.Subject, draft.BodyHTML)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", l.Email, err)
	}
	s.logger.Infof("delivery: email sent to %s (message id %s)", l.Email, messageID)

	inserted, err := s.receiptRepo.CommitSend(ctx, cl.ID, job.ScheduledSlot, s.now())
	if err != nil {
		return fmt.Errorf("failed to commit receipt for job %s: %w", job.ID(), err)
	}
	if !inserted {
		s.logger.Infof("delivery: receipt for job %s already committed by another delivery", job.ID())
	}
	return nil
}
