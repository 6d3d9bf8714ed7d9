// internal/app/campaign_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"outreach_automation/internal/domain/campaign"
	"outreach_automation/internal/domain/delivery"
	"outreach_automation/internal/domain/lead"

	"github.com/sirupsen/logrus"
)

// OverviewStats is a small dashboard summary.
type OverviewStats struct {
	Campaigns   int       `json:"campaigns"`
	Leads       int       `json:"leads"`
	SentEmails  int       `json:"sentEmails"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// CampaignService covers the externally driven lifecycle transitions and the
// draft approval flow. The scheduler owns the only internal transition
// (ACTIVE -> COMPLETED).
type CampaignService struct {
	campaignRepo campaign.Repository
	leadRepo     lead.Repository
	receiptRepo  delivery.ReceiptRepository
	draftStore   delivery.DraftStore
	logger       *logrus.Logger
}

func NewCampaignService(
	campaignRepo campaign.Repository,
	leadRepo lead.Repository,
	receiptRepo delivery.ReceiptRepository,
	draftStore delivery.DraftStore,
	logger *logrus.Logger,
) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		leadRepo:     leadRepo,
		receiptRepo:  receiptRepo,
		draftStore:   draftStore,
		logger:       logger,
	}
}

// ChangeStatus applies an external lifecycle transition. Terminal campaigns
// reject any further change with ErrTerminalState, and COMPLETED is reserved
// for the scheduler once the campaign duration has elapsed.
func (s *CampaignService) ChangeStatus(ctx context.Context, id string, next campaign.Status) (*campaign.Campaign, error) {
	if next == campaign.StatusCompleted {
		return nil, fmt.Errorf("%w: campaigns complete on their own once the duration elapses", campaign.ErrInvalidTransition)
	}
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.TransitionTo(next); err != nil {
		return nil, err
	}
	if err := s.campaignRepo.UpdateStatus(ctx, c.ID, next); err != nil {
		return nil, fmt.Errorf("failed to persist status of campaign %s: %w", c.ID, err)
	}
	s.logger.Infof("campaigns: campaign %s transitioned to %s", c.ID, next)
	return c, nil
}

// ListDrafts returns every generated draft of a campaign.
func (s *CampaignService) ListDrafts(ctx context.Context, campaignID string) ([]*delivery.Draft, error) {
	if _, err := s.campaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.draftStore.ListByCampaign(ctx, campaignID)
}

// ApproveDraft marks a draft as approved, allowing the delivery worker to send it.
func (s *CampaignService) ApproveDraft(ctx context.Context, campaignID, draftID string) error {
	if _, err := s.campaignRepo.GetByID(ctx, campaignID); err != nil {
		return err
	}
	if err := s.draftStore.Approve(ctx, campaignID, draftID); err != nil {
		return err
	}
	s.logger.Infof("campaigns: draft %s of campaign %s approved", draftID, campaignID)
	return nil
}

// Overview returns aggregate counts for the dashboard.
func (s *CampaignService) Overview(ctx context.Context) (*OverviewStats, error) {
	campaigns, err := s.campaignRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count campaigns: %w", err)
	}
	leads, err := s.leadRepo.CountLeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	receipts, err := s.receiptRepo.CountReceipts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sent emails: %w", err)
	}
	return &OverviewStats{
		Campaigns:   campaigns,
		Leads:       leads,
		SentEmails:  receipts,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
