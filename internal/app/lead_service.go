// internal/app/lead_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"outreach_automation/internal/domain/campaign"
	"outreach_automation/internal/domain/lead"
	idb "outreach_automation/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNoEmails is returned when an enrollment request contains no addresses.
var ErrNoEmails = fmt.Errorf("provide at least one lead email")

// LeadService enrolls leads into campaigns. Leads are shared across campaigns
// and found or created by email address.
type LeadService struct {
	campaignRepo campaign.Repository
	leadRepo     lead.Repository
	logger       *logrus.Logger
}

func NewLeadService(campaignRepo campaign.Repository, leadRepo lead.Repository, logger *logrus.Logger) *LeadService {
	return &LeadService{campaignRepo: campaignRepo, leadRepo: leadRepo, logger: logger}
}

// Enroll ensures a CampaignLead exists for every given email address. Already
// enrolled pairs are returned as-is.
func (s *LeadService) Enroll(ctx context.Context, campaignID string, emails []string) ([]*lead.CampaignLead, error) {
	if len(emails) == 0 {
		return nil, ErrNoEmails
	}
	if _, err := s.campaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(emails))
	enrolled := make([]*lead.CampaignLead, 0, len(emails))
	for _, raw := range emails {
		email := strings.ToLower(strings.TrimSpace(raw))
		if email == "" || seen[email] {
			continue
		}
		seen[email] = true

		cl, err := s.enrollOne(ctx, campaignID, email)
		if err != nil {
			return nil, err
		}
		enrolled = append(enrolled, cl)
	}
	s.logger.Infof("leads: %d enrollments ensured for campaign %s", len(enrolled), campaignID)
	return enrolled, nil
}

func (s *LeadService) enrollOne(ctx context.Context, campaignID, email string) (*lead.CampaignLead, error) {
	l, err := s.leadRepo.GetLeadByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, idb.ErrLeadNotFound) {
			return nil, fmt.Errorf("failed to look up lead %s: %w", email, err)
		}
		l = &lead.Lead{ID: uuid.NewString(), Email: email}
		if err := s.leadRepo.CreateLead(ctx, l); err != nil {
			return nil, fmt.Errorf("failed to create lead %s: %w", email, err)
		}
	}

	existing, err := s.leadRepo.FindCampaignLead(ctx, campaignID, l.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, idb.ErrCampaignLeadNotFound) {
		return nil, fmt.Errorf("failed to look up enrollment for lead %s: %w", email, err)
	}

	cl := &lead.CampaignLead{ID: uuid.NewString(), CampaignID: campaignID, LeadID: l.ID}
	if err := s.leadRepo.CreateCampaignLead(ctx, cl); err != nil {
		if errors.Is(err, idb.ErrDuplicateEnrollment) {
			// A concurrent enrollment won the insert race; reuse its row.
			return s.leadRepo.FindCampaignLead(ctx, campaignID, l.ID)
		}
		return nil, fmt.Errorf("failed to enroll lead %s: %w", email, err)
	}
	return cl, nil
}
