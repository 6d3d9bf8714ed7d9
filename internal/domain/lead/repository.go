package lead

import "context"

// Repository defines persistence operations for leads and their campaign
// enrollments.
type Repository interface {
	CreateLead(ctx context.Context, l *Lead) error
	GetLead(ctx context.Context, id string) (*Lead, error)
	GetLeadByEmail(ctx context.Context, email string) (*Lead, error)

	CreateCampaignLead(ctx context.Context, cl *CampaignLead) error
	GetCampaignLead(ctx context.Context, id string) (*CampaignLead, error)
	FindCampaignLead(ctx context.Context, campaignID, leadID string) (*CampaignLead, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]*CampaignLead, error)

	CountLeads(ctx context.Context) (int, error)
}
