// internal/infra/database/postgres_lead_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"outreach_automation/internal/domain/lead"
)

// Custom errors specific to lead persistence.
var ErrLeadNotFound = fmt.Errorf("lead not found")
var ErrCampaignLeadNotFound = fmt.Errorf("campaign lead not found")
var ErrDuplicateEnrollment = fmt.Errorf("lead is already enrolled in this campaign")

type PostgresLeadRepository struct {
	db *sql.DB
}

func NewPostgresLeadRepository(db *sql.DB) *PostgresLeadRepository {
	return &PostgresLeadRepository{db: db}
}

func (r *PostgresLeadRepository) CreateLead(ctx context.Context, l *lead.Lead) error {
	query := `INSERT INTO leads (id, email) VALUES ($1, $2) RETURNING created_at`
	if err := r.db.QueryRowContext(ctx, query, l.ID, l.Email).Scan(&l.CreatedAt); err != nil {
		return fmt.Errorf("error creating lead: %w", err)
	}
	return nil
}

func (r *PostgresLeadRepository) GetLead(ctx context.Context, id string) (*lead.Lead, error) {
	query := `SELECT id, email, created_at FROM leads WHERE id = $1`
	l := &lead.Lead{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&l.ID, &l.Email, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("error getting lead by ID: %w", err)
	}
	return l, nil
}

func (r *PostgresLeadRepository) GetLeadByEmail(ctx context.Context, email string) (*lead.Lead, error) {
	query := `SELECT id, email, created_at FROM leads WHERE email = $1`
	l := &lead.Lead{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(&l.ID, &l.Email, &l.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("error getting lead by email: %w", err)
	}
	return l, nil
}

func (r *PostgresLeadRepository) CreateCampaignLead(ctx context.Context, cl *lead.CampaignLead) error {
	query := `INSERT INTO campaign_leads (id, campaign_id, lead_id, emails_sent_count)
               VALUES ($1, $2, $3, 0)
               RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, cl.ID, cl.CampaignID, cl.LeadID).Scan(&cl.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "campaign_leads_campaign_id_lead_id_key") {
			return ErrDuplicateEnrollment
		}
		return fmt.Errorf("error creating campaign lead: %w", err)
	}
	return nil
}

func scanCampaignLead(row interface{ Scan(...any) error }) (*lead.CampaignLead, error) {
	cl := lead.CampaignLead{}
	err := row.Scan(&cl.ID, &cl.CampaignID, &cl.LeadID, &cl.EmailsSentCount, &cl.LastSentAt, &cl.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cl, nil
}

const campaignLeadColumns = `id, campaign_id, lead_id, emails_sent_count, last_sent_at, created_at`

func (r *PostgresLeadRepository) GetCampaignLead(ctx context.Context, id string) (*lead.CampaignLead, error) {
	query := `SELECT ` + campaignLeadColumns + ` FROM campaign_leads WHERE id = $1`
	cl, err := scanCampaignLead(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCampaignLeadNotFound
		}
		return nil, fmt.Errorf("error getting campaign lead by ID: %w", err)
	}
	return cl, nil
}

func (r *PostgresLeadRepository) FindCampaignLead(ctx context.Context, campaignID, leadID string) (*lead.CampaignLead, error) {
	query := `SELECT ` + campaignLeadColumns + ` FROM campaign_leads
               WHERE campaign_id = $1 AND lead_id = $2`
	cl, err := scanCampaignLead(r.db.QueryRowContext(ctx, query, campaignID, leadID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCampaignLeadNotFound
		}
		return nil, fmt.Errorf("error finding campaign lead: %w", err)
	}
	return cl, nil
}

func (r *PostgresLeadRepository) ListByCampaign(ctx context.Context, campaignID string) ([]*lead.CampaignLead, error) {
	query := `SELECT ` + campaignLeadColumns + ` FROM campaign_leads
               WHERE campaign_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("error listing campaign leads: %w", err)
	}
	defer rows.Close()

	leads := make([]*lead.CampaignLead, 0)
	for rows.Next() {
		cl, err := scanCampaignLead(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning campaign lead: %w", err)
		}
		leads = append(leads, cl)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaign leads: %w", err)
	}
	return leads, nil
}

func (r *PostgresLeadRepository) CountLeads(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting leads: %w", err)
	}
	return n, nil
}
