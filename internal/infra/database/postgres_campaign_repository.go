// internal/infra/database/postgres_campaign_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"outreach_automation/internal/domain/campaign"

	"github.com/lib/pq" // For pq.Int64Array and driver registration
)

// ErrCampaignNotFound is returned when no campaign matches the given id.
var ErrCampaignNotFound = fmt.Errorf("campaign not found")

type PostgresCampaignRepository struct {
	db *sql.DB
}

func NewPostgresCampaignRepository(db *sql.DB) *PostgresCampaignRepository {
	return &PostgresCampaignRepository{db: db}
}

const campaignColumns = `id, name, model, context, status, schedule_type, daily_emails,
               weekly_days, weekly_emails_per_day, duration_days, start_date_utc, timezone,
               created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*campaign.Campaign, error) {
	c := campaign.Campaign{}
	var weeklyDays pq.Int64Array
	err := row.Scan(
		&c.ID, &c.Name, &c.Model, &c.Context, &c.Status, &c.ScheduleType, &c.DailyEmails,
		&weeklyDays, &c.WeeklyEmailsPerDay, &c.DurationDays, &c.StartDateUTC, &c.Timezone,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.WeeklyDays = make([]int, 0, len(weeklyDays))
	for _, d := range weeklyDays {
		c.WeeklyDays = append(c.WeeklyDays, int(d))
	}
	return &c, nil
}

func (r *PostgresCampaignRepository) GetByID(ctx context.Context, id string) (*campaign.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	c, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("error getting campaign by ID: %w", err)
	}
	return c, nil
}

func (r *PostgresCampaignRepository) ListDue(ctx context.Context, now time.Time) ([]*campaign.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
               WHERE status = $1 AND start_date_utc <= $2
               ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, campaign.StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("error listing due campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]*campaign.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning due campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *PostgresCampaignRepository) UpdateStatus(ctx context.Context, id string, status campaign.Status) error {
	query := `UPDATE campaigns SET status = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("error updating campaign status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected for campaign status update: %w", err)
	}
	if affected == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

func (r *PostgresCampaignRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting campaigns: %w", err)
	}
	return n, nil
}
