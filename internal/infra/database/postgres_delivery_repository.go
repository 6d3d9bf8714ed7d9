// internal/infra/database/postgres_delivery_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"outreach_automation/internal/domain/delivery"
)

// ErrDraftNotFound is returned when no draft matches the given key.
var ErrDraftNotFound = fmt.Errorf("draft not found")

// PostgresDeliveryRepository persists delivery receipts, generated drafts and
// the dispatch-job dedup rows. It implements delivery.ReceiptRepository,
// delivery.DraftStore and delivery.DedupStore.
type PostgresDeliveryRepository struct {
	db *sql.DB
}

func NewPostgresDeliveryRepository(db *sql.DB) *PostgresDeliveryRepository {
	return &PostgresDeliveryRepository{db: db}
}

// --- Receipt methods ---

func (r *PostgresDeliveryRepository) CountSentBetween(ctx context.Context, campaignID string, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*)
               FROM sent_emails se
               JOIN campaign_leads cl ON cl.id = se.campaign_lead_id
               WHERE cl.campaign_id = $1 AND se.sent_at >= $2 AND se.sent_at < $3`
	var n int
	if err := r.db.QueryRowContext(ctx, query, campaignID, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting sent emails in window: %w", err)
	}
	return n, nil
}

func (r *PostgresDeliveryRepository) Exists(ctx context.Context, campaignLeadID string, slot int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM sent_emails WHERE campaign_lead_id = $1 AND scheduled_slot = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, campaignLeadID, slot).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking sent email existence: %w", err)
	}
	return exists, nil
}

// CommitSend records a delivery receipt and bumps the lead's counters in one
// transaction. The ON CONFLICT DO NOTHING insert against the
// (campaign_lead_id, scheduled_slot) uniqueness constraint is the sole source
// of idempotency: when the insert loses the race, the counters stay untouched
// and the call reports false.
func (r *PostgresDeliveryRepository) CommitSend(ctx context.Context, campaignLeadID string, slot int, sentAt time.Time) (bool, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction for send commit: %w", err)
	}
	defer txn.Rollback()

	res, err := txn.ExecContext(ctx, `INSERT INTO sent_emails (campaign_lead_id, scheduled_slot, sent_at)
               VALUES ($1, $2, $3)
               ON CONFLICT (campaign_lead_id, scheduled_slot) DO NOTHING`,
		campaignLeadID, slot, sentAt)
	if err != nil {
		return false, fmt.Errorf("error inserting sent email: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected for sent email insert: %w", err)
	}
	if inserted == 0 {
		// Another delivery already committed this slot.
		return false, txn.Commit()
	}

	_, err = txn.ExecContext(ctx, `UPDATE campaign_leads
               SET emails_sent_count = emails_sent_count + 1, last_sent_at = $2
               WHERE id = $1`,
		campaignLeadID, sentAt)
	if err != nil {
		return false, fmt.Errorf("error updating campaign lead counters: %w", err)
	}

	if err := txn.Commit(); err != nil {
		return false, fmt.Errorf("error committing send transaction: %w", err)
	}
	return true, nil
}

func (r *PostgresDeliveryRepository) CountReceipts(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sent_emails`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting sent emails: %w", err)
	}
	return n, nil
}

// --- Draft methods ---

const draftColumns = `id, campaign_id, scheduled_slot, subject, body_html, approved, created_at`

func scanDraft(row interface{ Scan(...any) error }) (*delivery.Draft, error) {
	d := delivery.Draft{}
	err := row.Scan(&d.ID, &d.CampaignID, &d.ScheduledSlot, &d.Subject, &d.BodyHTML, &d.Approved, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresDeliveryRepository) GetBySlot(ctx context.Context, campaignID string, slot int) (*delivery.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM generated_emails
               WHERE campaign_id = $1 AND scheduled_slot = $2
               ORDER BY created_at DESC LIMIT 1`
	d, err := scanDraft(r.db.QueryRowContext(ctx, query, campaignID, slot))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDraftNotFound
		}
		return nil, fmt.Errorf("error getting draft by slot: %w", err)
	}
	return d, nil
}

func (r *PostgresDeliveryRepository) Upsert(ctx context.Context, d *delivery.Draft) error {
	query := `INSERT INTO generated_emails (id, campaign_id, scheduled_slot, subject, body_html, approved)
               VALUES ($1, $2, $3, $4, $5, $6)
               ON CONFLICT (campaign_id, scheduled_slot) DO UPDATE
               SET subject = EXCLUDED.subject, body_html = EXCLUDED.body_html
               RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, d.ID, d.CampaignID, d.ScheduledSlot, d.Subject, d.BodyHTML, d.Approved).
		Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("error upserting draft: %w", err)
	}
	return nil
}

func (r *PostgresDeliveryRepository) ListByCampaign(ctx context.Context, campaignID string) ([]*delivery.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM generated_emails
               WHERE campaign_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("error listing drafts: %w", err)
	}
	defer rows.Close()

	drafts := make([]*delivery.Draft, 0)
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning draft: %w", err)
		}
		drafts = append(drafts, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drafts: %w", err)
	}
	return drafts, nil
}

func (r *PostgresDeliveryRepository) Approve(ctx context.Context, campaignID, draftID string) error {
	query := `UPDATE generated_emails SET approved = TRUE WHERE id = $1 AND campaign_id = $2`
	res, err := r.db.ExecContext(ctx, query, draftID, campaignID)
	if err != nil {
		return fmt.Errorf("error approving draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading rows affected for draft approval: %w", err)
	}
	if affected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// --- Dispatch-job dedup methods ---

// Reserve claims a pending job id. It returns false when the id is already
// pending, which makes re-enqueuing the same logical job a no-op.
func (r *PostgresDeliveryRepository) Reserve(ctx context.Context, jobID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO dispatch_jobs (job_id) VALUES ($1) ON CONFLICT (job_id) DO NOTHING`, jobID)
	if err != nil {
		return false, fmt.Errorf("error reserving dispatch job %s: %w", jobID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading rows affected for dispatch job reservation: %w", err)
	}
	return inserted == 1, nil
}

// Release frees a job id once the job has been acknowledged, allowing a later
// scheduler pass to enqueue the same slot again.
func (r *PostgresDeliveryRepository) Release(ctx context.Context, jobID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dispatch_jobs WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("error releasing dispatch job %s: %w", jobID, err)
	}
	return nil
}
