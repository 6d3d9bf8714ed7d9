// internal/domain/delivery/ports.go
package delivery

import (
	"context"
	"time"
)

// Mailer transmits one message to an address and returns a transport message
// id. Implementations block on I/O and honor ctx where the transport allows.
type Mailer interface {
	Send(ctx context.Context, to, subject, bodyHTML string) (string, error)
}

// DraftResolver produces or retrieves the message body for a (campaign, slot)
// pair. Newly generated drafts start unapproved.
type DraftResolver interface {
	ResolveOrGenerate(ctx context.Context, campaignID string, slot int, leadID string) (*Draft, error)
}

// DraftStore persists generated drafts keyed by (campaign, slot).
type DraftStore interface {
	GetBySlot(ctx context.Context, campaignID string, slot int) (*Draft, error)
	Upsert(ctx context.Context, d *Draft) error
	ListByCampaign(ctx context.Context, campaignID string) ([]*Draft, error)
	Approve(ctx context.Context, campaignID, draftID string) error
}

// ReceiptRepository persists delivery receipts. CommitSend is the single
// serialization point of the engine: in one transaction it inserts the receipt
// if absent and, only when the insert won, bumps the lead's send counter and
// last-sent instant. It returns false when another delivery already committed
// the slot.
type ReceiptRepository interface {
	CountSentBetween(ctx context.Context, campaignID string, from, to time.Time) (int, error)
	Exists(ctx context.Context, campaignLeadID string, slot int) (bool, error)
	CommitSend(ctx context.Context, campaignLeadID string, slot int, sentAt time.Time) (bool, error)
	CountReceipts(ctx context.Context) (int, error)
}

// Notifier reports operational events. Implementations must not block the
// scheduling or delivery path on failure; errors are logged and swallowed.
type Notifier interface {
	CampaignCompleted(campaignID, name string)
	DeliveryDeadLettered(job DispatchJob, cause error)
}
