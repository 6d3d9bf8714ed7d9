package lead

import (
	"database/sql"
	"time"
)

// Lead is a contact that can be enrolled into campaigns.
type Lead struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// CampaignLead is the enrollment of a lead into one campaign. EmailsSentCount
// is monotonically non-decreasing and doubles as the lead's next send slot;
// both fields are mutated only by the delivery worker after a confirmed send.
type CampaignLead struct {
	ID              string
	CampaignID      string
	LeadID          string
	EmailsSentCount int
	LastSentAt      sql.NullTime
	CreatedAt       time.Time
}
