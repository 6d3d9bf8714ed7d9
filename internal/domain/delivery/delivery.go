// internal/domain/delivery/delivery.go
package delivery

import (
	"fmt"
	"time"
)

// DispatchJob is the payload the scheduler enqueues for the delivery worker.
// Its identity is deterministic, so re-enqueuing the same logical job is a
// no-op at the queue layer.
type DispatchJob struct {
	CampaignID     string `json:"campaignId"`
	CampaignLeadID string `json:"campaignLeadId"`
	ScheduledSlot  int    `json:"scheduledSlot"`
}

// ID returns the deterministic job identity used for queue deduplication.
func (j DispatchJob) ID() string {
	return fmt.Sprintf("%s:%s:%d", j.CampaignID, j.CampaignLeadID, j.ScheduledSlot)
}

// Draft is a generated message body for one (campaign, slot) pair. Drafts
// start unapproved and are only sent once approved.
type Draft struct {
	ID            string
	CampaignID    string
	ScheduledSlot int
	Subject       string
	BodyHTML      string
	Approved      bool
	CreatedAt     time.Time
}

// SentEmail is the delivery receipt. The uniqueness of its
// (CampaignLeadID, ScheduledSlot) key is the idempotency guarantee: the row is
// created exactly once and never updated or deleted.
type SentEmail struct {
	CampaignLeadID string
	ScheduledSlot  int
	SentAt         time.Time
}
